package io

import (
	"fmt"
	"os"
	"path/filepath"
)

// MakeDirForFile creates all parent directories of filePath, creator is only
// used in the error message.
func MakeDirForFile(filePath string, creator string) error {
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("could not create dir for %s: %w", creator, err)
	}
	return nil
}
