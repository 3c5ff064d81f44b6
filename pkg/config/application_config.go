package config

import (
	"fmt"

	"github.com/nspcc-dev/oracle-bridge/pkg/core/storage/dbconfig"
	"go.uber.org/zap/zapcore"
)

// ApplicationConfiguration config specific to the node.
type ApplicationConfiguration struct {
	LogLevel        string                   `yaml:"LogLevel"`
	LogPath         string                   `yaml:"LogPath"`
	DBConfiguration dbconfig.DBConfiguration `yaml:"DBConfiguration"`
	RPC             RPC                      `yaml:"RPC"`
	Prometheus      BasicService             `yaml:"Prometheus"`
	Pprof           BasicService             `yaml:"Pprof"`
	Oracle          OracleConfiguration      `yaml:"Oracle"`
}

// Validate checks ApplicationConfiguration for internal consistency and returns
// an error if any invalid settings are found.
func (a *ApplicationConfiguration) Validate() error {
	if _, err := zapcore.ParseLevel(a.LogLevel); err != nil {
		return fmt.Errorf("invalid LogLevel: %w", err)
	}
	switch a.DBConfiguration.Type {
	case dbconfig.BadgerDB, dbconfig.BoltDB, dbconfig.LevelDB, dbconfig.RedisDB, dbconfig.InMemoryDB:
	default:
		return fmt.Errorf("unknown DB type %q", a.DBConfiguration.Type)
	}
	if err := a.RPC.Validate(); err != nil {
		return fmt.Errorf("invalid RPC config: %w", err)
	}
	if err := a.Oracle.Validate(); err != nil {
		return fmt.Errorf("invalid Oracle config: %w", err)
	}
	return nil
}
