// Package input reads prompted answers (labels, passwords) from the user.
package input

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Terminal replaces stdin when set, tests use it to feed answers.
var Terminal *term.Terminal

// ReadLine prints prompt and reads a single line without the line ending.
func ReadLine(w io.Writer, prompt string) (string, error) {
	var (
		line string
		err  error
	)
	if Terminal != nil {
		if _, err = io.WriteString(Terminal, prompt); err != nil {
			return "", err
		}
		line, err = Terminal.ReadLine()
	} else {
		fmt.Fprint(w, prompt)
		line, err = bufio.NewReader(os.Stdin).ReadString('\n')
	}
	return strings.TrimRight(line, "\r\n"), err
}

// ReadPassword prints prompt and reads a line with echo disabled.
func ReadPassword(w io.Writer, prompt string) (string, error) {
	if Terminal != nil {
		return Terminal.ReadPassword(prompt)
	}
	fmt.Fprint(w, prompt)
	defer fmt.Fprintln(w)
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(string(pass), "\r\n"), nil
}
