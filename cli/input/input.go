/*
Package input reads user input (passwords mostly) from the terminal.
*/
package input

import (
	"io"
	"strings"

	"golang.org/x/term"
)

// ReadWriter combines reader and writer.
type ReadWriter struct {
	io.Reader
	io.Writer
}

// Terminal is a terminal used for input. If `nil`, /dev/tty (or stdin on
// Windows) is used.
var Terminal *term.Terminal

// ReadPassword reads user password with prompt.
func ReadPassword(prompt string) (string, error) {
	if Terminal != nil {
		return Terminal.ReadPassword(prompt)
	}
	pass, err := readSecurePassword(prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimRight(pass, "\r\n"), nil
}
