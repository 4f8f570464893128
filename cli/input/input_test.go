package input

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/term"
)

func TestReadPassword(t *testing.T) {
	out := new(bytes.Buffer)
	Terminal = term.NewTerminal(ReadWriter{Reader: bytes.NewBufferString("secret\r"), Writer: out}, "")
	t.Cleanup(func() { Terminal = nil })

	pass, err := ReadPassword("Password > ")
	require.NoError(t, err)
	require.Equal(t, "secret", pass)
	require.Contains(t, out.String(), "Password > ")
}
