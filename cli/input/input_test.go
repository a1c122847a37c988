package input

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/term"
)

func setTerminal(t *testing.T, in string) {
	Terminal = term.NewTerminal(ReadWriter{
		Reader: bytes.NewBufferString(in),
		Writer: io.Discard,
	}, "")
	t.Cleanup(func() { Terminal = nil })
}

func TestReadLine(t *testing.T) {
	setTerminal(t, "meow\r")
	line, err := ReadLine("> ")
	require.NoError(t, err)
	require.Equal(t, "meow", line)
}

func TestConfirm(t *testing.T) {
	for in, expected := range map[string]bool{
		"y\r":   true,
		"YES\r": true,
		"n\r":   false,
		"\r":    false,
		"yep\r": false,
	} {
		setTerminal(t, in)
		ok, err := Confirm("sure?")
		require.NoError(t, err)
		require.Equal(t, expected, ok, in)
	}

	setTerminal(t, "")
	_, err := Confirm("sure?")
	require.ErrorIs(t, err, io.EOF)
}
