/*
Package input reads user input for interactive CLI commands, either from the
test-controlled Terminal or from stdin.
*/
package input

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Terminal is a terminal used for input. If `nil`, stdin is used.
var Terminal *term.Terminal

// ReadWriter combines reader and writer.
type ReadWriter struct {
	io.Reader
	io.Writer
}

// ErrNotATerminal is returned when a confirmation is required, but stdin
// isn't a terminal and there is no test terminal set.
var ErrNotATerminal = errors.New("stdin is not a terminal, use --force to skip confirmation")

// ReadLine reads a line from the input without trailing '\n'.
func ReadLine(prompt string) (string, error) {
	trm := Terminal
	if trm == nil {
		s, err := term.MakeRaw(int(os.Stdin.Fd()))
		if err != nil {
			return readPlainLine(prompt)
		}
		defer func() { _ = term.Restore(int(os.Stdin.Fd()), s) }()
		trm = term.NewTerminal(ReadWriter{
			Reader: os.Stdin,
			Writer: os.Stdout,
		}, "")
	}
	return readLine(trm, prompt)
}

func readLine(trm *term.Terminal, prompt string) (string, error) {
	_, err := trm.Write([]byte(prompt))
	if err != nil {
		return "", err
	}
	return trm.ReadLine()
}

func readPlainLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	return strings.TrimRight(line, "\r\n"), err
}

// Confirm asks a yes/no question, only "y" and "yes" answers (case
// insensitive) are positive.
func Confirm(prompt string) (bool, error) {
	if Terminal == nil && !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, ErrNotATerminal
	}
	line, err := ReadLine(prompt + " [y/N] > ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}
