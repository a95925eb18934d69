// Package credentials resolves the vendor API key. Without a key nothing runs.
package credentials

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

var ErrCredentialMissing = errors.New("API key missing: set OPENAI_API_KEY or enter it when prompted")

// Prompter asks a human for a secret.
type Prompter interface {
	PromptSecret(label string) (string, error)
}

// Resolve returns the configured key, or asks p when none is configured. A
// nil prompter means non-interactive.
func Resolve(configured string, p Prompter) (string, error) {
	if key := strings.TrimSpace(configured); key != "" {
		return key, nil
	}
	if p == nil {
		return "", ErrCredentialMissing
	}
	key, err := p.PromptSecret("OpenAI API key: ")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCredentialMissing, err)
	}
	if key = strings.TrimSpace(key); key == "" {
		return "", ErrCredentialMissing
	}
	return key, nil
}

// Terminal reads a secret from a TTY without echo.
type Terminal struct {
	In  *os.File
	Out io.Writer
}

// NewTerminal returns nil when stdin is not a terminal, which makes Resolve
// fail closed instead of blocking on a pipe.
func NewTerminal() Prompter {
	fd := os.Stdin.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return nil
	}
	return &Terminal{In: os.Stdin, Out: os.Stderr}
}

func (t *Terminal) PromptSecret(label string) (string, error) {
	fmt.Fprint(t.Out, label)
	b, err := term.ReadPassword(int(t.In.Fd()))
	fmt.Fprintln(t.Out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
