// Package clipboard adapts the OS clipboard for the sharing client. It
// screens out empty content before anything reaches the server.
package clipboard

import (
	"errors"
	"strings"

	"github.com/atotto/clipboard"
)

// ErrEmpty is returned when the local clipboard holds no usable text.
var ErrEmpty = errors.New("clipboard is empty")

// Adapter reads and writes the local clipboard. The read/write functions are
// swappable for tests.
type Adapter struct {
	read  func() (string, error)
	write func(string) error
}

// New returns an adapter backed by the OS clipboard.
func New() *Adapter {
	return &Adapter{
		read:  clipboard.ReadAll,
		write: clipboard.WriteAll,
	}
}

// NewWithFuncs returns an adapter with custom read/write functions.
func NewWithFuncs(read func() (string, error), write func(string) error) *Adapter {
	return &Adapter{read: read, write: write}
}

// Read returns the current clipboard text. Whitespace-only content counts
// as empty and yields ErrEmpty.
func (a *Adapter) Read() (string, error) {
	content, err := a.read()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", ErrEmpty
	}
	return content, nil
}

// Write replaces the clipboard content.
func (a *Adapter) Write(content string) error {
	return a.write(content)
}
