// Package clipboard writes reports to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"

	"github.com/atotto/clipboard"
)

// ErrUnsupported indicates no clipboard utility is available, e.g. a headless
// Linux box without xclip, xsel or wl-copy.
var ErrUnsupported = errors.New("clipboard is not available on this system")

// ClipboardError wraps a failed clipboard write.
type ClipboardError struct {
	Err error
}

func (e *ClipboardError) Error() string {
	return fmt.Sprintf("clipboard write failed: %v", e.Err)
}

func (e *ClipboardError) Unwrap() error {
	return e.Err
}

// System is the OS clipboard.
type System struct{}

func (System) WriteAll(text string) error {
	if clipboard.Unsupported {
		return &ClipboardError{Err: ErrUnsupported}
	}
	if err := clipboard.WriteAll(text); err != nil {
		return &ClipboardError{Err: err}
	}
	return nil
}

// Memory keeps the last written text. It stands in for the system clipboard
// in headless runs and tests.
type Memory struct {
	Text string
	Err  error
}

func (m *Memory) WriteAll(text string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Text = text
	return nil
}
