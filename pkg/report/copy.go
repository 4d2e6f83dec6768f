package report

import (
	"errors"

	"github.com/felixgeelhaar/prscore/pkg/domain/analysis"
)

// Acknowledgments shown after a copy attempt.
const (
	CopiedMessage     = "Analysis copied to clipboard!"
	CopyFailedMessage = "Failed to copy analysis"
)

// ErrNothingToCopy indicates a result without a model response.
var ErrNothingToCopy = errors.New("analysis has no response to copy")

// Clipboard receives the formatted report.
type Clipboard interface {
	WriteAll(text string) error
}

// Copy formats the result's response and writes it to the clipboard. The
// returned acknowledgment is meant for the user whatever the outcome.
func Copy(result *analysis.Result, cb Clipboard) (string, error) {
	if !result.HasContent() {
		return "", ErrNothingToCopy
	}
	if err := cb.WriteAll(Format(result.ClaudeResponse.Content)); err != nil {
		return CopyFailedMessage, err
	}
	return CopiedMessage, nil
}
