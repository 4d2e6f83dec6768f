package cli

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/prscore/internal/infrastructure/clipboard"
	"github.com/felixgeelhaar/prscore/internal/infrastructure/config"
	"github.com/felixgeelhaar/prscore/pkg/application"
	"github.com/felixgeelhaar/prscore/pkg/client"
	"github.com/felixgeelhaar/prscore/pkg/domain/analysis"
	"github.com/felixgeelhaar/prscore/pkg/domain/prurl"
	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
	"github.com/felixgeelhaar/prscore/pkg/report"
	"github.com/felixgeelhaar/prscore/pkg/storage"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	var backendErr *client.BackendError
	if errors.As(err, &backendErr) {
		return NewCLIError(
			backendErr.Message,
			fmt.Sprintf("The backend rejected the request (%s)", backendErr.Detail()),
			err,
		)
	}

	var itemErr *rubric.ItemError
	if errors.As(err, &itemErr) {
		return NewCLIError(
			itemErr.Error(),
			fmt.Sprintf("Fix it with 'prscore rubric set %d <field> <value>'", itemErr.Index+1),
			err,
		)
	}

	var cbErr *clipboard.ClipboardError
	if errors.As(err, &cbErr) {
		return NewCLIError(report.CopyFailedMessage, "Install xclip, xsel or wl-copy, or use 'prscore report' and copy by hand", err)
	}

	switch {
	case errors.Is(err, analysis.ErrMalformedResponse):
		return NewCLIError("the backend returned an unexpected response", "Check that --api-url points at the analysis backend", err)
	case errors.Is(err, application.ErrFileRequestIncomplete):
		return NewCLIError("PR URL and file path are both required", "Usage: prscore analyze-file <pr-url> <file-path>", err)
	case errors.Is(err, prurl.ErrNotPullRequest):
		return NewCLIError("not a GitHub pull request URL", "Use a URL like https://github.com/owner/repo/pull/123", err)
	case errors.Is(err, storage.ErrNoResult):
		return NewCLIError("no saved analysis found", "Run 'prscore analyze <pr-url>' first", err)
	case errors.Is(err, storage.ErrNoRubric):
		return NewCLIError("no rubric file found", "Run 'prscore rubric init' to create one", err)
	case errors.Is(err, report.ErrNothingToCopy):
		return NewCLIError("the analysis has no response text", "Re-run the analysis", err)
	case errors.Is(err, rubric.ErrInvalidWeight):
		return NewCLIError("weight must be a number", "Use a plain number such as 25 or 12.5", err)
	case errors.Is(err, rubric.ErrIndexOutOfRange):
		return NewCLIError("no such rubric item", "Run 'prscore rubric show' to list items", err)
	case errors.Is(err, rubric.ErrUnknownField):
		return NewCLIError("unknown rubric field", "Use one of: criterion, weight, description", err)
	case errors.Is(err, config.ErrUnknownKey):
		return NewCLIError("unknown config key", "Use one of: api_url, timeout, log_level, rubric_file", err)
	}

	var netErr *client.NetworkError
	if errors.As(err, &netErr) {
		return NewCLIError(client.UserMessage(err), "Is the analysis backend running? Check --api-url or PRSCORE_API_URL", err)
	}

	return err
}
