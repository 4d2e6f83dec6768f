package client

import (
	"context"
	"errors"
	"fmt"
)

// NetworkError reports a request that could not be sent or whose response
// could not be read. Its message is the underlying error's message.
type NetworkError struct {
	Endpoint string
	Err      error
}

func (e *NetworkError) Error() string {
	return e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// BackendError reports a non-2xx response.
type BackendError struct {
	Endpoint  string
	Status    int
	Message   string
	RequestID string
}

func (e *BackendError) Error() string {
	return e.Message
}

// Detail includes the status code and request id for logs.
func (e *BackendError) Detail() string {
	return fmt.Sprintf("%s returned %d (request %s): %s", e.Endpoint, e.Status, e.RequestID, e.Message)
}

// UserMessage returns the single line shown to the user for err.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, context.Canceled):
		return "Request cancelled"
	case errors.Is(err, context.DeadlineExceeded):
		return "Request timed out"
	}
	var be *BackendError
	if errors.As(err, &be) {
		return be.Message
	}
	var ne *NetworkError
	if errors.As(err, &ne) {
		return ne.Error()
	}
	return err.Error()
}
