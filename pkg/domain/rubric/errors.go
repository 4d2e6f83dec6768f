package rubric

import (
	"errors"
	"fmt"
)

// Domain errors for rubric editing.
var (
	// ErrIndexOutOfRange indicates the referenced item does not exist.
	ErrIndexOutOfRange = errors.New("rubric index out of range")

	// ErrStaleEdit indicates the rubric layout changed after the edit began.
	ErrStaleEdit = errors.New("rubric changed since edit began")

	// ErrUnknownField indicates the field is not criterion, weight or description.
	ErrUnknownField = errors.New("unknown rubric field")

	// ErrInvalidWeight indicates a weight value that is not a finite number.
	ErrInvalidWeight = errors.New("weight must be a number")

	// ErrEmptyCriterion indicates an item without a criterion label.
	ErrEmptyCriterion = errors.New("criterion is required")

	// ErrNegativeWeight indicates an item with a weight below zero.
	ErrNegativeWeight = errors.New("weight cannot be negative")
)

// ItemError points at the rubric item that failed validation.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("rubric item %d: %v", e.Index+1, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}
