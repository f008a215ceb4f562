package models

import "errors"

// ErrNotFound is returned when a rule id does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a rule name is already taken.
var ErrConflict = errors.New("conflict")

// ValidationError reports rejected input. It is never retried and is
// surfaced to the caller as a 422.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// NewValidationError creates a ValidationError with the given reason.
func NewValidationError(reason string) error {
	return &ValidationError{Reason: reason}
}
