package services

import (
	"errors"
	"fmt"

	"tailor-pos/internal/store"
)

var (
	// ErrValidation is wrapped by every ValidationError
	ErrValidation = errors.New("validation failed")
	// ErrCheckoutInProgress is returned while the same terminal still has a
	// checkout in flight
	ErrCheckoutInProgress = errors.New("a checkout is already in progress for this terminal")
	// ErrOperationFailed is what the cashier sees when a commit could not
	// be completed. Nothing was written.
	ErrOperationFailed = errors.New("operation failed, nothing was changed")
)

// ValidationError is a precondition failure detected before any write.
// Line is the 1-based cart line at fault, 0 when the error is not tied to one.
type ValidationError struct {
	Line    int    `json:"line,omitempty"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func invalidLine(line int, field, format string, args ...any) error {
	return &ValidationError{Line: line, Field: field, Message: fmt.Sprintf(format, args...)}
}

// retryable reports whether the whole transaction may be run again
func retryable(err error) bool {
	return errors.Is(err, store.ErrConflict) || errors.Is(err, store.ErrUnavailable)
}
