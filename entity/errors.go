package entity

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrValidation      = errors.New("validation error")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrWindowViolation = errors.New("outside allowed time window")
	ErrForbidden       = errors.New("forbidden")
	ErrQuotaExhausted  = fmt.Errorf("%w: coupon quota exhausted", ErrConflict)
)

// Invalid wraps ErrValidation with a field message.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// WindowError reports an operation attempted outside its time window.
// Boundary is the instant the caller has to compare against.
type WindowError struct {
	Reason   string
	Boundary time.Time
}

func (e *WindowError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.Boundary.UTC().Format(time.RFC3339))
}

func (e *WindowError) Unwrap() error {
	return ErrWindowViolation
}

func NewWindowError(reason string, boundary time.Time) *WindowError {
	return &WindowError{Reason: reason, Boundary: boundary}
}
