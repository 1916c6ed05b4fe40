package utils

import (
	"errors"
	"fmt"
)

// ErrInvariant marks internal invariant violations (non-monotonic timeline,
// negative latency). Callers withhold the affected entity's output and report
// the violation instead of exporting wrong figures.
var ErrInvariant = errors.New("invariant violation")

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// InvariantError builds an AppError chained to ErrInvariant.
func InvariantError(op, msg string) error {
	return &AppError{Op: op, Msg: msg, Err: ErrInvariant}
}
