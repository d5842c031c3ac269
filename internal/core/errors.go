package core

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an entity does not exist or belongs to
	// another user. The two cases are indistinguishable on purpose.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is returned when an operation conflicts with the
	// current state of an entity. No mutation has happened.
	ErrInvalidState = errors.New("invalid state")

	ErrAlreadyPaid = fmt.Errorf("installment already paid: %w", ErrInvalidState)
	ErrNotPaid     = fmt.Errorf("installment is not paid: %w", ErrInvalidState)
	ErrSameAccount = fmt.Errorf("cannot transfer to the same account: %w", ErrInvalidState)
)

// ValidationError reports a malformed field supplied by the caller.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return e.Field + ": " + e.Err.Error()
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsNotFound reports whether err is a NotFound outcome.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidState reports whether err is an InvalidState outcome.
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
