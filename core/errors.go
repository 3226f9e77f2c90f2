package core

import "github.com/pkg/errors"

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

// ValidationError indicates malformed or missing input.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// NotFoundError indicates that a referenced record does not exist.
type NotFoundError struct {
	Err error
}

func NewNotFoundError(err error) error { return &NotFoundError{err} }

func (err NotFoundError) Error() string { return err.Err.Error() }

// ConflictError indicates that the operation conflicts with the current
// state of the record (duplicate presence, already checked out, ...).
type ConflictError struct {
	Err error
}

func NewConflictError(err error) error { return &ConflictError{err} }

func (err ConflictError) Error() string { return err.Err.Error() }

// AuthorizationError indicates that the acting user's role does not
// permit the operation.
type AuthorizationError struct {
	Err error
}

func NewAuthorizationError(err error) error { return &AuthorizationError{err} }

func (err AuthorizationError) Error() string { return err.Err.Error() }

// InvalidCredentialError indicates a failed credential check (bad
// password, PIN mismatch).
type InvalidCredentialError struct {
	Err error
}

func NewInvalidCredentialError(err error) error { return &InvalidCredentialError{err} }

func (err InvalidCredentialError) Error() string { return err.Err.Error() }

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
