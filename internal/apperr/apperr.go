// Package apperr defines the error kinds shared by the services and the API layer.
package apperr

import "errors"

// Error kinds. Match them with errors.Is.
var (
	ErrValidation     = errors.New("validation error")
	ErrAuthentication = errors.New("authentication error")
	ErrNotFound       = errors.New("not found")
	ErrUpstream       = errors.New("upstream error")
)

// Error carries a client-safe message, a kind and an optional internal cause.
type Error struct {
	kind    error
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.Message + ": " + e.cause.Error()
	}
	return e.Message
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.kind
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Validation returns an error for missing or malformed input.
func Validation(msg string) error {
	return &Error{kind: ErrValidation, Message: msg}
}

// Authentication returns an error for bad, missing or expired credentials.
func Authentication(msg string, cause error) error {
	return &Error{kind: ErrAuthentication, Message: msg, cause: cause}
}

// NotFound returns an error for absent resources, or resources not owned by the caller.
func NotFound(msg string) error {
	return &Error{kind: ErrNotFound, Message: msg}
}

// Upstream wraps a storage or database failure.
func Upstream(msg string, cause error) error {
	return &Error{kind: ErrUpstream, Message: msg, cause: cause}
}

// Message returns the client-safe message of err, or fallback if err is not an *Error.
func Message(err error, fallback string) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return fallback
}
