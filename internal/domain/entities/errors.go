package entities

import "errors"

// ErrorKind classifies domain errors for transport mapping
type ErrorKind string

const (
	KindValidation   ErrorKind = "validation"
	KindUnauthorized ErrorKind = "unauthorized"
	KindConflict     ErrorKind = "conflict"
	KindNotFound     ErrorKind = "not_found"
	KindInternal     ErrorKind = "internal"
)

// Error is a domain error whose Message is safe to show to clients.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Common errors
var (
	ErrTitleRequired       = &Error{Kind: KindValidation, Message: "title is required"}
	ErrCredentialsRequired = &Error{Kind: KindValidation, Message: "username and password are required"}
	ErrUsernameTaken       = &Error{Kind: KindConflict, Message: "username already taken"}
	ErrInvalidCredentials  = &Error{Kind: KindUnauthorized, Message: "invalid credentials"}
	ErrMissingToken        = &Error{Kind: KindUnauthorized, Message: "not authorized"}
	ErrInvalidToken        = &Error{Kind: KindUnauthorized, Message: "invalid token"}
	ErrTaskNotFound        = &Error{Kind: KindNotFound, Message: "task not found"}
	ErrUserNotFound        = &Error{Kind: KindNotFound, Message: "user not found"}
)

// NewValidationError builds a validation error with a custom message.
func NewValidationError(message string) error {
	return &Error{Kind: KindValidation, Message: message}
}

// KindOf returns the kind of the first domain error in err's chain.
// Errors without one are internal.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// MessageOf returns the client-facing message for err.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal server error"
}
