package errors

import (
	stderrors "errors"
	"net/http"
)

// Kind classifies application errors.
type Kind string

const (
	KindValidation Kind = "validation"
	KindConflict   Kind = "conflict"
	KindNotFound   Kind = "not_found"
	KindUnrouted   Kind = "unrouted"
	KindInternal   Kind = "internal"
)

// DefaultMessage is used when an error carries no message.
const DefaultMessage = "Internal Server Issue"

// Common application errors
var (
	ErrNameEmailRequired = NewValidationError("name & email is required")
	ErrInvalidUserID     = NewValidationError("invalid userId")
	ErrInvalidBody       = NewValidationError("invalid request body")
	ErrEmailExists       = NewConflictError("email already exists")
	ErrUserNotFound      = NewNotFoundError("no user found")
	ErrNoRoute           = NewUnroutedError()
)

// AppError is an error with a kind, an HTTP status and a client-facing message.
type AppError struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil && e.Message != "" {
		return e.Message + ": " + e.Err.Error()
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches AppErrors with the same kind and message, so sentinels work with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Message == t.Message
}

// NewValidationError creates a 400 error
func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Status: http.StatusBadRequest, Message: message}
}

// NewConflictError creates a 409 error
func NewConflictError(message string) *AppError {
	return &AppError{Kind: KindConflict, Status: http.StatusConflict, Message: message}
}

// NewNotFoundError creates a 404 error for a missing record
func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Status: http.StatusNotFound, Message: message}
}

// NewUnroutedError creates the 404 error for requests no route matches
func NewUnroutedError() *AppError {
	return &AppError{Kind: KindUnrouted, Status: http.StatusNotFound, Message: "No Routes Found"}
}

// NewInternalError creates a 500 error wrapping err
func NewInternalError(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Status: http.StatusInternalServerError, Message: message, Err: err}
}

// Wrap returns a copy of e carrying err as its cause.
func (e *AppError) Wrap(err error) *AppError {
	c := *e
	c.Err = err
	return &c
}

// StatusOf returns the HTTP status for err, defaulting to 500.
func StatusOf(err error) int {
	var appErr *AppError
	if stderrors.As(err, &appErr) && appErr.Status != 0 {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf returns the client-facing message for err.
// AppErrors expose only their Message; other errors expose their full text.
func MessageOf(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		if appErr.Message != "" {
			return appErr.Message
		}
		return DefaultMessage
	}
	if err == nil || err.Error() == "" {
		return DefaultMessage
	}
	return err.Error()
}
