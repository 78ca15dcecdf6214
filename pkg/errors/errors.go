package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss          = New("CACHE_MISS", http.StatusNotFound, "cache miss")
)

// Event-engine errors. MISSING_VISIBILITY is a configuration-integrity defect:
// the policy table lacks an entry for a (model, event type) pair and must be
// fixed by completing the table, never retried.
var (
	ErrMissingVisibility = New("MISSING_VISIBILITY", http.StatusInternalServerError, "no visibility defined for event")
	ErrMissingJournal    = New("MISSING_JOURNAL", http.StatusNotFound, "journal not found")
	ErrMissingField      = New("MISSING_FIELD", http.StatusBadRequest, "required field missing")
	ErrMissingEvent      = New("MISSING_EVENT", http.StatusNotFound, "event not found")
	ErrMissingContext    = New("MISSING_CONTEXT", http.StatusBadRequest, "required context missing")
	ErrInsertFailed      = New("INSERT_FAILED", http.StatusInternalServerError, "insert affected no rows")
	ErrUpdateFailed      = New("UPDATE_FAILED", http.StatusBadRequest, "no updatable fields provided")
	ErrUpdateFailure     = New("UPDATE_FAILURE", http.StatusInternalServerError, "update affected no rows")
	ErrNotImplemented    = New("NOT_IMPLEMENTED", http.StatusNotImplemented, "path not implemented")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
