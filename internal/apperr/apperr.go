package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for HTTP mapping
type Kind int

const (
	// Internal is an unexpected database or runtime failure
	Internal Kind = iota
	// Unauthorized means no or invalid session
	Unauthorized
	// Forbidden means authenticated but not owner or admin
	Forbidden
	// NotFound means the entity does not exist
	NotFound
	// ConstraintViolation means a uniqueness or foreign-key violation
	ConstraintViolation
	// ValidationError means malformed input failing schema validation
	ValidationError
)

// Error carries a kind and a user-facing message. The wrapped cause, if any,
// is for server-side logs only.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an error of the given kind
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates an error of the given kind around a cause
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the kind from an error chain, defaulting to Internal
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return Internal
}

// IsKind reports whether the error chain carries the given kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error kind to an HTTP status code
func HTTPStatus(kind Kind) int {
	switch kind {
	case Unauthorized:
		return http.StatusUnauthorized
	case Forbidden:
		return http.StatusForbidden
	case NotFound:
		return http.StatusNotFound
	case ConstraintViolation:
		return http.StatusConflict
	case ValidationError:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Message returns the user-facing message for an error. Internal errors get a
// generic message; full detail stays in server-side logs.
func Message(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) && appErr.Kind != Internal {
		return appErr.Message
	}
	return "internal server error"
}
