package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error so callers can branch on it without string matching.
type Kind string

const (
	// KindValidation marks a malformed or missing required field.
	KindValidation Kind = "VALIDATION"
	// KindNotFound marks an absent referenced entity.
	KindNotFound Kind = "NOT_FOUND"
	// KindConflict marks a uniqueness violation such as a duplicate email.
	KindConflict Kind = "CONFLICT"
	// KindAuthenticationRequired marks a request without a verified actor.
	KindAuthenticationRequired Kind = "AUTHENTICATION_REQUIRED"
	// KindAuthorizationDenied marks a role or ownership failure.
	KindAuthorizationDenied Kind = "AUTHORIZATION_DENIED"
	// KindDependencyUnavailable marks an unreachable store.
	KindDependencyUnavailable Kind = "DEPENDENCY_UNAVAILABLE"
	// KindInternal marks everything else.
	KindInternal Kind = "INTERNAL"
)

// Error is a structured domain error: a kind plus a stable machine code and a
// human message. It optionally wraps a cause.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Validation builds a VALIDATION error.
func Validation(code, message string) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: message}
}

// NotFound builds a NOT_FOUND error.
func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

// Conflict builds a CONFLICT error.
func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Unauthenticated builds an AUTHENTICATION_REQUIRED error.
func Unauthenticated(code, message string) *Error {
	return &Error{Kind: KindAuthenticationRequired, Code: code, Message: message}
}

// Denied builds an AUTHORIZATION_DENIED error. The code carries the engine's
// denial reason so it is never silently downgraded.
func Denied(code, message string) *Error {
	return &Error{Kind: KindAuthorizationDenied, Code: code, Message: message}
}

// Unavailable builds a DEPENDENCY_UNAVAILABLE error wrapping the cause.
func Unavailable(message string, err error) *Error {
	return &Error{Kind: KindDependencyUnavailable, Code: "DEPENDENCY_UNAVAILABLE", Message: message, Err: err}
}

// Internal wraps an unexpected error.
func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL_ERROR", Message: message, Err: err}
}

// KindOf extracts the kind from err, or KindInternal for unclassified errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf extracts the machine code from err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "INTERNAL_ERROR"
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{Error: e.Message, Code: e.Code}
}

// MapErrorToHTTP maps a domain error to an HTTP error by kind.
func MapErrorToHTTP(err error) *HTTPError {
	var e *Error
	if !errors.As(err, &e) {
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "internal server error", Code: "INTERNAL_ERROR"}
	}
	status := http.StatusInternalServerError
	switch e.Kind {
	case KindValidation:
		status = http.StatusBadRequest
	case KindNotFound:
		status = http.StatusNotFound
	case KindConflict:
		status = http.StatusConflict
	case KindAuthenticationRequired:
		status = http.StatusUnauthorized
	case KindAuthorizationDenied:
		status = http.StatusForbidden
	case KindDependencyUnavailable:
		status = http.StatusServiceUnavailable
	}
	return &HTTPError{StatusCode: status, Message: e.Message, Code: e.Code}
}
