// Package apperr defines the error taxonomy shared by the Keycloak gateway,
// the services, and the HTTP layer. Every failure that crosses a component
// boundary is one of these kinds; transport-specific and driver-specific
// errors never escape the component that produced them.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind int

const (
	KindInvalid Kind = iota
	KindUnauthorized
	KindForbidden
	KindNotFound
	KindConflict
	KindUnavailable
)

type Error struct {
	Kind    Kind
	Code    string
	Message string
	Details interface{}
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// HTTPStatus maps the taxonomy kind to the status code the API surfaces.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindInvalid:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Invalid(message string) *Error {
	return &Error{Kind: KindInvalid, Code: "VALIDATION_FAILED", Message: message}
}

func Unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Code: "UNAUTHORIZED", Message: message}
}

func Forbidden(message string) *Error {
	return &Error{Kind: KindForbidden, Code: "FORBIDDEN", Message: message}
}

func NotFound(message string) *Error {
	return &Error{Kind: KindNotFound, Code: "NOT_FOUND", Message: message}
}

func Conflict(message string) *Error {
	return &Error{Kind: KindConflict, Code: "CONFLICT", Message: message}
}

func Unavailable(message string, cause error) *Error {
	return &Error{Kind: KindUnavailable, Code: "UPSTREAM_UNAVAILABLE", Message: message, cause: cause}
}

func WithDetails(e *Error, details interface{}) *Error {
	out := *e
	out.Details = details
	return &out
}

// As unwraps err into an *Error, or nil if err is not from the taxonomy.
func As(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

func IsKind(err error, kind Kind) bool {
	if appErr := As(err); appErr != nil {
		return appErr.Kind == kind
	}
	return false
}

// FromStatus normalizes an upstream HTTP status into the taxonomy. Statuses
// without a dedicated kind collapse into Unavailable so callers never branch
// on raw transport codes.
func FromStatus(status int, message string) *Error {
	switch status {
	case http.StatusUnauthorized:
		return Unauthorized(message)
	case http.StatusForbidden:
		return Forbidden(message)
	case http.StatusNotFound:
		return NotFound(message)
	case http.StatusConflict:
		return Conflict(message)
	default:
		return Unavailable(fmt.Sprintf("%s (upstream status %d)", message, status), nil)
	}
}
