// Package apperr provides standardized domain error types for the application.
// Domain services and the search client return these typed errors, and the HTTP
// layer maps them to status codes and envelope messages.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind represents the category of error.
type Kind int

const (
	// KindUnknown is the default error kind when none is specified.
	KindUnknown Kind = iota
	// KindNotFound indicates a semantically valid request with no matching entity.
	KindNotFound
	// KindValidation indicates invalid caller input. Never retried.
	KindValidation
	// KindBadRequest indicates a malformed request body.
	KindBadRequest
	// KindInternal indicates an unexpected internal error.
	KindInternal
	// KindTransport indicates a network, timeout or upstream 5xx failure.
	KindTransport
	// KindTooManyRequests indicates the caller was rate limited.
	KindTooManyRequests
	// KindUnavailable indicates every requested source failed.
	KindUnavailable
)

// String returns the wire name of the kind, used in envelopes and ErrorInfo.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindBadRequest:
		return "bad_request"
	case KindInternal:
		return "internal"
	case KindTransport:
		return "transport"
	case KindTooManyRequests:
		return "too_many_requests"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

// FieldError names the request field that failed validation and why.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// Error is a domain error with a typed Kind for HTTP mapping.
type Error struct {
	Kind    Kind
	Message string
	Op      string      // Operation that failed (optional)
	Err     error       // Underlying error (optional)
	Details interface{} // Additional details for response (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// HTTPStatus returns the appropriate HTTP status code for this error kind.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindInternal:
		return http.StatusInternalServerError
	case KindTransport:
		return http.StatusBadGateway
	case KindTooManyRequests:
		return http.StatusTooManyRequests
	case KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusBadRequest
	}
}

// Fields returns the field-level validation details, if any.
func (e *Error) Fields() []FieldError {
	fields, _ := e.Details.([]FieldError)
	return fields
}

// New creates a new domain error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new domain error wrapping an existing error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithOp returns the error with the operation set.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// WithDetails returns the error with additional details.
func (e *Error) WithDetails(details interface{}) *Error {
	e.Details = details
	return e
}

// Convenience constructors for common error types.

// NotFound creates a not found error.
func NotFound(message string) *Error {
	return New(KindNotFound, message)
}

// Validation creates a validation error.
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// InvalidFields creates a validation error carrying field-level details.
// The message lists the offending fields so it is useful without the details.
func InvalidFields(fields ...FieldError) *Error {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return New(KindValidation, strings.Join(parts, "; ")).WithDetails(fields)
}

// BadRequest creates a bad request error.
func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

// Internal creates an internal server error.
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// Transport creates a transport error wrapping the last failure.
func Transport(message string, err error) *Error {
	return Wrap(KindTransport, message, err)
}

// TooManyRequests creates a rate limit error.
func TooManyRequests(message string) *Error {
	return New(KindTooManyRequests, message)
}

// Unavailable creates a total failure error.
func Unavailable(message string) *Error {
	return New(KindUnavailable, message)
}

// GetKind extracts the error kind from an error chain.
// Returns KindUnknown if no *Error is found.
func GetKind(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is checks if err is an *Error with the given kind.
func Is(err error, kind Kind) bool {
	return GetKind(err) == kind
}
