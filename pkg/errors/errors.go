// Package errors carries the storefront's typed error codes and the HTTP
// semantics attached to each one.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodeProvider      Code = "PROVIDER_ERROR"
	CodeConfiguration Code = "CONFIGURATION_ERROR"
)

// Metadata is how a code reaches API callers. Details on the error are only
// rendered when DetailsAllowed is set.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

// MetadataFor treats unknown codes as CodeInternal.
func MetadataFor(code Code) Metadata {
	switch code {
	case CodeValidation:
		return Metadata{http.StatusBadRequest, false, "the request is invalid", true}
	case CodeUnauthorized:
		return Metadata{http.StatusUnauthorized, false, "authentication required", false}
	case CodeForbidden:
		return Metadata{http.StatusForbidden, false, "not allowed", false}
	case CodeNotFound:
		return Metadata{http.StatusNotFound, false, "not found", false}
	case CodeConflict:
		return Metadata{http.StatusConflict, false, "already exists", false}
	case CodeStateConflict:
		return Metadata{http.StatusUnprocessableEntity, false, "the order cannot move to that state", true}
	case CodeIdempotency:
		return Metadata{http.StatusConflict, false, "idempotency key already used", true}
	case CodeRateLimit:
		return Metadata{http.StatusTooManyRequests, true, "too many requests", false}
	case CodeDependency:
		return Metadata{http.StatusServiceUnavailable, true, "a backing service is unavailable", true}
	case CodeProvider:
		return Metadata{http.StatusBadGateway, true, "the fulfillment provider failed", true}
	case CodeConfiguration:
		return Metadata{http.StatusInternalServerError, false, "the store is not configured for this", false}
	}
	return Metadata{http.StatusInternalServerError, true, "something went wrong", false}
}

// Error is a coded error with an optional cause and caller-safe details.
// Accessors tolerate a nil receiver.
type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Newf(code Code, format string, args ...any) *Error {
	return &Error{code: code, message: fmt.Sprintf(format, args...)}
}

// Wrap attaches code and message to err. A nil err gives the same result as
// New.
func Wrap(code Code, err error, message string) *Error {
	return &Error{code: code, message: message, cause: err}
}

func Wrapf(code Code, err error, format string, args ...any) *Error {
	return Wrap(code, err, fmt.Sprintf(format, args...))
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

// WithDetails sets caller-visible details and returns e for chaining.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause == nil:
		return string(e.code) + ": " + e.message
	}
	return string(e.code) + ": " + e.message + ": " + e.cause.Error()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// Is matches any *Error carrying the same code, so errors.Is(err,
// New(CodeNotFound, "")) works as a code test.
func (e *Error) Is(target error) bool {
	other, ok := target.(*Error)
	return ok && e != nil && other != nil && e.code == other.code
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// CodeOf reports err's code. Untyped errors count as CodeInternal.
func CodeOf(err error) Code {
	return As(err).Code()
}

// IsRetryable reports whether a caller may repeat the operation that
// produced err.
func IsRetryable(err error) bool {
	return err != nil && MetadataFor(CodeOf(err)).Retryable
}
