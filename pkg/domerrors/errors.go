// Package domerrors defines coded domain errors. Services return these so
// transport layers can map outcomes to HTTP statuses without string matching.
// Stores return pkg/platform/sentinel errors instead; services translate.
package domerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code classifies a domain error for callers and for HTTP translation.
type Code string

const (
	// CodeValidation - malformed input: empty reason, inconsistent target
	// type, over-limit duration.
	CodeValidation Code = "validation_error"
	// CodeUnauthorized - caller is not an authenticated operator.
	CodeUnauthorized Code = "unauthorized"
	// CodeForbidden - authenticated but not permitted.
	CodeForbidden Code = "forbidden"
	// CodeNotFound - unknown justification/session/request id.
	CodeNotFound Code = "not_found"
	// CodeExpired - session no longer valid: naturally expired, revoked, or ended.
	CodeExpired Code = "session_expired"
	// CodeInvalidToken - malformed or unsigned session token.
	CodeInvalidToken Code = "invalid_token"
	// CodeUnavailable - transient persistence/network failure.
	CodeUnavailable Code = "unavailable"
	// CodeInternal - unexpected failure; details stay server-side.
	CodeInternal Code = "internal_error"
)

// Error carries a code, a human-readable message, and an optional cause.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New constructs a coded error with a human-readable message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf constructs a coded error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// MessageOf extracts the human-readable message, defaulting to a generic one.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return "internal error"
}

// ToHTTPStatus maps a code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeValidation:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeExpired, CodeInvalidToken:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
