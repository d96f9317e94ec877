// Package domainerrors provides coded errors for the registration domain.
//
// Services translate infrastructure sentinels (pkg/platform/sentinel) into
// these coded errors at the service boundary; the HTTP layer translates the
// codes into status codes (pkg/http-errors). Codes are stable API; messages
// are for humans and may change.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code classifies a domain error.
type Code string

const (
	// CodeValidation marks malformed input. Always field-scoped and
	// recoverable by the caller retrying with corrected input.
	CodeValidation Code = "validation"
	// CodeConflict marks a uniqueness violation on username or email.
	CodeConflict Code = "conflict"
	// CodeInvalidToken marks an unknown, consumed, or expired verification
	// token. The three cases are intentionally indistinguishable so callers
	// cannot probe token state.
	CodeInvalidToken Code = "invalid_token"
	// CodeNotFound marks a failed lookup by id, username, email or public id.
	CodeNotFound Code = "not_found"
	// CodeBadRequest marks a structurally unusable request (missing token
	// parameter, unparsable public id).
	CodeBadRequest Code = "bad_request"
	// CodeInvariantViolation marks a broken aggregate invariant. Constructors
	// and transition methods return it; services convert it to CodeValidation
	// at the API boundary.
	CodeInvariantViolation Code = "invariant_violation"
	// CodeInternal marks store or downstream failures surfaced as-is. This
	// core does not retry; retry policy belongs to the store adapter.
	CodeInternal Code = "internal"
)

// Error is a coded domain error. Field is set for validation and conflict
// errors to name the offending field.
type Error struct {
	Code    Code
	Field   string
	Message string
	err     error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// New builds a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a coded error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// NewField builds a field-scoped coded error.
func NewField(code Code, field, message string) *Error {
	return &Error{Code: code, Field: field, Message: message}
}

// Wrap attaches a code and message to an underlying error, keeping the cause
// reachable through errors.Is/As.
func Wrap(err error, code Code, message string) *Error {
	return &Error{Code: code, Message: message, err: err}
}

// WithField scopes the error to a named field and returns it for chaining.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// HasCode reports whether err carries the given code anywhere in its chain.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, or CodeInternal when err is uncoded.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}

// FieldOf extracts the offending field from err, or "" when unscoped.
func FieldOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Field
	}
	return ""
}
