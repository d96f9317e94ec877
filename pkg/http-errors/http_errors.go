// Package httperrors maps domain error codes onto HTTP status codes so every
// handler produces the same JSON error envelope.
package httperrors

import (
	"net/http"

	dErrors "signup/pkg/domain-errors"
)

// Status maps a domain error to its HTTP status code. Uncoded errors are
// treated as internal failures.
func Status(err error) int {
	switch dErrors.CodeOf(err) {
	case dErrors.CodeValidation, dErrors.CodeBadRequest, dErrors.CodeInvariantViolation:
		return http.StatusBadRequest
	case dErrors.CodeInvalidToken:
		// Unknown, consumed and expired tokens all map to the same status so
		// callers cannot distinguish them.
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
