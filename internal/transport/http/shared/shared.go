// Package shared centralizes JSON and error envelope writing so every
// handler answers in the same shape.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "signup/pkg/domain-errors"
	httperrors "signup/pkg/http-errors"
)

// ErrorResponse is the uniform error envelope. Code is stable API; Message
// and Field are advisory.
type ErrorResponse struct {
	Code    string `json:"error"`
	Field   string `json:"field,omitempty"`
	Message string `json:"message,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a coded domain error into the JSON error envelope.
// Uncoded errors answer 500 with a generic message so internals never leak.
func WriteError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{
		Code:  string(dErrors.CodeOf(err)),
		Field: dErrors.FieldOf(err),
	}

	var de *dErrors.Error
	if errors.As(err, &de) && de.Code != dErrors.CodeInternal {
		resp.Message = de.Message
	} else {
		resp.Message = "internal server error"
	}

	WriteJSON(w, httperrors.Status(err), resp)
}
