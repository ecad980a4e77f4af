// Package shared holds response helpers used by every REST handler.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	pkgerrors "nvi/pkg/domain-errors"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON writes a JSON body with the given status.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// WriteError maps a domain error onto its HTTP status and writes the uniform
// error body. Wrapped internal details stay out of the message.
func WriteError(w http.ResponseWriter, err error) {
	message := err.Error()
	var de *pkgerrors.Error
	if errors.As(err, &de) {
		message = de.Message
	}
	WriteJSON(w, pkgerrors.HTTPStatus(err), ErrorResponse{
		Code:    string(pkgerrors.CodeOf(err)),
		Message: message,
	})
}
