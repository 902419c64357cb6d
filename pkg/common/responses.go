// Package common holds the JSON response envelope shared by all handlers.
package common

import (
	"encoding/json"
	"net/http"

	apperrors "jdbuilder/pkg/errors"
)

// APIResponse is the wire envelope for every endpoint. Success responses
// carry Data; failure responses carry Error and optionally Details.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details string      `json:"details,omitempty"`
}

// RespondJSON sends a success envelope.
func RespondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

// RespondError sends a failure envelope.
func RespondError(w http.ResponseWriter, status int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(APIResponse{
		Success: false,
		Error:   message,
		Details: details,
	})
}

// RespondAppError maps an application error onto the failure envelope,
// falling back to a generic 500 for unclassified errors.
func RespondAppError(w http.ResponseWriter, err error) {
	if appErr := apperrors.GetAppError(err); appErr != nil {
		status := appErr.HTTPStatus
		if status == 0 {
			status = http.StatusInternalServerError
		}
		RespondError(w, status, appErr.Message, appErr.Details)
		return
	}
	RespondError(w, http.StatusInternalServerError, "internal server error", "")
}

// ParseJSONBody decodes a JSON request body with a size limit.
func ParseJSONBody(w http.ResponseWriter, r *http.Request, v interface{}, maxBytes int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	return json.NewDecoder(r.Body).Decode(v)
}
