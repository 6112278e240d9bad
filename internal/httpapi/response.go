package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// envelope is the body of every JSON response.
type envelope struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func newRequestID() string {
	return "req_" + uuid.New().String()[:8]
}

func respondOK(w http.ResponseWriter, r *http.Request, message string, data any) {
	respondJSON(w, r, http.StatusOK, statusSuccess, message, data)
}

func respondError(w http.ResponseWriter, r *http.Request, status int, message string) {
	respondJSON(w, r, status, statusError, message, nil)
}

func respondJSON(w http.ResponseWriter, r *http.Request, status int, outcome, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{
		Status:    outcome,
		Message:   message,
		Data:      data,
		RequestID: RequestIDFromContext(r.Context()),
	})
}
