package handlers

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every failed API call.
type ErrorResponse struct {
	Success   bool   `json:"success"`
	Code      string `json:"code"`
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

func respondJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, requestID, code, message string, status int) {
	respondJSON(w, ErrorResponse{
		Success:   false,
		Code:      code,
		Error:     message,
		RequestID: requestID,
	}, status)
}
