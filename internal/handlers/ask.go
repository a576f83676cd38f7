package handlers

import (
	"errors"
	"net/http"
	"visionbridge/internal/middleware"
	"visionbridge/internal/services"
	"visionbridge/internal/services/ollama"
)

// AskResponse carries the model's answer.
type AskResponse struct {
	Response string `json:"response"`
}

// AskHandler forwards ?q= to the language model. An error status from the
// model is reported as a fallback answer, not as an HTTP error.
func AskHandler(manager *services.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.RequestIDFromContext(r.Context())

		question := r.URL.Query().Get("q")
		if question == "" {
			respondError(w, requestID, "invalid_request", "missing query parameter q", http.StatusBadRequest)
			return
		}

		answer, err := manager.Ask(r.Context(), requestID, question)
		if err != nil {
			if errors.Is(err, ollama.ErrUnexpectedStatus) {
				respondJSON(w, AskResponse{Response: ollama.FallbackResponse}, http.StatusOK)
				return
			}
			respondError(w, requestID, "upstream_error", err.Error(), http.StatusBadGateway)
			return
		}

		respondJSON(w, AskResponse{Response: answer}, http.StatusOK)
	}
}
