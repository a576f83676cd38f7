package handlers

import (
	"net/http"
	"visionbridge/internal/services"
)

// HealthResponse reports liveness and detector readiness.
type HealthResponse struct {
	Status        string `json:"status"`
	DetectorReady bool   `json:"detector_ready"`
}

func HealthHandler(manager *services.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, HealthResponse{Status: "ok", DetectorReady: manager.DetectorReady()}, http.StatusOK)
	}
}

func MetricsHandler(manager *services.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, manager.Metrics(), http.StatusOK)
	}
}
