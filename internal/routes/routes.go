package routes

import (
	"net/http"
	"visionbridge/internal/config"
	"visionbridge/internal/handlers"
	"visionbridge/internal/logger"
	"visionbridge/internal/middleware"
	"visionbridge/internal/services"

	"github.com/gorilla/mux"
)

// SetupRoutes registers the API endpoints and wraps them with request id
// and access log middleware.
func SetupRoutes(manager *services.Manager, cfg *config.Config, logger *logger.Logger) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.RequestID, middleware.AccessLog(logger))

	// API endpoints
	r.HandleFunc("/detect-objects", handlers.DetectObjectsHandler(manager, cfg)).Methods(http.MethodPost)
	r.HandleFunc("/ask", handlers.AskHandler(manager)).Methods(http.MethodGet)
	r.HandleFunc("/health", handlers.HealthHandler(manager)).Methods(http.MethodGet)
	r.HandleFunc("/metrics", handlers.MetricsHandler(manager)).Methods(http.MethodGet)

	// Live viewers
	r.HandleFunc("/api/view", handlers.ViewWebsocketHandler(manager, logger)).Methods(http.MethodGet)

	// Log endpoints
	r.HandleFunc("/logs/{level:info|warning|error}", handlers.ShowLogsHandler(logger)).Methods(http.MethodGet)
	r.HandleFunc("/logs/{level:info|warning|error}/clear", handlers.ClearLogsHandler(logger)).Methods(http.MethodPost)

	return r
}
