package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	"visionbridge/internal/config"
	"visionbridge/internal/detection"
	"visionbridge/internal/labels"
	"visionbridge/internal/logger"
	"visionbridge/internal/routes"
	"visionbridge/internal/services"
	"visionbridge/internal/services/ai"
	"visionbridge/internal/services/ollama"
	"visionbridge/internal/services/websocket"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config          *config.Config
	logger          *logger.Logger
	detectorService *ai.DetectorService
	hubService      *websocket.HubService
	manager         *services.Manager
}

func NewApp() (*App, error) {
	cfg := config.Load()
	log := logger.NewLogger(cfg)

	table, err := labels.LoadOrDefault(cfg.LabelsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load label table: %w", err)
	}

	detector := ai.NewDetectorService(cfg, table, log) // loaded once, shared by all requests
	pipeline := detection.NewPipeline(detector,
		detection.WithThreshold(cfg.DetectionThreshold),
		detection.WithJPEGQuality(cfg.JPEGQuality),
	)
	hub := websocket.NewHubService(log)
	chat := ollama.NewClient(cfg)

	mng := services.NewManager(pipeline, detector, chat, hub, log)

	return &App{
		config:          cfg,
		logger:          log,
		detectorService: detector,
		hubService:      hub,
		manager:         mng,
	}, nil
}

// Run serves HTTP until SIGINT/SIGTERM, then shuts down gracefully.
func (a *App) Run() error {
	go a.hubService.Run()

	router := routes.SetupRoutes(a.manager, a.config, a.logger)
	srv := &http.Server{
		Addr:        fmt.Sprintf("%s:%d", a.config.Host, a.config.Port),
		Handler:     router,
		ReadTimeout: 60 * time.Second,
		// Ollama answers can take minutes.
		WriteTimeout: a.config.OllamaTimeout + 30*time.Second,
	}

	a.logger.Info("Vision bridge listening on http://%s", srv.Addr)
	a.logger.Info("Detector ready: %v (model %s)", a.detectorService.Ready(), a.config.ModelPath)
	a.logger.Info("Ollama: %s (model %s)", a.config.OllamaURL, a.config.OllamaModel)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		a.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		a.logger.Info("Received %v, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		// Handlers are still running and may use the manager and detector.
		a.logger.Error("Graceful shutdown failed: %v", err)
		return err
	}
	a.close()
	return nil
}

func (a *App) close() {
	a.manager.Stop()
	a.hubService.Stop()
	a.detectorService.Close()
}
