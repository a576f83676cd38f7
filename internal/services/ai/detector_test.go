package ai

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
	"visionbridge/internal/config"
	"visionbridge/internal/detection"
	"visionbridge/internal/labels"
	"visionbridge/internal/logger"
)

func newMissingModelService(t *testing.T) *DetectorService {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		ModelPath:         filepath.Join(dir, "missing.pb"),
		ConfigPath:        filepath.Join(dir, "missing.pbtxt"),
		ProcessingWorkers: 2,
		LogDirectory:      dir,
	}
	return NewDetectorService(cfg, labels.COCO(), logger.NewLogger(cfg))
}

func TestDetectorService_MissingModelIsNotReady(t *testing.T) {
	service := newMissingModelService(t)

	if service.Ready() {
		t.Fatal("Ready() = true without a model")
	}
	if _, err := service.Infer(detection.NewPixelGrid(4, 4)); !errors.Is(err, detection.ErrDetectorUnavailable) {
		t.Errorf("err = %v, expected ErrDetectorUnavailable", err)
	}
}

func TestDetectorService_InferAfterCloseDoesNotBlock(t *testing.T) {
	service := newMissingModelService(t)
	service.Close()
	service.Close()

	done := make(chan error, 1)
	go func() {
		_, err := service.Infer(detection.NewPixelGrid(4, 4))
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, detection.ErrDetectorUnavailable) {
			t.Errorf("err = %v, expected ErrDetectorUnavailable", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Infer blocked after Close")
	}
}

func TestDetectorService_Label(t *testing.T) {
	service := newMissingModelService(t)

	if name, ok := service.Label(1); !ok || name != "person" {
		t.Errorf("Label(1) = %q, %v", name, ok)
	}
	if _, ok := service.Label(-1); ok {
		t.Error("Label(-1) resolved")
	}
}
