package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"visionbridge/internal/config"
	"visionbridge/internal/detection"
	"visionbridge/internal/logger"
	"visionbridge/internal/services/websocket"
)

type fakeDetector struct {
	ready bool
	raw   []detection.RawDetection
}

func (f *fakeDetector) Ready() bool { return f.ready }

func (f *fakeDetector) Infer(*detection.PixelGrid) ([]detection.RawDetection, error) {
	return f.raw, nil
}

func (f *fakeDetector) Label(classID int) (string, bool) {
	if classID == 1 {
		return "person", true
	}
	return "", false
}

type fakeAsker struct {
	answer string
	err    error
	prompt string
}

func (f *fakeAsker) Ask(ctx context.Context, prompt string) (string, error) {
	f.prompt = prompt
	return f.answer, f.err
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	img.SetRGBA(0, 0, color.RGBA{A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

func newTestManager(t *testing.T, detector detection.Detector, asker Asker) *Manager {
	t.Helper()
	log := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	hub := websocket.NewHubService(log)
	go hub.Run()
	t.Cleanup(hub.Stop)

	m := NewManager(detection.NewPipeline(detector), detector, asker, hub, log)
	t.Cleanup(m.Stop)
	return m
}

func TestManager_DetectCountsSuccess(t *testing.T) {
	detector := &fakeDetector{ready: true, raw: []detection.RawDetection{
		{ClassID: 1, Confidence: 0.8, Box: detection.Box{X1: 5, Y1: 5, X2: 30, Y2: 30}},
		{ClassID: 1, Confidence: 0.3, Box: detection.Box{X1: 1, Y1: 1, X2: 2, Y2: 2}},
	}}
	m := newTestManager(t, detector, &fakeAsker{})

	result, err := m.Detect("req-1", testPNG(t), "image/png", 0.5)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.TotalObjects != 1 {
		t.Errorf("TotalObjects = %d, expected 1", result.TotalObjects)
	}

	metrics := m.Metrics()
	if metrics.DetectRequests != 1 || metrics.DetectSucceeded != 1 || metrics.ObjectsDetected != 1 {
		t.Errorf("Unexpected metrics: %+v", metrics)
	}
}

func TestManager_DetectCountsFailuresByKind(t *testing.T) {
	m := newTestManager(t, &fakeDetector{ready: false}, &fakeAsker{})

	if _, err := m.Detect("req-1", testPNG(t), "image/png", 0.5); !errors.Is(err, detection.ErrDetectorUnavailable) {
		t.Errorf("err = %v, expected ErrDetectorUnavailable", err)
	}
	if _, err := m.Detect("req-2", testPNG(t), "text/plain", 0.5); !errors.Is(err, detection.ErrInvalidInput) {
		t.Errorf("err = %v, expected ErrInvalidInput", err)
	}

	metrics := m.Metrics()
	if metrics.DetectRequests != 2 || metrics.DetectSucceeded != 0 {
		t.Errorf("Unexpected metrics: %+v", metrics)
	}
	if metrics.DetectFailures["detector_unavailable"] != 1 || metrics.DetectFailures["invalid_input"] != 1 {
		t.Errorf("Unexpected failure counts: %v", metrics.DetectFailures)
	}
	if m.DetectorReady() {
		t.Error("DetectorReady should be false")
	}
}

func TestManager_Ask(t *testing.T) {
	asker := &fakeAsker{answer: "42"}
	m := newTestManager(t, &fakeDetector{ready: true}, asker)

	answer, err := m.Ask(context.Background(), "req-1", "meaning of life?")
	if err != nil {
		t.Fatalf("Ask failed: %v", err)
	}
	if answer != "42" || asker.prompt != "meaning of life?" {
		t.Errorf("answer = %q, prompt = %q", answer, asker.prompt)
	}

	asker.err = errors.New("connection refused")
	if _, err := m.Ask(context.Background(), "req-2", "again"); err == nil {
		t.Error("Expected error from failing asker")
	}

	metrics := m.Metrics()
	if metrics.AskRequests != 2 || metrics.AskFailures != 1 {
		t.Errorf("Unexpected metrics: %+v", metrics)
	}
}

func TestManager_MetricsSnapshotIsCopy(t *testing.T) {
	m := newTestManager(t, &fakeDetector{ready: false}, &fakeAsker{})
	m.Detect("req-1", testPNG(t), "image/png", 0.5)

	snapshot := m.Metrics()
	snapshot.DetectFailures["detector_unavailable"] = 100

	if m.Metrics().DetectFailures["detector_unavailable"] != 1 {
		t.Error("Metrics snapshot shares its map with the manager")
	}
}

func TestManager_DetectAfterStop(t *testing.T) {
	detector := &fakeDetector{ready: true, raw: []detection.RawDetection{
		{ClassID: 1, Confidence: 0.9, Box: detection.Box{X1: 5, Y1: 5, X2: 30, Y2: 30}},
	}}
	m := newTestManager(t, detector, &fakeAsker{})
	m.Stop()

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Detect after Stop panicked: %v", r)
		}
	}()

	result, err := m.Detect("req-1", testPNG(t), "image/png", 0.5)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if result.TotalObjects != 1 {
		t.Errorf("TotalObjects = %d, expected 1", result.TotalObjects)
	}
	if dropped := m.Metrics().EventsDropped; dropped != 0 {
		t.Errorf("EventsDropped = %d, expected 0", dropped)
	}
}

func TestManager_StopIsIdempotent(t *testing.T) {
	m := newTestManager(t, &fakeDetector{ready: true}, &fakeAsker{})
	m.Stop()
	m.Stop()
}
