package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"
	"visionbridge/internal/detection"
	"visionbridge/internal/logger"
	"visionbridge/internal/services/websocket"
)

const eventQueueSize = 100

// Asker answers a free-text prompt.
type Asker interface {
	Ask(ctx context.Context, prompt string) (string, error)
}

// DetectionEvent is what live viewers receive after a successful detection.
type DetectionEvent struct {
	RequestID      string                `json:"request_id"`
	Timestamp      time.Time             `json:"timestamp"`
	TotalObjects   int                   `json:"total_objects"`
	Detections     []detection.Detection `json:"detections"`
	AnnotatedImage string                `json:"annotated_image"`
	ImageFormat    string                `json:"image_format"`
}

// MetricsSnapshot is a point-in-time copy of the request counters.
type MetricsSnapshot struct {
	DetectRequests  int64            `json:"detect_requests"`
	DetectSucceeded int64            `json:"detect_succeeded"`
	DetectFailures  map[string]int64 `json:"detect_failures"`
	ObjectsDetected int64            `json:"objects_detected"`
	AskRequests     int64            `json:"ask_requests"`
	AskFailures     int64            `json:"ask_failures"`
	EventsDropped   int64            `json:"events_dropped"`
	Viewers         int              `json:"viewers"`
}

type Manager struct {
	pipeline         *detection.Pipeline
	detector         detection.Detector
	chat             Asker
	websocketService *websocket.HubService
	logger           *logger.Logger

	eventQueue chan DetectionEvent
	queueMu    sync.RWMutex
	stopped    bool

	metricsMu sync.Mutex
	metrics   MetricsSnapshot

	wg sync.WaitGroup
}

func NewManager(pipeline *detection.Pipeline, detector detection.Detector, chat Asker, websocketService *websocket.HubService, logger *logger.Logger) *Manager {
	manager := &Manager{
		pipeline:         pipeline,
		detector:         detector,
		chat:             chat,
		websocketService: websocketService,
		logger:           logger,
		eventQueue:       make(chan DetectionEvent, eventQueueSize),
		metrics:          MetricsSnapshot{DetectFailures: make(map[string]int64)},
	}

	manager.wg.Add(1)
	go manager.broadcastWorker()

	manager.logger.Info("Manager started - confidence threshold %.2f", pipeline.Threshold())
	return manager
}

// Detect runs the detection pipeline for one upload and queues the result
// for live viewers.
func (m *Manager) Detect(requestID string, image []byte, contentType string, threshold float64) (*detection.Result, error) {
	start := time.Now()

	result, err := m.pipeline.RunWithThreshold(image, contentType, threshold)

	m.metricsMu.Lock()
	m.metrics.DetectRequests++
	if err != nil {
		m.metrics.DetectFailures[detection.Kind(err)]++
	} else {
		m.metrics.DetectSucceeded++
		m.metrics.ObjectsDetected += int64(result.TotalObjects)
	}
	m.metricsMu.Unlock()

	if err != nil {
		m.logger.Warning("[%s] Detection failed (%s): %v", requestID, detection.Kind(err), err)
		return nil, err
	}

	m.logger.Info("[%s] Detected %d object(s) in %d bytes (%s) in %v",
		requestID, result.TotalObjects, len(image), contentType, time.Since(start))
	for _, d := range result.Detections {
		m.logger.Info("[%s] Detected %s (%.2f)", requestID, d.Class, d.Confidence)
	}

	event := DetectionEvent{
		RequestID:      requestID,
		Timestamp:      time.Now(),
		TotalObjects:   result.TotalObjects,
		Detections:     result.Detections,
		AnnotatedImage: result.AnnotatedImage,
		ImageFormat:    result.ImageFormat,
	}

	m.enqueue(event)
	return result, nil
}

// enqueue hands the event to the broadcaster, dropping it when the queue is
// full or the manager has been stopped.
func (m *Manager) enqueue(event DetectionEvent) {
	m.queueMu.RLock()
	defer m.queueMu.RUnlock()

	if m.stopped {
		m.logger.Warning("[%s] Manager stopped - skipping live viewer update", event.RequestID)
		return
	}

	select {
	case m.eventQueue <- event:
	default:
		m.metricsMu.Lock()
		m.metrics.EventsDropped++
		m.metricsMu.Unlock()
		m.logger.Warning("[%s] Event queue full - skipping live viewer update", event.RequestID)
	}
}

// Ask forwards a prompt to the language model.
func (m *Manager) Ask(ctx context.Context, requestID, prompt string) (string, error) {
	m.metricsMu.Lock()
	m.metrics.AskRequests++
	m.metricsMu.Unlock()

	answer, err := m.chat.Ask(ctx, prompt)
	if err != nil {
		m.metricsMu.Lock()
		m.metrics.AskFailures++
		m.metricsMu.Unlock()
		m.logger.Error("[%s] Ask failed: %v", requestID, err)
		return "", err
	}

	m.logger.Info("[%s] Answered prompt of %d characters", requestID, len(prompt))
	return answer, nil
}

// DetectorReady reports whether the detection model is loaded.
func (m *Manager) DetectorReady() bool {
	return m.detector != nil && m.detector.Ready()
}

// DefaultThreshold returns the pipeline's configured threshold.
func (m *Manager) DefaultThreshold() float64 {
	return m.pipeline.Threshold()
}

// Metrics returns a copy of the counters.
func (m *Manager) Metrics() MetricsSnapshot {
	m.metricsMu.Lock()
	defer m.metricsMu.Unlock()

	snapshot := m.metrics
	snapshot.DetectFailures = make(map[string]int64, len(m.metrics.DetectFailures))
	for kind, count := range m.metrics.DetectFailures {
		snapshot.DetectFailures[kind] = count
	}
	snapshot.Viewers = m.websocketService.GetClientCount()
	return snapshot
}

func (m *Manager) GetWebsocketService() *websocket.HubService {
	return m.websocketService
}

// broadcastWorker forwards queued events to the websocket hub.
func (m *Manager) broadcastWorker() {
	defer m.wg.Done()

	for event := range m.eventQueue {
		if m.websocketService.GetClientCount() == 0 {
			continue
		}
		msg, err := json.Marshal(event)
		if err != nil {
			m.logger.Error("Failed to encode detection event: %v", err)
			continue
		}
		m.websocketService.Broadcast(msg)
	}
}

// Stop drains the event queue and stops the broadcaster. Detections that
// finish afterwards are still returned but no longer broadcast.
func (m *Manager) Stop() {
	m.queueMu.Lock()
	if m.stopped {
		m.queueMu.Unlock()
		return
	}
	m.stopped = true
	close(m.eventQueue)
	m.queueMu.Unlock()

	m.wg.Wait()
	m.logger.Info("Manager stopped")
}
