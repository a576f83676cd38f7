package handlers

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
	"visionbridge/internal/config"
	"visionbridge/internal/detection"
	"visionbridge/internal/logger"
	"visionbridge/internal/services"
	"visionbridge/internal/services/websocket"

	gorillaws "github.com/gorilla/websocket"
)

func TestViewWebsocketHandler_IdleViewerStaysConnected(t *testing.T) {
	previous := viewerReadTimeout
	viewerReadTimeout = 200 * time.Millisecond
	t.Cleanup(func() { viewerReadTimeout = previous })

	log := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	hub := websocket.NewHubService(log)
	go hub.Run()
	t.Cleanup(hub.Stop)
	manager := services.NewManager(detection.NewPipeline(nil), nil, nil, hub, log)
	t.Cleanup(manager.Stop)

	server := httptest.NewServer(ViewWebsocketHandler(manager, log))
	defer server.Close()

	client, _, err := gorillaws.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer client.Close()

	// ReadMessage answers server pings while it waits for a data frame.
	messages := make(chan string, 1)
	go func() {
		client.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := client.ReadMessage()
		if err != nil {
			messages <- "error: " + err.Error()
			return
		}
		messages <- string(msg)
	}()

	time.Sleep(4 * viewerReadTimeout)

	if count := hub.GetClientCount(); count != 1 {
		t.Fatalf("Client count = %d after idling, expected 1", count)
	}

	hub.Broadcast([]byte(`{"total_objects":0}`))

	select {
	case msg := <-messages:
		if msg != `{"total_objects":0}` {
			t.Errorf("message = %s", msg)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for broadcast")
	}
}
