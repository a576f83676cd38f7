package handlers

import (
	"net/http"
	"time"
	"visionbridge/internal/logger"
	"visionbridge/internal/services"

	"github.com/gorilla/websocket"
)

// viewerReadTimeout is how long a viewer may stay silent, pongs included.
// Pings go out at nine tenths of it.
var viewerReadTimeout = 60 * time.Second

var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewWebsocketHandler registers a live viewer for detection events. Viewers
// only listen; anything they send is discarded.
func ViewWebsocketHandler(manager *services.Manager, logger *logger.Logger) http.HandlerFunc {
	readTimeout := viewerReadTimeout
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(readTimeout))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(readTimeout))
			return nil
		})

		manager.GetWebsocketService().Register(connection)
		defer manager.GetWebsocketService().Unregister(connection)

		done := make(chan struct{})
		defer close(done)
		go pingViewer(connection, readTimeout*9/10, done)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				logger.Info("Viewer disconnected: %v", err)
				break
			}
			connection.SetReadDeadline(time.Now().Add(readTimeout))
		}
	}
}

// pingViewer keeps a listen-only viewer's read deadline moving until done.
func pingViewer(connection *websocket.Conn, period time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(period)
			if err := connection.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
