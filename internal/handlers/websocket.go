package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"

	"github.com/praecohq/praeco/internal/interfaces"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Local-first tool, UI may be served from another port.
		return true
	},
}

const (
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

// WebSocketHandler pushes pipeline events to connected UI clients. Each
// connection gets its own hub subscription; a slow client drops events
// instead of stalling the pipelines.
type WebSocketHandler struct {
	events interfaces.EventService
	logger arbor.ILogger
}

// NewWebSocketHandler creates the websocket handler.
func NewWebSocketHandler(events interfaces.EventService, logger arbor.ILogger) *WebSocketHandler {
	return &WebSocketHandler{events: events, logger: logger}
}

// HandleWebSocket upgrades the connection and streams events until the
// client goes away. GET /ws
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	h.logger.Debug().Str("remote", r.RemoteAddr).Msg("WebSocket client connected")

	eventCh, cancel := h.events.Subscribe()
	done := make(chan struct{})

	// Reader exists only to observe the close handshake.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		cancel()
		conn.Close()
		h.logger.Debug().Str("remote", r.RemoteAddr).Msg("WebSocket client disconnected")
	}()

	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				h.logger.Debug().Err(err).Msg("WebSocket write failed")
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
