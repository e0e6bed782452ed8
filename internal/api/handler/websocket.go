// internal/api/handler/websocket.go
package handler

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"login-portal/internal/domain/auth"
	"login-portal/internal/logging"
	"login-portal/internal/metrics"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Same-origin only: the stream exposes the username.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// SessionSubscriber hands out session change streams per client.
type SessionSubscriber interface {
	Subscribe(clientID string) (<-chan auth.Session, func())
}

type WebSocketHandler struct {
	authService *auth.AuthService
	hub         SessionSubscriber
	logger      logging.Logger
}

func NewWebSocketHandler(as *auth.AuthService, hub SessionSubscriber, logger logging.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		authService: as,
		hub:         hub,
		logger:      logger,
	}
}

// HandleConnection streams the client's session to an open tab: the current
// value first, then every change made from any tab of the same client.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	id, ok := clientID(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	// Subscribe before reading the current value so no change slips between.
	updates, unsubscribe := h.hub.Subscribe(id)
	defer unsubscribe()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "websocket upgrade failed", "client", id, "error", err)
		return
	}
	defer conn.Close()

	metrics.SubscriberAdded()
	defer metrics.SubscriberRemoved()

	closed := make(chan struct{})
	go readUntilClosed(conn, closed)

	if err := writeSession(conn, h.authService.Session(r.Context(), id)); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case s, ok := <-updates:
			if !ok {
				return
			}
			if err := writeSession(conn, s); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}

func writeSession(conn *websocket.Conn, s auth.Session) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(auth.NewSessionView(s))
}

// readUntilClosed drains control frames and closes done when the peer goes
// away. Clients never send data on this stream.
func readUntilClosed(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
