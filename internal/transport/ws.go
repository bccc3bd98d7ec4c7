package transport

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	// Tokens gate access, not origins; clients connect from native apps and
	// arbitrary web frontends alike.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWebsocket upgrades the request and hands the connection to the hub,
// which owns it from then on.
func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	actor, ok := s.actor(w, r)
	if !ok {
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		s.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	s.hub.Register(ws, actor.UserID)
}
