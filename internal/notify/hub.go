// Package notify keeps every connected client consistent with server-side
// round state by fanning out named events over persistent websocket
// channels.
package notify

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single write to a client.
	writeWait = 10 * time.Second
	// pongWait is how long a connection may stay silent before it is
	// considered dead.
	pongWait = 60 * time.Second
	// pingInterval must be shorter than pongWait.
	pingInterval = (pongWait * 9) / 10
	// sendBuffer is the per-connection queue; a client that falls this far
	// behind is dropped.
	sendBuffer = 32
)

// Filter restricts delivery to matching members. A nil filter delivers to
// every registered connection, which is the current behavior; scoped
// delivery slots in here without changing callers.
type Filter func(memberID int64) bool

type connection struct {
	id     int64
	userID int64
	ws     *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// enqueue queues data for the write pump. It reports false when the
// connection is gone or its buffer is full; it never blocks.
func (c *connection) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *connection) shutdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub owns the registry of connected client streams. It is initialized at
// server start, shared by every request handler, and drained at shutdown.
type Hub struct {
	logger *slog.Logger

	mu     sync.RWMutex
	conns  map[int64]*connection
	nextID int64
}

// NewHub creates an empty registry.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Hub{
		logger: logger,
		conns:  make(map[int64]*connection),
	}
}

// Register adds a client stream owned by the given member and starts its
// read/write pumps. The returned connection ID comes from a counter owned by
// the hub and only ever increases.
func (h *Hub) Register(ws *websocket.Conn, userID int64) int64 {
	c := &connection{
		userID: userID,
		ws:     ws,
		send:   make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	h.nextID++
	c.id = h.nextID
	h.conns[c.id] = c
	h.mu.Unlock()

	go h.writePump(c)
	go h.readPump(c)

	h.logger.Debug("client connected", "connection_id", c.id, "user_id", userID)
	return c.id
}

// Unregister removes a connection and closes its stream. Safe to call more
// than once and for unknown IDs.
func (h *Hub) Unregister(id int64) {
	h.mu.Lock()
	c, ok := h.conns[id]
	delete(h.conns, id)
	h.mu.Unlock()

	if ok {
		c.shutdown()
		h.logger.Debug("client disconnected", "connection_id", id, "user_id", c.userID)
	}
}

// Broadcast sends the event to every registered connection. Delivery is
// best-effort and fire-and-forget: a slow or broken consumer is unregistered
// and never blocks the caller.
func (h *Hub) Broadcast(ev Event) {
	h.BroadcastTo(ev, nil)
}

// BroadcastTo sends the event to connections whose owning member passes the
// filter.
func (h *Hub) BroadcastTo(ev Event, filter Filter) {
	data, err := json.Marshal(message{Event: ev.Name, Payload: ev.payload(time.Now())})
	if err != nil {
		h.logger.Error("marshaling event", "event", ev.Name, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*connection, 0, len(h.conns))
	for _, c := range h.conns {
		if filter != nil && !filter(c.userID) {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.enqueue(data) {
			h.logger.Warn("dropping slow or closed connection",
				"connection_id", c.id, "user_id", c.userID, "event", ev.Name)
			h.Unregister(c.id)
		}
	}
}

// Connections returns the number of registered streams.
func (h *Hub) Connections() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Close drains the registry, closing every client stream.
func (h *Hub) Close() {
	h.mu.Lock()
	conns := h.conns
	h.conns = make(map[int64]*connection)
	h.mu.Unlock()

	for _, c := range conns {
		c.shutdown()
	}
}

// writePump serializes all writes to one connection: queued events, the
// periodic keepalive ping, and the final close frame.
func (h *Hub) writePump(c *connection) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				h.Unregister(c.id)
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.Unregister(c.id)
				return
			}
		}
	}
}

// readPump discards inbound frames; clients only listen. It exists to
// surface disconnects and to keep the pong deadline fresh.
func (h *Hub) readPump(c *connection) {
	defer h.Unregister(c.id)

	c.ws.SetReadLimit(512)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
