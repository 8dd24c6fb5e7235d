// Package live pushes order events to connected admin dashboards over
// WebSocket.
package live

import (
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vorokhovskii-creator/felix-hub/internal/metrics"
	"github.com/vorokhovskii-creator/felix-hub/internal/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512

	// sendBuffer is how many events may queue for one client before it is
	// treated as stalled and dropped.
	sendBuffer = 16
)

const (
	EventConnected    = "connected"
	EventOrderCreated = "order_created"
	EventOrderUpdated = "order_updated"
	EventOrderDeleted = "order_deleted"
)

type Event struct {
	Type    string        `json:"type"`
	OrderID int64         `json:"order_id,omitempty"`
	Status  models.Status `json:"status,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan Event
	quit chan struct{}
	once sync.Once
}

func newClient(conn *websocket.Conn) *client {
	return &client{
		conn: conn,
		send: make(chan Event, sendBuffer),
		quit: make(chan struct{}),
	}
}

func (c *client) close() {
	c.once.Do(func() { close(c.quit) })
}

// writeLoop is the only writer on the connection. It closes the connection
// when it returns, which also ends the read loop in ServeWS.
func (c *client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case <-c.quit:
			c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		case e := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteJSON(e); err != nil {
				slog.Debug("Live write failed", "error", err)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// Hub tracks connected clients. A nil *Hub drops every event.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

func NewHub(m *metrics.Metrics) *Hub {
	return &Hub{
		clients:  make(map[*client]struct{}),
		metrics:  m,
		upgrader: websocket.Upgrader{CheckOrigin: sameOrigin},
	}
}

// sameOrigin accepts requests without an Origin header and browser requests
// from the serving host.
func sameOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return u.Host == r.Host
}

func (h *Hub) Count() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues e for every client without waiting on the network.
// Clients whose queue is full are dropped.
func (h *Hub) Broadcast(e Event) {
	if h == nil {
		return
	}
	var stalled []*client
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- e:
		default:
			stalled = append(stalled, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range stalled {
		slog.Warn("Dropping stalled live client", "queued", len(c.send))
		h.remove(c)
	}
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.metrics.LiveClients(n)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	c.close()
	if ok {
		h.metrics.LiveClients(n)
	}
}

// ServeWS upgrades the request and keeps the connection registered until
// the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "error", err)
		return
	}
	c := newClient(conn)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	c.send <- Event{Type: EventConnected}
	h.add(c)
	defer h.remove(c)
	go c.writeLoop()

	// Clients only listen; reading drives pong handling and close detection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("Live connection closed", "error", err)
			}
			return
		}
	}
}
