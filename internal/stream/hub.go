// Package stream serves the live report feed over WebSocket: a full snapshot
// on connect followed by incremental added/modified/removed changes.
package stream

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"geosafe/internal/domain/entities"
	"geosafe/internal/metrics"
)

const (
	MessageSnapshot = "snapshot"
	MessageChange   = "change"

	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	sendBuffer   = 256
)

// Message is the envelope of every frame on the feed.
type Message struct {
	Type      string                 `json:"type"`
	Reports   []*entities.Report     `json:"reports,omitempty"`
	Change    *entities.ReportChange `json:"change,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// SnapshotFunc loads the current report set for a new connection.
type SnapshotFunc func(ctx context.Context) ([]*entities.Report, error)

// Hub fans report changes out to every connected client.
//
// A client is registered before its snapshot is read, so no change can fall
// between the snapshot and the first change frame. A change may therefore
// also be reflected in the snapshot; consumers tolerate that because a
// repeated status never counts as a transition.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	snapshot SnapshotFunc
	upgrader websocket.Upgrader
	logger   *zap.Logger
	metrics  *metrics.Metrics
}

type client struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

func NewHub(snapshot SnapshotFunc, logger *zap.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		clients:  make(map[*client]struct{}),
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:  logger,
		metrics: m,
	}
}

// Publish broadcasts the change derived from w. A client whose buffer is full
// is disconnected; it will reconnect and re-snapshot rather than silently
// miss a change.
func (h *Hub) Publish(_ context.Context, w entities.ReportWrite) error {
	change := entities.ChangeFromWrite(w)
	if change.Report == nil {
		return nil
	}
	data, err := json.Marshal(Message{
		Type:      MessageChange,
		Change:    &change,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("stream client too slow, disconnecting")
			delete(h.clients, c)
			c.close()
		}
	}
	return nil
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and streams until the client goes away.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	h.register(c)

	reports, err := h.snapshot(r.Context())
	if err != nil {
		h.logger.Error("load stream snapshot", zap.Error(err))
		h.unregister(c)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "snapshot unavailable"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	first, err := json.Marshal(Message{
		Type:      MessageSnapshot,
		Reports:   reports,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		h.unregister(c)
		conn.Close()
		return
	}

	go h.writePump(c, first)
	h.readPump(c)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	h.metrics.StreamConnected()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
	h.mu.Unlock()
	h.metrics.StreamDisconnected()
}

// readPump only exists to process control frames and notice disconnects.
// The feed is one-way.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client, first []byte) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	if err := h.write(c, websocket.TextMessage, first); err != nil {
		return
	}
	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				_ = h.write(c, websocket.CloseMessage, []byte{})
				return
			}
			if err := h.write(c, websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := h.write(c, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) write(c *client, messageType int, data []byte) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}

// Handler adapts ServeWS to http.Handler.
func (h *Hub) Handler() http.Handler {
	return http.HandlerFunc(h.ServeWS)
}
