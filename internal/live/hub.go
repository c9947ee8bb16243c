// internal/live/hub.go
package live

import (
	"sync"

	"jobtrack/internal/common/logger"
	"jobtrack/internal/common/metrics"
	"jobtrack/internal/models"

	"github.com/google/uuid"
)

// Event names pushed over the live channel.
const (
	EventEmailUpdate        = "email_update"
	EventApplicationsUpdate = "applications_update"
)

// sendBuffer is how many pending pushes a client may fall behind before
// further pushes to it are dropped.
const sendBuffer = 16

// Conn is the write side of one live client connection. Satisfied by
// *websocket.Conn; tests use fakes.
type Conn interface {
	WriteJSON(v interface{}) error
}

// Envelope wraps every push with its event name.
type Envelope struct {
	Event   string      `json:"event"`
	Payload interface{} `json:"payload"`
}

// client pairs a connection with its buffered send queue. The queue
// keeps the actual network write off the broadcast path, so one stalled
// connection never delays the others or the caller.
type client struct {
	conn Conn
	send chan Envelope
}

// Hub owns the connection set and the last-known message batch. Adds and
// removes arrive from connection goroutines while the poller broadcasts;
// all three are safe concurrently. Broadcasting only enqueues: a slow
// client overflows its own queue and loses pushes, nothing else.
type Hub struct {
	mu        sync.RWMutex
	clients   map[string]*client
	lastBatch interface{}
	logger    logger.Logger
}

func NewHub(log logger.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*client),
		logger:  log.WithFields(map[string]interface{}{"component": "live"}),
	}
}

// Add registers a connection, starts its write loop, and returns its ID
// for later removal.
func (h *Hub) Add(c Conn) string {
	id := uuid.New().String()
	cl := &client{conn: c, send: make(chan Envelope, sendBuffer)}
	h.mu.Lock()
	h.clients[id] = cl
	h.mu.Unlock()
	go h.writeLoop(id, cl)
	metrics.LiveConnections.Inc()
	h.logger.Info("client connected", map[string]interface{}{"connId": id})
	return id
}

// writeLoop drains one client's queue until Remove closes it. A write
// failure means the client went away; the push is dropped, never
// retried, and the loop keeps draining so Remove can still close cleanly.
func (h *Hub) writeLoop(id string, cl *client) {
	for env := range cl.send {
		if err := cl.conn.WriteJSON(env); err != nil {
			h.logger.Debug("push to dead connection dropped", map[string]interface{}{
				"connId": id,
			})
		}
	}
}

// Remove drops a connection from the set and stops its write loop. Safe
// to call twice.
func (h *Hub) Remove(id string) {
	h.mu.Lock()
	cl, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
		// Queue sends happen under RLock, so closing here cannot race
		// with an in-flight enqueue.
		close(cl.send)
	}
	h.mu.Unlock()
	if ok {
		metrics.LiveConnections.Dec()
		h.logger.Info("client disconnected", map[string]interface{}{"connId": id})
	}
}

// Count reports the current connection count.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SetBatch replaces the held batch wholesale and pushes it verbatim to
// every connected client.
func (h *Hub) SetBatch(payload interface{}) {
	h.mu.Lock()
	h.lastBatch = payload
	h.mu.Unlock()
	h.broadcast(EventEmailUpdate, payload)
}

// LastBatch returns the most recently ingested batch, or nil.
func (h *Hub) LastBatch() interface{} {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastBatch
}

// BroadcastApplications pushes a user's updated application list to all
// clients after a reconciliation.
func (h *Hub) BroadcastApplications(user string, records []models.ApplicationRecord) {
	h.broadcast(EventApplicationsUpdate, map[string]interface{}{
		"user":         user,
		"applications": records,
	})
}

// broadcast enqueues the envelope for every connection without ever
// blocking: a client whose queue is full misses this push while the
// remaining clients still get theirs.
func (h *Hub) broadcast(event string, payload interface{}) {
	env := Envelope{Event: event, Payload: payload}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, cl := range h.clients {
		select {
		case cl.send <- env:
		default:
			h.logger.Debug("push to slow connection dropped", map[string]interface{}{
				"connId": id,
			})
		}
	}
	metrics.Broadcasts.Inc()
}
