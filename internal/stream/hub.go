// Package stream pushes newly detected opportunities to websocket clients.
package stream

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/oddsradar-go/internal/metrics"
	"github.com/irfndi/oddsradar-go/internal/models"
)

const broadcastBufferSize = 256

// SnapshotSource returns the opportunities sent to a client on connect.
type SnapshotSource interface {
	ActiveOpportunities(ctx context.Context) ([]models.Opportunity, error)
}

// SnapshotFunc adapts a function to SnapshotSource.
type SnapshotFunc func(ctx context.Context) ([]models.Opportunity, error)

// ActiveOpportunities implements SnapshotSource.
func (f SnapshotFunc) ActiveOpportunities(ctx context.Context) ([]models.Opportunity, error) {
	return f(ctx)
}

// Hub tracks connected clients and fans opportunities out to them.
type Hub struct {
	clients    map[*Client]struct{}
	clientsMu  sync.RWMutex
	register   chan *Client
	unregister chan *Client
	broadcast  chan models.Opportunity
	done       chan struct{}
	stopOnce   sync.Once

	snapshot SnapshotSource
	upgrader websocket.Upgrader
	metrics  *metrics.Metrics
	logger   *logrus.Logger
}

// NewHub creates a hub. snapshot and m may be nil.
func NewHub(snapshot SnapshotSource, m *metrics.Metrics, logger *logrus.Logger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan models.Opportunity, broadcastBufferSize),
		done:       make(chan struct{}),
		snapshot:   snapshot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		metrics: m,
		logger:  logger,
	}
}

// Run processes registrations and broadcasts until ctx is cancelled, then
// disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("Stream hub started")
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case o := <-h.broadcast:
			h.fanOut(o)
		}
	}
}

// PublishOpportunity queues o for every matching client. It never blocks;
// when the queue is full the opportunity is dropped.
func (h *Hub) PublishOpportunity(o models.Opportunity) {
	select {
	case h.broadcast <- o:
	case <-h.done:
	default:
		h.logger.WithField("opportunity_id", o.ID).Warn("Stream broadcast buffer full, dropping opportunity")
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// ServeWS upgrades the request and attaches a new client. The client first
// receives a snapshot of the active opportunities.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("Websocket upgrade failed")
		return
	}

	c := newClient(uuid.NewString(), h, conn)
	h.sendSnapshot(r.Context(), c)

	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

func (h *Hub) sendSnapshot(ctx context.Context, c *Client) {
	opportunities := []models.Opportunity{}
	if h.snapshot != nil {
		active, err := h.snapshot.ActiveOpportunities(ctx)
		if err != nil {
			h.logger.WithError(err).Warn("Failed to load stream snapshot")
		} else if active != nil {
			opportunities = active
		}
	}
	c.trySend(Message{Type: MessageSnapshot, Data: opportunities, Timestamp: time.Now()})
}

func (h *Hub) unregisterClient(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) add(c *Client) {
	h.clientsMu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.clientsMu.Unlock()

	h.metrics.StreamClientConnected(1)
	c.logger.WithField("clients", total).Info("Stream client connected")
}

func (h *Hub) remove(c *Client) {
	h.clientsMu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	total := len(h.clients)
	h.clientsMu.Unlock()

	if !ok {
		return
	}
	c.close()
	h.metrics.StreamClientConnected(-1)
	c.logger.WithField("clients", total).Info("Stream client disconnected")
}

func (h *Hub) fanOut(o models.Opportunity) {
	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	msg := Message{Type: MessageOpportunity, Data: o, Timestamp: time.Now()}
	for _, c := range clients {
		if !c.Filter().Matches(o) {
			continue
		}
		if !c.trySend(msg) {
			// Slow clients are dropped.
			c.logger.Warn("Stream client too slow, disconnecting")
			h.remove(c)
		}
	}
}

func (h *Hub) shutdown() {
	h.stopOnce.Do(func() { close(h.done) })

	h.clientsMu.Lock()
	clients := h.clients
	h.clients = make(map[*Client]struct{})
	h.clientsMu.Unlock()

	for c := range clients {
		c.close()
		h.metrics.StreamClientConnected(-1)
	}
	h.logger.WithField("clients", len(clients)).Info("Stream hub stopped")
}
