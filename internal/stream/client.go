package stream

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/oddsradar-go/internal/arbitrage"
	"github.com/irfndi/oddsradar-go/internal/models"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096
	sendBufferSize = 64
)

// Filter narrows the opportunities pushed to a client. The zero value
// matches everything.
type Filter struct {
	Sports   []string        `json:"sports,omitempty"`
	MinGrade arbitrage.Grade `json:"min_grade,omitempty"`
}

// Matches reports whether o passes the filter.
func (f Filter) Matches(o models.Opportunity) bool {
	if len(f.Sports) > 0 && !slices.Contains(f.Sports, o.SportKey()) {
		return false
	}
	if f.MinGrade != "" && o.QualityGrade.Rank() < f.MinGrade.Rank() {
		return false
	}
	return true
}

// Client is one websocket subscriber.
type Client struct {
	ID          string
	ConnectedAt time.Time

	hub    *Hub
	conn   *websocket.Conn
	send   chan Message
	logger *logrus.Entry

	mu     sync.Mutex
	filter Filter
	closed bool
}

func newClient(id string, hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:          id,
		ConnectedAt: time.Now(),
		hub:         hub,
		conn:        conn,
		send:        make(chan Message, sendBufferSize),
		logger:      hub.logger.WithField("client_id", id),
	}
}

// Filter returns the client's current filter.
func (c *Client) Filter() Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.filter
}

func (c *Client) setFilter(f Filter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filter = f
}

// trySend queues msg without blocking. It returns false when the buffer is
// full or the client is closed.
func (c *Client) trySend(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// close stops the write pump. It is safe to call more than once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump handles client commands until the connection fails.
func (c *Client) readPump() {
	defer func() {
		c.hub.unregisterClient(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.WithError(err).Debug("Stream client closed unexpectedly")
			}
			return
		}
		c.handle(msg)
	}
}

// writePump serializes queued messages and keepalive pings onto the
// connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				c.logger.WithError(err).Debug("Stream write failed")
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handle(msg ClientMessage) {
	switch msg.Type {
	case MessageSubscribe:
		var f Filter
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &f); err != nil {
				c.sendError("invalid_filter", "failed to parse filter")
				return
			}
		}
		if f.MinGrade != "" && f.MinGrade.Rank() < 0 {
			c.sendError("invalid_filter", fmt.Sprintf("unknown grade %q", f.MinGrade))
			return
		}
		c.setFilter(f)
		c.logger.WithFields(logrus.Fields{"sports": f.Sports, "min_grade": f.MinGrade}).Debug("Stream client subscribed")
	case MessageUnsubscribe:
		c.setFilter(Filter{})
	case MessagePing:
		c.trySend(Message{Type: MessagePong, Timestamp: time.Now()})
	default:
		c.sendError("unknown_message_type", fmt.Sprintf("unknown message type: %s", msg.Type))
	}
}

func (c *Client) sendError(code, message string) {
	c.trySend(Message{
		Type:      MessageError,
		Data:      ErrorData{Code: code, Message: message},
		Timestamp: time.Now(),
	})
}
