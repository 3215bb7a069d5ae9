package live

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Clients only send small control frames.
	maxMessageSize = 4096

	sendBuffer = 64
)

// Message is the envelope written to the websocket for every push.
type Message struct {
	Type      string    `json:"type"`
	Data      string    `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Client is a websocket-backed Session for one user.
type Client struct {
	userID   int64
	conn     *websocket.Conn
	registry *Registry
	log      zerolog.Logger

	send      chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

// NewClient wraps an upgraded connection. Call Serve to run it.
func NewClient(conn *websocket.Conn, userID int64, registry *Registry, log zerolog.Logger) *Client {
	return &Client{
		userID:   userID,
		conn:     conn,
		registry: registry,
		log:      log.With().Str("component", "live").Int64("user_id", userID).Logger(),
		send:     make(chan []byte, sendBuffer),
		closed:   make(chan struct{}),
	}
}

// Push queues message for delivery. It never blocks.
func (c *Client) Push(message string) error {
	b, err := json.Marshal(Message{Type: "notification", Data: message, Timestamp: time.Now().UTC()})
	if err != nil {
		return err
	}
	return c.enqueue(b)
}

func (c *Client) enqueue(b []byte) error {
	select {
	case <-c.closed:
		return ErrSessionClosed
	default:
	}

	select {
	case c.send <- b:
		return nil
	case <-c.closed:
		return ErrSessionClosed
	default:
		return ErrSendBufferFull
	}
}

// Serve registers the client, pumps messages until the peer goes away,
// then unregisters it. It blocks for the lifetime of the connection.
func (c *Client) Serve() {
	c.registry.Register(c.userID, c)
	c.log.Info().Msg("session opened")

	go c.writePump()
	c.readPump()

	c.registry.Unregister(c.userID, c)
	c.log.Info().Msg("session closed")
}

// Close ends the session. Safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
	})
}

// readPump consumes control traffic from the peer. Clients may send
// {"type":"ping"} and get a pong back; anything else is ignored.
func (c *Client) readPump() {
	defer func() {
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.log.Warn().Err(err).Msg("websocket read failed")
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Debug().Err(err).Msg("ignoring malformed client message")
			continue
		}

		if msg.Type == "ping" {
			pong, _ := json.Marshal(Message{Type: "pong", Timestamp: time.Now().UTC()})
			if err := c.enqueue(pong); err != nil {
				c.log.Debug().Err(err).Msg("dropping pong")
			}
		}
	}
}

// writePump drains the send queue to the connection and keeps it alive
// with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.closed:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.log.Warn().Err(err).Msg("websocket write failed")
				c.Close()
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}
		}
	}
}
