package ws

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum inbound frame size, actions are tiny.
	maxMessageSize = 1024

	sendBuffer = 256
)

var (
	ErrClosed       = errors.New("connection closed")
	ErrSlowConsumer = errors.New("send buffer full")
)

// Client wraps a websocket connection. Writes go through a buffered queue
// drained by WritePump, so a send never blocks the caller.
type Client struct {
	id   string
	conn *websocket.Conn

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClient(id string, conn *websocket.Conn) *Client {
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	return &Client{
		id:   id,
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}
}

func (c *Client) ID() string {
	return c.id
}

// Send queues payload. A client that cannot keep up is closed.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	select {
	case c.send <- payload:
		return nil
	default:
		c.closed = true
		close(c.send)
		return ErrSlowConsumer
	}
}

// Close stops the write pump once queued messages are flushed.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// ReadMessage reads the next frame from the peer.
func (c *Client) ReadMessage() ([]byte, error) {
	_, raw, err := c.conn.ReadMessage()
	return raw, err
}

// WritePump writes queued messages and keepalive pings until the client is
// closed or a write fails. It closes the underlying connection on return.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// one event per frame, clients parse each frame as a single JSON document
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warnf("write to socket %s failed: %v", c.id, err)
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
