package stream

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roboheist/backend/pkg/logger"
)

// DefaultWriteWait bounds a single websocket write.
const DefaultWriteWait = 5 * time.Second

// Client represents a websocket client connection.
type Client struct {
	conn      *websocket.Conn
	log       logger.Logger
	writeWait time.Duration

	mu        sync.Mutex
	closeOnce sync.Once

	// While held, Send keeps only the newest payload; every stream message
	// carries the full board, so older ones are superseded.
	held    bool
	pending []byte
}

// NewClient constructs a client wrapper.
func NewClient(conn *websocket.Conn, l logger.Logger) *Client {
	return &Client{conn: conn, log: l, writeWait: DefaultWriteWait}
}

// Hold defers hub messages until Prime is called.
func (c *Client) Hold() {
	c.mu.Lock()
	c.held = true
	c.mu.Unlock()
}

// Prime writes first, then the newest message held back since Hold, and
// resumes direct delivery.
func (c *Client) Prime(first []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := c.pending
	c.held, c.pending = false, nil

	if err := c.write(first); err != nil {
		return err
	}
	if pending != nil {
		return c.write(pending)
	}
	return nil
}

// Send writes a text message to the websocket connection.
func (c *Client) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.held {
		c.pending = payload
		return nil
	}
	return c.write(payload)
}

// write must be called with mu held.
func (c *Client) write(payload []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		c.log.Warn(context.Background(), "websocket send failed", logger.Error(err))
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

// ReadLoop discards inbound messages until the peer goes away. Reading is
// required for gorilla/websocket to process control frames.
func (c *Client) ReadLoop() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// Close terminates the connection.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		_ = c.conn.Close()
	})
}
