// Package stream fans leaderboard snapshots out to websocket subscribers.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/roboheist/backend/internal/domain/types"
	"github.com/roboheist/backend/pkg/logger"
	"github.com/roboheist/backend/pkg/metrics"
)

// ErrClosed is returned when publishing to a closed hub.
var ErrClosed = errors.New("stream hub closed")

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub owns the subscriber set. All mutations happen on the run goroutine.
type Hub struct {
	clients   map[Subscriber]struct{}
	register  chan Subscriber
	unreg     chan Subscriber
	broadcast chan []byte

	done      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	count  atomic.Int64
	logger logger.Logger
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger sets the hub logger.
func WithLogger(l logger.Logger) Option {
	return func(h *Hub) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHub creates a Hub and starts its loop. The loop exits when ctx is
// cancelled or Close is called.
func NewHub(ctx context.Context, opts ...Option) *Hub {
	h := &Hub{
		clients:   make(map[Subscriber]struct{}),
		register:  make(chan Subscriber),
		unreg:     make(chan Subscriber),
		broadcast: make(chan []byte),
		done:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.Get().Named("stream")
	}

	go h.run(ctx)
	return h
}

func (h *Hub) run(ctx context.Context) {
	defer close(h.stopped)
	defer h.closeAll()

	for {
		select {
		case <-ctx.Done():
			h.Close()
			return
		case <-h.done:
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			h.setCount()
		case c := <-h.unreg:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				h.setCount()
			}
		case payload := <-h.broadcast:
			for c := range h.clients {
				if err := c.Send(payload); err != nil {
					h.logger.Debug(ctx, "dropping subscriber", logger.Error(err))
					c.Close()
					delete(h.clients, c)
					metrics.RecordStreamDropped()
				}
			}
			h.setCount()
			metrics.RecordStreamBroadcast()
		}
	}
}

func (h *Hub) setCount() {
	h.count.Store(int64(len(h.clients)))
	metrics.UpdateStreamSubscribers(len(h.clients))
}

func (h *Hub) closeAll() {
	for c := range h.clients {
		c.Close()
		delete(h.clients, c)
	}
	h.setCount()
}

// Register adds a client. It reports false if the hub is closed.
func (h *Hub) Register(c Subscriber) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client. It is a no-op once the hub is closed.
func (h *Hub) Unregister(c Subscriber) {
	select {
	case h.unreg <- c:
	case <-h.done:
	}
}

// Broadcast sends payload to every client.
func (h *Hub) Broadcast(ctx context.Context, payload []byte) error {
	select {
	case h.broadcast <- payload:
		return nil
	case <-h.done:
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("broadcast: %w", ctx.Err())
	}
}

// Publish encodes msg as JSON and broadcasts it.
func (h *Hub) Publish(ctx context.Context, msg types.StreamMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode stream message: %w", err)
	}
	return h.Broadcast(ctx, payload)
}

// Subscribers returns the number of connected clients.
func (h *Hub) Subscribers() int {
	return int(h.count.Load())
}

// Close stops the loop and closes every client. Safe to call more than once.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Wait blocks until the loop has exited.
func (h *Hub) Wait() {
	<-h.stopped
}
