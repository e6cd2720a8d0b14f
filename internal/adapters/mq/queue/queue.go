// Package queue carries leaderboard changes from the request path to the
// notifier that publishes them.
package queue

import (
	"context"
	"sync"

	"github.com/roboheist/backend/internal/domain/model"
	"github.com/roboheist/backend/pkg/metrics"
)

const defaultQueueCapacity = 1024

// Change is the payload type flowing through the queue.
type Change = model.Change

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a change to the queue.
	// Returns false if the queue is full or closed and the change was dropped.
	Enqueue(ctx context.Context, c Change) bool

	// Dequeue returns the channel changes are delivered on. It is closed
	// once the queue is closed and drained.
	Dequeue() <-chan Change

	// Len returns the current number of queued changes.
	Len() int

	// Close stops accepting changes. Safe to call more than once.
	Close() error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	changes  chan Change
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity: defaultQueueCapacity,
	}

	for _, opt := range opts {
		opt(q)
	}

	q.changes = make(chan Change, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)

	return q
}

// Enqueue adds a change to the queue without blocking.
func (q *InMemoryQueue) Enqueue(ctx context.Context, c Change) bool {
	// The read lock keeps Close from closing the channel mid-send.
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	if err := ctx.Err(); err != nil {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	}

	select {
	case q.changes <- c:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.changes))
		return true
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns the delivery channel.
func (q *InMemoryQueue) Dequeue() <-chan Change {
	return q.changes
}

// Len returns the current number of queued changes.
func (q *InMemoryQueue) Len() int {
	size := len(q.changes)
	metrics.UpdateQueueSize(size)
	return size
}

// Capacity returns the configured capacity.
func (q *InMemoryQueue) Capacity() int {
	return q.capacity
}

// Close stops the queue. Changes already queued stay readable.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.changes)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
