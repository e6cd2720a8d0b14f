// Package worker drains leaderboard changes and publishes fresh snapshots to
// stream subscribers.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/roboheist/backend/internal/domain/model"
	"github.com/roboheist/backend/internal/domain/types"
	"github.com/roboheist/backend/pkg/logger"
	"github.com/roboheist/backend/pkg/metrics"
)

const (
	workerShutdownTimeout = 5 * time.Second
	poolShutdownTimeout   = 30 * time.Second
)

// Source reads the current leaderboard in display order.
type Source interface {
	List(ctx context.Context) ([]model.TeamScore, error)
}

// Publisher delivers a message to every subscriber.
type Publisher interface {
	Publish(ctx context.Context, msg types.StreamMessage) error
}

// Queue defines how workers receive changes.
type Queue interface {
	Dequeue() <-chan model.Change
}

// InMemoryWorker publishes a snapshot for each batch of queued changes.
type InMemoryWorker struct {
	queue     Queue
	source    Source
	publisher Publisher
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, source Source, publisher Publisher, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		source:    source,
		publisher: publisher,
		name:      "notifier",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.logger == nil {
		w.logger = logger.Get().Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	changes := w.queue.Dequeue()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case change, ok := <-changes:
			if !ok {
				return
			}

			// Several changes may have piled up; one snapshot covers them all.
			last, n := w.drain(changes, change)
			if err := w.publish(ctx, last); err != nil {
				w.logger.Error(ctx, "error publishing leaderboard",
					logger.Int("changes", n),
					logger.Error(err),
				)
			}
		}
	}
}

// drain takes every change already waiting and returns the newest.
func (w *InMemoryWorker) drain(changes <-chan model.Change, first model.Change) (model.Change, int) {
	last, n := first, 1
	for {
		select {
		case c, ok := <-changes:
			if !ok {
				return last, n
			}
			last = c
			n++
		default:
			return last, n
		}
	}
}

// publish builds a snapshot and hands it to the publisher.
func (w *InMemoryWorker) publish(ctx context.Context, change model.Change) error {
	start := time.Now()
	defer func() {
		metrics.RecordNotifyLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	teams, err := w.source.List(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("worker", "snapshot_error")
		return fmt.Errorf("read leaderboard: %w", err)
	}

	team := types.FromTeam(change.Team)
	msg := types.StreamMessage{
		Type:  types.StreamUpdate,
		Team:  &team,
		Teams: types.FromTeams(teams),
	}

	if err := w.publisher.Publish(ctx, msg); err != nil {
		metrics.RecordErrorByComponent("worker", "publish_error")
		return fmt.Errorf("publish %s change for %s: %w", change.Kind, change.Team.ID, err)
	}

	w.logger.Debug(ctx, "leaderboard published",
		logger.String("kind", string(change.Kind)),
		logger.String("team_id", change.Team.ID),
		logger.Int("teams", len(teams)),
	)
	return nil
}

// Shutdown stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a worker pool. Snapshots from parallel workers can arrive
// out of order, so callers that need ordering use a single worker.
func NewPool(workerCount int, queue Queue, source Source, publisher Publisher, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = 1
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   queue,
	}

	for i := 0; i < workerCount; i++ {
		workerOpts := append([]Option{WithName("notifier-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(queue, source, publisher, workerOpts...)
	}
	pool.logger = pool.workers[0].logger

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, worker := range p.workers {
		go worker.Run(ctx)
	}
}

// Stop stops all workers, waiting a bounded time for each.
func (p *Pool) Stop() {
	for _, worker := range p.workers {
		select {
		case <-worker.shutdown:
		default:
			close(worker.shutdown)
		}
	}

	for _, worker := range p.workers {
		select {
		case <-worker.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue, lets workers publish what is pending and waits
// for them to exit.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, worker := range p.workers {
		select {
		case <-worker.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker %d: %w", i, shutdownCtx.Err())
		}
	}

	return nil
}
