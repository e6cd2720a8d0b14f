// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	eventqueue "github.com/roboheist/backend/internal/adapters/mq/queue"
	workerpool "github.com/roboheist/backend/internal/adapters/mq/worker"
	"github.com/roboheist/backend/internal/adapters/repository"
	"github.com/roboheist/backend/internal/domain/dedupe"
	"github.com/roboheist/backend/internal/domain/model"
	"github.com/roboheist/backend/internal/domain/scoring"
	"github.com/roboheist/backend/internal/domain/types"
	"github.com/roboheist/backend/pkg/logger"
	"github.com/roboheist/backend/pkg/metrics"
)

const (
	defaultQueueSize   = 1024
	defaultStopTimeout = 10 * time.Second
)

// ErrNotStarted is returned by operations called before Start.
var ErrNotStarted = errors.New("service not started")

// Service implements the API dependencies for the leaderboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	store     repository.Store
	names     dedupe.Deduper
	queue     *eventqueue.InMemoryQueue
	notifier  *workerpool.Pool
	publisher workerpool.Publisher

	// Configuration
	scoreMin  int
	scoreMax  int
	scoreSeed int64
	seedTeams bool
	queueSize   int
	stopTimeout time.Duration

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithScoreRange sets the inclusive range scores are drawn from.
func WithScoreRange(min, max int) Option {
	return func(s *Service) {
		if min >= 0 && min <= max {
			s.scoreMin = min
			s.scoreMax = max
		}
	}
}

// WithRandomSeed fixes the scorer seed. 0 seeds from the clock.
func WithRandomSeed(seed int64) Option {
	return func(s *Service) {
		s.scoreSeed = seed
	}
}

// WithSeedTeams controls whether the demo teams are loaded at start.
func WithSeedTeams(enabled bool) Option {
	return func(s *Service) {
		s.seedTeams = enabled
	}
}

// WithStore injects a ready-made store. Score range, seed and seed teams are
// then the store's own business.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithNameIndex sets the index used for duplicate-name checks when the
// service builds its own store.
func WithNameIndex(names dedupe.Deduper) Option {
	return func(s *Service) {
		if names != nil {
			s.names = names
		}
	}
}

// WithStopTimeout bounds how long Stop waits for pending notifications
// before abandoning them.
func WithStopTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.stopTimeout = d
		}
	}
}

// WithPublisher enables change notifications through p.
func WithPublisher(p workerpool.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithQueueSize sets how many unpublished changes may be pending.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		scoreMin:  scoring.DefaultMinScore,
		scoreMax:  scoring.DefaultMaxScore,
		seedTeams: true,
		queueSize:   defaultQueueSize,
		stopTimeout: defaultStopTimeout,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start builds the store (unless one was injected) and starts the notifier.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting leaderboard service...")

	if s.store == nil {
		scorer := scoring.NewRandomScorer(
			scoring.WithRange(s.scoreMin, s.scoreMax),
			scoring.WithSeed(s.scoreSeed),
		)
		if s.names == nil {
			s.names = dedupe.NewInMemoryDeduper()
		}
		storeOpts := []repository.Option{
			repository.WithScorer(scorer),
			repository.WithNameIndex(s.names),
		}
		if s.seedTeams {
			storeOpts = append(storeOpts, repository.WithSeed(model.SeedTeams()))
		}
		s.store = repository.NewMemoryStore(ctx, storeOpts...)
		s.logger.Info(ctx, "using in-memory store", logger.Int("teams", s.store.Count(ctx)))
	}

	if s.publisher != nil {
		s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
		// One worker keeps snapshots in order.
		s.notifier = workerpool.NewPool(1, s.queue, s.store, s.publisher,
			workerpool.WithLogger(s.logger.Named("notifier")))
		s.notifier.Start(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "leaderboard service started",
		logger.Int("scoreMin", s.scoreMin),
		logger.Int("scoreMax", s.scoreMax),
		logger.Bool("notifications", s.notifier != nil),
	)

	return nil
}

// Stop shuts down the notifier. Stored teams are kept.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()

	s.logger.Info(ctx, "stopping leaderboard service...")

	if s.notifier != nil {
		if err := s.notifier.Shutdown(ctx); err != nil {
			// Pending notifications are dropped; interrupt the workers instead.
			s.logger.Warn(ctx, "notifier shutdown incomplete, forcing stop", logger.Error(err))
			s.notifier.Stop()
		}
		s.notifier = nil
		s.queue = nil
	}

	s.started = false
	s.logger.Info(ctx, "leaderboard service stopped")
}

// components returns the store and queue, or ErrNotStarted.
func (s *Service) components() (repository.Store, *eventqueue.InMemoryQueue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, nil, ErrNotStarted
	}
	return s.store, s.queue, nil
}

// Leaderboard returns all teams sorted by score, highest first.
func (s *Service) Leaderboard(ctx context.Context) ([]types.Entry, error) {
	store, _, err := s.components()
	if err != nil {
		return nil, err
	}

	teams, err := store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	return types.FromTeams(teams), nil
}

// Snapshot returns the current leaderboard as a stream message.
func (s *Service) Snapshot(ctx context.Context) (types.StreamMessage, error) {
	teams, err := s.Leaderboard(ctx)
	if err != nil {
		return types.StreamMessage{}, err
	}
	return types.StreamMessage{Type: types.StreamSnapshot, Teams: teams}, nil
}

// Register stores a validated registration and returns the new entry.
// Duplicate names fail with an error matching repository.ErrDuplicateTeam.
func (s *Service) Register(ctx context.Context, reg model.Registration) (types.Entry, error) {
	store, queue, err := s.components()
	if err != nil {
		return types.Entry{}, err
	}

	team, err := store.Register(ctx, reg)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateTeam) {
			metrics.RecordRegistrationDuplicate()
			s.logger.Info(ctx, "duplicate team name rejected", logger.String("team", reg.Team))
			return types.Entry{}, err
		}
		s.logger.Error(ctx, "registration failed", logger.String("team", reg.Team), logger.Error(err))
		return types.Entry{}, fmt.Errorf("register: %w", err)
	}

	metrics.RecordRegistration()
	s.logger.Info(ctx, "team registered",
		logger.String("id", team.ID),
		logger.String("team", team.Team),
		logger.Int("score", team.Score),
		logger.String("institution", reg.Institution),
		logger.Int("members", len(reg.Members)),
	)

	if queue != nil {
		change := model.Change{Kind: model.ChangeRegistered, Team: team, At: time.Now()}
		if !queue.Enqueue(ctx, change) {
			s.logger.Warn(ctx, "leaderboard change not queued", logger.String("id", team.ID))
		}
	}

	return types.FromTeam(team), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":  s.started,
		"scoreMin": s.scoreMin,
		"scoreMax": s.scoreMax,
	}

	if s.started {
		totalTeams := s.store.Count(context.Background())
		stats["totalTeams"] = totalTeams
		metrics.UpdateTotalTeams(totalTeams)

		if s.names != nil {
			stats["indexedNames"] = int(s.names.Size())
		}
		if s.queue != nil {
			stats["queueLength"] = s.queue.Len()
			stats["queueCapacity"] = s.queue.Capacity()
			stats["notifiers"] = s.notifier.Size()
		}
		if counter, ok := s.publisher.(interface{ Subscribers() int }); ok {
			stats["subscribers"] = counter.Subscribers()
		}
	}

	return stats
}
