package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/roboheist/backend/internal/domain/dedupe"
	"github.com/roboheist/backend/internal/domain/model"
	"github.com/roboheist/backend/internal/domain/scoring"
	"github.com/roboheist/backend/pkg/metrics"
)

// MemoryStore keeps teams in insertion order in process memory.
//
// Register holds the write lock across the duplicate check, scoring and the
// append, so two concurrent registrations of the same name cannot both pass.
type MemoryStore struct {
	mu     sync.RWMutex
	teams  []model.TeamScore
	ids    map[string]struct{}
	names  dedupe.Deduper
	scorer scoring.Scorer
	seed   []model.TeamScore
}

// NewMemoryStore constructs a store with configuration options.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	s := &MemoryStore{
		ids:    make(map[string]struct{}),
		names:  dedupe.NewInMemoryDeduper(),
		scorer: scoring.NewRandomScorer(),
	}

	for _, opt := range opts {
		opt(s)
	}

	for _, t := range s.seed {
		if s.names.SeenAndRecord(ctx, t.Team) {
			continue
		}
		if t.ID == "" {
			t.ID = s.nextID()
		}
		s.ids[t.ID] = struct{}{}
		s.teams = append(s.teams, t)
	}
	s.seed = nil

	metrics.UpdateTotalTeams(len(s.teams))
	return s
}

// nextID returns the first free "t<n>" id with n starting at len+1. Must be
// called with the write lock held (or before the store is shared).
func (s *MemoryStore) nextID() string {
	for n := len(s.teams) + 1; ; n++ {
		id := model.TeamID(n)
		if _, taken := s.ids[id]; !taken {
			return id
		}
	}
}

// List implements Store.List.
func (s *MemoryStore) List(ctx context.Context) ([]model.TeamScore, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}

	s.mu.RLock()
	out := make([]model.TeamScore, len(s.teams))
	copy(out, s.teams)
	s.mu.RUnlock()

	sortByScore(out)
	return out, nil
}

// Register implements Store.Register.
func (s *MemoryStore) Register(ctx context.Context, reg model.Registration) (model.TeamScore, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStoreUpdateLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := ctx.Err(); err != nil {
		return model.TeamScore{}, fmt.Errorf("register team: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.names.SeenAndRecord(ctx, reg.Team) {
		metrics.RecordErrorByComponent("repository", "duplicate_team")
		return model.TeamScore{}, &DuplicateTeamError{Team: reg.Team}
	}

	res, err := s.scorer.Score(ctx, scoring.Input{Team: reg.Team})
	if err != nil {
		// Roll back so the name stays available.
		s.names.Unrecord(ctx, reg.Team)
		metrics.RecordErrorByComponent("repository", "scoring_failed")
		return model.TeamScore{}, fmt.Errorf("score team %q: %w", reg.Team, err)
	}

	team := model.TeamScore{
		ID:    s.nextID(),
		Team:  reg.Team,
		Score: res.Score,
	}
	s.ids[team.ID] = struct{}{}
	s.teams = append(s.teams, team)

	metrics.UpdateTotalTeams(len(s.teams))
	return team, nil
}

// Count implements Store.Count.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.teams)
}

// sortByScore orders teams by score desc. The sort is stable so ties keep
// insertion order.
func sortByScore(teams []model.TeamScore) {
	sort.SliceStable(teams, func(i, j int) bool {
		return teams[i].Score > teams[j].Score
	})
}
