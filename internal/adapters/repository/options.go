package repository

import (
	"github.com/roboheist/backend/internal/domain/dedupe"
	"github.com/roboheist/backend/internal/domain/model"
	"github.com/roboheist/backend/internal/domain/scoring"
)

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithSeed preloads teams in the given order. Names must be unique ignoring
// case; later duplicates are skipped.
func WithSeed(teams []model.TeamScore) Option {
	return func(s *MemoryStore) {
		s.seed = append([]model.TeamScore(nil), teams...)
	}
}

// WithScorer sets the score source for new registrations.
func WithScorer(scorer scoring.Scorer) Option {
	return func(s *MemoryStore) {
		if scorer != nil {
			s.scorer = scorer
		}
	}
}

// WithNameIndex replaces the index used for duplicate-name checks.
func WithNameIndex(names dedupe.Deduper) Option {
	return func(s *MemoryStore) {
		if names != nil {
			s.names = names
		}
	}
}
