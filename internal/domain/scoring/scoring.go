// Package scoring defines the contract for assigning scores to new teams.
package scoring

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Default scoring configuration constants.
const (
	DefaultMinScore = 50
	DefaultMaxScore = 95
)

// Option applies a configuration option to the RandomScorer.
type Option func(*RandomScorer)

// WithRange sets the inclusive score range. Invalid ranges are ignored.
func WithRange(minScore, maxScore int) Option {
	return func(s *RandomScorer) {
		if minScore >= 0 && maxScore >= minScore {
			s.minScore = minScore
			s.maxScore = maxScore
		}
	}
}

// WithSeed makes the score sequence reproducible. Zero keeps the clock seed.
func WithSeed(seed int64) Option {
	return func(s *RandomScorer) {
		if seed != 0 {
			s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // scores are not security sensitive
		}
	}
}

// Input abstracts the registration fields needed for scoring.
type Input struct {
	Team string
}

// Result contains the computed score for a team.
type Result struct {
	Team  string
	Score int
}

// Scorer computes a score for a newly registered team.
type Scorer interface {
	// Score computes a score, honoring ctx for cancellation.
	Score(ctx context.Context, in Input) (Result, error)
}

// RandomScorer draws scores uniformly from an inclusive range. It stands in
// for real scoring and is safe for concurrent use.
type RandomScorer struct {
	mu       sync.Mutex
	rng      *rand.Rand
	minScore int
	maxScore int
}

// NewRandomScorer creates a scorer with configuration options.
func NewRandomScorer(opts ...Option) *RandomScorer {
	s := &RandomScorer{
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // scores are not security sensitive
		minScore: DefaultMinScore,
		maxScore: DefaultMaxScore,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Score returns a score in [min, max].
func (s *RandomScorer) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}

	s.mu.Lock()
	score := s.minScore + s.rng.Intn(s.maxScore-s.minScore+1)
	s.mu.Unlock()

	return Result{Team: in.Team, Score: score}, nil
}

// Range returns the inclusive score bounds.
func (s *RandomScorer) Range() (minScore, maxScore int) {
	return s.minScore, s.maxScore
}

// Fixed always returns the same score. Handy for deterministic tests and demos.
type Fixed int

// Score implements Scorer.
func (f Fixed) Score(ctx context.Context, in Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, fmt.Errorf("context cancelled: %w", err)
	}
	return Result{Team: in.Team, Score: int(f)}, nil
}
