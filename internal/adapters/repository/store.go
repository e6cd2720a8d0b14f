// Package repository holds the leaderboard store interface and its in-memory implementation.
package repository

import (
	"context"

	"github.com/roboheist/backend/internal/domain/model"
)

// Store provides read/write access to the registered teams.
type Store interface {
	// List returns every team ordered by score desc. Equal scores keep
	// registration order.
	List(ctx context.Context) ([]model.TeamScore, error)

	// Register stores a new team with a fresh id and score. Returns a
	// *DuplicateTeamError if the name is taken, ignoring case.
	Register(ctx context.Context, reg model.Registration) (model.TeamScore, error)

	// Count returns the number of stored teams.
	Count(ctx context.Context) int
}
