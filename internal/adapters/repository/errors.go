package repository

import "errors"

// Sentinel kinds for leaderboard store errors.
var (
	ErrDuplicateTeam = errors.New("team name already registered")
)

// DuplicateTeamError reports the name that collided with an existing team.
// It matches ErrDuplicateTeam via errors.Is.
type DuplicateTeamError struct {
	Team string
}

func (e *DuplicateTeamError) Error() string {
	return ErrDuplicateTeam.Error() + ": " + e.Team
}

// Is reports ErrDuplicateTeam.
func (e *DuplicateTeamError) Is(target error) bool { return target == ErrDuplicateTeam }
