// Package types contains common wire types used across the application
package types

import "github.com/roboheist/backend/internal/domain/model"

// Entry is the serialized form of a team on the leaderboard.
type Entry struct {
	ID    string `json:"id"`
	Team  string `json:"team"`
	Score int    `json:"score"`
}

// LeaderboardResponse is returned by GET /api/leaderboard and pushed to stream subscribers.
type LeaderboardResponse struct {
	Teams []Entry `json:"teams"`
}

// RegisterResponse is returned by a successful POST /api/register.
type RegisterResponse struct {
	OK   bool  `json:"ok"`
	Team Entry `json:"team"`
}

// StatusResponse is returned by GET /.
type StatusResponse struct {
	Message string `json:"message"`
}

// BackendReport is returned by GET /test.
type BackendReport struct {
	Backend  string `json:"backend"`
	Database string `json:"database"`
}

// FromTeam converts a stored record to its wire form.
func FromTeam(t model.TeamScore) Entry {
	return Entry{ID: t.ID, Team: t.Team, Score: t.Score}
}

// FromTeams converts records, preserving order. The result is never nil so it
// encodes as [] rather than null.
func FromTeams(teams []model.TeamScore) []Entry {
	out := make([]Entry, len(teams))
	for i, t := range teams {
		out[i] = FromTeam(t)
	}
	return out
}

// Stream message types.
const (
	StreamSnapshot = "snapshot"
	StreamUpdate   = "update"
)

// StreamMessage is pushed to websocket subscribers. Teams is the full
// leaderboard in display order; Team is set when a change triggered the push.
type StreamMessage struct {
	Type  string  `json:"type"`
	Team  *Entry  `json:"team,omitempty"`
	Teams []Entry `json:"teams"`
}
