package model

import "time"

// ChangeKind names what happened to the leaderboard.
type ChangeKind string

// Change kinds.
const (
	ChangeRegistered ChangeKind = "registered"
)

// Change is queued after the leaderboard is modified so subscribers can be
// notified off the request path.
type Change struct {
	Kind ChangeKind
	Team TeamScore
	At   time.Time
}
