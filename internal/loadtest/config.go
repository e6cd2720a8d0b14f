// Package loadtest drives a running backend with concurrent registrations
// and checks the resulting leaderboard.
package loadtest

import "time"

// Config holds configuration for a load run.
type Config struct {
	BaseURL string        // Base URL of the service
	Teams   int           // Number of teams to register
	Workers int           // Number of concurrent workers
	Timeout time.Duration // HTTP request timeout
	LogFile string        // Log file for run output
	Verbose bool          // Enable verbose logging
}

// Registration is the body posted to /api/register.
type Registration struct {
	Team        string   `json:"team"`
	Institution string   `json:"institution"`
	Email       string   `json:"email"`
	Members     []string `json:"members,omitempty"`
}

// Entry represents a leaderboard entry.
type Entry struct {
	ID    string `json:"id"`
	Team  string `json:"team"`
	Score int    `json:"score"`
}

// LeaderboardResponse is the body of GET /api/leaderboard.
type LeaderboardResponse struct {
	Teams []Entry `json:"teams"`
}

// RegisterResponse is the body of a successful registration.
type RegisterResponse struct {
	OK   bool  `json:"ok"`
	Team Entry `json:"team"`
}

// Stats holds run statistics.
type Stats struct {
	TeamsGenerated     int
	TeamsRegistered    int
	TeamsDuplicate     int
	TeamsFailed        int
	LeaderboardEntries int
	StartTime          time.Time
	EndTime            time.Time
	Duration           time.Duration
}

// Score bounds every registered team must fall within.
const (
	MinScore = 50
	MaxScore = 95
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
	progressInterval        = time.Second
)
