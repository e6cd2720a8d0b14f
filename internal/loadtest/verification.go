package loadtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/roboheist/backend/pkg/logger"
)

// ErrVerification marks a run whose responses broke an expected invariant.
var ErrVerification = errors.New("verification failed")

const (
	rootMessage     = "ROBO-HEIST backend running"
	duplicateDetail = "Team name already registered"
)

// checkService verifies GET / answers with the running banner.
func checkService(ctx context.Context, client *HTTPClient) error {
	logger.Get().Info(ctx, "checking service")

	status, body, err := client.Get(ctx, "/")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	if status != http.StatusOK {
		return fmt.Errorf("%w: GET / returned %d", ErrVerification, status)
	}

	var resp struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return fmt.Errorf("%w: GET / body: %v", ErrVerification, err)
	}
	if resp.Message != rootMessage {
		return fmt.Errorf("%w: unexpected banner %q", ErrVerification, resp.Message)
	}
	return nil
}

// checkDuplicate re-registers name in a different case and expects a 400.
func checkDuplicate(ctx context.Context, client *HTTPClient, reg Registration) error {
	reg.Team = swapCase(reg.Team)

	status, body, err := client.Post(ctx, "/api/register", reg)
	if err != nil {
		return err
	}
	if status != http.StatusBadRequest {
		return fmt.Errorf("%w: duplicate %q returned %d", ErrVerification, reg.Team, status)
	}

	var resp struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Detail != duplicateDetail {
		return fmt.Errorf("%w: duplicate detail %s", ErrVerification, body)
	}
	return nil
}

// checkInvalid posts a registration with a one-letter team and no email and
// expects a 422.
func checkInvalid(ctx context.Context, client *HTTPClient) error {
	status, _, err := client.Post(ctx, "/api/register", map[string]string{"team": "x", "institution": "Load Lab"})
	if err != nil {
		return err
	}
	if status != http.StatusUnprocessableEntity {
		return fmt.Errorf("%w: invalid registration returned %d", ErrVerification, status)
	}
	return nil
}

// fetchLeaderboard reads GET /api/leaderboard.
func fetchLeaderboard(ctx context.Context, client *HTTPClient, stats *Stats) ([]Entry, error) {
	status, body, err := client.Get(ctx, "/api/leaderboard")
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: leaderboard returned %d", ErrVerification, status)
	}

	var resp LeaderboardResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: leaderboard body: %v", ErrVerification, err)
	}
	stats.LeaderboardEntries = len(resp.Teams)
	return resp.Teams, nil
}

// verifyLeaderboard checks ordering, id uniqueness, and that every team the
// run registered is listed with the score it was given.
func verifyLeaderboard(board []Entry, registered map[string]Entry) error {
	ids := make(map[string]struct{}, len(board))
	byName := make(map[string]Entry, len(board))

	for i, e := range board {
		if i > 0 && e.Score > board[i-1].Score {
			return fmt.Errorf("%w: entry %d (%d) outranks entry %d (%d)",
				ErrVerification, i, e.Score, i-1, board[i-1].Score)
		}
		if _, ok := ids[e.ID]; ok {
			return fmt.Errorf("%w: id %s listed twice", ErrVerification, e.ID)
		}
		ids[e.ID] = struct{}{}
		byName[e.Team] = e
	}

	for name, want := range registered {
		if want.Score < MinScore || want.Score > MaxScore {
			return fmt.Errorf("%w: team %q scored %d outside [%d, %d]",
				ErrVerification, name, want.Score, MinScore, MaxScore)
		}
		got, ok := byName[name]
		if !ok {
			return fmt.Errorf("%w: team %q missing from leaderboard", ErrVerification, name)
		}
		if got != want {
			return fmt.Errorf("%w: team %q listed as %+v, registered as %+v", ErrVerification, name, got, want)
		}
	}
	return nil
}

func swapCase(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z':
			return r - 'A' + 'a'
		default:
			return r
		}
	}, s)
}
