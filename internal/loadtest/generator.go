package loadtest

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/roboheist/backend/pkg/logger"
)

const teamPrefix = "Load "

var institutions = []string{
	"Polytechnic Institute",
	"State University",
	"Robotics Academy",
	"Technical College",
}

// generateTeams creates n registrations with unique team names.
func generateTeams(ctx context.Context, n int, stats *Stats) ([]Registration, error) {
	if n < 1 {
		return nil, fmt.Errorf("team count must be positive, got %d", n)
	}
	logger.Get().Info(ctx, "generating teams with unique names", logger.Int("teams", n))

	regs := make([]Registration, n)
	for i := range regs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during team generation: %w", err)
		}
		regs[i] = newRegistration(i)
	}

	stats.TeamsGenerated = len(regs)
	return regs, nil
}

// newRegistration builds one registration. The uuid keeps names unique across
// runs against the same server.
func newRegistration(index int) Registration {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return Registration{
		Team:        teamPrefix + id,
		Institution: institutions[index%len(institutions)],
		Email:       "team-" + id[:12] + "@example.com",
		Members:     []string{"captain-" + id[:6], "pilot-" + id[6:12]},
	}
}
