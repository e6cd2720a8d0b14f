package api

import (
	"context"
	"net/http"

	"github.com/roboheist/backend/internal/domain/types"
	"github.com/roboheist/backend/pkg/logger"
)

// LeaderboardDependencies defines the interface for leaderboard reads.
type LeaderboardDependencies interface {
	Leaderboard(ctx context.Context) ([]types.Entry, error)
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps   LeaderboardDependencies
	logger logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies, l logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, logger: l}
}

// HandleGetLeaderboard handles GET /api/leaderboard.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	entries, err := h.deps.Leaderboard(r.Context())
	if err != nil {
		h.logger.Error(r.Context(), "leaderboard read failed", logger.Error(Wrap(op, err)))
		writeDetail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}
	writeJSON(w, http.StatusOK, types.LeaderboardResponse{Teams: entries})
}
