package api

import (
	"net/http"
	"time"
)

// StatsProvider exposes service statistics for GET /stats.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves a point-in-time stats report.
type StatsHandler struct {
	provider StatsProvider
	now      func() time.Time
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider, now: time.Now}
}

// HandleStats handles GET /stats. The report is stamped with generatedAt and
// must not be cached.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	report := make(map[string]interface{})
	for k, v := range h.provider.GetStats() {
		report[k] = v
	}
	report["generatedAt"] = h.now().UTC().Format(time.RFC3339)

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, report)
}
