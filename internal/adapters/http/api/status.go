package api

import (
	"net/http"

	"github.com/roboheist/backend/internal/domain/types"
)

// Values reported by GET /test.
const (
	BackendRunning = "✅ Running"
	DatabaseMock   = "🧪 Mock (in-memory)"
)

// StatusHandler handles GET /test.
type StatusHandler struct{}

// NewStatusHandler creates a new status handler.
func NewStatusHandler() *StatusHandler {
	return &StatusHandler{}
}

// HandleTest reports the backend state and the storage in use.
func (h *StatusHandler) HandleTest(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, types.BackendReport{
		Backend:  BackendRunning,
		Database: DatabaseMock,
	})
}
