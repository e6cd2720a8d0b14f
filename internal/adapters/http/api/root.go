package api

import (
	"net/http"

	"github.com/roboheist/backend/internal/domain/types"
)

// RootMessage is the liveness message returned by GET /.
const RootMessage = "ROBO-HEIST backend running"

// RootHandler handles GET /.
type RootHandler struct{}

// NewRootHandler creates a new root handler.
func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

// HandleRoot reports that the backend is up.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, types.StatusResponse{Message: RootMessage})
}
