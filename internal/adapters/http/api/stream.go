package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/roboheist/backend/internal/adapters/stream"
	"github.com/roboheist/backend/internal/domain/types"
	"github.com/roboheist/backend/pkg/logger"
)

// SnapshotProvider returns the current leaderboard for new subscribers.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (types.StreamMessage, error)
}

// StreamHandler upgrades clients to a websocket that receives leaderboard
// snapshots.
type StreamHandler struct {
	deps     SnapshotProvider
	hub      Hub
	upgrader websocket.Upgrader
	logger   logger.Logger
}

// NewStreamHandler creates a new stream handler.
func NewStreamHandler(deps SnapshotProvider, hub Hub, origins []string, l logger.Logger) *StreamHandler {
	return &StreamHandler{
		deps: deps,
		hub:  hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || originAllowed(origins, origin)
			},
		},
		logger: l,
	}
}

// HandleStream handles GET /ws/leaderboard. The client first gets a snapshot,
// then an update after each registration.
//
// The client joins the hub before the snapshot is read, so no registration
// can fall between the two. Updates that arrive meanwhile are held and sent
// after the snapshot.
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream"
	ctx := r.Context()

	// Upgrade writes its own error response.
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(ctx, "websocket upgrade failed", logger.Error(WrapKind(op, ErrStreamUpgrade, err)))
		return
	}

	client := stream.NewClient(conn, h.logger)
	client.Hold()
	if !h.hub.Register(client) {
		client.Close()
		return
	}

	payload, err := h.snapshot(ctx)
	if err == nil {
		err = client.Prime(payload)
	}
	if err != nil {
		h.logger.Error(ctx, "snapshot failed", logger.Error(Wrap(op, err)))
		h.hub.Unregister(client)
		client.Close()
		return
	}

	go func() {
		defer func() {
			h.hub.Unregister(client)
			client.Close()
		}()
		client.ReadLoop()
	}()
}

func (h *StreamHandler) snapshot(ctx context.Context) ([]byte, error) {
	msg, err := h.deps.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return payload, nil
}
