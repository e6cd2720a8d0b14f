// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/roboheist/backend/internal/adapters/stream"
	"github.com/roboheist/backend/internal/domain/model"
	"github.com/roboheist/backend/internal/domain/types"
	"github.com/roboheist/backend/pkg/logger"
)

const defaultMaxBodyBytes int64 = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Leaderboard(ctx context.Context) ([]types.Entry, error)
	Register(ctx context.Context, reg model.Registration) (types.Entry, error)
	Snapshot(ctx context.Context) (types.StreamMessage, error)
	StatsProvider
}

// Hub accepts websocket subscribers.
type Hub interface {
	Register(c stream.Subscriber) bool
	Unregister(c stream.Subscriber)
}

// Server wires HTTP routes for the business API.
type Server struct {
	rootHandler        *RootHandler
	statusHandler      *StatusHandler
	leaderboardHandler *LeaderboardHandler
	registerHandler    *RegisterHandler
	statsHandler       *StatsHandler
	healthHandler      *HealthHandler
	streamHandler      *StreamHandler
}

type serverConfig struct {
	maxBodyBytes int64
	origins      []string
	hub          Hub
	logger       logger.Logger
}

// Option configures the Server.
type Option func(*serverConfig)

// WithMaxBodyBytes caps request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithAllowedOrigins restricts which origins may open the websocket stream.
func WithAllowedOrigins(origins []string) Option {
	return func(c *serverConfig) {
		if len(origins) > 0 {
			c.origins = origins
		}
	}
}

// WithHub enables GET /ws/leaderboard.
func WithHub(h Hub) Option {
	return func(c *serverConfig) {
		if h != nil {
			c.hub = h
		}
	}
}

// WithLogger sets the handler logger.
func WithLogger(l logger.Logger) Option {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, opts ...Option) *Server {
	cfg := serverConfig{
		maxBodyBytes: defaultMaxBodyBytes,
		origins:      []string{"*"},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("api")
	}

	s := &Server{
		rootHandler:        NewRootHandler(),
		statusHandler:      NewStatusHandler(),
		leaderboardHandler: NewLeaderboardHandler(deps, cfg.logger),
		registerHandler:    NewRegisterHandler(deps, cfg.maxBodyBytes, cfg.logger),
		statsHandler:       NewStatsHandler(deps),
		healthHandler:      NewHealthHandler(),
	}
	if cfg.hub != nil {
		s.streamHandler = NewStreamHandler(deps, cfg.hub, cfg.origins, cfg.logger)
	}
	return s
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("GET /{$}", MetricsMiddleware(s.rootHandler.HandleRoot, "root"))
	mux.HandleFunc("GET /test", MetricsMiddleware(s.statusHandler.HandleTest, "test"))
	mux.HandleFunc("GET /api/leaderboard", MetricsMiddleware(s.leaderboardHandler.HandleGetLeaderboard, "leaderboard"))
	mux.HandleFunc("POST /api/register", MetricsMiddleware(s.registerHandler.HandleRegister, "register"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", s.healthHandler.HandleMetrics)

	// The upgrade needs the raw ResponseWriter, so no metrics wrapper here.
	if s.streamHandler != nil {
		mux.HandleFunc("GET /ws/leaderboard", s.streamHandler.HandleStream)
	}
}

// detailResponse is the error envelope: a string for simple failures, a list
// of field errors for validation failures.
type detailResponse struct {
	Detail any `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail any) {
	writeJSON(w, status, detailResponse{Detail: detail})
}
