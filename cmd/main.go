package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/roboheist/backend/internal/adapters/http/api"
	"github.com/roboheist/backend/internal/adapters/http/swagger"
	"github.com/roboheist/backend/internal/adapters/stream"
	service "github.com/roboheist/backend/internal/app"
	"github.com/roboheist/backend/internal/config"
	"github.com/roboheist/backend/pkg/logger"
	"github.com/roboheist/backend/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	if err := run(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func run() error {
	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	metrics.Configure(
		metrics.WithNamespace(cfg.MetricsNamespace),
		metrics.WithSubsystem(cfg.MetricsSubsystem),
		metrics.WithHistogramBuckets(cfg.MetricsLatencyBuckets),
		metrics.WithCustomLabels(cfg.MetricsLabels),
	)

	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	log := logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	hub := stream.NewHub(ctx, stream.WithLogger(log.Named("stream")))
	defer hub.Close()

	svc := service.New(
		service.WithLogger(log.Named("service")),
		service.WithScoreRange(cfg.ScoreMin, cfg.ScoreMax),
		service.WithRandomSeed(cfg.ScoreSeed),
		service.WithSeedTeams(cfg.SeedTeams),
		service.WithPublisher(hub),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           newHandler(ctx, cfg, svc, hub, log.Named("api")),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(shutdownCtx, "server shutdown failed", logger.Error(err))
	}

	log.Info(shutdownCtx, "server stopped")
	return nil
}

// newHandler builds the routed, CORS-wrapped root handler.
func newHandler(ctx context.Context, cfg *config.Config, svc api.Dependencies, hub api.Hub, log logger.Logger) http.Handler {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc,
		api.WithMaxBodyBytes(cfg.MaxBodyBytes),
		api.WithAllowedOrigins(cfg.CORSAllowedOrigins),
		api.WithHub(hub),
		api.WithLogger(log),
	).Register(ctx, mux)

	return api.CORS(cfg.CORSAllowedOrigins)(api.Recover(log)(api.JSONErrors(mux)))
}

// startSystemMetricsUpdater refreshes runtime gauges until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater refreshes service gauges until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics pulls stats from the service. GetStats itself keeps
// the team gauge current.
func updateServiceMetrics(svc *service.Service) {
	stats := svc.GetStats()

	if queueLen, ok := stats["queueLength"].(int); ok {
		metrics.UpdateQueueSize(queueLen)
	}
	if capacity, ok := stats["queueCapacity"].(int); ok {
		metrics.UpdateQueueCapacity(capacity)
	}
	if subscribers, ok := stats["subscribers"].(int); ok {
		metrics.UpdateStreamSubscribers(subscribers)
	}
}
