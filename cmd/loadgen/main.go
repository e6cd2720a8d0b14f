package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/roboheist/backend/internal/loadtest"
)

const (
	defaultTeams      = 1000
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 10 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:8000", "Base URL of the service")
		teams     = flag.Int("teams", defaultTeams, "Number of teams to register")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		logFile   = flag.String("log", "", "Log file for run output (default: loadgen_TIMESTAMP.log)")
		logFormat = flag.String("log-format", "text", "Log encoding: text or json")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadtest.ShowHelp()
		return
	}

	closer, err := loadtest.SetupLogging(*logFile, *logFormat)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultRunTimeout)
	defer cancel()

	cfg := &loadtest.Config{
		BaseURL: *baseURL,
		Teams:   *teams,
		Workers: *workers,
		Timeout: *timeout,
		LogFile: *logFile,
		Verbose: *verbose,
	}

	if _, err := loadtest.Run(ctx, cfg); err != nil {
		os.Stderr.WriteString("Load run failed: " + err.Error() + "\n")
		cancel()
		stop()
		_ = closer.Close()
		os.Exit(1)
	}
}
