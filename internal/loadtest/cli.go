package loadtest

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/roboheist/backend/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging initializes the global logger to write to stdout and a file.
// An empty logFile gets a timestamped name. The returned file must be closed
// by the caller.
func SetupLogging(logFile, format string) (io.Closer, error) {
	if logFile == "" {
		logFile = "loadgen_" + time.Now().Format("20060102_150405") + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	if err := logger.Init(logger.WithFormat(format), logger.WithOutput(io.MultiWriter(os.Stdout, file))); err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return file, nil
}

// ShowHelp prints usage information for the load generator.
func ShowHelp() {
	os.Stdout.WriteString(`ROBO-HEIST Load Generator
=========================

Registers many teams concurrently against a running backend, then checks
duplicate rejection, validation and the final leaderboard order.

Usage:
  go run ./cmd/loadgen [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:8000")
  -teams int
        Number of teams to register (default 1000)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 10s)
  -log string
        Log file for run output (default: loadgen_TIMESTAMP.log)
  -log-format string
        Log encoding, text or json (default "text")
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/loadgen -teams 5000 -workers 32
  go run ./cmd/loadgen -url http://localhost:9000 -verbose
`)
}
