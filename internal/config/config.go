// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers a YAML file and environment variables on top (see loader.go).
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"net"
	"strconv"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Host and Port form the HTTP listen address.
	Host string `koanf:"host"`
	Port int    `koanf:"port"`

	// ScoreMin and ScoreMax bound the score handed to newly registered teams (inclusive).
	ScoreMin int `koanf:"score_min"`
	ScoreMax int `koanf:"score_max"`

	// ScoreSeed seeds the score source. Zero means seed from the clock.
	ScoreSeed int64 `koanf:"score_seed"`

	// SeedTeams loads the five demo teams at startup.
	SeedTeams bool `koanf:"seed_teams"`

	// CORSAllowedOrigins lists origins allowed to call the API. "*" allows any.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`

	// MaxBodyBytes caps request body size.
	MaxBodyBytes int64 `koanf:"max_body_bytes"`

	// MetricsNamespace and MetricsSubsystem prefix every Prometheus metric name.
	MetricsNamespace string `koanf:"metrics_namespace"`
	MetricsSubsystem string `koanf:"metrics_subsystem"`

	// MetricsLatencyBuckets overrides the latency histogram buckets, in milliseconds.
	MetricsLatencyBuckets []float64 `koanf:"metrics_latency_buckets"`

	// MetricsLabels are constant labels added to every metric.
	MetricsLabels map[string]string `koanf:"metrics_labels"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Host:               "0.0.0.0",
		Port:               8000,
		ScoreMin:           50,
		ScoreMax:           95,
		ScoreSeed:          0,
		SeedTeams:          true,
		CORSAllowedOrigins: []string{"*"},
		MaxBodyBytes:       1 << 20,
		MetricsNamespace:   "roboheist",
		MetricsSubsystem:   "backend",
	}
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
