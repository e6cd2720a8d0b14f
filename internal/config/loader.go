package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix = "ROBOHEIST_"
	EnvConfig = "ROBOHEIST_CONFIG"
	EnvPort   = "PORT"
)

const maxPort = 65535

// metricNamePart matches a Prometheus namespace or subsystem.
var metricNamePart = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// listKeys are comma-separated when they come from the environment.
var listKeys = map[string]struct{}{
	"cors_allowed_origins":    {},
	"metrics_latency_buckets": {},
}

// pairKeys are comma-separated name=value pairs when they come from the environment.
var pairKeys = map[string]struct{}{
	"metrics_labels": {},
}

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if ROBOHEIST_CONFIG is set
//  3. PORT, the platform-provided listen port
//  4. env (prefix ROBOHEIST_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvConfig); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadConfig, path, err)
		}
	}

	// Only the exact PORT variable; other names sharing the prefix are skipped.
	portProvider := env.Provider(EnvPort, ".", func(s string) string {
		if s == EnvPort {
			return "port"
		}
		return ""
	})
	if err := k.Load(portProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	// ROBOHEIST_SCORE_MIN -> score_min. Underscores are kept to match the koanf tags.
	envProvider := env.ProviderWithValue(EnvPrefix, ".", func(key, value string) (string, interface{}) {
		key = strings.TrimPrefix(strings.ToLower(key), strings.ToLower(EnvPrefix))
		if _, ok := listKeys[key]; ok {
			return key, splitList(value)
		}
		if _, ok := pairKeys[key]; ok {
			return key, splitPairs(value)
		}
		return key, value
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch {
	case c.Port < 1 || c.Port > maxPort:
		return fmt.Errorf("%w: port must be between 1 and %d, got %d", ErrInvalidConfig, maxPort, c.Port)
	case c.ScoreMin < 0:
		return fmt.Errorf("%w: score_min must not be negative", ErrInvalidConfig)
	case c.ScoreMax > 100:
		return fmt.Errorf("%w: score_max must not exceed 100", ErrInvalidConfig)
	case c.ScoreMin > c.ScoreMax:
		return fmt.Errorf("%w: score_min (%d) exceeds score_max (%d)", ErrInvalidConfig, c.ScoreMin, c.ScoreMax)
	case c.MaxBodyBytes <= 0:
		return fmt.Errorf("%w: max_body_bytes must be positive", ErrInvalidConfig)
	case !metricNamePart.MatchString(c.MetricsNamespace):
		return fmt.Errorf("%w: metrics_namespace %q is not a valid metric name", ErrInvalidConfig, c.MetricsNamespace)
	case !metricNamePart.MatchString(c.MetricsSubsystem):
		return fmt.Errorf("%w: metrics_subsystem %q is not a valid metric name", ErrInvalidConfig, c.MetricsSubsystem)
	}
	for i := 1; i < len(c.MetricsLatencyBuckets); i++ {
		if c.MetricsLatencyBuckets[i] <= c.MetricsLatencyBuckets[i-1] {
			return fmt.Errorf("%w: metrics_latency_buckets must be strictly increasing", ErrInvalidConfig)
		}
	}
	for name := range c.MetricsLabels {
		// Names starting with "__" are reserved by Prometheus.
		if !metricNamePart.MatchString(name) || strings.HasPrefix(name, "__") {
			return fmt.Errorf("%w: metrics_labels name %q is not a valid label name", ErrInvalidConfig, name)
		}
	}
	return nil
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitPairs turns "env=prod,region=eu" into a map. Entries without "=" are skipped.
func splitPairs(value string) map[string]interface{} {
	out := make(map[string]interface{})
	for _, p := range splitList(value) {
		name, val, ok := strings.Cut(p, "=")
		if !ok {
			continue
		}
		if name = strings.TrimSpace(name); name != "" {
			out[name] = strings.TrimSpace(val)
		}
	}
	return out
}
