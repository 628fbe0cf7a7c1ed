// Package config loads read-once, environment-derived configuration for
// the dispatch pipeline, per spec.md §6 and §2 (the "Clock & Config" leaf).
package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v10"
)

// Tunable defaults from spec.md §4.4/§4.5/§9. Not environment-overridable:
// the spec calls these defaults, not contract, but gives no env var for
// them, so they live here as constants rather than config fields.
const (
	FastResponseThreshold = 100 * time.Millisecond
	HealthProbeInterval   = 5 * time.Second
	HealthLockTTL         = 5 * time.Second
	MaxAttempts           = 10
	BackoffFloor          = 50 * time.Millisecond
	BackoffCap            = 2 * time.Second
	DequeueTimeout        = 1 * time.Second
	DrainDeadline         = 5 * time.Second
	BucketGranularity     = time.Second
)

// Config holds the environment-derived settings the spec requires.
type Config struct {
	DefaultProcessorURL  string `env:"APP_DEFAULT_PAYMENT_PROCESSOR_URL,required"`
	FallbackProcessorURL string `env:"APP_FALLBACK_PAYMENT_PROCESSOR_URL,required"`
	StoreURL             string `env:"APP_REDIS_URL,required"`
	ServerKeepAliveSecs  int    `env:"APP_SERVER_KEEPALIVE" envDefault:"60"`
	ListenAddr           string `env:"APP_LISTEN_ADDR" envDefault:":9999"`
	Workers              int    `env:"APP_WORKERS" envDefault:"0"`
	AuditLogPath         string `env:"APP_AUDIT_LOG_PATH" envDefault:""`
}

// Load reads Config from the process environment and validates that the
// two processor URLs are parseable; StoreURL is parsed later by
// store.NewRedisStore. Workers defaults to 0, meaning "let the caller pick a
// CPU-proportional default" (see WorkerCount).
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if _, err := url.ParseRequestURI(cfg.DefaultProcessorURL); err != nil {
		return Config{}, fmt.Errorf("APP_DEFAULT_PAYMENT_PROCESSOR_URL: %w", err)
	}
	if _, err := url.ParseRequestURI(cfg.FallbackProcessorURL); err != nil {
		return Config{}, fmt.Errorf("APP_FALLBACK_PAYMENT_PROCESSOR_URL: %w", err)
	}
	return cfg, nil
}

// KeepAlive returns the configured HTTP keep-alive duration.
func (c Config) KeepAlive() time.Duration {
	return time.Duration(c.ServerKeepAliveSecs) * time.Second
}

// WorkerCount resolves the configured worker count, defaulting to 2x the
// logical CPU quota as described in spec.md §4.5, within [2,4].
func (c Config) WorkerCount(numCPU int) int {
	if c.Workers > 0 {
		return c.Workers
	}
	n := numCPU * 2
	if n < 2 {
		return 2
	}
	if n > 4 {
		return 4
	}
	return n
}
