// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers a YAML file and environment variables over the defaults.
// - Errors are wrapped with this package's sentinel kinds.
package config

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/okian/co2risk/internal/domain/policy"
	"github.com/okian/co2risk/internal/domain/risk"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json log output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// DefaultLimitGKm is the limit applied when a request does not carry one.
	DefaultLimitGKm float64 `koanf:"default_limit_g_km"`

	// PenaltyRatePerGram prices each g/km of fleet excess per vehicle.
	PenaltyRatePerGram float64 `koanf:"penalty_rate_per_gram"`

	// FleetTargets replaces the built-in policy table when non-empty.
	FleetTargets map[string]float64 `koanf:"fleet_targets"`

	// StrictModelID and FullModelID are reported when a request names no model.
	StrictModelID string `koanf:"strict_model_id"`
	FullModelID   string `koanf:"full_model_id"`

	// BatchConcurrency bounds the goroutines used by one batch request.
	BatchConcurrency int `koanf:"batch_concurrency"`

	// MaxBatchSize caps the vehicles in a batch and the values in a fleet.
	MaxBatchSize int `koanf:"max_batch_size"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		DefaultLimitGKm:    risk.DefaultLimitGKm,
		PenaltyRatePerGram: policy.DefaultPenaltyRatePerGram,
		StrictModelID:      "rf_strict_v1",
		FullModelID:        "rf_full_v1",
		BatchConcurrency:   runtime.NumCPU(),
		MaxBatchSize:       10_000,
	}
}

// Validate checks values that would make the service unusable.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.MaxBatchSize < 1:
		return fmt.Errorf("%w: max_batch_size must be positive", ErrInvalidConfig)
	}
	if err := risk.ValidateLimit(c.DefaultLimitGKm); err != nil {
		return fmt.Errorf("%w: default_limit_g_km: %v", ErrInvalidConfig, err)
	}
	if _, err := c.PolicyTable(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// PolicyTable builds the fleet policy table described by the config.
func (c *Config) PolicyTable() (*policy.Table, error) {
	targets := c.FleetTargets
	if len(targets) == 0 {
		targets = policy.DefaultTargets()
	}
	return policy.New(targets, c.PenaltyRatePerGram)
}
