// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

// Package config loads the layered application configuration: built-in
// defaults, then an optional YAML file, then environment variables.
//
// Every engine owns its section type (ranking.Weights, pricing.Config and so
// on); this package only assembles them and runs their validation.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/knadh/koanf/providers/structs"

	"github.com/tomtom215/kennelrank/internal/cache"
	"github.com/tomtom215/kennelrank/internal/logging"
	"github.com/tomtom215/kennelrank/internal/pricing"
	"github.com/tomtom215/kennelrank/internal/priority"
	"github.com/tomtom215/kennelrank/internal/ranking"
	"github.com/tomtom215/kennelrank/internal/recompute"
	"github.com/tomtom215/kennelrank/internal/store"
	"github.com/tomtom215/kennelrank/internal/supervisor"
	"github.com/tomtom215/kennelrank/internal/validation"
)

// Config is the complete application configuration.
type Config struct {
	Server    ServerConfig         `koanf:"server" json:"server"`
	Database  store.DatabaseConfig `koanf:"database" json:"database"`
	Store     StoreConfig          `koanf:"store" json:"store"`
	Breaker   store.BreakerConfig  `koanf:"breaker" json:"breaker"`
	Recompute recompute.Config     `koanf:"recompute" json:"recompute"`
	Ranking   ranking.Weights      `koanf:"ranking" json:"ranking"`
	Pricing   pricing.Config       `koanf:"pricing" json:"pricing"`
	Priority  priority.Config      `koanf:"priority" json:"priority"`
	Cache     cache.Config         `koanf:"cache" json:"cache"`
	Logging   logging.Config       `koanf:"logging" json:"logging"`

	Supervisor supervisor.TreeConfig `koanf:"supervisor" json:"supervisor"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host string `koanf:"host" json:"host"`
	Port int    `koanf:"port" json:"port" validate:"min=1,max=65535"`

	ReadTimeout     time.Duration `koanf:"read_timeout" json:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout" json:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout" json:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" json:"shutdown_timeout"`

	// CORSOrigins lists allowed origins. "*" allows any.
	CORSOrigins []string `koanf:"cors_origins" json:"cors_origins"`

	// RateLimitRequests per RateLimitWindow per client IP.
	RateLimitRequests int           `koanf:"rate_limit_reqs" json:"rate_limit_reqs" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" json:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled" json:"rate_limit_disabled"`

	// Environment is development or production.
	Environment string `koanf:"environment" json:"environment" validate:"oneof=development production"`
}

// Addr returns the listen address.
func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StoreConfig configures the optional key-value result mirror.
type StoreConfig struct {
	// MirrorKV also writes every result to the embedded Badger store.
	MirrorKV bool `koanf:"mirror_kv" json:"mirror_kv"`

	KV store.KVConfig `koanf:"kv" json:"kv"`
}

// defaultConfig returns the built-in defaults, the lowest configuration layer.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       2 * time.Minute,
			ShutdownTimeout:   10 * time.Second,
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			Environment:       "development",
		},
		Database: store.DefaultDatabaseConfig(),
		Store: StoreConfig{
			MirrorKV: false,
			KV: store.KVConfig{
				Path:       "/data/kennelrank-kv",
				GCInterval: 10 * time.Minute,
				GCRatio:    0.5,
			},
		},
		Breaker:   store.DefaultBreakerConfig(),
		Recompute: *recompute.DefaultConfig(),
		Ranking:   ranking.DefaultWeights(),
		Pricing:   *pricing.DefaultConfig(),
		Priority:  *priority.DefaultConfig(),
		Cache: cache.Config{
			TTL:             5 * time.Minute,
			CleanupInterval: 5 * time.Minute,
			Name:            "api",
		},
		Logging:    logging.DefaultConfig(),
		Supervisor: supervisor.DefaultTreeConfig(),
	}
}

// Default returns the built-in configuration without reading files or the environment.
func Default() *Config {
	return defaultConfig()
}

// Map returns the configuration as a nested map keyed by koanf paths, the
// same shape a config file uses.
func (c *Config) Map() (map[string]interface{}, error) {
	return structs.Provider(c, "koanf").Read()
}

// Validate checks struct tags and every section's own rules, reporting all
// failures at once.
func (c *Config) Validate() error {
	var errs []error

	if verr := validation.ValidateStruct(c); verr != nil {
		errs = append(errs, verr)
	}
	if err := c.Recompute.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Ranking.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Pricing.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Priority.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("cache.ttl must not be negative, got %s", c.Cache.TTL))
	}
	if c.Store.MirrorKV && c.Store.KV.Path == "" && !c.Store.KV.InMemory {
		errs = append(errs, fmt.Errorf("store.kv.path is required when store.mirror_kv is enabled"))
	}
	if c.Breaker.Enabled && (c.Breaker.FailureRatio <= 0 || c.Breaker.FailureRatio > 1) {
		errs = append(errs, fmt.Errorf("breaker.failure_ratio must be in (0, 1], got %v", c.Breaker.FailureRatio))
	}
	if !c.Server.RateLimitDisabled && c.Server.RateLimitWindow <= 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit_window must be positive"))
	}

	return errors.Join(errs...)
}
