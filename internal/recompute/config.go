// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package recompute

import (
	"fmt"
	"time"

	"github.com/tomtom215/kennelrank/internal/signals"
)

// Config controls recompute cycles.
type Config struct {
	// Interval is the scheduler period.
	// Default: 15m.
	Interval time.Duration `koanf:"interval" json:"interval"`

	// RunOnStartup runs a full cycle as soon as the scheduler starts.
	// Default: true.
	RunOnStartup bool `koanf:"run_on_startup" json:"run_on_startup"`

	// Timeout bounds one scheduled cycle.
	// Default: 5m.
	Timeout time.Duration `koanf:"timeout" json:"timeout"`

	// Workers bounds concurrent per-item writes.
	// Default: 8.
	Workers int `koanf:"workers" json:"workers"`

	// WriteRatePerSecond throttles item writes to the store. Zero is unlimited.
	// Default: 0.
	WriteRatePerSecond float64 `koanf:"write_rate_per_second" json:"write_rate_per_second"`

	// LeadLookback is the demand window.
	// Default: 90 days.
	LeadLookback time.Duration `koanf:"lead_lookback" json:"lead_lookback"`

	// LeadLimit bounds the individual leads loaded for priority tasks.
	// Default: 500.
	LeadLimit int `koanf:"lead_limit" json:"lead_limit"`

	// PricingLeadLimit bounds the leads read per item when pricing.
	// Default: 200.
	PricingLeadLimit int `koanf:"pricing_lead_limit" json:"pricing_lead_limit"`
}

// DefaultConfig returns the production recompute settings.
func DefaultConfig() *Config {
	return &Config{
		Interval:         15 * time.Minute,
		RunOnStartup:     true,
		Timeout:          5 * time.Minute,
		Workers:          8,
		LeadLookback:     signals.DefaultLeadLookback,
		LeadLimit:        signals.DefaultLeadLimit,
		PricingLeadLimit: 200,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("recompute.interval must be positive, got %s", c.Interval)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("recompute.timeout must be positive, got %s", c.Timeout)
	}
	if c.Workers < 1 {
		return fmt.Errorf("recompute.workers must be at least 1, got %d", c.Workers)
	}
	if c.WriteRatePerSecond < 0 {
		return fmt.Errorf("recompute.write_rate_per_second must not be negative, got %v", c.WriteRatePerSecond)
	}
	if c.LeadLookback <= 0 {
		return fmt.Errorf("recompute.lead_lookback must be positive, got %s", c.LeadLookback)
	}
	if c.LeadLimit < 1 || c.PricingLeadLimit < 1 {
		return fmt.Errorf("recompute lead limits must be at least 1")
	}
	return nil
}
