// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package ranking

import (
	"fmt"
)

// Weights holds the tunable magnitudes of the ranking heuristic.
// The defaults are hand-picked business tuning, not derived constants.
type Weights struct {
	// Base is the starting score of every item.
	// Default: 50.
	Base float64 `koanf:"base" json:"base"`

	// DemandBoostMax is the boost given to the item with the most leads in the batch.
	// Other items get a share proportional to their lead count.
	// Default: 30.
	DemandBoostMax float64 `koanf:"demand_boost_max" json:"demand_boost_max"`

	// FreshDays is the maximum age in days that still counts as recent.
	// Default: 30.
	FreshDays int `koanf:"fresh_days" json:"fresh_days"`

	// FreshBonus is added to recent items.
	// Default: 10.
	FreshBonus float64 `koanf:"fresh_bonus" json:"fresh_bonus"`

	// StaleDays is the minimum age in days that counts as aging stock.
	// Default: 90.
	StaleDays int `koanf:"stale_days" json:"stale_days"`

	// StalePenalty is subtracted from aging stock.
	// Default: 15.
	StalePenalty float64 `koanf:"stale_penalty" json:"stale_penalty"`

	// ReservedPenalty is subtracted from reserved items.
	// Default: 20.
	ReservedPenalty float64 `koanf:"reserved_penalty" json:"reserved_penalty"`

	// PremiumPriceCents tags items priced strictly above it as Premium.
	// The tag is informational and never changes the score.
	// Default: 800000.
	PremiumPriceCents int64 `koanf:"premium_price_cents" json:"premium_price_cents"`

	// HotThreshold is the minimum score flagged hot.
	// Default: 75.
	HotThreshold int `koanf:"hot_threshold" json:"hot_threshold"`

	// SlowThreshold is the score below which an item is flagged slow.
	// Default: 40.
	SlowThreshold int `koanf:"slow_threshold" json:"slow_threshold"`

	// MaxReasons caps the number of reason clauses kept in the reason string.
	// Default: 3.
	MaxReasons int `koanf:"max_reasons" json:"max_reasons"`
}

// DefaultWeights returns the production ranking weights.
func DefaultWeights() Weights {
	return Weights{
		Base:              50,
		DemandBoostMax:    30,
		FreshDays:         30,
		FreshBonus:        10,
		StaleDays:         90,
		StalePenalty:      15,
		ReservedPenalty:   20,
		PremiumPriceCents: 800000,
		HotThreshold:      75,
		SlowThreshold:     40,
		MaxReasons:        3,
	}
}

// Validate checks the weights for consistency.
//
//nolint:gocritic // Weights is small and copied by value on purpose
func (w Weights) Validate() error {
	if w.Base < 0 || w.Base > 100 {
		return fmt.Errorf("ranking.base must be between 0 and 100, got %v", w.Base)
	}
	if w.DemandBoostMax < 0 || w.FreshBonus < 0 || w.StalePenalty < 0 || w.ReservedPenalty < 0 {
		return fmt.Errorf("ranking boosts and penalties must be non-negative")
	}
	if w.FreshDays < 0 {
		return fmt.Errorf("ranking.fresh_days must be non-negative, got %d", w.FreshDays)
	}
	if w.StaleDays <= w.FreshDays {
		return fmt.Errorf("ranking.stale_days (%d) must be greater than fresh_days (%d)", w.StaleDays, w.FreshDays)
	}
	if w.HotThreshold <= w.SlowThreshold {
		return fmt.Errorf("ranking.hot_threshold (%d) must be greater than slow_threshold (%d)", w.HotThreshold, w.SlowThreshold)
	}
	if w.MaxReasons < 1 {
		return fmt.Errorf("ranking.max_reasons must be at least 1, got %d", w.MaxReasons)
	}
	return nil
}
