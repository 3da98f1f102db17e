// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package pricing

import (
	"fmt"
)

// Config holds the pricing heuristic's tunable factors.
type Config struct {
	// FallbackPriceCents is used as the base when an item has no price.
	// Default: 600000.
	FallbackPriceCents int64 `koanf:"fallback_price_cents" json:"fallback_price_cents"`

	// BandLow and BandHigh set the initial band around the base price.
	// Default: 0.9 and 1.1.
	BandLow  float64 `koanf:"band_low" json:"band_low"`
	BandHigh float64 `koanf:"band_high" json:"band_high"`

	// RareAttributes lists attribute values that earn the rarity bonus.
	// Matching is case and accent insensitive and accepts substrings.
	// Default: particolor, sable, blue merle, exotic.
	RareAttributes []string `koanf:"rare_attributes" json:"rare_attributes"`

	// RareIdealFactor multiplies the ideal price of rare items.
	// Default: 1.08.
	RareIdealFactor float64 `koanf:"rare_ideal_factor" json:"rare_ideal_factor"`

	// RareMaxFactor sets the band ceiling of rare items relative to the base price.
	// Default: 1.12.
	RareMaxFactor float64 `koanf:"rare_max_factor" json:"rare_max_factor"`

	// AgeMonthsThreshold is the age past which the sell-through discount applies.
	// Default: 4.
	AgeMonthsThreshold float64 `koanf:"age_months_threshold" json:"age_months_threshold"`

	// AgeIdealFactor and AgeMinFactor discount older items.
	// Default: 0.92 and 0.9.
	AgeIdealFactor float64 `koanf:"age_ideal_factor" json:"age_ideal_factor"`
	AgeMinFactor   float64 `koanf:"age_min_factor" json:"age_min_factor"`

	// HighInterestLeads, LowConversion and LowConversionFactor describe the
	// "many lookers, few buyers" discount.
	// Default: more than 8 leads, conversion below 0.10, factor 0.95.
	HighInterestLeads   int     `koanf:"high_interest_leads" json:"high_interest_leads"`
	LowConversion       float64 `koanf:"low_conversion" json:"low_conversion"`
	LowConversionFactor float64 `koanf:"low_conversion_factor" json:"low_conversion_factor"`

	// LowInterestLeads, HighConversion and HighConversionFactor describe the
	// "few lookers, efficient conversion" raise.
	// Default: fewer than 3 leads, conversion above 0.25, factor 1.03.
	LowInterestLeads     int     `koanf:"low_interest_leads" json:"low_interest_leads"`
	HighConversion       float64 `koanf:"high_conversion" json:"high_conversion"`
	HighConversionFactor float64 `koanf:"high_conversion_factor" json:"high_conversion_factor"`

	// SeasonalMonths lists calendar months (1-12) with seasonal demand.
	// Default: 11, 12, 1.
	SeasonalMonths []int `koanf:"seasonal_months" json:"seasonal_months"`

	// SeasonalFactor multiplies the ideal price during seasonal months.
	// Default: 1.05.
	SeasonalFactor float64 `koanf:"seasonal_factor" json:"seasonal_factor"`

	// Sale probability at the current price.
	// Default: 0.6 base, 0.35 when overpriced, 0.8 when under the band.
	BaseProbability        float64 `koanf:"base_probability" json:"base_probability"`
	OverpricedProbability  float64 `koanf:"overpriced_probability" json:"overpriced_probability"`
	UnderpricedProbability float64 `koanf:"underpriced_probability" json:"underpriced_probability"`

	// OverpricedFactor marks the current price as overpriced when above ideal times this factor.
	// Default: 1.1.
	OverpricedFactor float64 `koanf:"overpriced_factor" json:"overpriced_factor"`
}

// DefaultConfig returns the production pricing configuration.
func DefaultConfig() *Config {
	return &Config{
		FallbackPriceCents:     600000,
		BandLow:                0.9,
		BandHigh:               1.1,
		RareAttributes:         []string{"particolor", "sable", "blue merle", "exotic"},
		RareIdealFactor:        1.08,
		RareMaxFactor:          1.12,
		AgeMonthsThreshold:     4,
		AgeIdealFactor:         0.92,
		AgeMinFactor:           0.9,
		HighInterestLeads:      8,
		LowConversion:          0.10,
		LowConversionFactor:    0.95,
		LowInterestLeads:       3,
		HighConversion:         0.25,
		HighConversionFactor:   1.03,
		SeasonalMonths:         []int{11, 12, 1},
		SeasonalFactor:         1.05,
		BaseProbability:        0.6,
		OverpricedProbability:  0.35,
		UnderpricedProbability: 0.8,
		OverpricedFactor:       1.1,
	}
}

// Validate checks the configuration for values that would break the band invariant.
func (c *Config) Validate() error {
	if c.FallbackPriceCents <= 0 {
		return fmt.Errorf("pricing.fallback_price_cents must be positive, got %d", c.FallbackPriceCents)
	}
	if c.BandLow <= 0 || c.BandLow > 1 {
		return fmt.Errorf("pricing.band_low must be in (0, 1], got %v", c.BandLow)
	}
	if c.BandHigh < 1 {
		return fmt.Errorf("pricing.band_high must be at least 1, got %v", c.BandHigh)
	}
	for name, f := range map[string]float64{
		"rare_ideal_factor":      c.RareIdealFactor,
		"rare_max_factor":        c.RareMaxFactor,
		"age_ideal_factor":       c.AgeIdealFactor,
		"age_min_factor":         c.AgeMinFactor,
		"low_conversion_factor":  c.LowConversionFactor,
		"high_conversion_factor": c.HighConversionFactor,
		"seasonal_factor":        c.SeasonalFactor,
		"overpriced_factor":      c.OverpricedFactor,
	} {
		if f <= 0 {
			return fmt.Errorf("pricing.%s must be positive, got %v", name, f)
		}
	}
	for name, p := range map[string]float64{
		"base_probability":        c.BaseProbability,
		"overpriced_probability":  c.OverpricedProbability,
		"underpriced_probability": c.UnderpricedProbability,
	} {
		if p < 0 || p > 1 {
			return fmt.Errorf("pricing.%s must be in [0, 1], got %v", name, p)
		}
	}
	for _, m := range c.SeasonalMonths {
		if m < 1 || m > 12 {
			return fmt.Errorf("pricing.seasonal_months contains invalid month %d", m)
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	clone.RareAttributes = append([]string(nil), c.RareAttributes...)
	clone.SeasonalMonths = append([]int(nil), c.SeasonalMonths...)
	return &clone
}
