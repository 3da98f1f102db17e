// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

// Package pricing recommends a price band and estimates the sale probability
// of a catalog item at its current price.
//
// Each rule multiplies the running ideal (and sometimes the band edges) and
// appends one explanation clause. Every step rounds to whole cents. After all
// rules ran the band is widened so it always contains the ideal price:
//
//	min <= ideal <= max
//
// Missing inputs never fail the computation. An unpriced item is priced from
// the configured fallback and simply gets a generic band.
package pricing

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/tomtom215/kennelrank/internal/catalog"
	"github.com/tomtom215/kennelrank/internal/signals"
)

// Input is everything the engine needs to price one item.
type Input struct {
	ItemID string

	// PriceCents is the current price. Zero or negative means unpriced.
	PriceCents int64

	// AgeMonths is the item's age in 30-day months.
	AgeMonths float64

	// Attribute is the categorical attribute checked against the rare list (color).
	Attribute string

	// InterestedLeads counts leads pointing at the item.
	InterestedLeads int

	// ClosedLeads counts the interested leads that reached a closed outcome.
	ClosedLeads int

	// Month is the calendar month (1-12) used for seasonality.
	Month time.Month

	// Now stamps the result.
	Now time.Time
}

// Engine computes pricing results from a Config.
type Engine struct {
	config *Config
	rare   []string
}

// NewEngine creates a pricing engine. A nil config uses DefaultConfig.
func NewEngine(cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	rare := make([]string, 0, len(cfg.RareAttributes))
	for _, a := range cfg.RareAttributes {
		if n := foldText(a); n != "" {
			rare = append(rare, n)
		}
	}
	return &Engine{config: cfg, rare: rare}
}

// Config returns the engine configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// IsRare reports whether an attribute value matches the rare allow-list.
func (e *Engine) IsRare(attribute string) bool {
	a := foldText(attribute)
	if a == "" {
		return false
	}
	for _, r := range e.rare {
		if strings.Contains(a, r) {
			return true
		}
	}
	return false
}

// Compute prices one item.
//
//nolint:gocritic // Input is a plain value type
func (e *Engine) Compute(in Input) catalog.PricingResult {
	c := e.config

	base := in.PriceCents
	if base <= 0 {
		base = c.FallbackPriceCents
	}

	ideal := base
	minPrice := scale(base, c.BandLow)
	maxPrice := scale(base, c.BandHigh)
	var reasons []string

	rare := e.IsRare(in.Attribute)
	if rare {
		ideal = scale(ideal, c.RareIdealFactor)
		maxPrice = max(maxPrice, scale(base, c.RareMaxFactor))
		reasons = append(reasons, fmt.Sprintf("Rare attribute: ideal %s, ceiling %s.", percent(c.RareIdealFactor), percent(c.RareMaxFactor)))
	}

	if in.AgeMonths > c.AgeMonthsThreshold {
		ideal = scale(ideal, c.AgeIdealFactor)
		minPrice = scale(minPrice, c.AgeMinFactor)
		reasons = append(reasons, fmt.Sprintf("Older than %g months: %s to sell faster.", c.AgeMonthsThreshold, percent(c.AgeIdealFactor)))
	}

	conversion := 0.0
	if in.InterestedLeads > 0 {
		conversion = float64(in.ClosedLeads) / float64(in.InterestedLeads)
	}
	switch {
	case in.InterestedLeads > c.HighInterestLeads && conversion < c.LowConversion:
		ideal = scale(ideal, c.LowConversionFactor)
		reasons = append(reasons, fmt.Sprintf("High interest, low conversion: %s.", percent(c.LowConversionFactor)))
	case in.InterestedLeads < c.LowInterestLeads && conversion > c.HighConversion:
		ideal = scale(ideal, c.HighConversionFactor)
		reasons = append(reasons, fmt.Sprintf("Efficient conversion with little interest: %s.", percent(c.HighConversionFactor)))
	}

	month := int(in.Month)
	if slices.Contains(c.SeasonalMonths, month) {
		ideal = scale(ideal, c.SeasonalFactor)
		reasons = append(reasons, fmt.Sprintf("Seasonal demand: %s.", percent(c.SeasonalFactor)))
	}

	minPrice = min(minPrice, ideal)
	maxPrice = max(maxPrice, ideal)

	current := base
	probability := c.BaseProbability
	switch {
	case float64(current) > float64(ideal)*c.OverpricedFactor:
		probability = c.OverpricedProbability
	case current < minPrice:
		probability = c.UnderpricedProbability
	}

	alert := Classify(current, minPrice, maxPrice)

	return catalog.PricingResult{
		ItemID:          in.ItemID,
		PriceMin:        minPrice,
		PriceIdeal:      ideal,
		PriceMax:        maxPrice,
		SaleProbability: clamp01(probability),
		Alert:           alert,
		AlertMessage:    AlertMessage(alert),
		Reasoning:       strings.Join(reasons, " "),
		Features: catalog.PricingFeatures{
			BasePriceCents:  base,
			AgeMonths:       in.AgeMonths,
			RareAttribute:   rare,
			InterestedLeads: in.InterestedLeads,
			ClosedLeads:     in.ClosedLeads,
			ConversionRate:  conversion,
			Month:           month,
		},
		ComputedAt: in.Now,
	}
}

// InputFor builds a pricing input for an item from the leads that point at it.
// The age prefers the birth date and falls back to the listing date.
func InputFor(item *catalog.Item, leads []catalog.Lead, now time.Time) Input {
	born := item.BirthDate
	if born.IsZero() {
		born = item.CreatedAt
	}

	closed := 0
	for i := range leads {
		if leads[i].Status == catalog.LeadClosed {
			closed++
		}
	}

	return Input{
		ItemID:          item.ID,
		PriceCents:      item.PriceCents,
		AgeMonths:       signals.AgeMonths(born, now),
		Attribute:       item.Attributes.Color,
		InterestedLeads: len(leads),
		ClosedLeads:     closed,
		Month:           now.Month(),
		Now:             now,
	}
}

// Classify places a price against a band. Read paths use it to re-check a
// persisted band after the item price changed.
func Classify(current, minPrice, maxPrice int64) catalog.Alert {
	switch {
	case current > maxPrice:
		return catalog.AlertAbove
	case current < minPrice:
		return catalog.AlertBelow
	default:
		return catalog.AlertInRange
	}
}

// AlertMessage returns the operator-facing sentence for an alert.
func AlertMessage(a catalog.Alert) string {
	switch a {
	case catalog.AlertAbove:
		return "Price above the recommended band; risk of losing leads."
	case catalog.AlertBelow:
		return "Price below the recommended band; check the margin."
	default:
		return "Price within the suggested band."
	}
}

// percent renders a multiplicative factor as a signed percentage ("+8%").
func percent(f float64) string {
	return fmt.Sprintf("%+.0f%%", (f-1)*100)
}

// scale multiplies cents by f and rounds to the nearest cent.
func scale(cents int64, f float64) int64 {
	return int64(math.Round(float64(cents) * f))
}

func clamp01(p float64) float64 {
	return math.Max(0, math.Min(p, 1))
}

// foldText lowercases s and strips diacritics so "Sablé" matches "sable".
func foldText(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
