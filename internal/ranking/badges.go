// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package ranking

import (
	"fmt"
	"sort"
)

// BadgeKey identifies a display badge.
type BadgeKey string

const (
	BadgeHot         BadgeKey = "hot"
	BadgeTrend       BadgeKey = "trend"
	BadgeLastUnits   BadgeKey = "last_units"
	BadgeOpportunity BadgeKey = "opportunity"
)

// Badge is a storefront highlight derived from a persisted score.
// Badges never feed back into score or rank.
type Badge struct {
	Key       BadgeKey `json:"key"`
	Label     string   `json:"label"`
	Priority  int      `json:"priority"`
	AriaLabel string   `json:"aria_label"`
}

// BadgeInput carries the optional context used by badge rules.
type BadgeInput struct {
	Score int

	// LeadVelocity is leads per day. Zero when unknown.
	LeadVelocity float64

	// CardCTR is the catalog card click-through rate in [0,1]. Zero when unknown.
	CardCTR float64

	AgeDays int

	// SimilarAvailable counts other active items sharing the same attributes.
	// Negative means unknown.
	SimilarAvailable int
}

var badgeLabels = map[BadgeKey]string{
	BadgeHot:         "In high demand",
	BadgeTrend:       "Trending this week",
	BadgeLastUnits:   "Last units",
	BadgeOpportunity: "Special opportunity",
}

var badgePriority = map[BadgeKey]int{
	BadgeHot:         100,
	BadgeTrend:       80,
	BadgeLastUnits:   70,
	BadgeOpportunity: 60,
}

// Badges returns the badges earned by an item, highest priority first.
//
//nolint:gocritic // BadgeInput is a plain value type
func Badges(in BadgeInput) []Badge {
	var badges []Badge

	if in.Score >= 85 {
		badges = append(badges, newBadge(BadgeHot, fmt.Sprintf("Score %d, high demand. CTR %.1f%%.", in.Score, in.CardCTR*100)))
	}

	if in.Score >= 70 && in.Score <= 84 {
		if in.LeadVelocity > 0 || (in.AgeDays < 30 && in.CardCTR > 0.02) {
			badges = append(badges, newBadge(BadgeTrend, fmt.Sprintf("Score %d, recent growth. Leads/day: %.1f.", in.Score, in.LeadVelocity)))
		}
	}

	if in.Score < 40 {
		badges = append(badges, newBadge(BadgeOpportunity, fmt.Sprintf("Score %d, stock needs attention.", in.Score)))
	}

	if in.SimilarAvailable >= 0 && in.SimilarAvailable <= 2 {
		badges = append(badges, newBadge(BadgeLastUnits, fmt.Sprintf("Few similar items available (%d).", in.SimilarAvailable)))
	}

	sort.SliceStable(badges, func(i, j int) bool {
		return badges[i].Priority > badges[j].Priority
	})
	return badges
}

func newBadge(key BadgeKey, detail string) Badge {
	label := badgeLabels[key]
	return Badge{
		Key:       key,
		Label:     label,
		Priority:  badgePriority[key],
		AriaLabel: label + ". " + detail,
	}
}
