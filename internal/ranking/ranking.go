// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

// Package ranking converts aggregated demand signals into a 0-100 score, a
// hot/normal/slow flag and a short explanation for every active catalog item,
// then orders the batch into a dense rank.
//
// The heuristic is additive and deterministic:
//
//	score = base
//	      + demand share of the batch maximum (scaled to DemandBoostMax)
//	      + FreshBonus if recent, - StalePenalty if aging
//	      - ReservedPenalty if reserved
//
// clamped to [0, 100] and rounded. Reasons are recorded in the order the
// rules fire (demand, freshness, status, price tag) and truncated to
// MaxReasons clauses.
package ranking

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/kennelrank/internal/catalog"
	"github.com/tomtom215/kennelrank/internal/signals"
)

// ReasonSeparator joins reason clauses.
const ReasonSeparator = " · "

// Input is the per-item view the scorer needs.
type Input struct {
	ItemID       string
	LeadCount    int
	MaxLeadCount int
	AgeDays      int
	Status       catalog.Status
	PriceCents   int64
}

// Scored is a scored item before ranking.
type Scored struct {
	ItemID  string
	Score   int
	Flag    catalog.Flag
	Reasons []string
	AgeDays int
}

// Reason joins the kept reason clauses.
func (s *Scored) Reason() string {
	return strings.Join(s.Reasons, ReasonSeparator)
}

// Scorer applies Weights to inputs.
type Scorer struct {
	weights Weights
}

// NewScorer returns a scorer for the given weights.
//
//nolint:gocritic // Weights is small and copied by value on purpose
func NewScorer(w Weights) *Scorer {
	return &Scorer{weights: w}
}

// Weights returns the weights the scorer was built with.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score computes the demand score, flag and reasons for one item.
//
//nolint:gocritic // Input is a plain value type
func (s *Scorer) Score(in Input) Scored {
	w := s.weights
	score := w.Base
	reasons := make([]string, 0, 4)

	if in.LeadCount > 0 {
		maxLeads := in.MaxLeadCount
		if maxLeads <= 0 {
			maxLeads = in.LeadCount
		}
		share := math.Min(float64(in.LeadCount)/float64(maxLeads), 1)
		score += share * w.DemandBoostMax
		reasons = append(reasons, fmt.Sprintf("Demand (%d leads)", in.LeadCount))
	}

	switch {
	case in.AgeDays <= w.FreshDays:
		score += w.FreshBonus
		reasons = append(reasons, "Recent")
	case in.AgeDays >= w.StaleDays:
		score -= w.StalePenalty
		reasons = append(reasons, "Aging stock")
	}

	if in.Status == catalog.StatusReserved {
		score -= w.ReservedPenalty
		reasons = append(reasons, "Reserved")
	}

	if in.PriceCents > 0 && in.PriceCents > w.PremiumPriceCents {
		reasons = append(reasons, "Premium")
	}

	final := int(math.Round(math.Max(0, math.Min(score, 100))))

	return Scored{
		ItemID:  in.ItemID,
		Score:   final,
		Flag:    s.flag(final),
		Reasons: truncate(reasons, w.MaxReasons),
		AgeDays: in.AgeDays,
	}
}

// flag buckets a clamped score.
func (s *Scorer) flag(score int) catalog.Flag {
	switch {
	case score >= s.weights.HotThreshold:
		return catalog.FlagHot
	case score < s.weights.SlowThreshold:
		return catalog.FlagSlow
	default:
		return catalog.FlagNormal
	}
}

// Rank orders scored items by score descending, then age ascending, then
// item id, and assigns a dense 1..N rank. The id tiebreak makes the order
// reproducible across runs.
func Rank(scored []Scored, computedAt time.Time) []catalog.ScoreResult {
	ordered := make([]Scored, len(scored))
	copy(ordered, scored)

	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.AgeDays != b.AgeDays {
			return a.AgeDays < b.AgeDays
		}
		return a.ItemID < b.ItemID
	})

	results := make([]catalog.ScoreResult, len(ordered))
	for i := range ordered {
		results[i] = catalog.ScoreResult{
			ItemID:     ordered[i].ItemID,
			Score:      ordered[i].Score,
			Flag:       ordered[i].Flag,
			Reason:     ordered[i].Reason(),
			RankOrder:  i + 1,
			ComputedAt: computedAt,
		}
	}
	return results
}

// RankSignals scores and ranks every active item in the signals. Items that
// are not available or reserved are excluded.
func (s *Scorer) RankSignals(sig *signals.Signals) []catalog.ScoreResult {
	scored := make([]Scored, 0, len(sig.Items))
	for i := range sig.Items {
		item := &sig.Items[i]
		if !item.Status.IsActive() {
			continue
		}
		scored = append(scored, s.Score(Input{
			ItemID:       item.ID,
			LeadCount:    sig.LeadCountFor(item),
			MaxLeadCount: sig.MaxLeadCount,
			AgeDays:      sig.AgeDays[item.ID],
			Status:       item.Status,
			PriceCents:   item.PriceCents,
		}))
	}
	return Rank(scored, sig.Now)
}

func truncate(reasons []string, limit int) []string {
	out := make([]string, 0, limit)
	for _, r := range reasons {
		if r == "" {
			continue
		}
		if len(out) == limit {
			break
		}
		out = append(out, r)
	}
	return out
}
