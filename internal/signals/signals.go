// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

// Package signals aggregates the read-only per-item facts the scoring engines
// depend on: lead counts by item reference, stock age, sale status and the
// cohort median price.
//
// Aggregation is a single synchronous read phase. It must finish before any
// scoring starts, because ranking depends on batch-wide maxima and pricing and
// priority depend on the cohort median. A failed read aborts the whole cycle;
// there are no fallback defaults at this layer.
package signals

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/kennelrank/internal/catalog"
)

// RefPrefix is the legacy page path prefix leads may carry in front of an item ref.
const RefPrefix = "filhotes/"

// DefaultLeadLookback is the default demand window.
const DefaultLeadLookback = 90 * 24 * time.Hour

// DefaultLeadLimit bounds the number of individual leads loaded per cycle.
const DefaultLeadLimit = 500

// Source is the read contract the aggregator needs from the external store.
// Items and leads are read independently; no transactional snapshot is needed.
type Source interface {
	// ListItems returns items with any of the given statuses, or all items when none are given.
	ListItems(ctx context.Context, statuses ...catalog.Status) ([]catalog.Item, error)

	// CountLeadsByRef groups leads created at or after since by item reference.
	CountLeadsByRef(ctx context.Context, since time.Time) (map[string]int, error)

	// ListLeads returns leads created at or after since, most recent first.
	ListLeads(ctx context.Context, since time.Time, limit int) ([]catalog.Lead, error)
}

// Window bounds an aggregation.
type Window struct {
	// Now is the reference time for ages and the lookback. Zero means time.Now().
	Now time.Time

	// LeadLookback is how far back leads count toward demand.
	LeadLookback time.Duration

	// LeadLimit bounds the individual leads loaded for priority tasks.
	LeadLimit int
}

// Signals is the aggregated, read-only input shared by all scoring engines.
type Signals struct {
	// Now is the reference time the signals were computed against.
	Now time.Time

	// Items holds every item read, including sold ones.
	Items []catalog.Item

	// Leads holds recent leads, most recent first.
	Leads []catalog.Lead

	// LeadCount maps item ref to lead count. Every item ref is present, zero included.
	LeadCount map[string]int

	// MaxLeadCount is the highest lead count among items in the batch.
	MaxLeadCount int

	// AgeDays maps item id to whole days since listing, never negative.
	AgeDays map[string]int

	// Status maps item id to its sale status.
	Status map[string]catalog.Status

	// CohortMedian is the median price among items with a sale outcome. Zero when none exist.
	CohortMedian int64
}

// LeadCountFor returns the lead count for an item.
func (s *Signals) LeadCountFor(item *catalog.Item) int {
	return s.LeadCount[item.Ref]
}

// Aggregator collects Signals from a Source.
type Aggregator struct {
	source Source
	logger zerolog.Logger
}

// NewAggregator creates an aggregator over the given source.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAggregator(source Source, logger zerolog.Logger) *Aggregator {
	return &Aggregator{
		source: source,
		logger: logger.With().Str("component", "signals").Logger(),
	}
}

// Aggregate reads items and leads concurrently and derives the batch signals.
// Any read failure is returned wrapped and no partial Signals are produced.
func (a *Aggregator) Aggregate(ctx context.Context, w Window) (*Signals, error) {
	w = w.withDefaults()
	since := w.Now.Add(-w.LeadLookback)

	var (
		items  []catalog.Item
		counts map[string]int
		leads  []catalog.Lead
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = a.source.ListItems(gCtx)
		if err != nil {
			return fmt.Errorf("failed to list items: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		counts, err = a.source.CountLeadsByRef(gCtx, since)
		if err != nil {
			return fmt.Errorf("failed to count leads: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		leads, err = a.source.ListLeads(gCtx, since, w.LeadLimit)
		if err != nil {
			return fmt.Errorf("failed to list leads: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := Build(w.Now, items, counts, leads)

	a.logger.Debug().
		Int("items", len(s.Items)).
		Int("leads", len(s.Leads)).
		Int("max_lead_count", s.MaxLeadCount).
		Int64("cohort_median", s.CohortMedian).
		Msg("signals aggregated")

	return s, nil
}

// Build derives Signals from already-loaded rows. It is the pure half of
// Aggregate and is exported so callers holding rows in memory can reuse it.
func Build(now time.Time, items []catalog.Item, counts map[string]int, leads []catalog.Lead) *Signals {
	s := &Signals{
		Now:       now,
		Items:     items,
		Leads:     leads,
		LeadCount: make(map[string]int, len(items)),
		AgeDays:   make(map[string]int, len(items)),
		Status:    make(map[string]catalog.Status, len(items)),
	}

	var soldPrices []int64
	for i := range items {
		item := &items[i]
		n := lookupCount(counts, item.Ref)
		s.LeadCount[item.Ref] = n

		s.AgeDays[item.ID] = AgeDays(item.CreatedAt, now)
		s.Status[item.ID] = item.Status

		if item.Status.IsActive() && n > s.MaxLeadCount {
			s.MaxLeadCount = n
		}
		if item.Status == catalog.StatusSold && item.PriceCents > 0 {
			soldPrices = append(soldPrices, item.PriceCents)
		}
	}
	s.CohortMedian = Median(soldPrices)

	return s
}

// lookupCount resolves the lead count for a ref, accepting the legacy page prefix.
func lookupCount(counts map[string]int, ref string) int {
	if n, ok := counts[ref]; ok {
		return n
	}
	if n, ok := counts[RefPrefix+ref]; ok {
		return n
	}
	return 0
}

// AgeDays returns whole days between created and now, clamped to zero so a
// skewed clock or a missing timestamp never yields a negative age.
func AgeDays(created, now time.Time) int {
	if created.IsZero() || now.Before(created) {
		return 0
	}
	return int(now.Sub(created).Hours() / 24)
}

// ListedDays returns fractional days between created and now, clamped to zero.
// Age thresholds compare against it so a partial day counts.
func ListedDays(created, now time.Time) float64 {
	if created.IsZero() || now.Before(created) {
		return 0
	}
	return now.Sub(created).Hours() / 24
}

// AgeMonths returns the age in 30-day months, clamped to zero.
func AgeMonths(born, now time.Time) float64 {
	if born.IsZero() || now.Before(born) {
		return 0
	}
	return now.Sub(born).Hours() / 24 / 30
}

// Median returns the upper median of values, or zero for an empty slice.
// The input is not modified.
func Median(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]int64, len(values))
	copy(sorted, values)
	slices.Sort(sorted)
	return sorted[len(sorted)/2]
}

func (w Window) withDefaults() Window {
	if w.Now.IsZero() {
		w.Now = time.Now().UTC()
	}
	if w.LeadLookback <= 0 {
		w.LeadLookback = DefaultLeadLookback
	}
	if w.LeadLimit <= 0 {
		w.LeadLimit = DefaultLeadLimit
	}
	return w
}
