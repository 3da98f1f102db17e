// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package recompute

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/kennelrank/internal/catalog"
	"github.com/tomtom215/kennelrank/internal/logging"
	"github.com/tomtom215/kennelrank/internal/metrics"
	"github.com/tomtom215/kennelrank/internal/pricing"
	"github.com/tomtom215/kennelrank/internal/signals"
)

// RankingOptions tunes a single ranking cycle.
type RankingOptions struct {
	// LeadLookback overrides the configured demand window when positive.
	LeadLookback time.Duration
}

// RecomputeCatalogRanking scores every active item and upserts the ranking
// rows. An aggregation failure aborts the cycle before anything is written.
func (e *Engine) RecomputeCatalogRanking(ctx context.Context, opts RankingOptions) (CycleResult, error) {
	ctx, log, done := e.startCycle(ctx, metrics.CycleRanking)
	defer done()
	start := time.Now()

	sig, err := e.aggregate(ctx, opts.LeadLookback)
	if err != nil {
		metrics.RecordRecomputeCycle(metrics.CycleRanking, 0, 0, time.Since(start), err)
		log.Error().Err(err).Msg("Ranking cycle aborted")
		return CycleResult{}, err
	}

	res := e.rankSignals(ctx, log, sig)
	res.Duration = time.Since(start)
	return res, nil
}

func (e *Engine) rankSignals(ctx context.Context, log *zerolog.Logger, sig *signals.Signals) CycleResult {
	start := time.Now()
	results := e.scorer.RankSignals(sig)

	tasks := make([]writeTask, len(results))
	for i := range results {
		r := results[i]
		tasks[i] = writeTask{
			itemID: r.ItemID,
			write:  func(ctx context.Context) error { return e.writer.UpsertScore(ctx, r) },
		}
	}

	res := e.writeAll(ctx, log, tasks, nil)
	res.Duration = time.Since(start)
	e.invalidate()

	metrics.RecordRecomputeCycle(metrics.CycleRanking, res.Written, res.Failed, res.Duration, nil)
	log.Info().
		Int("attempted", res.Attempted).
		Int("written", res.Written).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Dur("duration", res.Duration).
		Msg("Ranking cycle complete")
	return res
}

// RecomputePricing prices one item from its own leads and persists the row.
// catalog.ErrNotFound surfaces when the item does not exist, and a write
// failure is returned to the caller.
func (e *Engine) RecomputePricing(ctx context.Context, itemID string) (catalog.PricingResult, error) {
	item, err := e.catalog.GetItem(ctx, itemID)
	if err != nil {
		return catalog.PricingResult{}, fmt.Errorf("failed to get item %s: %w", itemID, err)
	}

	result, err := e.priceItem(ctx, item)
	if err != nil {
		return catalog.PricingResult{}, err
	}
	if err := e.writer.UpsertPricing(ctx, result); err != nil {
		return catalog.PricingResult{}, fmt.Errorf("failed to save pricing for %s: %w", itemID, err)
	}
	e.invalidate()

	logging.Ctx(ctx).Info().
		Str("item_id", itemID).
		Int64("price_ideal", result.PriceIdeal).
		Str("alert", string(result.Alert)).
		Msg("Pricing recomputed")
	return result, nil
}

// priceItem reads the item's leads and computes its pricing result.
func (e *Engine) priceItem(ctx context.Context, item *catalog.Item) (catalog.PricingResult, error) {
	leads, err := e.catalog.ListLeadsForItem(ctx, item.Ref, e.cfg.PricingLeadLimit)
	if err != nil {
		return catalog.PricingResult{}, fmt.Errorf("failed to list leads for %s: %w", item.ID, err)
	}
	return e.pricer.Compute(pricing.InputFor(item, leads, e.now())), nil
}

// RecomputePricingBulk prices every non-sold item. Per-item failures are
// reported in the returned map and never abort the batch; only the item
// listing itself can fail the call.
func (e *Engine) RecomputePricingBulk(ctx context.Context) (map[string]PricingOutcome, error) {
	ctx, log, done := e.startCycle(ctx, metrics.CyclePricing)
	defer done()
	start := time.Now()

	items, err := e.catalog.ListItems(ctx, catalog.ActiveStatuses...)
	if err != nil {
		err = fmt.Errorf("failed to list items: %w", err)
		metrics.RecordRecomputeCycle(metrics.CyclePricing, 0, 0, time.Since(start), err)
		log.Error().Err(err).Msg("Pricing cycle aborted")
		return nil, err
	}

	outcomes, _ := e.priceItems(ctx, log, items)
	return outcomes, nil
}

func (e *Engine) priceItems(ctx context.Context, log *zerolog.Logger, items []catalog.Item) (map[string]PricingOutcome, CycleResult) {
	start := time.Now()

	var mu sync.Mutex
	outcomes := make(map[string]PricingOutcome, len(items))
	record := func(id string, o PricingOutcome) {
		mu.Lock()
		outcomes[id] = o
		mu.Unlock()
	}

	tasks := make([]writeTask, 0, len(items))
	for i := range items {
		item := &items[i]
		if item.Status == catalog.StatusSold {
			continue
		}
		tasks = append(tasks, writeTask{
			itemID: item.ID,
			write: func(ctx context.Context) error {
				result, err := e.priceItem(ctx, item)
				if err == nil {
					err = e.writer.UpsertPricing(ctx, result)
				}
				if err != nil {
					record(item.ID, PricingOutcome{Err: err})
					return err
				}
				record(item.ID, PricingOutcome{Result: &result})
				return nil
			},
		})
	}

	res := e.writeAll(ctx, log, tasks, func(i int) {
		record(tasks[i].itemID, PricingOutcome{Err: context.Cause(ctx)})
	})
	res.Duration = time.Since(start)
	e.invalidate()

	metrics.RecordRecomputeCycle(metrics.CyclePricing, res.Written, res.Failed, res.Duration, nil)
	log.Info().
		Int("attempted", res.Attempted).
		Int("written", res.Written).
		Int("failed", res.Failed).
		Int("skipped", res.Skipped).
		Dur("duration", res.Duration).
		Msg("Pricing cycle complete")
	return outcomes, res
}

// RecomputeAll aggregates once, then runs ranking, bulk pricing and the
// priority pass concurrently. The priority pass refreshes the task cache.
// A precondition failure aborts every part; per-item failures only show up
// in the report counts.
func (e *Engine) RecomputeAll(ctx context.Context) (CycleReport, error) {
	ctx, log, done := e.startCycle(ctx, metrics.CycleAll)
	defer done()
	start := time.Now()
	report := CycleReport{CorrelationID: logging.CorrelationIDFromContext(ctx)}

	sig, err := e.aggregate(ctx, 0)
	if err != nil {
		metrics.RecordRecomputeCycle(metrics.CycleAll, 0, 0, time.Since(start), err)
		log.Error().Err(err).Msg("Recompute cycle aborted")
		return report, err
	}

	var g errgroup.Group
	g.Go(func() error {
		report.Ranking = e.rankSignals(ctx, log, sig)
		return nil
	})
	g.Go(func() error {
		_, report.Pricing = e.priceItems(ctx, log, sig.Items)
		return nil
	})
	var tasks []catalog.PriorityTask
	g.Go(func() error {
		tasks = e.planTasks(sig)
		return nil
	})
	_ = g.Wait()

	// Stored after the writers finished, since they invalidate the cache.
	e.storeTasks(tasks)
	report.Tasks = len(tasks)

	report.Duration = time.Since(start)
	written := report.Ranking.Written + report.Pricing.Written
	failed := report.Ranking.Failed + report.Pricing.Failed
	metrics.RecordRecomputeCycle(metrics.CycleAll, written, failed, report.Duration, nil)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("recompute cycle interrupted: %w", err)
	}
	return report, nil
}
