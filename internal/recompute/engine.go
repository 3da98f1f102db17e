// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

// Package recompute orchestrates the batch cycles: aggregate signals once,
// run the scoring engines, then write every result through the store with
// bounded parallelism.
//
// Each item write is an independent full-row upsert. A failed write is
// logged and counted but never aborts the rest of the batch, and a crashed
// cycle leaves earlier rows intact. Concurrent cycles are allowed and the
// last writer wins.
package recompute

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/tomtom215/kennelrank/internal/cache"
	"github.com/tomtom215/kennelrank/internal/catalog"
	"github.com/tomtom215/kennelrank/internal/logging"
	"github.com/tomtom215/kennelrank/internal/metrics"
	"github.com/tomtom215/kennelrank/internal/pricing"
	"github.com/tomtom215/kennelrank/internal/priority"
	"github.com/tomtom215/kennelrank/internal/ranking"
	"github.com/tomtom215/kennelrank/internal/signals"
	"github.com/tomtom215/kennelrank/internal/store"
)

// ErrCycleInProgress is returned by RunScheduled when another cycle of this
// process is still running.
var ErrCycleInProgress = errors.New("recompute cycle already in progress")

// itemWriteTimeout bounds a single upsert once it has started.
const itemWriteTimeout = 30 * time.Second

// Deps are the collaborators of an Engine. Catalog, Writer and Reader are
// required; the rest fall back to defaults.
type Deps struct {
	Catalog store.CatalogReader
	Writer  store.ResultWriter
	Reader  store.ResultReader

	// Cache serves repeated reads between cycles. Nil disables caching.
	Cache cache.Cacher

	// Clock is the reference time source. Nil uses time.Now in UTC.
	Clock func() time.Time

	Scorer  *ranking.Scorer
	Pricer  *pricing.Engine
	Planner *priority.Engine
}

// CycleResult counts the item writes of one cycle.
type CycleResult struct {
	Attempted int           `json:"attempted"`
	Written   int           `json:"written"`
	Failed    int           `json:"failed"`
	Skipped   int           `json:"skipped"`
	Duration  time.Duration `json:"duration"`
}

// PricingOutcome is the per-item result of a bulk pricing run.
type PricingOutcome struct {
	Result *catalog.PricingResult `json:"result,omitempty"`
	Err    error                  `json:"-"`
}

// CycleReport summarizes RecomputeAll.
type CycleReport struct {
	CorrelationID string        `json:"correlation_id"`
	Ranking       CycleResult   `json:"ranking"`
	Pricing       CycleResult   `json:"pricing"`
	Tasks         int           `json:"tasks"`
	Duration      time.Duration `json:"duration"`
}

// Engine runs recompute cycles and serves the read side.
type Engine struct {
	cfg *Config

	catalog store.CatalogReader
	writer  store.ResultWriter
	reader  store.ResultReader
	cache   cache.Cacher
	now     func() time.Time

	aggregator *signals.Aggregator
	scorer     *ranking.Scorer
	pricer     *pricing.Engine
	planner    *priority.Engine

	limiter *rate.Limiter

	// scheduled is set while a scheduled cycle runs; running counts all cycles.
	scheduled sync.Mutex
	running   atomic.Int32

	logger zerolog.Logger
}

// NewEngine creates an engine. A nil cfg uses DefaultConfig.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewEngine(cfg *Config, deps Deps, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid recompute config: %w", err)
	}
	if deps.Catalog == nil || deps.Writer == nil || deps.Reader == nil {
		return nil, fmt.Errorf("recompute engine requires catalog, writer and reader")
	}

	e := &Engine{
		cfg:     cfg,
		catalog: deps.Catalog,
		writer:  deps.Writer,
		reader:  deps.Reader,
		cache:   deps.Cache,
		now:     deps.Clock,
		scorer:  deps.Scorer,
		pricer:  deps.Pricer,
		planner: deps.Planner,
		logger:  logger.With().Str("component", "recompute").Logger(),
	}
	if e.now == nil {
		e.now = func() time.Time { return time.Now().UTC() }
	}
	if e.scorer == nil {
		e.scorer = ranking.NewScorer(ranking.DefaultWeights())
	}
	if e.pricer == nil {
		e.pricer = pricing.NewEngine(nil)
	}
	if e.planner == nil {
		e.planner = priority.NewEngine(nil)
	}
	if cfg.WriteRatePerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.WriteRatePerSecond), cfg.Workers)
	}
	e.aggregator = signals.NewAggregator(deps.Catalog, logger)

	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() *Config {
	return e.cfg
}

// Running reports how many cycles are in flight.
func (e *Engine) Running() int {
	return int(e.running.Load())
}

// RunScheduled runs RecomputeAll unless another cycle of this process is
// already running, in which case it returns ErrCycleInProgress. Manual
// triggers call RecomputeAll directly and are never blocked.
func (e *Engine) RunScheduled(ctx context.Context) (CycleReport, error) {
	if !e.scheduled.TryLock() {
		metrics.RecordRecomputeSkipped(metrics.CycleAll)
		return CycleReport{}, ErrCycleInProgress
	}
	defer e.scheduled.Unlock()

	if e.running.Load() > 0 {
		metrics.RecordRecomputeSkipped(metrics.CycleAll)
		return CycleReport{}, ErrCycleInProgress
	}
	return e.RecomputeAll(ctx)
}

// startCycle tags ctx with a correlation id and the component logger.
func (e *Engine) startCycle(ctx context.Context, cycle string) (context.Context, *zerolog.Logger, func()) {
	e.running.Add(1)
	if logging.CorrelationIDFromContext(ctx) == "" {
		ctx = logging.ContextWithNewCorrelationID(ctx)
	}
	ctx = logging.ContextWithLogger(ctx, e.logger.With().Str("cycle", cycle).Logger())
	return ctx, logging.Ctx(ctx), func() { e.running.Add(-1) }
}

func (e *Engine) aggregate(ctx context.Context, lookback time.Duration) (*signals.Signals, error) {
	if lookback <= 0 {
		lookback = e.cfg.LeadLookback
	}
	sig, err := e.aggregator.Aggregate(ctx, signals.Window{
		Now:          e.now(),
		LeadLookback: lookback,
		LeadLimit:    e.cfg.LeadLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate signals: %w", err)
	}
	return sig, nil
}

// writeTask is one item write of a batch.
type writeTask struct {
	itemID string
	write  func(ctx context.Context) error
}

// writeAll runs tasks with at most cfg.Workers in flight. Once ctx is done no
// new task starts; the remaining ones are reported through onSkip. Tasks
// already started run to completion on a context that ignores cancellation,
// so every upsert either lands whole or not at all.
func (e *Engine) writeAll(ctx context.Context, log *zerolog.Logger, tasks []writeTask, onSkip func(i int)) CycleResult {
	start := time.Now()
	res := CycleResult{Attempted: len(tasks)}

	var (
		written, failed atomic.Int64
		g               errgroup.Group
	)
	g.SetLimit(e.cfg.Workers)
	detached := context.WithoutCancel(ctx)

	for i := range tasks {
		if !e.acquire(ctx) {
			for j := i; j < len(tasks); j++ {
				if onSkip != nil {
					onSkip(j)
				}
			}
			res.Skipped = len(tasks) - i
			log.Warn().Int("skipped", res.Skipped).Msg("Cycle cancelled, remaining writes skipped")
			break
		}

		g.Go(func() error {
			wctx, cancel := context.WithTimeout(detached, itemWriteTimeout)
			err := tasks[i].write(wctx)
			cancel()
			if err != nil {
				failed.Add(1)
				log.Warn().Err(err).Str("item_id", tasks[i].itemID).Msg("Item write failed")
			} else {
				written.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	res.Written = int(written.Load())
	res.Failed = int(failed.Load())
	res.Duration = time.Since(start)
	return res
}

// acquire waits for the write limiter. It reports false once ctx is done or
// the wait would outlive its deadline.
func (e *Engine) acquire(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	if e.limiter == nil {
		return true
	}
	return e.limiter.Wait(ctx) == nil
}

// invalidate drops cached reads after results changed.
func (e *Engine) invalidate() {
	if e.cache != nil {
		e.cache.Clear()
	}
}
