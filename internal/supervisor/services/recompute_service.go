// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

// Package services adapts long-running components to suture.Service.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/kennelrank/internal/recompute"
)

// Scheduler runs one scheduled recompute cycle.
type Scheduler interface {
	RunScheduled(ctx context.Context) (recompute.CycleReport, error)
}

// RecomputeServiceConfig controls the recompute loop.
type RecomputeServiceConfig struct {
	// Interval between cycles. Defaults to 15 minutes.
	Interval time.Duration

	// RunOnStartup runs a cycle as soon as the service starts.
	RunOnStartup bool

	// Timeout bounds a single cycle. Defaults to 5 minutes.
	Timeout time.Duration
}

// RecomputeService triggers recompute cycles on a fixed interval. Cycle
// failures are logged and retried on the next tick; they never stop the
// service.
type RecomputeService struct {
	scheduler Scheduler
	config    RecomputeServiceConfig
	logger    zerolog.Logger
}

// NewRecomputeService creates the recompute loop.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRecomputeService(scheduler Scheduler, cfg RecomputeServiceConfig, logger zerolog.Logger) *RecomputeService {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Minute
	}
	return &RecomputeService{
		scheduler: scheduler,
		config:    cfg,
		logger:    logger.With().Str("service", "recompute").Logger(),
	}
}

// Serve implements suture.Service.
func (s *RecomputeService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("run_on_startup", s.config.RunOnStartup).
		Dur("interval", s.config.Interval).
		Msg("recompute service starting")

	if s.config.RunOnStartup {
		s.run(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("recompute service shutting down")
			return ctx.Err()

		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *RecomputeService) run(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	report, err := s.scheduler.RunScheduled(cycleCtx)
	switch {
	case errors.Is(err, recompute.ErrCycleInProgress):
		s.logger.Debug().Msg("previous cycle still running, skipping tick")
	case err != nil:
		s.logger.Warn().Err(err).Str("correlation_id", report.CorrelationID).Msg("scheduled recompute failed")
	default:
		s.logger.Info().
			Str("correlation_id", report.CorrelationID).
			Int("ranked", report.Ranking.Written).
			Int("priced", report.Pricing.Written).
			Int("tasks", report.Tasks).
			Dur("duration", report.Duration).
			Msg("scheduled recompute complete")
	}
}

func (s *RecomputeService) String() string {
	return "recompute-service"
}
