// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package store

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/kennelrank/internal/catalog"
	"github.com/tomtom215/kennelrank/internal/metrics"
)

// BreakerConfig configures the write circuit breaker.
type BreakerConfig struct {
	Enabled bool `koanf:"enabled" json:"enabled"`

	// Name labels the breaker in logs and metrics.
	Name string `koanf:"name" json:"name"`

	// MaxRequests is the number of trial requests allowed in half-open state.
	MaxRequests uint32 `koanf:"max_requests" json:"max_requests"`

	// Interval resets the failure counts while closed.
	Interval time.Duration `koanf:"interval" json:"interval"`

	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration `koanf:"timeout" json:"timeout"`

	// MinRequests and FailureRatio decide when to open.
	MinRequests  uint32  `koanf:"min_requests" json:"min_requests"`
	FailureRatio float64 `koanf:"failure_ratio" json:"failure_ratio"`
}

// DefaultBreakerConfig opens after 60% failures over at least 10 writes.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Enabled:      true,
		Name:         "result-store",
		MaxRequests:  3,
		Interval:     time.Minute,
		Timeout:      2 * time.Minute,
		MinRequests:  10,
		FailureRatio: 0.6,
	}
}

// BreakerWriter guards a ResultWriter with a circuit breaker so a failing
// store rejects writes immediately instead of timing out once per item.
type BreakerWriter struct {
	next   ResultWriter
	cb     *gobreaker.CircuitBreaker[struct{}]
	name   string
	logger zerolog.Logger
}

// NewBreakerWriter wraps next.
func NewBreakerWriter(next ResultWriter, cfg BreakerConfig, logger zerolog.Logger) *BreakerWriter {
	if cfg.Name == "" {
		cfg.Name = "result-store"
	}
	w := &BreakerWriter{
		next:   next,
		name:   cfg.Name,
		logger: logger.With().Str("component", "breaker").Str("breaker", cfg.Name).Logger(),
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cfg.Name).Set(0)

	w.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= cfg.FailureRatio
			if shouldTrip {
				w.logger.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("Opening circuit")
			}
			return shouldTrip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			w.logger.Info().Str("from", fromStr).Str("to", toStr).Msg("Circuit state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
		// A cancelled cycle says nothing about store health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
	})
	return w
}

// UpsertScore writes through the breaker.
func (w *BreakerWriter) UpsertScore(ctx context.Context, r catalog.ScoreResult) error {
	return w.execute(func() error { return w.next.UpsertScore(ctx, r) })
}

// UpsertPricing writes through the breaker.
func (w *BreakerWriter) UpsertPricing(ctx context.Context, r catalog.PricingResult) error {
	return w.execute(func() error { return w.next.UpsertPricing(ctx, r) })
}

// State returns the current breaker state.
func (w *BreakerWriter) State() gobreaker.State {
	return w.cb.State()
}

func (w *BreakerWriter) execute(fn func() error) error {
	_, err := w.cb.Execute(func() (struct{}, error) {
		return struct{}{}, fn()
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(w.name, "rejected").Inc()
			return err
		}
		metrics.CircuitBreakerRequests.WithLabelValues(w.name, "failure").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(w.name).Set(float64(w.cb.Counts().ConsecutiveFailures))
		return err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(w.name, "success").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(w.name).Set(0)
	return nil
}

// stateToFloat converts circuit breaker state to numeric value for metrics
func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// stateToString converts circuit breaker state to string for logging
func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
