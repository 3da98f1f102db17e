// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package store

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/tomtom215/kennelrank/internal/catalog"
)

// FanoutWriter writes to a primary writer and mirrors successful writes to a
// secondary one. Only primary errors reach the caller; mirror errors are logged.
type FanoutWriter struct {
	primary ResultWriter
	mirror  ResultWriter
	logger  zerolog.Logger
}

// NewFanoutWriter creates a fanout writer. A nil mirror makes it a pass-through.
func NewFanoutWriter(primary, mirror ResultWriter, logger zerolog.Logger) *FanoutWriter {
	return &FanoutWriter{
		primary: primary,
		mirror:  mirror,
		logger:  logger.With().Str("component", "fanout").Logger(),
	}
}

// UpsertScore writes the score to the primary, then to the mirror.
func (w *FanoutWriter) UpsertScore(ctx context.Context, r catalog.ScoreResult) error {
	if err := w.primary.UpsertScore(ctx, r); err != nil {
		return err
	}
	if w.mirror != nil {
		if err := w.mirror.UpsertScore(ctx, r); err != nil {
			w.logger.Warn().Err(err).Str("item_id", r.ItemID).Msg("Mirror score write failed")
		}
	}
	return nil
}

// UpsertPricing writes the pricing row to the primary, then to the mirror.
func (w *FanoutWriter) UpsertPricing(ctx context.Context, r catalog.PricingResult) error {
	if err := w.primary.UpsertPricing(ctx, r); err != nil {
		return err
	}
	if w.mirror != nil {
		if err := w.mirror.UpsertPricing(ctx, r); err != nil {
			w.logger.Warn().Err(err).Str("item_id", r.ItemID).Msg("Mirror pricing write failed")
		}
	}
	return nil
}

// PricingReader reads a persisted pricing row.
type PricingReader interface {
	GetPricing(ctx context.Context, itemID string) (*catalog.PricingResult, error)
}

// FallbackReader serves reads from a primary reader and answers pricing
// lookups from a mirror when the primary fails. catalog.ErrNotFound and
// context errors from the primary are returned as is.
type FallbackReader struct {
	primary ResultReader
	mirror  PricingReader
	logger  zerolog.Logger
}

// NewFallbackReader creates a fallback reader. A nil mirror makes it a pass-through.
func NewFallbackReader(primary ResultReader, mirror PricingReader, logger zerolog.Logger) *FallbackReader {
	return &FallbackReader{
		primary: primary,
		mirror:  mirror,
		logger:  logger.With().Str("component", "fallback").Logger(),
	}
}

// ListRanked reads from the primary only. The mirror holds no item rows to join.
func (r *FallbackReader) ListRanked(ctx context.Context, f RankedFilter) ([]RankedItem, error) {
	return r.primary.ListRanked(ctx, f)
}

// GetPricing reads from the primary and falls back to the mirror on failure.
func (r *FallbackReader) GetPricing(ctx context.Context, itemID string) (*catalog.PricingResult, error) {
	res, err := r.primary.GetPricing(ctx, itemID)
	if err == nil || r.mirror == nil || errors.Is(err, catalog.ErrNotFound) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return res, err
	}

	mres, merr := r.mirror.GetPricing(ctx, itemID)
	if merr != nil {
		r.logger.Warn().Err(merr).Str("item_id", itemID).Msg("Mirror pricing read failed")
		return nil, err
	}
	r.logger.Warn().Err(err).Str("item_id", itemID).Msg("Serving pricing from mirror")
	return mres, nil
}
