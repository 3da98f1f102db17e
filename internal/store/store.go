// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package store

import (
	"context"
	"slices"
	"strings"

	"github.com/tomtom215/kennelrank/internal/catalog"
	"github.com/tomtom215/kennelrank/internal/ranking"
	"github.com/tomtom215/kennelrank/internal/signals"
)

// Ranked list limits.
const (
	DefaultRankedLimit = 50
	MaxRankedLimit     = 500
)

// ResultWriter persists computed results. Every write is a full-row replace
// keyed by item id.
type ResultWriter interface {
	UpsertScore(ctx context.Context, r catalog.ScoreResult) error
	UpsertPricing(ctx context.Context, r catalog.PricingResult) error
}

// ResultReader reads persisted results.
type ResultReader interface {
	// ListRanked returns persisted ranking rows joined with their items,
	// ordered by rank. Items that are no longer active are never returned.
	ListRanked(ctx context.Context, f RankedFilter) ([]RankedItem, error)

	// GetPricing returns the persisted pricing row of an item, or
	// catalog.ErrNotFound when none exists.
	GetPricing(ctx context.Context, itemID string) (*catalog.PricingResult, error)
}

// CatalogReader is the read side of the external catalog.
type CatalogReader interface {
	signals.Source

	// GetItem returns one item or catalog.ErrNotFound.
	GetItem(ctx context.Context, id string) (*catalog.Item, error)

	// ListLeadsForItem returns the leads pointing at an item ref, most recent first.
	ListLeadsForItem(ctx context.Context, ref string, limit int) ([]catalog.Lead, error)
}

// Store is the full persistence contract.
type Store interface {
	CatalogReader
	ResultWriter
	ResultReader

	InitSchema(ctx context.Context) error
	Close() error
}

// RankedFilter narrows a ranked list. Attribute filters match case-insensitively.
type RankedFilter struct {
	// Status restricts the list to these statuses. Inactive statuses are
	// dropped; empty means every active status.
	Status []catalog.Status `json:"status,omitempty"`

	Color string `json:"color,omitempty"`
	Sex   string `json:"sex,omitempty"`
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`

	// Limit caps the result size. Zero means DefaultRankedLimit.
	Limit int `json:"limit,omitempty"`
}

// Statuses returns the active statuses the filter allows.
func (f *RankedFilter) Statuses() []catalog.Status {
	if len(f.Status) == 0 {
		return slices.Clone(catalog.ActiveStatuses)
	}
	out := make([]catalog.Status, 0, len(f.Status))
	for _, s := range f.Status {
		if s.IsActive() && !slices.Contains(out, s) {
			out = append(out, s)
		}
	}
	return out
}

// EffectiveLimit returns the limit clamped to [1, MaxRankedLimit].
func (f *RankedFilter) EffectiveLimit() int {
	switch {
	case f.Limit <= 0:
		return DefaultRankedLimit
	case f.Limit > MaxRankedLimit:
		return MaxRankedLimit
	default:
		return f.Limit
	}
}

// Match reports whether an item passes the status and attribute filters.
func (f *RankedFilter) Match(item *catalog.Item) bool {
	if !slices.Contains(f.Statuses(), item.Status) {
		return false
	}
	return matchAttr(f.Color, item.Attributes.Color) &&
		matchAttr(f.Sex, item.Attributes.Sex) &&
		matchAttr(f.City, item.Attributes.City) &&
		matchAttr(f.State, item.Attributes.State)
}

func matchAttr(want, got string) bool {
	return want == "" || strings.EqualFold(strings.TrimSpace(want), strings.TrimSpace(got))
}

// RankedItem is a ranking row joined with its item.
type RankedItem struct {
	catalog.ScoreResult

	Item catalog.Item `json:"item"`

	// Badges are derived at read time and never persisted.
	Badges []ranking.Badge `json:"badges,omitempty"`

	// PriceAlert re-checks the current price against the persisted pricing band.
	// Empty when the item has no pricing row.
	PriceAlert catalog.Alert `json:"price_alert,omitempty"`
}
