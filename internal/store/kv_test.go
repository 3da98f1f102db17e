// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package store

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/kennelrank/internal/catalog"
)

func setupTestKV(t *testing.T) *KVStore {
	t.Helper()
	kv, err := OpenKV(KVConfig{InMemory: true})
	if err != nil {
		t.Fatalf("OpenKV() error = %v", err)
	}
	t.Cleanup(func() { kv.Close() })
	return kv
}

func TestOpenKV_RequiresPath(t *testing.T) {
	if _, err := OpenKV(KVConfig{}); err == nil {
		t.Error("OpenKV() without path should fail")
	}
}

func TestKVStore_Scores(t *testing.T) {
	kv := setupTestKV(t)
	ctx := context.Background()

	if err := kv.UpsertScore(ctx, catalog.ScoreResult{ItemID: "b", Score: 50, RankOrder: 2, ComputedAt: testNow}); err != nil {
		t.Fatalf("UpsertScore(b) error = %v", err)
	}
	// Replace b with a new rank.
	if err := kv.UpsertScore(ctx, catalog.ScoreResult{ItemID: "b", Score: 90, RankOrder: 1, Flag: catalog.FlagHot}); err != nil {
		t.Fatalf("UpsertScore(b) error = %v", err)
	}

	var got catalog.ScoreResult
	if err := kv.get(ctx, tableRanking, prefixRanking+"b", &got); err != nil {
		t.Fatalf("get() error = %v", err)
	}
	if got.Score != 90 || got.Flag != catalog.FlagHot || got.RankOrder != 1 || !got.ComputedAt.IsZero() {
		t.Errorf("score b = %+v, want full replacement", got)
	}
}

func TestKVStore_Pricing(t *testing.T) {
	kv := setupTestKV(t)
	ctx := context.Background()

	if _, err := kv.GetPricing(ctx, "rex"); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("GetPricing(absent) error = %v, want ErrNotFound", err)
	}

	r := catalog.PricingResult{ItemID: "rex", PriceMin: 1, PriceIdeal: 2, PriceMax: 3, Alert: catalog.AlertInRange, ComputedAt: testNow}
	if err := kv.UpsertPricing(ctx, r); err != nil {
		t.Fatalf("UpsertPricing() error = %v", err)
	}

	got, err := kv.GetPricing(ctx, "rex")
	if err != nil {
		t.Fatalf("GetPricing() error = %v", err)
	}
	if got.PriceIdeal != 2 || !got.ComputedAt.Equal(testNow) {
		t.Errorf("GetPricing() = %+v", got)
	}

	// Pricing and ranking keys do not collide.
	var score catalog.ScoreResult
	if err := kv.get(ctx, tableRanking, prefixRanking+"rex", &score); !errors.Is(err, catalog.ErrNotFound) {
		t.Errorf("ranking get(rex) error = %v, want ErrNotFound", err)
	}
}

func TestKVStore_CancelledContext(t *testing.T) {
	kv := setupTestKV(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := kv.UpsertScore(ctx, catalog.ScoreResult{ItemID: "a"}); !errors.Is(err, context.Canceled) {
		t.Errorf("UpsertScore() error = %v, want context.Canceled", err)
	}
}

func TestKVStore_RunGC(t *testing.T) {
	t.Run("in memory", func(t *testing.T) {
		kv := setupTestKV(t)
		if err := kv.RunGC(0.5); err != nil {
			t.Errorf("RunGC() error = %v", err)
		}
	})

	t.Run("on disk", func(t *testing.T) {
		kv, err := OpenKV(KVConfig{Path: t.TempDir()})
		if err != nil {
			t.Fatalf("OpenKV() error = %v", err)
		}
		defer kv.Close()

		if err := kv.UpsertScore(context.Background(), catalog.ScoreResult{ItemID: "a", Score: 60, ComputedAt: testNow}); err != nil {
			t.Fatalf("UpsertScore() error = %v", err)
		}
		if err := kv.RunGC(0); err != nil {
			t.Errorf("RunGC() error = %v", err)
		}
	})
}
