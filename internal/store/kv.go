// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/kennelrank/internal/catalog"
	"github.com/tomtom215/kennelrank/internal/metrics"
)

// Key prefixes in the KV store.
const (
	prefixRanking = "ranking/"
	prefixPricing = "pricing/"
)

// KVConfig configures the embedded result store.
type KVConfig struct {
	// Path is the Badger directory. Ignored when InMemory is set.
	Path string `koanf:"path" json:"path"`

	// InMemory keeps all data in memory. Used by tests.
	InMemory bool `koanf:"in_memory" json:"in_memory"`

	// SyncWrites fsyncs every write.
	SyncWrites bool `koanf:"sync_writes" json:"sync_writes"`

	// GCInterval is how often value-log garbage collection runs. 0 disables it.
	GCInterval time.Duration `koanf:"gc_interval" json:"gc_interval"`

	// GCRatio is the discard ratio passed to Badger.
	GCRatio float64 `koanf:"gc_ratio" json:"gc_ratio"`
}

// KVStore keeps the latest ranking and pricing rows in Badger, one key per
// item and result type. It holds results only; catalog reads stay on the
// SQL store.
type KVStore struct {
	db *badger.DB
}

// OpenKV opens the Badger result store.
func OpenKV(cfg KVConfig) (*KVStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("kv store path is required")
	}

	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}
	return &KVStore{db: db}, nil
}

// RunGC reclaims value-log space until Badger reports nothing left to
// rewrite. In-memory stores have no value log and return nil.
func (s *KVStore) RunGC(ratio float64) (err error) {
	if ratio <= 0 || ratio >= 1 {
		ratio = 0.5
	}
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("gc", "kv", time.Since(start), err)
	}()

	for {
		err = s.db.RunValueLogGC(ratio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrGCInMemoryMode) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run value log gc: %w", err)
		}
	}
}

// Close closes the Badger database.
func (s *KVStore) Close() error {
	return s.db.Close()
}

// UpsertScore replaces the ranking entry of an item.
func (s *KVStore) UpsertScore(ctx context.Context, r catalog.ScoreResult) error {
	return s.put(ctx, tableRanking, prefixRanking+r.ItemID, r)
}

// UpsertPricing replaces the pricing entry of an item.
func (s *KVStore) UpsertPricing(ctx context.Context, r catalog.PricingResult) error {
	return s.put(ctx, tablePricing, prefixPricing+r.ItemID, r)
}

// GetPricing returns the pricing entry of an item or catalog.ErrNotFound.
func (s *KVStore) GetPricing(ctx context.Context, itemID string) (*catalog.PricingResult, error) {
	var r catalog.PricingResult
	if err := s.get(ctx, tablePricing, prefixPricing+itemID, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *KVStore) put(ctx context.Context, table, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	start := time.Now()
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry([]byte(key), data))
	})
	metrics.RecordDBQuery("upsert", table, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *KVStore) get(ctx context.Context, table, key string, v any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		metrics.RecordDBQuery("get", table, time.Since(start), nil)
		return fmt.Errorf("%w: %s", catalog.ErrNotFound, key)
	}
	metrics.RecordDBQuery("get", table, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	return nil
}
