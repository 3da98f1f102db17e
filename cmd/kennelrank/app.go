// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/kennelrank/internal/cache"
	"github.com/tomtom215/kennelrank/internal/config"
	"github.com/tomtom215/kennelrank/internal/logging"
	"github.com/tomtom215/kennelrank/internal/pricing"
	"github.com/tomtom215/kennelrank/internal/priority"
	"github.com/tomtom215/kennelrank/internal/ranking"
	"github.com/tomtom215/kennelrank/internal/recompute"
	"github.com/tomtom215/kennelrank/internal/store"
)

// app holds the components every command shares: the SQL store, the optional
// KV mirror, the result reader over both, the read cache and the recompute
// engine.
type app struct {
	cfg     *config.Config
	sql     *store.SQLStore
	kv      *store.KVStore
	results store.ResultReader
	cache   *cache.Cache
	engine  *recompute.Engine
}

// openApp opens the stores and builds the engine. The caller must Close it.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	sqlStore, err := store.Open(ctx, cfg.Database, logging.WithComponent("store"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := &app{cfg: cfg, sql: sqlStore, results: sqlStore}

	var writer store.ResultWriter = sqlStore
	if cfg.Breaker.Enabled {
		writer = store.NewBreakerWriter(writer, cfg.Breaker, logging.WithComponent("breaker"))
	}
	if cfg.Store.MirrorKV {
		kv, err := store.OpenKV(cfg.Store.KV)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("open kv mirror: %w", err)
		}
		a.kv = kv
		writer = store.NewFanoutWriter(writer, kv, logging.WithComponent("store"))
		a.results = store.NewFallbackReader(sqlStore, kv, logging.WithComponent("store"))
	}

	a.cache = cache.NewWithConfig(cfg.Cache)

	engine, err := recompute.NewEngine(&cfg.Recompute, recompute.Deps{
		Catalog: sqlStore,
		Writer:  writer,
		Reader:  a.results,
		Cache:   a.cache,
		Scorer:  ranking.NewScorer(cfg.Ranking),
		Pricer:  pricing.NewEngine(&cfg.Pricing),
		Planner: priority.NewEngine(&cfg.Priority),
	}, logging.Logger())
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("create recompute engine: %w", err)
	}
	a.engine = engine
	return a, nil
}

// Close releases the cache and stores.
func (a *app) Close() error {
	if a.cache != nil {
		a.cache.Close()
	}
	var errs []error
	if a.kv != nil {
		if err := a.kv.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close kv mirror: %w", err))
		}
	}
	if a.sql != nil {
		if err := a.sql.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
