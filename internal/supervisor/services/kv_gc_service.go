// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// GarbageCollector reclaims space in an embedded store.
type GarbageCollector interface {
	RunGC(ratio float64) error
}

// KVGCService periodically runs value-log GC on the KV result mirror.
type KVGCService struct {
	gc       GarbageCollector
	interval time.Duration
	ratio    float64
	logger   zerolog.Logger
}

// NewKVGCService creates the GC loop. interval defaults to 10 minutes.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewKVGCService(gc GarbageCollector, interval time.Duration, ratio float64, logger zerolog.Logger) *KVGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &KVGCService{
		gc:       gc,
		interval: interval,
		ratio:    ratio,
		logger:   logger.With().Str("service", "kv-gc").Logger(),
	}
}

// Serve implements suture.Service.
func (s *KVGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.gc.RunGC(s.ratio); err != nil {
				s.logger.Warn().Err(err).Msg("KV garbage collection failed")
				continue
			}
			s.logger.Debug().Dur("duration", time.Since(start)).Msg("KV garbage collection complete")
		}
	}
}

func (s *KVGCService) String() string {
	return "kv-gc"
}
