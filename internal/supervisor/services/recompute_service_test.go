// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package services

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/kennelrank/internal/recompute"
)

type mockScheduler struct {
	mu       sync.Mutex
	calls    int
	err      error
	deadline bool
}

func (m *mockScheduler) RunScheduled(ctx context.Context) (recompute.CycleReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	_, m.deadline = ctx.Deadline()
	return recompute.CycleReport{CorrelationID: "abcd1234"}, m.err
}

func (m *mockScheduler) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ suture.Service = (*RecomputeService)(nil)

func TestNewRecomputeService_Defaults(t *testing.T) {
	svc := NewRecomputeService(&mockScheduler{}, RecomputeServiceConfig{}, zerolog.Nop())
	if svc.config.Interval != 15*time.Minute {
		t.Errorf("Interval = %v, want 15m", svc.config.Interval)
	}
	if svc.config.Timeout != 5*time.Minute {
		t.Errorf("Timeout = %v, want 5m", svc.config.Timeout)
	}
	if svc.String() != "recompute-service" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestRecomputeService_Serve(t *testing.T) {
	tests := []struct {
		name        string
		cfg         RecomputeServiceConfig
		err         error
		wait        time.Duration
		wantAtLeast int
		wantAtMost  int
	}{
		{
			name:        "runs on startup",
			cfg:         RecomputeServiceConfig{Interval: time.Hour, RunOnStartup: true},
			wait:        50 * time.Millisecond,
			wantAtLeast: 1,
			wantAtMost:  1,
		},
		{
			name:        "no startup run",
			cfg:         RecomputeServiceConfig{Interval: time.Hour},
			wait:        50 * time.Millisecond,
			wantAtLeast: 0,
			wantAtMost:  0,
		},
		{
			name:        "ticks on interval",
			cfg:         RecomputeServiceConfig{Interval: 20 * time.Millisecond},
			wait:        150 * time.Millisecond,
			wantAtLeast: 2,
			wantAtMost:  100,
		},
		{
			name:        "failures keep the loop alive",
			cfg:         RecomputeServiceConfig{Interval: 20 * time.Millisecond, RunOnStartup: true},
			err:         errors.New("catalog unavailable"),
			wait:        150 * time.Millisecond,
			wantAtLeast: 2,
			wantAtMost:  100,
		},
		{
			name:        "busy cycles are skipped quietly",
			cfg:         RecomputeServiceConfig{Interval: 20 * time.Millisecond, RunOnStartup: true},
			err:         recompute.ErrCycleInProgress,
			wait:        100 * time.Millisecond,
			wantAtLeast: 2,
			wantAtMost:  100,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sched := &mockScheduler{err: tt.err}
			svc := NewRecomputeService(sched, tt.cfg, zerolog.Nop())

			ctx, cancel := context.WithTimeout(context.Background(), tt.wait)
			defer cancel()

			if err := svc.Serve(ctx); !errors.Is(err, context.DeadlineExceeded) {
				t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
			}
			if got := sched.Calls(); got < tt.wantAtLeast || got > tt.wantAtMost {
				t.Errorf("calls = %d, want between %d and %d", got, tt.wantAtLeast, tt.wantAtMost)
			}
		})
	}
}

func TestRecomputeService_CycleHasDeadline(t *testing.T) {
	sched := &mockScheduler{}
	svc := NewRecomputeService(sched, RecomputeServiceConfig{Interval: time.Hour, Timeout: time.Minute}, zerolog.Nop())

	svc.run(context.Background())

	sched.mu.Lock()
	defer sched.mu.Unlock()
	if !sched.deadline {
		t.Error("cycle context should carry the configured timeout")
	}
}

type mockGC struct {
	runs  atomic.Int32
	err   error
	ratio atomic.Value
}

func (m *mockGC) RunGC(ratio float64) error {
	m.runs.Add(1)
	m.ratio.Store(ratio)
	return m.err
}

func TestKVGCService_Serve(t *testing.T) {
	for _, gcErr := range []error{nil, errors.New("disk full")} {
		gc := &mockGC{err: gcErr}
		svc := NewKVGCService(gc, 10*time.Millisecond, 0.7, zerolog.Nop())

		ctx, cancel := context.WithTimeout(context.Background(), 80*time.Millisecond)
		err := svc.Serve(ctx)
		cancel()

		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Serve() = %v, want context.DeadlineExceeded", err)
		}
		if gc.runs.Load() < 2 {
			t.Errorf("runs = %d, want at least 2 (err=%v)", gc.runs.Load(), gcErr)
		}
		if r, _ := gc.ratio.Load().(float64); r != 0.7 {
			t.Errorf("ratio = %v, want 0.7", r)
		}
	}
}

func TestNewKVGCService_DefaultInterval(t *testing.T) {
	svc := NewKVGCService(&mockGC{}, 0, 0.5, zerolog.Nop())
	if svc.interval != 10*time.Minute {
		t.Errorf("interval = %v, want 10m", svc.interval)
	}
	if svc.String() != "kv-gc" {
		t.Errorf("String() = %q", svc.String())
	}
}
