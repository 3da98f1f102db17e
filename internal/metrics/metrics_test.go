// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package metrics

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordDBQuery(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		table     string
		err       error
		wantLabel string
	}{
		{
			name:      "successful select",
			operation: "select",
			table:     "catalog_ranking",
		},
		{
			name:      "short error",
			operation: "upsert",
			table:     "item_pricing",
			err:       errors.New("connection refused"),
			wantLabel: "connection refused",
		},
		{
			name:      "long error is truncated to 50 chars",
			operation: "upsert",
			table:     "catalog_ranking",
			err:       errors.New(strings.Repeat("x", 80)),
			wantLabel: strings.Repeat("x", 50),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := testutil.CollectAndCount(DBQueryDuration)
			RecordDBQuery(tt.operation, tt.table, 5*time.Millisecond, tt.err)
			if after := testutil.CollectAndCount(DBQueryDuration); after < before {
				t.Errorf("histogram series shrank: %d -> %d", before, after)
			}

			if tt.err != nil {
				got := testutil.ToFloat64(DBQueryErrors.WithLabelValues(tt.operation, tt.table, tt.wantLabel))
				if got < 1 {
					t.Errorf("DBQueryErrors{%s} = %v, want >= 1", tt.wantLabel, got)
				}
			}
		})
	}
}

func TestRecordRecomputeCycle(t *testing.T) {
	tests := []struct {
		name    string
		cycle   string
		written int
		failed  int
		err     error
		result  string
	}{
		{"clean cycle", "test_clean", 10, 0, nil, "success"},
		{"partial cycle", "test_partial", 8, 2, nil, "partial"},
		{"aborted cycle", "test_error", 0, 0, errors.New("aggregate failed"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			RecordRecomputeCycle(tt.cycle, tt.written, tt.failed, time.Second, tt.err)

			if got := testutil.ToFloat64(RecomputeCycles.WithLabelValues(tt.cycle, tt.result)); got != 1 {
				t.Errorf("RecomputeCycles{%s,%s} = %v, want 1", tt.cycle, tt.result, got)
			}
			if got := testutil.ToFloat64(RecomputeItemsWritten.WithLabelValues(tt.cycle)); got != float64(tt.written) {
				t.Errorf("RecomputeItemsWritten = %v, want %d", got, tt.written)
			}
			if got := testutil.ToFloat64(RecomputeItemFailures.WithLabelValues(tt.cycle)); got != float64(tt.failed) {
				t.Errorf("RecomputeItemFailures = %v, want %d", got, tt.failed)
			}

			lastSuccess := testutil.ToFloat64(RecomputeLastSuccess.WithLabelValues(tt.cycle))
			if (tt.result == "success") != (lastSuccess > 0) {
				t.Errorf("RecomputeLastSuccess = %v for result %s", lastSuccess, tt.result)
			}
		})
	}
}

func TestRecordRecomputeSkipped(t *testing.T) {
	RecordRecomputeSkipped("test_skip")
	RecordRecomputeSkipped("test_skip")

	if got := testutil.ToFloat64(RecomputeCycles.WithLabelValues("test_skip", "skipped")); got != 2 {
		t.Errorf("skipped = %v, want 2", got)
	}
}

func TestSetPriorityTasks(t *testing.T) {
	SetPriorityTasks(map[string]int{"lead": 3, "routine": 2})
	if got := testutil.ToFloat64(PriorityTasks.WithLabelValues("lead")); got != 3 {
		t.Errorf("lead tasks = %v, want 3", got)
	}

	SetPriorityTasks(map[string]int{"routine": 2})
	if got := testutil.CollectAndCount(PriorityTasks); got != 1 {
		t.Errorf("series after reset = %d, want 1", got)
	}
}

func TestRecordAPIRequest(t *testing.T) {
	RecordAPIRequest("GET", "/api/v1/catalog/ranked", "200", 20*time.Millisecond)

	if got := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("GET", "/api/v1/catalog/ranked", "200")); got < 1 {
		t.Errorf("APIRequestsTotal = %v, want >= 1", got)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)

	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("after inc = %v, want %v", got, before+1)
	}

	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("after dec = %v, want %v", got, before)
	}
}
