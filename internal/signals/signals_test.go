// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package signals

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/kennelrank/internal/catalog"
)

// mockSource is a hand-written Source for tests.
type mockSource struct {
	mu        sync.Mutex
	items     []catalog.Item
	counts    map[string]int
	leads     []catalog.Lead
	itemsErr  error
	countErr  error
	leadsErr  error
	gotSince  time.Time
	gotLimit  int
	listCalls int
}

func (m *mockSource) ListItems(_ context.Context, _ ...catalog.Status) ([]catalog.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++
	return m.items, m.itemsErr
}

func (m *mockSource) CountLeadsByRef(_ context.Context, since time.Time) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gotSince = since
	return m.counts, m.countErr
}

func (m *mockSource) ListLeads(_ context.Context, _ time.Time, limit int) ([]catalog.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gotLimit = limit
	return m.leads, m.leadsErr
}

var now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return now.Add(-time.Duration(d) * 24 * time.Hour)
}

func TestAggregate(t *testing.T) {
	src := &mockSource{
		items: []catalog.Item{
			{ID: "1", Ref: "luna", Status: catalog.StatusAvailable, CreatedAt: daysAgo(10)},
			{ID: "2", Ref: "thor", Status: catalog.StatusReserved, CreatedAt: daysAgo(100)},
			{ID: "3", Ref: "bob", Status: catalog.StatusSold, CreatedAt: daysAgo(200), PriceCents: 500000},
			{ID: "4", Ref: "max", Status: catalog.StatusSold, CreatedAt: daysAgo(300), PriceCents: 300000},
			{ID: "5", Ref: "zoe", Status: catalog.StatusSold, PriceCents: 700000},
		},
		counts: map[string]int{
			"filhotes/luna": 4,
			"thor":          7,
			"bob":           50,
		},
		leads: []catalog.Lead{{ID: "l1"}},
	}

	agg := NewAggregator(src, zerolog.Nop())
	s, err := agg.Aggregate(context.Background(), Window{Now: now, LeadLookback: 30 * 24 * time.Hour})
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if got := s.LeadCount["luna"]; got != 4 {
		t.Errorf("luna lead count = %d, want 4 (legacy prefix match)", got)
	}
	if got := s.LeadCount["thor"]; got != 7 {
		t.Errorf("thor lead count = %d, want 7", got)
	}
	if got, ok := s.LeadCount["max"]; !ok || got != 0 {
		t.Errorf("max lead count = %d (present=%v), want explicit 0", got, ok)
	}
	if s.MaxLeadCount != 7 {
		t.Errorf("MaxLeadCount = %d, want 7 (sold items excluded)", s.MaxLeadCount)
	}
	if s.AgeDays["1"] != 10 || s.AgeDays["2"] != 100 {
		t.Errorf("AgeDays = %v", s.AgeDays)
	}
	if s.AgeDays["5"] != 0 {
		t.Errorf("missing created_at should give age 0, got %d", s.AgeDays["5"])
	}
	if s.CohortMedian != 500000 {
		t.Errorf("CohortMedian = %d, want 500000", s.CohortMedian)
	}
	if !src.gotSince.Equal(now.Add(-30 * 24 * time.Hour)) {
		t.Errorf("since = %v, want 30 days before now", src.gotSince)
	}
	if src.gotLimit != DefaultLeadLimit {
		t.Errorf("lead limit = %d, want default %d", src.gotLimit, DefaultLeadLimit)
	}
	if len(s.Leads) != 1 {
		t.Errorf("Leads = %d, want 1", len(s.Leads))
	}
}

func TestAggregate_PropagatesReadFailures(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name string
		src  *mockSource
	}{
		{name: "items", src: &mockSource{itemsErr: boom}},
		{name: "counts", src: &mockSource{countErr: boom}},
		{name: "leads", src: &mockSource{leadsErr: boom}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewAggregator(tt.src, zerolog.Nop()).Aggregate(context.Background(), Window{Now: now})
			if !errors.Is(err, boom) {
				t.Fatalf("expected wrapped read error, got %v", err)
			}
			if s != nil {
				t.Error("no signals may be returned on failure")
			}
		})
	}
}

func TestListedDays(t *testing.T) {
	tests := []struct {
		name    string
		created time.Time
		want    float64
	}{
		{name: "zero time", created: time.Time{}, want: 0},
		{name: "future (clock skew)", created: now.Add(time.Hour), want: 0},
		{name: "partial day kept", created: now.Add(-36 * time.Hour), want: 1.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ListedDays(tt.created, now); got != tt.want {
				t.Errorf("ListedDays() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAgeDays(t *testing.T) {
	tests := []struct {
		name    string
		created time.Time
		want    int
	}{
		{name: "zero time", created: time.Time{}, want: 0},
		{name: "future (clock skew)", created: now.Add(48 * time.Hour), want: 0},
		{name: "partial day truncates", created: now.Add(-36 * time.Hour), want: 1},
		{name: "ninety days", created: daysAgo(90), want: 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AgeDays(tt.created, now); got != tt.want {
				t.Errorf("AgeDays() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAgeMonths(t *testing.T) {
	if got := AgeMonths(daysAgo(150), now); got != 5 {
		t.Errorf("AgeMonths(150d) = %v, want 5", got)
	}
	if got := AgeMonths(time.Time{}, now); got != 0 {
		t.Errorf("AgeMonths(zero) = %v, want 0", got)
	}
}

func TestMedian(t *testing.T) {
	tests := []struct {
		values []int64
		want   int64
	}{
		{nil, 0},
		{[]int64{5}, 5},
		{[]int64{3, 1, 2}, 2},
		{[]int64{4, 1, 3, 2}, 3},
	}
	for _, tt := range tests {
		in := append([]int64(nil), tt.values...)
		if got := Median(tt.values); got != tt.want {
			t.Errorf("Median(%v) = %d, want %d", tt.values, got, tt.want)
		}
		for i := range in {
			if in[i] != tt.values[i] {
				t.Fatal("Median must not reorder its input")
			}
		}
	}
}
