// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/kennelrank/internal/catalog"
)

var testNow = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

var drivers = []string{DriverDuckDB, DriverSQLite}

func setupTestStore(t *testing.T, driver string) *SQLStore {
	t.Helper()
	s, err := Open(context.Background(), DatabaseConfig{Driver: driver, Path: ":memory:"}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open %s store: %v", driver, err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func seedItems(t *testing.T, s *SQLStore, items ...catalog.Item) {
	t.Helper()
	for i := range items {
		if err := s.UpsertItem(context.Background(), &items[i]); err != nil {
			t.Fatalf("UpsertItem(%s) error = %v", items[i].ID, err)
		}
	}
}

func seedLeads(t *testing.T, s *SQLStore, leads ...catalog.Lead) {
	t.Helper()
	for i := range leads {
		if err := s.UpsertLead(context.Background(), &leads[i]); err != nil {
			t.Fatalf("UpsertLead(%s) error = %v", leads[i].ID, err)
		}
	}
}

func testItem(id string, status catalog.Status, color string, price int64) catalog.Item {
	return catalog.Item{
		ID:         id,
		Ref:        id,
		Name:       "Pup " + id,
		CreatedAt:  testNow.AddDate(0, 0, -10),
		Status:     status,
		PriceCents: price,
		Attributes: catalog.Attributes{Color: color, Sex: "female", City: "Campinas", State: "SP"},
		PhotoCount: 2,
	}
}

func TestSQLStore_InitSchemaIdempotent(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			s := setupTestStore(t, driver)
			if err := s.InitSchema(context.Background()); err != nil {
				t.Fatalf("second InitSchema() error = %v", err)
			}
		})
	}
}

func TestSQLStore_Items(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			s := setupTestStore(t, driver)
			ctx := context.Background()

			born := testNow.AddDate(0, -3, 0)
			rex := testItem("rex", catalog.StatusAvailable, "Sable", 500000)
			rex.BirthDate = born
			seedItems(t, s, rex,
				testItem("bia", catalog.StatusReserved, "black", 400000),
				testItem("old", catalog.StatusSold, "white", 300000),
			)

			got, err := s.GetItem(ctx, "rex")
			if err != nil {
				t.Fatalf("GetItem() error = %v", err)
			}
			if got.Name != "Pup rex" || got.PriceCents != 500000 || got.Attributes.Color != "Sable" || got.PhotoCount != 2 {
				t.Errorf("GetItem() = %+v", got)
			}
			if !got.BirthDate.Equal(born) || !got.CreatedAt.Equal(rex.CreatedAt) {
				t.Errorf("timestamps = (%v, %v), want (%v, %v)", got.BirthDate, got.CreatedAt, born, rex.CreatedAt)
			}

			if _, err := s.GetItem(ctx, "missing"); !errors.Is(err, catalog.ErrNotFound) {
				t.Errorf("GetItem(missing) error = %v, want ErrNotFound", err)
			}

			all, err := s.ListItems(ctx)
			if err != nil {
				t.Fatalf("ListItems() error = %v", err)
			}
			if len(all) != 3 {
				t.Errorf("ListItems() = %d items, want 3", len(all))
			}

			active, err := s.ListItems(ctx, catalog.ActiveStatuses...)
			if err != nil {
				t.Fatalf("ListItems(active) error = %v", err)
			}
			if len(active) != 2 {
				t.Errorf("ListItems(active) = %d items, want 2", len(active))
			}
			for _, it := range active {
				if it.Status == catalog.StatusSold {
					t.Errorf("sold item %s returned", it.ID)
				}
			}

			// Upsert replaces the whole row.
			rex.PriceCents = 0
			rex.Attributes.Color = ""
			seedItems(t, s, rex)
			got, err = s.GetItem(ctx, "rex")
			if err != nil {
				t.Fatalf("GetItem() after replace error = %v", err)
			}
			if got.PriceCents != 0 || got.Attributes.Color != "" {
				t.Errorf("GetItem() after replace = %+v", got)
			}
		})
	}
}

func TestSQLStore_Leads(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			s := setupTestStore(t, driver)
			ctx := context.Background()

			seedLeads(t, s,
				catalog.Lead{ID: "l1", ItemRef: "rex", CreatedAt: testNow.Add(-1 * time.Hour)},
				catalog.Lead{ID: "l2", ItemRef: "filhotes/rex", CreatedAt: testNow.Add(-2 * time.Hour), Status: catalog.LeadClosed},
				catalog.Lead{ID: "l3", ItemRef: "/bia", CreatedAt: testNow.Add(-3 * time.Hour), PreferredColor: "black"},
				catalog.Lead{ID: "l4", ItemRef: "rex", CreatedAt: testNow.AddDate(0, 0, -100)},
				catalog.Lead{ID: "l5", CreatedAt: testNow.Add(-30 * time.Minute)},
			)
			since := testNow.AddDate(0, 0, -90)

			counts, err := s.CountLeadsByRef(ctx, since)
			if err != nil {
				t.Fatalf("CountLeadsByRef() error = %v", err)
			}
			want := map[string]int{"rex": 1, "filhotes/rex": 1, "bia": 1}
			if len(counts) != len(want) {
				t.Errorf("CountLeadsByRef() = %v, want %v", counts, want)
			}
			for ref, n := range want {
				if counts[ref] != n {
					t.Errorf("counts[%q] = %d, want %d", ref, counts[ref], n)
				}
			}

			leads, err := s.ListLeads(ctx, since, 0)
			if err != nil {
				t.Fatalf("ListLeads() error = %v", err)
			}
			gotIDs := make([]string, len(leads))
			for i, l := range leads {
				gotIDs[i] = l.ID
			}
			wantIDs := []string{"l5", "l1", "l2", "l3"}
			if len(gotIDs) != len(wantIDs) {
				t.Fatalf("ListLeads() ids = %v, want %v", gotIDs, wantIDs)
			}
			for i := range wantIDs {
				if gotIDs[i] != wantIDs[i] {
					t.Errorf("ListLeads()[%d] = %s, want %s", i, gotIDs[i], wantIDs[i])
				}
			}
			if leads[3].ItemRef != "bia" || leads[3].PreferredColor != "black" {
				t.Errorf("lead l3 = %+v", leads[3])
			}

			limited, err := s.ListLeads(ctx, since, 2)
			if err != nil {
				t.Fatalf("ListLeads(limit) error = %v", err)
			}
			if len(limited) != 2 {
				t.Errorf("ListLeads(limit 2) = %d leads", len(limited))
			}

			forRex, err := s.ListLeadsForItem(ctx, "rex", 0)
			if err != nil {
				t.Fatalf("ListLeadsForItem() error = %v", err)
			}
			if len(forRex) != 3 {
				t.Errorf("ListLeadsForItem(rex) = %d leads, want 3", len(forRex))
			}
			closed := 0
			for _, l := range forRex {
				if l.Status == catalog.LeadClosed {
					closed++
				}
			}
			if closed != 1 {
				t.Errorf("closed leads for rex = %d, want 1", closed)
			}
		})
	}
}

func TestSQLStore_Pricing(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			s := setupTestStore(t, driver)
			ctx := context.Background()

			if _, err := s.GetPricing(ctx, "rex"); !errors.Is(err, catalog.ErrNotFound) {
				t.Errorf("GetPricing(absent) error = %v, want ErrNotFound", err)
			}

			r := catalog.PricingResult{
				ItemID:          "rex",
				PriceMin:        450000,
				PriceIdeal:      540000,
				PriceMax:        560000,
				SaleProbability: 0.6,
				Alert:           catalog.AlertInRange,
				AlertMessage:    "Price within the suggested band.",
				Reasoning:       "Rare attribute: ideal +8%, ceiling +12%.",
				Features:        catalog.PricingFeatures{BasePriceCents: 500000, AgeMonths: 1, RareAttribute: true, Month: 6},
				ComputedAt:      testNow,
			}
			if err := s.UpsertPricing(ctx, r); err != nil {
				t.Fatalf("UpsertPricing() error = %v", err)
			}

			got, err := s.GetPricing(ctx, "rex")
			if err != nil {
				t.Fatalf("GetPricing() error = %v", err)
			}
			if got.PriceMin != r.PriceMin || got.PriceIdeal != r.PriceIdeal || got.PriceMax != r.PriceMax {
				t.Errorf("band = (%d, %d, %d)", got.PriceMin, got.PriceIdeal, got.PriceMax)
			}
			if got.Features != r.Features || got.Reasoning != r.Reasoning || got.Alert != r.Alert {
				t.Errorf("GetPricing() = %+v", got)
			}
			if !got.ComputedAt.Equal(testNow) {
				t.Errorf("ComputedAt = %v, want %v", got.ComputedAt, testNow)
			}

			r.PriceIdeal = 500000
			r.Reasoning = ""
			r.Features = catalog.PricingFeatures{}
			if err := s.UpsertPricing(ctx, r); err != nil {
				t.Fatalf("UpsertPricing() replace error = %v", err)
			}
			got, err = s.GetPricing(ctx, "rex")
			if err != nil {
				t.Fatalf("GetPricing() error = %v", err)
			}
			if got.PriceIdeal != 500000 || got.Reasoning != "" || got.Features.RareAttribute {
				t.Errorf("replaced row kept stale fields: %+v", got)
			}
		})
	}
}

func TestSQLStore_ListRanked(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			s := setupTestStore(t, driver)
			ctx := context.Background()

			seedItems(t, s,
				testItem("a", catalog.StatusAvailable, "Sable", 700000),
				testItem("b", catalog.StatusReserved, "black", 400000),
				testItem("c", catalog.StatusAvailable, "SABLE", 300000),
				testItem("sold", catalog.StatusSold, "sable", 900000),
			)
			scores := []catalog.ScoreResult{
				{ItemID: "c", Score: 80, Flag: catalog.FlagHot, Reason: "Recent", RankOrder: 1, ComputedAt: testNow},
				{ItemID: "a", Score: 60, Flag: catalog.FlagNormal, Reason: "Recent", RankOrder: 2, ComputedAt: testNow},
				{ItemID: "b", Score: 40, Flag: catalog.FlagNormal, Reason: "Recent · Reserved", RankOrder: 3, ComputedAt: testNow},
				// Stale row from before the item sold.
				{ItemID: "sold", Score: 90, Flag: catalog.FlagHot, RankOrder: 1, ComputedAt: testNow.Add(-time.Hour)},
			}
			for _, sc := range scores {
				if err := s.UpsertScore(ctx, sc); err != nil {
					t.Fatalf("UpsertScore(%s) error = %v", sc.ItemID, err)
				}
			}
			if err := s.UpsertPricing(ctx, catalog.PricingResult{
				ItemID: "a", PriceMin: 400000, PriceIdeal: 500000, PriceMax: 600000, Alert: catalog.AlertInRange, ComputedAt: testNow,
			}); err != nil {
				t.Fatalf("UpsertPricing() error = %v", err)
			}

			tests := []struct {
				name   string
				filter RankedFilter
				want   []string
			}{
				{"all active in rank order", RankedFilter{}, []string{"c", "a", "b"}},
				{"color is case-insensitive", RankedFilter{Color: "sable"}, []string{"c", "a"}},
				{"status filter", RankedFilter{Status: []catalog.Status{catalog.StatusReserved}}, []string{"b"}},
				{"sold is never listed", RankedFilter{Status: []catalog.Status{catalog.StatusSold}}, nil},
				{"limit", RankedFilter{Limit: 1}, []string{"c"}},
				{"no match", RankedFilter{City: "Recife"}, nil},
			}

			for _, tt := range tests {
				t.Run(tt.name, func(t *testing.T) {
					got, err := s.ListRanked(ctx, tt.filter)
					if err != nil {
						t.Fatalf("ListRanked() error = %v", err)
					}
					if len(got) != len(tt.want) {
						t.Fatalf("ListRanked() = %d rows, want %v", len(got), tt.want)
					}
					for i, id := range tt.want {
						if got[i].ItemID != id || got[i].Item.ID != id {
							t.Errorf("row %d = %s, want %s", i, got[i].ItemID, id)
						}
					}
				})
			}

			rows, err := s.ListRanked(ctx, RankedFilter{})
			if err != nil {
				t.Fatalf("ListRanked() error = %v", err)
			}
			byID := map[string]RankedItem{}
			for _, r := range rows {
				byID[r.ItemID] = r
			}
			if byID["a"].PriceAlert != catalog.AlertAbove {
				t.Errorf("PriceAlert(a) = %q, want above", byID["a"].PriceAlert)
			}
			if byID["c"].PriceAlert != "" {
				t.Errorf("PriceAlert(c) = %q, want empty without pricing row", byID["c"].PriceAlert)
			}
			if byID["b"].Reason != "Recent · Reserved" || byID["b"].Flag != catalog.FlagNormal || byID["b"].Score != 40 {
				t.Errorf("row b = %+v", byID["b"].ScoreResult)
			}
			if !byID["a"].ComputedAt.Equal(testNow) {
				t.Errorf("ComputedAt = %v, want %v", byID["a"].ComputedAt, testNow)
			}
		})
	}
}

func TestSQLStore_ListRankedLegacyStatuses(t *testing.T) {
	for _, driver := range drivers {
		t.Run(driver, func(t *testing.T) {
			s := setupTestStore(t, driver)
			ctx := context.Background()

			// Raw values as an external import would leave them.
			seedItems(t, s,
				testItem("legacy", catalog.Status("Disponivel"), "black", 300000),
				testItem("withdrawn", catalog.Status("indisponivel"), "black", 300000),
				testItem("upcoming", catalog.Status("em_breve"), "black", 300000),
				testItem("odd", catalog.Status("archived"), "black", 300000),
			)
			for i, id := range []string{"legacy", "withdrawn", "upcoming", "odd"} {
				if err := s.UpsertScore(ctx, catalog.ScoreResult{ItemID: id, Score: 50, Flag: catalog.FlagNormal, RankOrder: i + 1, ComputedAt: testNow}); err != nil {
					t.Fatalf("UpsertScore(%s) error = %v", id, err)
				}
			}

			got, err := s.ListRanked(ctx, RankedFilter{})
			if err != nil {
				t.Fatalf("ListRanked() error = %v", err)
			}
			if len(got) != 1 || got[0].ItemID != "legacy" {
				t.Fatalf("ListRanked() = %+v, want only the legacy available item", got)
			}
			if got[0].Item.Status != catalog.StatusAvailable {
				t.Errorf("Status = %q, want available", got[0].Item.Status)
			}
		})
	}
}

func TestOpenSQL_UnknownDriver(t *testing.T) {
	if _, err := OpenSQL(context.Background(), DatabaseConfig{Driver: "oracle"}); err == nil {
		t.Error("OpenSQL() with unknown driver should fail")
	}
}

func TestRankedFilter(t *testing.T) {
	f := RankedFilter{Status: []catalog.Status{catalog.StatusSold, catalog.StatusReserved, catalog.StatusReserved}}
	if got := f.Statuses(); len(got) != 1 || got[0] != catalog.StatusReserved {
		t.Errorf("Statuses() = %v, want [reserved]", got)
	}

	empty := RankedFilter{}
	if got := empty.Statuses(); len(got) != 2 {
		t.Errorf("Statuses() of empty filter = %v", got)
	}

	limits := []struct {
		in, want int
	}{
		{0, DefaultRankedLimit},
		{-5, DefaultRankedLimit},
		{10, 10},
		{MaxRankedLimit + 1, MaxRankedLimit},
	}
	for _, l := range limits {
		f := RankedFilter{Limit: l.in}
		if got := f.EffectiveLimit(); got != l.want {
			t.Errorf("EffectiveLimit(%d) = %d, want %d", l.in, got, l.want)
		}
	}

	item := testItem("x", catalog.StatusAvailable, "Sable", 1)
	match := RankedFilter{Color: " sable ", State: "sp"}
	if !match.Match(&item) {
		t.Error("Match() should accept case and whitespace differences")
	}
	miss := RankedFilter{Sex: "male"}
	if miss.Match(&item) {
		t.Error("Match() accepted wrong sex")
	}
}
