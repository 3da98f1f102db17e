// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package priority

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/kennelrank/internal/catalog"
	"github.com/tomtom215/kennelrank/internal/signals"
)

var now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

func daysAgo(d int) time.Time {
	return now.AddDate(0, 0, -d)
}

// listed returns a priced item with a photo, so only age drives its priority.
func listed(id string, status catalog.Status, age int) catalog.Item {
	return catalog.Item{
		ID:         id,
		Ref:        id,
		Name:       "Pup " + id,
		CreatedAt:  daysAgo(age),
		Status:     status,
		PriceCents: 500000,
		PhotoCount: 3,
	}
}

func filter(tasks []catalog.PriorityTask, typ catalog.TaskType, prio int) []catalog.PriorityTask {
	var out []catalog.PriorityTask
	for _, t := range tasks {
		if t.Type == typ && t.Priority == prio {
			out = append(out, t)
		}
	}
	return out
}

func TestGenerate_ScenarioE(t *testing.T) {
	leads := []catalog.Lead{
		{ID: "open", CreatedAt: daysAgo(1), PreferredColor: "sable"},
		{ID: "done", CreatedAt: daysAgo(2), Status: catalog.LeadClosed},
	}
	sig := signals.Build(now, nil, nil, leads)

	tasks := NewEngine(nil).Generate(sig)

	pending := filter(tasks, catalog.TaskLead, PendingLeadPriority)
	if len(pending) != 1 {
		t.Fatalf("pending tasks = %d, want 1: %+v", len(pending), pending)
	}
	if pending[0].Title != "Respond to lead open" {
		t.Errorf("pending title = %q", pending[0].Title)
	}
	if !strings.Contains(pending[0].Detail, "sable/-") {
		t.Errorf("pending detail = %q", pending[0].Detail)
	}

	followUps := filter(tasks, catalog.TaskLead, FollowUpPriority)
	if len(followUps) != 2 {
		t.Errorf("follow-ups = %d, want 2", len(followUps))
	}
}

func TestGenerate_PendingStatuses(t *testing.T) {
	e := NewEngine(nil)

	tests := []struct {
		status catalog.LeadStatus
		want   bool
	}{
		{catalog.LeadNone, true},
		{catalog.LeadNew, true},
		{catalog.LeadPending, true},
		{catalog.LeadContact, false},
		{catalog.LeadClosed, false},
		{catalog.LeadLost, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := e.IsPending(&catalog.Lead{Status: tt.status}); got != tt.want {
				t.Errorf("IsPending(%q) = %v, want %v", tt.status, got, tt.want)
			}
		})
	}
}

func TestGenerate_LeadCaps(t *testing.T) {
	leads := make([]catalog.Lead, 25)
	for i := range leads {
		leads[i] = catalog.Lead{ID: fmt.Sprintf("l%02d", i), CreatedAt: now.Add(-time.Duration(i) * time.Hour)}
	}
	sig := signals.Build(now, nil, nil, leads)

	tasks := NewEngine(nil).Generate(sig)

	pending := filter(tasks, catalog.TaskLead, PendingLeadPriority)
	if len(pending) != 20 {
		t.Errorf("pending tasks = %d, want 20", len(pending))
	}
	if pending[0].Title != "Respond to lead l00" || pending[19].Title != "Respond to lead l19" {
		t.Errorf("pending tasks not in lead order: first %q last %q", pending[0].Title, pending[19].Title)
	}

	followUps := filter(tasks, catalog.TaskLead, FollowUpPriority)
	if len(followUps) != 10 {
		t.Errorf("follow-ups = %d, want 10", len(followUps))
	}
}

func TestGenerate_LeadWindow(t *testing.T) {
	leads := []catalog.Lead{
		{ID: "recent", CreatedAt: daysAgo(10)},
		{ID: "old", CreatedAt: daysAgo(100)},
	}
	sig := signals.Build(now, nil, nil, leads)

	tasks := NewEngine(nil).Generate(sig)

	for _, task := range tasks {
		if strings.HasSuffix(task.Title, " old") {
			t.Errorf("lead outside window produced task %q", task.Title)
		}
	}
	if got := len(filter(tasks, catalog.TaskLead, PendingLeadPriority)); got != 1 {
		t.Errorf("pending tasks = %d, want 1", got)
	}
}

func TestGenerate_ItemTasks(t *testing.T) {
	noPhoto := listed("nophoto", catalog.StatusAvailable, 5)
	noPhoto.PhotoCount = 0
	noPriceOld := listed("nopriceold", catalog.StatusAvailable, 91)
	noPriceOld.PriceCents = 0
	almost46 := listed("d45.9", catalog.StatusAvailable, 45)
	almost46.CreatedAt = almost46.CreatedAt.Add(-22 * time.Hour)

	tests := []struct {
		name       string
		item       catalog.Item
		wantPrio   int
		wantDetail string
	}{
		{"fresh item emits nothing", listed("fresh", catalog.StatusAvailable, 10), 0, ""},
		{"45 days is not past the first threshold", listed("d45", catalog.StatusAvailable, 45), 0, ""},
		{"45.9 days is past the first threshold", almost46, 75, "Listed for 45d."},
		{"46 days", listed("d46", catalog.StatusAvailable, 46), 75, "Listed for 46d."},
		{"61 days", listed("d61", catalog.StatusAvailable, 61), 85, "Listed for 61d."},
		{"91 days", listed("d91", catalog.StatusAvailable, 91), 95, "Listed for 91d."},
		{"reserved items count as active", listed("res", catalog.StatusReserved, 91), 95, "Listed for 91d."},
		{"sold items are ignored", listed("sold", catalog.StatusSold, 200), 0, ""},
		{"missing photo forces floor", noPhoto, 80, "Listed for 5d without photo."},
		{"missing price keeps higher age priority", noPriceOld, 95, "Listed for 91d without price."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := signals.Build(now, []catalog.Item{tt.item}, nil, nil)
			tasks := NewEngine(nil).Generate(sig)

			var got []catalog.PriorityTask
			for _, task := range tasks {
				if task.Type == catalog.TaskItem {
					got = append(got, task)
				}
			}

			if tt.wantPrio == 0 {
				if len(got) != 0 {
					t.Errorf("got item tasks %+v, want none", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("item tasks = %d, want 1", len(got))
			}
			if got[0].Priority != tt.wantPrio {
				t.Errorf("Priority = %d, want %d", got[0].Priority, tt.wantPrio)
			}
			if got[0].Detail != tt.wantDetail {
				t.Errorf("Detail = %q, want %q", got[0].Detail, tt.wantDetail)
			}
			if got[0].Title != "Unblock "+tt.item.Name {
				t.Errorf("Title = %q", got[0].Title)
			}
		})
	}
}

func TestGenerate_Upsell(t *testing.T) {
	sold := func(id string, price int64) catalog.Item {
		it := listed(id, catalog.StatusSold, 10)
		it.PriceCents = price
		return it
	}
	priced := func(id string, price int64) catalog.Item {
		it := listed(id, catalog.StatusAvailable, 10)
		it.PriceCents = price
		return it
	}

	t.Run("above factor times median", func(t *testing.T) {
		items := []catalog.Item{
			sold("s1", 400000), sold("s2", 500000), sold("s3", 600000),
			priced("premium", 650000),
			priced("edge", 600000),
		}
		sig := signals.Build(now, items, nil, nil)

		upsell := filter(NewEngine(nil).Generate(sig), catalog.TaskUpsell, UpsellPriority)
		if len(upsell) != 1 || upsell[0].Title != "Offer upsell: Pup premium" {
			t.Errorf("upsell tasks = %+v", upsell)
		}
	})

	t.Run("empty cohort skips upsell", func(t *testing.T) {
		sig := signals.Build(now, []catalog.Item{priced("premium", 9000000)}, nil, nil)

		if got := filter(NewEngine(nil).Generate(sig), catalog.TaskUpsell, UpsellPriority); len(got) != 0 {
			t.Errorf("upsell tasks = %+v, want none", got)
		}
	})
}

func TestGenerate_Order(t *testing.T) {
	items := []catalog.Item{
		listed("old", catalog.StatusAvailable, 100),
		listed("mid", catalog.StatusAvailable, 50),
	}
	leads := []catalog.Lead{{ID: "a", CreatedAt: daysAgo(1)}, {ID: "b", CreatedAt: daysAgo(2), Status: catalog.LeadContact}}
	sig := signals.Build(now, items, nil, leads)

	tasks := NewEngine(nil).Generate(sig)

	for i := 1; i < len(tasks); i++ {
		if tasks[i].Priority > tasks[i-1].Priority {
			t.Fatalf("tasks not sorted at %d: %d after %d", i, tasks[i].Priority, tasks[i-1].Priority)
		}
	}

	wantTitles := []string{
		"Respond to lead a",
		"Unblock Pup old",
		"Unblock Pup mid",
		"Follow up lead a",
		"Follow up lead b",
		"Update blog and SEO",
		"Check tracking pixels",
	}
	if len(tasks) != len(wantTitles) {
		t.Fatalf("tasks = %d, want %d: %+v", len(tasks), len(wantTitles), tasks)
	}
	for i, want := range wantTitles {
		if tasks[i].Title != want {
			t.Errorf("tasks[%d].Title = %q, want %q", i, tasks[i].Title, want)
		}
	}
}

func TestGenerate_NilSignals(t *testing.T) {
	tasks := NewEngine(nil).Generate(nil)

	if len(tasks) != 2 {
		t.Fatalf("tasks = %d, want 2 routine tasks", len(tasks))
	}
	if tasks[0].Priority != 25 || tasks[1].Priority != 20 {
		t.Errorf("routine priorities = %d, %d", tasks[0].Priority, tasks[1].Priority)
	}
	for _, task := range tasks {
		if task.Type != catalog.TaskRoutine {
			t.Errorf("Type = %q, want routine", task.Type)
		}
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero window", func(c *Config) { c.LeadWindow = 0 }, true},
		{"negative cap", func(c *Config) { c.MaxFollowUps = -1 }, true},
		{"threshold priority above 100", func(c *Config) { c.AgeThresholds[0].Priority = 101 }, true},
		{"zero upsell factor", func(c *Config) { c.UpsellFactor = 0 }, true},
		{"untitled routine task", func(c *Config) { c.RoutineTasks[0].Title = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
