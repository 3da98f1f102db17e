// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

// Package priority turns aggregated signals into an operator task list.
//
// Tasks are generated fresh on every call and never persisted. Buckets are
// emitted in a fixed order (pending leads, stuck items, follow-ups, upsell,
// routine) and then stable-sorted by priority, so equal priorities keep
// generation order.
package priority

import (
	"fmt"
	"slices"
	"strings"

	"github.com/tomtom215/kennelrank/internal/catalog"
	"github.com/tomtom215/kennelrank/internal/signals"
)

// Engine generates priority tasks.
type Engine struct {
	config     *Config
	pending    map[catalog.LeadStatus]struct{}
	thresholds []AgeThreshold
}

// NewEngine creates a task engine. A nil config uses DefaultConfig.
func NewEngine(cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	pending := make(map[catalog.LeadStatus]struct{}, len(cfg.PendingStatuses))
	for _, s := range cfg.PendingStatuses {
		pending[catalog.LeadStatus(strings.ToLower(strings.TrimSpace(s)))] = struct{}{}
	}

	// Highest threshold first so the first match wins.
	thresholds := slices.Clone(cfg.AgeThresholds)
	slices.SortFunc(thresholds, func(a, b AgeThreshold) int {
		return b.Days - a.Days
	})

	return &Engine{config: cfg, pending: pending, thresholds: thresholds}
}

// Config returns the engine configuration.
func (e *Engine) Config() *Config {
	return e.config
}

// Generate builds the task list from signals. A nil signals value yields only
// the routine tasks.
func (e *Engine) Generate(sig *signals.Signals) []catalog.PriorityTask {
	var tasks []catalog.PriorityTask

	if sig != nil {
		leads := e.recentLeads(sig)
		tasks = append(tasks, e.pendingLeadTasks(leads)...)
		tasks = append(tasks, e.itemTasks(sig)...)
		tasks = append(tasks, e.followUpTasks(leads)...)
		tasks = append(tasks, e.upsellTasks(sig)...)
	}
	tasks = append(tasks, e.routineTasks()...)

	slices.SortStableFunc(tasks, func(a, b catalog.PriorityTask) int {
		return b.Priority - a.Priority
	})
	return tasks
}

// IsPending reports whether a lead still needs a first response.
func (e *Engine) IsPending(l *catalog.Lead) bool {
	_, ok := e.pending[l.Status]
	return ok
}

func (e *Engine) recentLeads(sig *signals.Signals) []catalog.Lead {
	if sig.Now.IsZero() {
		return sig.Leads
	}
	since := sig.Now.Add(-e.config.LeadWindow)
	leads := make([]catalog.Lead, 0, len(sig.Leads))
	for i := range sig.Leads {
		if sig.Leads[i].CreatedAt.IsZero() || !sig.Leads[i].CreatedAt.Before(since) {
			leads = append(leads, sig.Leads[i])
		}
	}
	return leads
}

func (e *Engine) pendingLeadTasks(leads []catalog.Lead) []catalog.PriorityTask {
	var tasks []catalog.PriorityTask
	for i := range leads {
		if len(tasks) >= e.config.MaxPendingLeads {
			break
		}
		l := &leads[i]
		if !e.IsPending(l) {
			continue
		}
		tasks = append(tasks, catalog.PriorityTask{
			Title:    "Respond to lead " + l.ID,
			Detail:   fmt.Sprintf("New lead on %s. Color/sex: %s/%s.", formatTime(l), orDash(l.PreferredColor), orDash(l.PreferredSex)),
			Priority: PendingLeadPriority,
			Type:     catalog.TaskLead,
		})
	}
	return tasks
}

func (e *Engine) itemTasks(sig *signals.Signals) []catalog.PriorityTask {
	var tasks []catalog.PriorityTask
	for i := range sig.Items {
		item := &sig.Items[i]
		if !item.Status.IsActive() {
			continue
		}

		age := sig.AgeDays[item.ID]
		noPhoto := item.PhotoCount == 0
		noPrice := item.PriceCents <= 0

		p := e.agePriority(signals.ListedDays(item.CreatedAt, sig.Now))
		if noPhoto || noPrice {
			p = max(p, e.config.MissingDataPriority)
		}
		if p <= 0 {
			continue
		}

		var detail strings.Builder
		fmt.Fprintf(&detail, "Listed for %dd", age)
		if noPhoto {
			detail.WriteString(" without photo")
		}
		if noPrice {
			detail.WriteString(" without price")
		}
		detail.WriteString(".")

		tasks = append(tasks, catalog.PriorityTask{
			Title:    "Unblock " + item.Label(),
			Detail:   detail.String(),
			Priority: p,
			Type:     catalog.TaskItem,
		})
	}
	return tasks
}

// agePriority compares fractional days, so 45.9 days is past a 45-day threshold.
func (e *Engine) agePriority(ageDays float64) int {
	for _, th := range e.thresholds {
		if ageDays > float64(th.Days) {
			return th.Priority
		}
	}
	return 0
}

func (e *Engine) followUpTasks(leads []catalog.Lead) []catalog.PriorityTask {
	n := min(len(leads), e.config.MaxFollowUps)
	tasks := make([]catalog.PriorityTask, 0, n)
	for i := range leads[:n] {
		l := &leads[i]
		color := l.PreferredColor
		if color == "" {
			color = "no color preference"
		}
		tasks = append(tasks, catalog.PriorityTask{
			Title:    "Follow up lead " + l.ID,
			Detail:   "Recent lead interested in " + color + ".",
			Priority: FollowUpPriority,
			Type:     catalog.TaskLead,
		})
	}
	return tasks
}

func (e *Engine) upsellTasks(sig *signals.Signals) []catalog.PriorityTask {
	if sig.CohortMedian <= 0 {
		return nil
	}
	threshold := float64(sig.CohortMedian) * e.config.UpsellFactor

	var tasks []catalog.PriorityTask
	for i := range sig.Items {
		item := &sig.Items[i]
		if !item.Status.IsActive() || float64(item.PriceCents) <= threshold {
			continue
		}
		tasks = append(tasks, catalog.PriorityTask{
			Title:    "Offer upsell: " + item.Label(),
			Detail:   "Premium price. Present extra benefits (warranty, delivery, pedigree).",
			Priority: UpsellPriority,
			Type:     catalog.TaskUpsell,
		})
	}
	return tasks
}

func (e *Engine) routineTasks() []catalog.PriorityTask {
	tasks := make([]catalog.PriorityTask, 0, len(e.config.RoutineTasks))
	for _, rt := range e.config.RoutineTasks {
		tasks = append(tasks, catalog.PriorityTask{
			Title:    rt.Title,
			Detail:   rt.Detail,
			Priority: rt.Priority,
			Type:     catalog.TaskRoutine,
		})
	}
	return tasks
}

func formatTime(l *catalog.Lead) string {
	if l.CreatedAt.IsZero() {
		return "unknown date"
	}
	return l.CreatedAt.UTC().Format("2006-01-02 15:04")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
