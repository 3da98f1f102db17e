// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package recompute

import (
	"context"
	"slices"
	"strings"

	"github.com/tomtom215/kennelrank/internal/cache"
	"github.com/tomtom215/kennelrank/internal/catalog"
	"github.com/tomtom215/kennelrank/internal/logging"
	"github.com/tomtom215/kennelrank/internal/metrics"
	"github.com/tomtom215/kennelrank/internal/ranking"
	"github.com/tomtom215/kennelrank/internal/signals"
	"github.com/tomtom215/kennelrank/internal/store"
)

const (
	rankedCacheMethod = "ranked_items"
	tasksCacheMethod  = "priority_tasks"
)

// GetRankedItems returns the persisted ranking joined with items and
// decorated with badges. Read failures are logged and yield an empty list,
// never an error.
func (e *Engine) GetRankedItems(ctx context.Context, f store.RankedFilter) []store.RankedItem {
	key := cache.GenerateKey(rankedCacheMethod, f)
	if e.cache != nil {
		if v, ok := e.cache.Get(key); ok {
			if items, ok := v.([]store.RankedItem); ok {
				return slices.Clone(items)
			}
		}
	}

	items, err := e.reader.ListRanked(ctx, f)
	if err != nil {
		logging.CtxErr(ctx, err).Str("component", "recompute").Msg("Failed to read ranked items")
		return []store.RankedItem{}
	}

	e.decorate(items, f)

	if e.cache != nil {
		e.cache.Set(key, slices.Clone(items))
	}
	return items
}

// decorate attaches display badges. Lead velocity and card CTR are not
// tracked by the store, so only score, age and scarcity rules apply.
func (e *Engine) decorate(items []store.RankedItem, f store.RankedFilter) {
	now := e.now()

	// Scarcity is only known when the list holds every active item that
	// could share attributes with another.
	complete := len(items) < f.EffectiveLimit() && f.City == "" && f.State == ""
	similar := make(map[string]int, len(items))
	if complete {
		for i := range items {
			similar[similarityKey(&items[i].Item)]++
		}
	}

	for i := range items {
		in := ranking.BadgeInput{
			Score:            items[i].Score,
			AgeDays:          signals.AgeDays(items[i].Item.CreatedAt, now),
			SimilarAvailable: -1,
		}
		if complete {
			in.SimilarAvailable = similar[similarityKey(&items[i].Item)] - 1
		}
		items[i].Badges = ranking.Badges(in)
	}
}

func similarityKey(item *catalog.Item) string {
	return strings.ToLower(item.Attributes.Color) + "|" + strings.ToLower(item.Attributes.Sex)
}

// GetPriorityTasks returns the operator task list, highest priority first.
// Calls within the cache TTL may be served from the cache. An aggregation
// failure is logged and yields an empty list.
func (e *Engine) GetPriorityTasks(ctx context.Context) []catalog.PriorityTask {
	if tasks, ok := e.cachedTasks(); ok {
		return tasks
	}

	sig, err := e.aggregate(ctx, 0)
	if err != nil {
		logging.CtxErr(ctx, err).Str("component", "recompute").Msg("Failed to build priority tasks")
		return []catalog.PriorityTask{}
	}

	tasks := e.planTasks(sig)
	e.storeTasks(tasks)
	return tasks
}

func (e *Engine) planTasks(sig *signals.Signals) []catalog.PriorityTask {
	tasks := e.planner.Generate(sig)

	byType := map[string]int{
		string(catalog.TaskLead):    0,
		string(catalog.TaskItem):    0,
		string(catalog.TaskUpsell):  0,
		string(catalog.TaskRoutine): 0,
	}
	for i := range tasks {
		byType[string(tasks[i].Type)]++
	}
	metrics.SetPriorityTasks(byType)

	return tasks
}

func (e *Engine) tasksKey() string {
	return cache.GenerateKey(tasksCacheMethod, struct {
		Lookback  string
		LeadLimit int
	}{e.cfg.LeadLookback.String(), e.cfg.LeadLimit})
}

func (e *Engine) cachedTasks() ([]catalog.PriorityTask, bool) {
	if e.cache == nil {
		return nil, false
	}
	v, ok := e.cache.Get(e.tasksKey())
	if !ok {
		return nil, false
	}
	tasks, ok := v.([]catalog.PriorityTask)
	if !ok {
		return nil, false
	}
	return slices.Clone(tasks), true
}

func (e *Engine) storeTasks(tasks []catalog.PriorityTask) {
	if e.cache != nil {
		e.cache.Set(e.tasksKey(), slices.Clone(tasks))
	}
}
