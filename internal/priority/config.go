// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package priority

import (
	"fmt"
	"time"
)

// Task priorities for the fixed buckets.
const (
	PendingLeadPriority = 100
	FollowUpPriority    = 60
	UpsellPriority      = 55
)

// AgeThreshold raises an item's priority once it has been listed longer than Days.
type AgeThreshold struct {
	Days     int `koanf:"days" json:"days"`
	Priority int `koanf:"priority" json:"priority"`
}

// RoutineTask is a fixed reminder emitted on every call.
type RoutineTask struct {
	Title    string `koanf:"title" json:"title"`
	Detail   string `koanf:"detail" json:"detail"`
	Priority int    `koanf:"priority" json:"priority"`
}

// Config holds the task generation rules.
type Config struct {
	// LeadWindow bounds how far back leads are considered.
	// Default: 90 days.
	LeadWindow time.Duration `koanf:"lead_window" json:"lead_window"`

	// MaxPendingLeads caps the pending-lead tasks so the task list stays readable.
	// Default: 20.
	MaxPendingLeads int `koanf:"max_pending_leads" json:"max_pending_leads"`

	// MaxFollowUps caps the follow-up reminders taken from the most recent leads.
	// Default: 10.
	MaxFollowUps int `koanf:"max_follow_ups" json:"max_follow_ups"`

	// AgeThresholds map listing age to item task priority. The highest
	// threshold the item exceeds wins.
	// Default: 45d=75, 60d=85, 90d=95.
	AgeThresholds []AgeThreshold `koanf:"age_thresholds" json:"age_thresholds"`

	// MissingDataPriority is the floor for items without a photo or a price.
	// Default: 80.
	MissingDataPriority int `koanf:"missing_data_priority" json:"missing_data_priority"`

	// UpsellFactor surfaces items priced above this multiple of the cohort median.
	// Default: 1.2.
	UpsellFactor float64 `koanf:"upsell_factor" json:"upsell_factor"`

	// PendingStatuses lists lead statuses that still need a first response.
	// The empty string stands for a lead without status.
	// Default: "", new, pending.
	PendingStatuses []string `koanf:"pending_statuses" json:"pending_statuses"`

	// RoutineTasks are appended to every task list.
	RoutineTasks []RoutineTask `koanf:"routine_tasks" json:"routine_tasks"`
}

// DefaultConfig returns the production task rules.
func DefaultConfig() *Config {
	return &Config{
		LeadWindow:      90 * 24 * time.Hour,
		MaxPendingLeads: 20,
		MaxFollowUps:    10,
		AgeThresholds: []AgeThreshold{
			{Days: 45, Priority: 75},
			{Days: 60, Priority: 85},
			{Days: 90, Priority: 95},
		},
		MissingDataPriority: 80,
		UpsellFactor:        1.2,
		PendingStatuses:     []string{"", "new", "pending"},
		RoutineTasks: []RoutineTask{
			{Title: "Check tracking pixels", Detail: "Verify daily conversion and page_view events.", Priority: 20},
			{Title: "Update blog and SEO", Detail: "Publish content on trending colors and cities.", Priority: 25},
		},
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.LeadWindow <= 0 {
		return fmt.Errorf("priority.lead_window must be positive, got %s", c.LeadWindow)
	}
	if c.MaxPendingLeads < 0 {
		return fmt.Errorf("priority.max_pending_leads must not be negative, got %d", c.MaxPendingLeads)
	}
	if c.MaxFollowUps < 0 {
		return fmt.Errorf("priority.max_follow_ups must not be negative, got %d", c.MaxFollowUps)
	}
	for i, th := range c.AgeThresholds {
		if th.Days < 0 || th.Priority < 0 || th.Priority > 100 {
			return fmt.Errorf("priority.age_thresholds[%d] is invalid: %+v", i, th)
		}
	}
	if c.MissingDataPriority < 0 || c.MissingDataPriority > 100 {
		return fmt.Errorf("priority.missing_data_priority must be in [0, 100], got %d", c.MissingDataPriority)
	}
	if c.UpsellFactor <= 0 {
		return fmt.Errorf("priority.upsell_factor must be positive, got %v", c.UpsellFactor)
	}
	for i, rt := range c.RoutineTasks {
		if rt.Title == "" {
			return fmt.Errorf("priority.routine_tasks[%d] has no title", i)
		}
		if rt.Priority < 0 || rt.Priority > 100 {
			return fmt.Errorf("priority.routine_tasks[%d] priority must be in [0, 100], got %d", i, rt.Priority)
		}
	}
	return nil
}
