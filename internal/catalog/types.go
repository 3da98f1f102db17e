// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

// Package catalog defines the canonical item, lead and result types shared by
// the scoring engines, along with the normalization boundary that turns raw
// store rows into those types.
//
// Scoring code never touches untyped rows. Every store adapter maps its rows
// through NormalizeItem and NormalizeLead before handing them to the engines.
package catalog

import (
	"time"
)

// Status is the sale status of a catalog item.
type Status string

const (
	// StatusAvailable means the item is listed and can be sold.
	StatusAvailable Status = "available"

	// StatusReserved means a buyer has a hold on the item.
	StatusReserved Status = "reserved"

	// StatusSold means the item reached its terminal sale outcome.
	StatusSold Status = "sold"

	// StatusPending means the item is announced but not yet on sale.
	StatusPending Status = "pending"

	// StatusUnavailable means the item is withdrawn. Unrecognized raw
	// statuses also normalize here so they never reach the ranked set.
	StatusUnavailable Status = "unavailable"
)

// ActiveStatuses are the statuses that take part in ranking.
var ActiveStatuses = []Status{StatusAvailable, StatusReserved}

// IsActive reports whether the status takes part in ranking.
func (s Status) IsActive() bool {
	return s == StatusAvailable || s == StatusReserved
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusSold, StatusPending, StatusUnavailable:
		return true
	default:
		return false
	}
}

// String implements fmt.Stringer.
func (s Status) String() string {
	return string(s)
}

// Flag is the categorical demand bucket derived from a score.
type Flag string

const (
	FlagHot    Flag = "hot"
	FlagNormal Flag = "normal"
	FlagSlow   Flag = "slow"
)

// String implements fmt.Stringer.
func (f Flag) String() string {
	return string(f)
}

// Alert classifies the current price against the recommended band.
type Alert string

const (
	AlertAbove   Alert = "above"
	AlertBelow   Alert = "below"
	AlertInRange Alert = "inRange"
)

// String implements fmt.Stringer.
func (a Alert) String() string {
	return string(a)
}

// TaskType is the category of an operator task.
type TaskType string

const (
	TaskLead    TaskType = "lead"
	TaskItem    TaskType = "item"
	TaskUpsell  TaskType = "upsell"
	TaskRoutine TaskType = "routine"
)

// String implements fmt.Stringer.
func (t TaskType) String() string {
	return string(t)
}

// Attributes holds the categorical attributes of an item.
type Attributes struct {
	Color string `json:"color,omitempty"`
	Sex   string `json:"sex,omitempty"`
	City  string `json:"city,omitempty"`
	State string `json:"state,omitempty"`
}

// Item is a catalog-listed unit. It is owned by the external catalog store
// and is read-only to the engines.
type Item struct {
	// ID is the stable item identifier used as the result primary key.
	ID string `json:"id"`

	// Ref is the reference key leads use to point at the item (usually the slug).
	Ref string `json:"ref"`

	// Name is the display name, used in operator task titles.
	Name string `json:"name,omitempty"`

	// CreatedAt is when the item was listed. Zero means unknown.
	CreatedAt time.Time `json:"created_at"`

	// BirthDate drives the pricing age. Zero falls back to CreatedAt.
	BirthDate time.Time `json:"birth_date,omitempty"`

	// Status is the sale status. Defaults to available.
	Status Status `json:"status"`

	// PriceCents is the current price in minor currency units. Zero means unpriced.
	PriceCents int64 `json:"price_cents"`

	// Attributes are the categorical attributes (color, sex, location).
	Attributes Attributes `json:"attributes"`

	// PhotoCount is the number of media entries attached to the item.
	PhotoCount int `json:"photo_count"`
}

// Label returns the most human-friendly identifier of the item.
func (i *Item) Label() string {
	switch {
	case i.Name != "":
		return i.Name
	case i.Ref != "":
		return i.Ref
	default:
		return i.ID
	}
}

// Lead is a prospective buyer's inquiry.
type Lead struct {
	ID string `json:"id"`

	// ItemRef points at Item.Ref. Empty when the lead is not tied to an item.
	ItemRef string `json:"item_ref,omitempty"`

	CreatedAt time.Time `json:"created_at"`

	// Status is the CRM status. Empty means the lead has no status yet.
	Status LeadStatus `json:"status,omitempty"`

	PreferredColor string `json:"preferred_color,omitempty"`
	PreferredSex   string `json:"preferred_sex,omitempty"`
}

// LeadStatus is the CRM status of a lead.
type LeadStatus string

const (
	LeadNone    LeadStatus = ""
	LeadNew     LeadStatus = "new"
	LeadPending LeadStatus = "pending"
	LeadContact LeadStatus = "contacted"
	LeadClosed  LeadStatus = "closed"
	LeadLost    LeadStatus = "lost"
)

// ScoreResult is the persisted ranking row for one active item.
type ScoreResult struct {
	ItemID     string    `json:"item_id"`
	Score      int       `json:"score"`
	Flag       Flag      `json:"flag"`
	Reason     string    `json:"reason"`
	RankOrder  int       `json:"rank_order"`
	ComputedAt time.Time `json:"computed_at"`
}

// PricingFeatures records the inputs a pricing result was computed from.
type PricingFeatures struct {
	BasePriceCents  int64   `json:"base_price_cents"`
	AgeMonths       float64 `json:"age_months"`
	RareAttribute   bool    `json:"rare_attribute"`
	InterestedLeads int     `json:"interested_leads"`
	ClosedLeads     int     `json:"closed_leads"`
	ConversionRate  float64 `json:"conversion_rate"`
	Month           int     `json:"month"`
}

// PricingResult is the persisted pricing row for one item.
type PricingResult struct {
	ItemID          string          `json:"item_id"`
	PriceMin        int64           `json:"price_min_cents"`
	PriceIdeal      int64           `json:"price_ideal_cents"`
	PriceMax        int64           `json:"price_max_cents"`
	SaleProbability float64         `json:"sale_probability"`
	Alert           Alert           `json:"alert"`
	AlertMessage    string          `json:"alert_message"`
	Reasoning       string          `json:"reasoning"`
	Features        PricingFeatures `json:"features"`
	ComputedAt      time.Time       `json:"computed_at"`
}

// PriorityTask is an ephemeral operator action. It is never persisted.
type PriorityTask struct {
	Title    string   `json:"title"`
	Detail   string   `json:"detail"`
	Priority int      `json:"priority"`
	Type     TaskType `json:"type"`
}
