// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

// Package models holds the HTTP wire types shared by the API and its clients.
package models

import (
	"time"

	"github.com/tomtom215/kennelrank/internal/catalog"
	"github.com/tomtom215/kennelrank/internal/recompute"
)

// Response status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIResponse is the envelope of every API response.
//
//	{
//	  "status": "success",
//	  "data": [...],
//	  "metadata": {"timestamp": "2026-06-15T12:00:00Z", "query_time_ms": 4, "count": 12}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Count       int       `json:"count,omitempty"`
	RequestID   string    `json:"request_id,omitempty"`
}

// APIError is a machine-readable failure.
//
// Codes: VALIDATION_ERROR, BAD_REQUEST, NOT_FOUND, RECOMPUTE_FAILED,
// DATABASE_ERROR, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// BulkPricingResponse summarizes a bulk pricing run. Errors maps item id
// to failure message for items that could not be priced.
type BulkPricingResponse struct {
	Priced  int                              `json:"priced"`
	Failed  int                              `json:"failed"`
	Results map[string]catalog.PricingResult `json:"results"`
	Errors  map[string]string                `json:"errors,omitempty"`
}

// NewBulkPricingResponse splits bulk outcomes into priced results and
// per-item failures.
func NewBulkPricingResponse(outcomes map[string]recompute.PricingOutcome) BulkPricingResponse {
	resp := BulkPricingResponse{Results: make(map[string]catalog.PricingResult, len(outcomes))}
	for id, o := range outcomes {
		if o.Err != nil || o.Result == nil {
			if resp.Errors == nil {
				resp.Errors = make(map[string]string)
			}
			msg := "not priced"
			if o.Err != nil {
				msg = o.Err.Error()
			}
			resp.Errors[id] = msg
			resp.Failed++
			continue
		}
		resp.Results[id] = *o.Result
		resp.Priced++
	}
	return resp
}

// HealthResponse is returned by /health.
type HealthResponse struct {
	Status          string  `json:"status"`
	Version         string  `json:"version"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
	RunningCycles   int     `json:"running_cycles"`
	DatabaseHealthy bool    `json:"database_healthy"`
}
