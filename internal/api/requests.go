// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/kennelrank/internal/catalog"
	"github.com/tomtom215/kennelrank/internal/models"
	"github.com/tomtom215/kennelrank/internal/recompute"
	"github.com/tomtom215/kennelrank/internal/store"
	"github.com/tomtom215/kennelrank/internal/validation"
)

// RankedRequest holds the query parameters of GET /catalog/ranked.
type RankedRequest struct {
	Status []string `query:"status" validate:"max=3,dive,catalog_status"`
	Color  string   `query:"color" validate:"attribute"`
	Sex    string   `query:"sex" validate:"attribute"`
	City   string   `query:"city" validate:"attribute"`
	State  string   `query:"state" validate:"attribute"`
	Limit  int      `query:"limit" validate:"min=0,max=500"`
}

// Filter converts the validated request into a store filter.
func (req *RankedRequest) Filter() store.RankedFilter {
	f := store.RankedFilter{
		Color: strings.TrimSpace(req.Color),
		Sex:   strings.TrimSpace(req.Sex),
		City:  strings.TrimSpace(req.City),
		State: strings.TrimSpace(req.State),
		Limit: req.Limit,
	}
	for _, s := range req.Status {
		f.Status = append(f.Status, catalog.ParseStatus(s))
	}
	return f
}

// RankingRequest holds the query parameters of POST /catalog/recompute/ranking.
type RankingRequest struct {
	LookbackDays int `query:"lookback_days" validate:"min=0,max=365"`
}

// Options converts the request into engine options. Zero keeps the
// configured lookback.
func (req *RankingRequest) Options() recompute.RankingOptions {
	return recompute.RankingOptions{LeadLookback: time.Duration(req.LookbackDays) * 24 * time.Hour}
}

func parseRankedRequest(r *http.Request) (*RankedRequest, *models.APIError) {
	q := r.URL.Query()
	req := &RankedRequest{
		Status: parseCommaSeparated(q["status"]),
		Color:  q.Get("color"),
		Sex:    q.Get("sex"),
		City:   q.Get("city"),
		State:  q.Get("state"),
	}

	limit, apiErr := parseIntParam(q.Get("limit"), "limit")
	if apiErr != nil {
		return nil, apiErr
	}
	req.Limit = limit

	if apiErr := validateRequest(req); apiErr != nil {
		return nil, apiErr
	}
	return req, nil
}

func parseRankingRequest(r *http.Request) (*RankingRequest, *models.APIError) {
	days, apiErr := parseIntParam(r.URL.Query().Get("lookback_days"), "lookback_days")
	if apiErr != nil {
		return nil, apiErr
	}
	req := &RankingRequest{LookbackDays: days}
	if apiErr := validateRequest(req); apiErr != nil {
		return nil, apiErr
	}
	return req, nil
}

// validateRequest runs struct validation and converts failures into the
// VALIDATION_ERROR shape.
func validateRequest(v interface{}) *models.APIError {
	verr := validation.ValidateStruct(v)
	if verr == nil {
		return nil
	}
	apiErr := verr.ToAPIError()
	return &models.APIError{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
}

// parseIntParam parses an optional integer parameter. Empty yields 0.
func parseIntParam(value, name string) (int, *models.APIError) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, &models.APIError{
			Code:    ErrCodeValidation,
			Message: name + " must be an integer",
			Details: map[string]interface{}{"field": name, "value": value},
		}
	}
	return n, nil
}

// parseCommaSeparated accepts both repeated parameters and comma lists.
func parseCommaSeparated(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
