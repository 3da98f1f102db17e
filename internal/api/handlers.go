// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/kennelrank/internal/catalog"
	"github.com/tomtom215/kennelrank/internal/logging"
	"github.com/tomtom215/kennelrank/internal/models"
	"github.com/tomtom215/kennelrank/internal/recompute"
	"github.com/tomtom215/kennelrank/internal/store"
)

// Engine is the recompute surface the handlers drive.
type Engine interface {
	GetRankedItems(ctx context.Context, f store.RankedFilter) []store.RankedItem
	GetPriorityTasks(ctx context.Context) []catalog.PriorityTask
	RecomputeCatalogRanking(ctx context.Context, opts recompute.RankingOptions) (recompute.CycleResult, error)
	RecomputePricing(ctx context.Context, itemID string) (catalog.PricingResult, error)
	RecomputePricingBulk(ctx context.Context) (map[string]recompute.PricingOutcome, error)
	RecomputeAll(ctx context.Context) (recompute.CycleReport, error)
	Running() int
}

// Pinger reports database reachability for /health.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handler serves the catalog API.
type Handler struct {
	engine  Engine
	results store.ResultReader
	db      Pinger

	// recomputeTimeout bounds manual cycles, which outlive the request so a
	// disconnecting client cannot leave a half-written ranking.
	recomputeTimeout time.Duration

	version   string
	startTime time.Time
}

// HandlerOptions carries optional Handler settings.
type HandlerOptions struct {
	DB               Pinger
	RecomputeTimeout time.Duration
	Version          string
}

// NewHandler creates the API handler.
func NewHandler(engine Engine, results store.ResultReader, opts HandlerOptions) *Handler {
	if opts.RecomputeTimeout <= 0 {
		opts.RecomputeTimeout = 5 * time.Minute
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	return &Handler{
		engine:           engine,
		results:          results,
		db:               opts.DB,
		recomputeTimeout: opts.RecomputeTimeout,
		version:          opts.Version,
		startTime:        time.Now(),
	}
}

// Health reports liveness and database reachability. It answers 200 even
// when the database is down so that orchestrators keep serving cached reads.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	resp := models.HealthResponse{
		Status:          "healthy",
		Version:         h.version,
		UptimeSeconds:   time.Since(h.startTime).Seconds(),
		RunningCycles:   h.engine.Running(),
		DatabaseHealthy: true,
	}
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.PingContext(ctx); err != nil {
			logging.CtxWarn(r.Context()).Err(err).Msg("Database ping failed")
			resp.Status = "degraded"
			resp.DatabaseHealthy = false
		}
	}
	respondData(w, r, resp, 0, start)
}

// RankedItems serves GET /catalog/ranked.
func (h *Handler) RankedItems(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, apiErr := parseRankedRequest(r)
	if apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}
	items := h.engine.GetRankedItems(r.Context(), req.Filter())
	respondData(w, r, items, len(items), start)
}

// PriorityTasks serves GET /catalog/tasks.
func (h *Handler) PriorityTasks(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	tasks := h.engine.GetPriorityTasks(r.Context())
	respondData(w, r, tasks, len(tasks), start)
}

// Pricing serves GET /catalog/pricing/{itemID}.
func (h *Handler) Pricing(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}
	res, err := h.results.GetPricing(r.Context(), itemID)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "No pricing for item "+itemID, nil)
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, ErrCodeDatabase, "Failed to read pricing", err)
	default:
		respondData(w, r, res, 1, start)
	}
}

// RecomputeRanking serves POST /catalog/recompute/ranking.
func (h *Handler) RecomputeRanking(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req, apiErr := parseRankingRequest(r)
	if apiErr != nil {
		respondAPIError(w, r, http.StatusBadRequest, apiErr)
		return
	}

	ctx, cancel := h.cycleContext(r)
	defer cancel()

	res, err := h.engine.RecomputeCatalogRanking(ctx, req.Options())
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeRecomputeFailed, "Ranking recompute failed", err)
		return
	}
	respondData(w, r, res, res.Written, start)
}

// RecomputePricingItem serves POST /catalog/recompute/pricing/{itemID}.
func (h *Handler) RecomputePricingItem(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := h.cycleContext(r)
	defer cancel()

	res, err := h.engine.RecomputePricing(ctx, itemID)
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		respondError(w, r, http.StatusNotFound, ErrCodeNotFound, "Item "+itemID+" not found", nil)
	case err != nil:
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeRecomputeFailed, "Pricing recompute failed", err)
	default:
		respondData(w, r, res, 1, start)
	}
}

// RecomputePricingBulk serves POST /catalog/recompute/pricing.
func (h *Handler) RecomputePricingBulk(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := h.cycleContext(r)
	defer cancel()

	outcomes, err := h.engine.RecomputePricingBulk(ctx)
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeRecomputeFailed, "Pricing recompute failed", err)
		return
	}

	resp := models.NewBulkPricingResponse(outcomes)
	respondData(w, r, resp, resp.Priced, start)
}

// RecomputeAll serves POST /catalog/recompute/all.
func (h *Handler) RecomputeAll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, cancel := h.cycleContext(r)
	defer cancel()

	report, err := h.engine.RecomputeAll(ctx)
	if err != nil {
		respondError(w, r, http.StatusServiceUnavailable, ErrCodeRecomputeFailed, "Recompute failed", err)
		return
	}
	respondData(w, r, report, report.Ranking.Written+report.Pricing.Written, start)
}

func (h *Handler) cycleContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(r.Context()), h.recomputeTimeout)
}

func itemIDParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	itemID := strings.TrimSpace(chi.URLParam(r, "itemID"))
	if itemID == "" || len(itemID) > 128 {
		respondError(w, r, http.StatusBadRequest, ErrCodeBadRequest, "Invalid item id", nil)
		return "", false
	}
	return itemID, true
}
