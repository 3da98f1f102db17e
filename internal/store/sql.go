// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/kennelrank/internal/catalog"
	"github.com/tomtom215/kennelrank/internal/metrics"
	"github.com/tomtom215/kennelrank/internal/pricing"
	"github.com/tomtom215/kennelrank/internal/signals"
)

// Table names.
const (
	tableItems   = "items"
	tableLeads   = "leads"
	tableRanking = "catalog_ranking"
	tablePricing = "item_pricing"
)

// No secondary indexes: DuckDB rejects ON CONFLICT DO UPDATE on indexed columns.
var schema = []struct {
	name string
	ddl  string
}{
	{tableItems, `
		CREATE TABLE IF NOT EXISTS items (
			id VARCHAR PRIMARY KEY,
			ref VARCHAR NOT NULL,
			name VARCHAR,
			created_at TIMESTAMP,
			birth_date TIMESTAMP,
			status VARCHAR NOT NULL DEFAULT 'available',
			price_cents BIGINT NOT NULL DEFAULT 0,
			color VARCHAR,
			sex VARCHAR,
			city VARCHAR,
			state VARCHAR,
			photo_count INTEGER NOT NULL DEFAULT 0
		)`},
	{tableLeads, `
		CREATE TABLE IF NOT EXISTS leads (
			id VARCHAR PRIMARY KEY,
			item_ref VARCHAR,
			created_at TIMESTAMP,
			status VARCHAR,
			preferred_color VARCHAR,
			preferred_sex VARCHAR
		)`},
	{tableRanking, `
		CREATE TABLE IF NOT EXISTS catalog_ranking (
			item_id VARCHAR PRIMARY KEY,
			score INTEGER NOT NULL,
			flag VARCHAR NOT NULL,
			reason VARCHAR,
			rank_order INTEGER NOT NULL,
			computed_at TIMESTAMP NOT NULL
		)`},
	{tablePricing, `
		CREATE TABLE IF NOT EXISTS item_pricing (
			item_id VARCHAR PRIMARY KEY,
			price_min BIGINT NOT NULL,
			price_ideal BIGINT NOT NULL,
			price_max BIGINT NOT NULL,
			sale_probability DOUBLE NOT NULL,
			alert VARCHAR NOT NULL,
			alert_message VARCHAR,
			reasoning VARCHAR,
			features VARCHAR,
			computed_at TIMESTAMP NOT NULL
		)`},
}

var itemColumns = []string{
	"i.id", "i.ref", "i.name", "i.created_at", "i.birth_date", "i.status",
	"i.price_cents", "i.color", "i.sex", "i.city", "i.state", "i.photo_count",
}

var leadColumns = []string{"id", "item_ref", "created_at", "status", "preferred_color", "preferred_sex"}

// SQLStore implements Store over database/sql. The schema and queries stay
// within the dialect DuckDB and SQLite share.
type SQLStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewSQLStore creates a store over an open database.
func NewSQLStore(db *sql.DB, logger zerolog.Logger) *SQLStore {
	return &SQLStore{db: db, logger: logger.With().Str("component", "store").Logger()}
}

// DB returns the underlying database handle.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

// Close closes the database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// InitSchema creates the catalog and result tables.
func (s *SQLStore) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt.ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", stmt.name, err)
		}
	}
	return nil
}

// UpsertItem writes an item, replacing any existing row with the same id.
func (s *SQLStore) UpsertItem(ctx context.Context, item *catalog.Item) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO items (id, ref, name, created_at, birth_date, status, price_cents, color, sex, city, state, photo_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			ref = EXCLUDED.ref,
			name = EXCLUDED.name,
			created_at = EXCLUDED.created_at,
			birth_date = EXCLUDED.birth_date,
			status = EXCLUDED.status,
			price_cents = EXCLUDED.price_cents,
			color = EXCLUDED.color,
			sex = EXCLUDED.sex,
			city = EXCLUDED.city,
			state = EXCLUDED.state,
			photo_count = EXCLUDED.photo_count
	`, item.ID, item.Ref, item.Name, nullTime(item.CreatedAt), nullTime(item.BirthDate), string(item.Status),
		item.PriceCents, item.Attributes.Color, item.Attributes.Sex, item.Attributes.City, item.Attributes.State,
		item.PhotoCount)
	metrics.RecordDBQuery("upsert", tableItems, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert item %s: %w", item.ID, err)
	}
	return nil
}

// UpsertLead writes a lead, replacing any existing row with the same id.
func (s *SQLStore) UpsertLead(ctx context.Context, lead *catalog.Lead) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leads (id, item_ref, created_at, status, preferred_color, preferred_sex)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			item_ref = EXCLUDED.item_ref,
			created_at = EXCLUDED.created_at,
			status = EXCLUDED.status,
			preferred_color = EXCLUDED.preferred_color,
			preferred_sex = EXCLUDED.preferred_sex
	`, lead.ID, lead.ItemRef, nullTime(lead.CreatedAt), string(lead.Status), lead.PreferredColor, lead.PreferredSex)
	metrics.RecordDBQuery("upsert", tableLeads, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert lead %s: %w", lead.ID, err)
	}
	return nil
}

// ListItems returns items in the given statuses, or every item when none are given.
// Rows go through catalog.NormalizeItem; rows without an id are skipped.
func (s *SQLStore) ListItems(ctx context.Context, statuses ...catalog.Status) ([]catalog.Item, error) {
	start := time.Now()
	query, args, err := sq.Select(itemColumns...).From(tableItems + " i").OrderBy("i.id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build items query: %w", err)
	}

	rows, err := s.queryRows(ctx, query, args...)
	metrics.RecordDBQuery("select", tableItems, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query items: %w", err)
	}

	items := make([]catalog.Item, 0, len(rows))
	for _, row := range rows {
		item, err := catalog.NormalizeItem(row)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Skipping item row")
			continue
		}
		if len(statuses) > 0 && !slices.Contains(statuses, item.Status) {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// GetItem returns one item or catalog.ErrNotFound.
func (s *SQLStore) GetItem(ctx context.Context, id string) (*catalog.Item, error) {
	start := time.Now()
	query, args, err := sq.Select(itemColumns...).From(tableItems + " i").Where(sq.Eq{"i.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build item query: %w", err)
	}

	rows, err := s.queryRows(ctx, query, args...)
	metrics.RecordDBQuery("select", tableItems, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query item %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", catalog.ErrNotFound, id)
	}

	item, err := catalog.NormalizeItem(rows[0])
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// CountLeadsByRef groups leads created at or after since by item ref.
func (s *SQLStore) CountLeadsByRef(ctx context.Context, since time.Time) (map[string]int, error) {
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, `
		SELECT item_ref, COUNT(*) AS n
		FROM leads
		WHERE created_at >= ? AND item_ref IS NOT NULL AND item_ref <> ''
		GROUP BY item_ref
	`, since.UTC())
	metrics.RecordDBQuery("count", tableLeads, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to count leads: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var ref string
		var n int64
		if err := rows.Scan(&ref, &n); err != nil {
			return nil, fmt.Errorf("failed to scan lead count: %w", err)
		}
		counts[catalog.NormalizeRef(ref)] += int(n)
	}
	return counts, rows.Err()
}

// ListLeads returns leads created at or after since, most recent first.
func (s *SQLStore) ListLeads(ctx context.Context, since time.Time, limit int) ([]catalog.Lead, error) {
	b := sq.Select(leadColumns...).From(tableLeads).
		Where(sq.GtOrEq{"created_at": since.UTC()}).
		OrderBy("created_at DESC", "id")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return s.listLeads(ctx, b)
}

// ListLeadsForItem returns the leads pointing at an item ref, including refs
// carrying the legacy page prefix.
func (s *SQLStore) ListLeadsForItem(ctx context.Context, ref string, limit int) ([]catalog.Lead, error) {
	ref = catalog.NormalizeRef(ref)
	b := sq.Select(leadColumns...).From(tableLeads).
		Where(sq.Eq{"item_ref": []string{ref, "/" + ref, signals.RefPrefix + ref, "/" + signals.RefPrefix + ref}}).
		OrderBy("created_at DESC", "id")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}
	return s.listLeads(ctx, b)
}

func (s *SQLStore) listLeads(ctx context.Context, b sq.SelectBuilder) ([]catalog.Lead, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build leads query: %w", err)
	}

	start := time.Now()
	rows, err := s.queryRows(ctx, query, args...)
	metrics.RecordDBQuery("select", tableLeads, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query leads: %w", err)
	}

	leads := make([]catalog.Lead, 0, len(rows))
	for _, row := range rows {
		lead, err := catalog.NormalizeLead(row)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Skipping lead row")
			continue
		}
		leads = append(leads, lead)
	}
	return leads, nil
}

// UpsertScore replaces the ranking row of an item.
func (s *SQLStore) UpsertScore(ctx context.Context, r catalog.ScoreResult) error {
	start := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO catalog_ranking (item_id, score, flag, reason, rank_order, computed_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (item_id) DO UPDATE SET
			score = EXCLUDED.score,
			flag = EXCLUDED.flag,
			reason = EXCLUDED.reason,
			rank_order = EXCLUDED.rank_order,
			computed_at = EXCLUDED.computed_at
	`, r.ItemID, r.Score, string(r.Flag), r.Reason, r.RankOrder, r.ComputedAt.UTC())
	metrics.RecordDBQuery("upsert", tableRanking, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert score for %s: %w", r.ItemID, err)
	}
	return nil
}

// UpsertPricing replaces the pricing row of an item.
func (s *SQLStore) UpsertPricing(ctx context.Context, r catalog.PricingResult) error {
	features, err := json.Marshal(r.Features)
	if err != nil {
		return fmt.Errorf("failed to encode pricing features for %s: %w", r.ItemID, err)
	}

	start := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO item_pricing (item_id, price_min, price_ideal, price_max, sale_probability, alert, alert_message, reasoning, features, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (item_id) DO UPDATE SET
			price_min = EXCLUDED.price_min,
			price_ideal = EXCLUDED.price_ideal,
			price_max = EXCLUDED.price_max,
			sale_probability = EXCLUDED.sale_probability,
			alert = EXCLUDED.alert,
			alert_message = EXCLUDED.alert_message,
			reasoning = EXCLUDED.reasoning,
			features = EXCLUDED.features,
			computed_at = EXCLUDED.computed_at
	`, r.ItemID, r.PriceMin, r.PriceIdeal, r.PriceMax, r.SaleProbability, string(r.Alert), r.AlertMessage,
		r.Reasoning, string(features), r.ComputedAt.UTC())
	metrics.RecordDBQuery("upsert", tablePricing, time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to upsert pricing for %s: %w", r.ItemID, err)
	}
	return nil
}

// GetPricing returns the pricing row of an item or catalog.ErrNotFound.
func (s *SQLStore) GetPricing(ctx context.Context, itemID string) (*catalog.PricingResult, error) {
	start := time.Now()
	row := s.db.QueryRowContext(ctx, `
		SELECT item_id, price_min, price_ideal, price_max, sale_probability, alert,
			alert_message, reasoning, features, computed_at
		FROM item_pricing
		WHERE item_id = ?
	`, itemID)

	var (
		r                            catalog.PricingResult
		alert                        string
		message, reasoning, features sql.NullString
	)
	err := row.Scan(&r.ItemID, &r.PriceMin, &r.PriceIdeal, &r.PriceMax, &r.SaleProbability, &alert,
		&message, &reasoning, &features, &r.ComputedAt)
	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("select", tablePricing, time.Since(start), nil)
		return nil, fmt.Errorf("%w: no pricing for %s", catalog.ErrNotFound, itemID)
	}
	metrics.RecordDBQuery("select", tablePricing, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to get pricing for %s: %w", itemID, err)
	}

	r.Alert = catalog.Alert(alert)
	r.AlertMessage = message.String
	r.Reasoning = reasoning.String
	r.ComputedAt = r.ComputedAt.UTC()
	if features.Valid && features.String != "" {
		if err := json.Unmarshal([]byte(features.String), &r.Features); err != nil {
			s.logger.Warn().Err(err).Str("item_id", itemID).Msg("Ignoring unreadable pricing features")
		}
	}
	return &r, nil
}

// ListRanked returns ranking rows joined with their active items, ordered by
// rank. The current price is re-classified against the persisted pricing
// band when one exists.
func (s *SQLStore) ListRanked(ctx context.Context, f RankedFilter) ([]RankedItem, error) {
	statuses := f.Statuses()
	if len(statuses) == 0 {
		return []RankedItem{}, nil
	}
	// Rows written by other tools may carry legacy spellings.
	statusValues := []string{}
	for _, st := range statuses {
		statusValues = append(statusValues, catalog.StatusSpellings(st)...)
	}

	cols := append([]string{
		"r.item_id", "r.score", "r.flag", "r.reason", "r.rank_order", "r.computed_at",
		"p.price_min", "p.price_max",
	}, itemColumns...)

	b := sq.Select(cols...).
		From(tableRanking + " r").
		Join(tableItems + " i ON i.id = r.item_id").
		LeftJoin(tablePricing + " p ON p.item_id = r.item_id").
		Where(sq.Eq{"LOWER(TRIM(i.status))": statusValues})
	for _, attr := range [][2]string{{"i.color", f.Color}, {"i.sex", f.Sex}, {"i.city", f.City}, {"i.state", f.State}} {
		if v := strings.TrimSpace(attr[1]); v != "" {
			b = b.Where(sq.Expr("LOWER("+attr[0]+") = LOWER(?)", v))
		}
	}
	b = b.OrderBy("r.rank_order ASC", "r.item_id ASC").Limit(uint64(f.EffectiveLimit()))

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build ranked query: %w", err)
	}

	start := time.Now()
	rows, err := s.queryRows(ctx, query, args...)
	metrics.RecordDBQuery("select", tableRanking, time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranked items: %w", err)
	}

	out := make([]RankedItem, 0, len(rows))
	for _, row := range rows {
		item, err := catalog.NormalizeItem(row)
		if err != nil {
			s.logger.Warn().Err(err).Msg("Skipping ranked row")
			continue
		}
		if !item.Status.IsActive() {
			continue
		}

		score, _ := row.Int("score")
		rank, _ := row.Int("rank_order")
		ri := RankedItem{
			ScoreResult: catalog.ScoreResult{
				ItemID:     row.String("item_id"),
				Score:      int(score),
				Flag:       catalog.Flag(row.String("flag")),
				Reason:     row.String("reason"),
				RankOrder:  int(rank),
				ComputedAt: row.Time("computed_at"),
			},
			Item: item,
		}
		minPrice, hasMin := row.Int("price_min")
		maxPrice, hasMax := row.Int("price_max")
		if hasMin && hasMax && item.PriceCents > 0 {
			ri.PriceAlert = pricing.Classify(item.PriceCents, minPrice, maxPrice)
		}
		out = append(out, ri)
	}
	return out, nil
}

// queryRows runs a query and returns every row keyed by column name.
func (s *SQLStore) queryRows(ctx context.Context, query string, args ...any) ([]catalog.Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out []catalog.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(catalog.Row, len(cols))
		for i, col := range cols {
			// Drivers disagree on whether a qualified column keeps its prefix.
			if dot := strings.LastIndexByte(col, '.'); dot >= 0 {
				col = col[dot+1:]
			}
			row[col] = values[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}
