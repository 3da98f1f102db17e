// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package catalog

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Row is an untyped record as returned by a store or an import file.
type Row map[string]any

// Field name synonyms accepted for each canonical field, in lookup order.
var (
	itemIDKeys      = []string{"id", "item_id", "puppy_id"}
	itemRefKeys     = []string{"ref", "slug", "page_slug"}
	itemNameKeys    = []string{"name", "nome", "title"}
	createdKeys     = []string{"created_at", "createdAt", "criado_em"}
	birthKeys       = []string{"birth_date", "birthDate", "data_nascimento", "nascimento"}
	statusKeys      = []string{"status", "situacao"}
	priceKeys       = []string{"price_cents", "preco_cents", "priceCents", "price"}
	colorKeys       = []string{"color", "cor"}
	sexKeys         = []string{"sex", "gender", "sexo"}
	cityKeys        = []string{"city", "cidade"}
	stateKeys       = []string{"state", "estado", "uf"}
	photoCountKeys  = []string{"photo_count", "photos"}
	mediaKeys       = []string{"media", "midia", "images"}
	leadIDKeys      = []string{"id", "lead_id"}
	leadRefKeys     = []string{"item_ref", "page_slug", "slug", "puppy_slug"}
	leadStatusKeys  = []string{"status", "situacao"}
	leadColorKeys   = []string{"preferred_color", "cor_preferida", "color"}
	leadSexKeys     = []string{"preferred_sex", "sexo_preferido", "sex"}
	itemStatusAlias = map[string]Status{
		"available":    StatusAvailable,
		"disponivel":   StatusAvailable,
		"disponível":   StatusAvailable,
		"reserved":     StatusReserved,
		"reservado":    StatusReserved,
		"sold":         StatusSold,
		"vendido":      StatusSold,
		"pending":      StatusPending,
		"pendente":     StatusPending,
		"coming_soon":  StatusPending,
		"em_breve":     StatusPending,
		"embreve":      StatusPending,
		"em-breve":     StatusPending,
		"unavailable":  StatusUnavailable,
		"indisponivel": StatusUnavailable,
		"indisponível": StatusUnavailable,
		"arquivado":    StatusUnavailable,
	}
	leadStatusAlias = map[string]LeadStatus{
		"":           LeadNone,
		"new":        LeadNew,
		"novo":       LeadNew,
		"pending":    LeadPending,
		"pendente":   LeadPending,
		"contacted":  LeadContact,
		"em_contato": LeadContact,
		"closed":     LeadClosed,
		"fechado":    LeadClosed,
		"won":        LeadClosed,
		"lost":       LeadLost,
		"perdido":    LeadLost,
	}
)

// timeLayouts are tried in order when a timestamp arrives as a string.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NormalizeItem maps a raw row onto an Item. Only the id is required; every
// other field falls back to a documented default (status available, price 0,
// unknown creation time).
func NormalizeItem(row Row) (Item, error) {
	id := firstString(row, itemIDKeys)
	if id == "" {
		return Item{}, fmt.Errorf("%w: item row has no id", ErrInvalidRow)
	}

	item := Item{
		ID:        id,
		Ref:       NormalizeRef(firstString(row, itemRefKeys)),
		Name:      firstString(row, itemNameKeys),
		CreatedAt: firstTime(row, createdKeys),
		BirthDate: firstTime(row, birthKeys),
		Status:    ParseStatus(firstString(row, statusKeys)),
		Attributes: Attributes{
			Color: firstString(row, colorKeys),
			Sex:   firstString(row, sexKeys),
			City:  firstString(row, cityKeys),
			State: firstString(row, stateKeys),
		},
	}
	if item.Ref == "" {
		item.Ref = item.ID
	}

	if price, ok := firstInt(row, priceKeys); ok && price > 0 {
		item.PriceCents = price
	}

	if n, ok := firstInt(row, photoCountKeys); ok && n > 0 {
		item.PhotoCount = int(n)
	} else {
		item.PhotoCount = mediaCount(row)
	}

	return item, nil
}

// NormalizeLead maps a raw row onto a Lead. Only the id is required. A lead
// with no status, or a status that is not recognized, keeps LeadNone so it is
// treated as awaiting a response.
func NormalizeLead(row Row) (Lead, error) {
	id := firstString(row, leadIDKeys)
	if id == "" {
		return Lead{}, fmt.Errorf("%w: lead row has no id", ErrInvalidRow)
	}

	return Lead{
		ID:             id,
		ItemRef:        NormalizeRef(firstString(row, leadRefKeys)),
		CreatedAt:      firstTime(row, createdKeys),
		Status:         ParseLeadStatus(firstString(row, leadStatusKeys)),
		PreferredColor: firstString(row, leadColorKeys),
		PreferredSex:   firstString(row, leadSexKeys),
	}, nil
}

// ParseStatus maps a status string, including legacy aliases, onto a Status.
// A missing status defaults to available. Any other unrecognized value maps
// to unavailable so it is never ranked.
func ParseStatus(s string) Status {
	if strings.TrimSpace(s) == "" {
		return StatusAvailable
	}
	if st, ok := LookupStatus(s); ok {
		return st
	}
	return StatusUnavailable
}

// StatusSpellings returns every raw spelling that normalizes to st, sorted.
// Store queries use it to match rows written with legacy values.
func StatusSpellings(st Status) []string {
	out := []string{}
	for raw, mapped := range itemStatusAlias {
		if mapped == st {
			out = append(out, raw)
		}
	}
	sort.Strings(out)
	return out
}

// LookupStatus maps a status string or synonym onto a Status and reports
// whether it was recognized.
func LookupStatus(s string) (Status, bool) {
	st, ok := itemStatusAlias[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// ParseLeadStatus maps a lead status string onto a LeadStatus.
func ParseLeadStatus(s string) LeadStatus {
	if st, ok := leadStatusAlias[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st
	}
	return LeadNone
}

// NormalizeRef trims whitespace and the leading slash from a reference key.
func NormalizeRef(ref string) string {
	return strings.TrimPrefix(strings.TrimSpace(ref), "/")
}

// String returns the first non-nil value among keys as trimmed text.
func (r Row) String(keys ...string) string {
	return firstString(r, keys)
}

// Int returns the first non-nil value among keys as an integer, rounding floats.
func (r Row) Int(keys ...string) (int64, bool) {
	return firstInt(r, keys)
}

// Float returns the first non-nil value among keys as a float.
func (r Row) Float(keys ...string) (float64, bool) {
	v, ok := firstValue(r, keys)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	default:
		n, ok := firstInt(r, keys)
		return float64(n), ok
	}
}

// Time returns the first non-nil value among keys as a UTC time. Unparseable
// values yield the zero time.
func (r Row) Time(keys ...string) time.Time {
	return firstTime(r, keys)
}

func firstValue(row Row, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := row[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func firstString(row Row, keys []string) string {
	v, ok := firstValue(row, keys)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []byte:
		return strings.TrimSpace(string(t))
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

func firstInt(row Row, keys []string) (int64, bool) {
	v, ok := firstValue(row, keys)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case float32:
		return int64(math.Round(float64(t))), true
	case float64:
		return int64(math.Round(t)), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		return int64(math.Round(f)), true
	default:
		return 0, false
	}
}

func firstTime(row Row, keys []string) time.Time {
	v, ok := firstValue(row, keys)
	if !ok {
		return time.Time{}
	}
	switch t := v.(type) {
	case time.Time:
		return t.UTC()
	case *time.Time:
		if t == nil {
			return time.Time{}
		}
		return t.UTC()
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed.UTC()
			}
		}
	}
	return time.Time{}
}

func mediaCount(row Row) int {
	v, ok := firstValue(row, mediaKeys)
	if !ok {
		return 0
	}
	switch t := v.(type) {
	case []any:
		return len(t)
	case []string:
		return len(t)
	case []map[string]any:
		return len(t)
	default:
		return 0
	}
}
