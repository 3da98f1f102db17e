// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package catalog

import "errors"

var (
	// ErrNotFound is returned when a requested item does not exist in the store.
	ErrNotFound = errors.New("item not found")

	// ErrInvalidRow is returned when a store row lacks a required field.
	ErrInvalidRow = errors.New("invalid row")
)
