// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	// Database drivers
	_ "github.com/duckdb/duckdb-go/v2"
	_ "modernc.org/sqlite"
)

// Supported SQL drivers.
const (
	DriverDuckDB = "duckdb"
	DriverSQLite = "sqlite"
)

// DatabaseConfig configures the SQL store.
type DatabaseConfig struct {
	// Driver is "duckdb" or "sqlite".
	Driver string `koanf:"driver" json:"driver" validate:"oneof=duckdb sqlite"`

	// Path is the database file. Empty or ":memory:" opens an in-memory database.
	Path string `koanf:"path" json:"path"`

	// Threads caps DuckDB worker threads. Zero leaves the DuckDB default.
	Threads int `koanf:"threads" json:"threads"`

	MaxOpenConns    int           `koanf:"max_open_conns" json:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns" json:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" json:"conn_max_lifetime"`
}

// DefaultDatabaseConfig returns a DuckDB file store.
func DefaultDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		Driver:          DriverDuckDB,
		Path:            "/data/kennelrank.duckdb",
		MaxOpenConns:    4,
		MaxIdleConns:    2,
		ConnMaxLifetime: time.Hour,
	}
}

// InMemory reports whether the configuration opens a throwaway database.
func (c *DatabaseConfig) InMemory() bool {
	return c.Path == "" || c.Path == ":memory:"
}

// OpenSQL opens and pings the configured database.
func OpenSQL(ctx context.Context, cfg DatabaseConfig) (*sql.DB, error) {
	var dsn string
	switch cfg.Driver {
	case DriverDuckDB, "":
		cfg.Driver = DriverDuckDB
		dsn = cfg.Path
		if cfg.InMemory() {
			dsn = ":memory:"
		}
		// Disable auto-install/auto-load to prevent hangs in restricted network environments
		dsn += "?autoinstall_known_extensions=false&autoload_known_extensions=false"
		if cfg.Threads > 0 {
			dsn += fmt.Sprintf("&threads=%d", cfg.Threads)
		}
	case DriverSQLite:
		dsn = cfg.Path
		if cfg.InMemory() {
			dsn = ":memory:"
		}
		dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxOpen := cfg.MaxOpenConns
	// Every SQLite in-memory connection is a separate database.
	if cfg.Driver == DriverSQLite && cfg.InMemory() {
		maxOpen = 1
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// Open opens the configured database, initializes the schema and returns the store.
func Open(ctx context.Context, cfg DatabaseConfig, logger zerolog.Logger) (*SQLStore, error) {
	db, err := OpenSQL(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := NewSQLStore(db, logger)
	if err := s.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	s.logger.Info().Str("driver", cfg.Driver).Str("path", cfg.Path).Msg("Result store opened")
	return s, nil
}
