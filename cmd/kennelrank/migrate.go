// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/kennelrank/internal/logging"
	"github.com/tomtom215/kennelrank/internal/store"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the catalog and result tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			// Open applies the idempotent schema.
			s, err := store.Open(ctx, cfg.Database, logging.WithComponent("store"))
			if err != nil {
				return err
			}
			defer s.Close()

			logging.Info().Str("driver", cfg.Database.Driver).Msg("Schema is up to date")
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema ready (%s %s)\n", cfg.Database.Driver, cfg.Database.Path)
			return err
		},
	}
}
