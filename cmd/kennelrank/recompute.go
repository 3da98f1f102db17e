// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/kennelrank/internal/models"
	"github.com/tomtom215/kennelrank/internal/recompute"
)

func newRecomputeCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recompute",
		Short: "Run a recompute cycle once and print the result",
	}

	var lookbackDays int
	ranking := &cobra.Command{
		Use:   "ranking",
		Short: "Recompute the catalog ranking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if lookbackDays < 0 || lookbackDays > 365 {
				return fmt.Errorf("--lookback-days must be between 0 and 365")
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				res, err := a.engine.RecomputeCatalogRanking(ctx, recompute.RankingOptions{
					LeadLookback: time.Duration(lookbackDays) * 24 * time.Hour,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	ranking.Flags().IntVar(&lookbackDays, "lookback-days", 0, "demand window in days (0 uses recompute.lead_lookback)")

	pricing := &cobra.Command{
		Use:   "pricing [item-id]",
		Short: "Recompute pricing for one item, or every active item",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				if len(args) == 1 {
					res, err := a.engine.RecomputePricing(ctx, args[0])
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), res)
				}
				outcomes, err := a.engine.RecomputePricingBulk(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), models.NewBulkPricingResponse(outcomes))
			})
		},
	}

	all := &cobra.Command{
		Use:   "all",
		Short: "Recompute ranking and pricing, then count priority tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				report, err := a.engine.RecomputeAll(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}

	cmd.AddCommand(ranking, pricing, all)
	return cmd
}

// withApp loads configuration, opens the app for the duration of fn and
// closes it afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app) error) (err error) {
	cfg, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return fn(ctx, a)
}

func printJSON(w io.Writer, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
