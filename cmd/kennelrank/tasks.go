// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tomtom215/kennelrank/internal/catalog"
	"github.com/tomtom215/kennelrank/internal/store"
)

func newTasksCmd(opts *rootOptions) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List operator tasks, highest priority first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				tasks := a.engine.GetPriorityTasks(ctx)
				if asJSON {
					return printJSON(cmd.OutOrStdout(), tasks)
				}
				return printTasks(cmd.OutOrStdout(), tasks)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newRankedCmd(opts *rootOptions) *cobra.Command {
	var (
		asJSON   bool
		statuses []string
		filter   store.RankedFilter
	)
	cmd := &cobra.Command{
		Use:   "ranked",
		Short: "List persisted ranking rows with storefront badges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, s := range statuses {
				st, ok := catalog.LookupStatus(s)
				if !ok {
					return fmt.Errorf("unknown status %q", s)
				}
				filter.Status = append(filter.Status, st)
			}
			if filter.Limit < 0 || filter.Limit > store.MaxRankedLimit {
				return fmt.Errorf("--limit must be between 0 and %d", store.MaxRankedLimit)
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				items := a.engine.GetRankedItems(ctx, filter)
				if asJSON {
					return printJSON(cmd.OutOrStdout(), items)
				}
				return printRanked(cmd.OutOrStdout(), items)
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	cmd.Flags().StringSliceVar(&statuses, "status", nil, "restrict to statuses (available, reserved)")
	cmd.Flags().StringVar(&filter.Color, "color", "", "filter by color")
	cmd.Flags().StringVar(&filter.Sex, "sex", "", "filter by sex")
	cmd.Flags().StringVar(&filter.City, "city", "", "filter by city")
	cmd.Flags().StringVar(&filter.State, "state", "", "filter by state")
	cmd.Flags().IntVar(&filter.Limit, "limit", 0, "maximum rows (0 uses the default)")
	return cmd
}

func printTasks(w io.Writer, tasks []catalog.PriorityTask) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRIORITY\tTYPE\tTITLE\tDETAIL")
	for i := range tasks {
		t := &tasks[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", t.Priority, t.Type, t.Title, t.Detail)
	}
	return tw.Flush()
}

func printRanked(w io.Writer, items []store.RankedItem) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tITEM\tSCORE\tFLAG\tBADGES\tREASON")
	for i := range items {
		it := &items[i]
		badges := make([]string, 0, len(it.Badges))
		for _, b := range it.Badges {
			badges = append(badges, string(b.Key))
		}
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\t%s\n",
			it.RankOrder, it.Item.Label(), it.Score, it.Flag, strings.Join(badges, ","), it.Reason)
	}
	return tw.Flush()
}
