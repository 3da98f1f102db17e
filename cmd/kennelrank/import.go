// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tomtom215/kennelrank/internal/catalog"
	"github.com/tomtom215/kennelrank/internal/logging"
)

// catalogFile is the layout of an import file. Rows are free-form and go
// through the same normalization as store rows, so legacy field names and
// status aliases are accepted. JSON is valid YAML and works too.
//
//	items:
//	  - id: p1
//	    slug: thor
//	    status: disponivel
//	    price_cents: 350000
//	leads:
//	  - page_slug: thor
//	    created_at: 2026-05-01T10:00:00Z
type catalogFile struct {
	Items []catalog.Row `yaml:"items"`
	Leads []catalog.Row `yaml:"leads"`
}

// importResult counts what an import wrote.
type importResult struct {
	Items   int      `json:"items"`
	Leads   int      `json:"leads"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		dryRun       bool
		recomputeNow bool
	)
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load items and leads from a YAML or JSON file into the catalog tables",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := readCatalogFile(args[0])
			if err != nil {
				return err
			}
			items, leads, res := normalizeCatalogFile(file)
			if dryRun {
				res.Items, res.Leads = len(items), len(leads)
				return printJSON(cmd.OutOrStdout(), res)
			}

			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				for i := range items {
					if err := a.sql.UpsertItem(ctx, &items[i]); err != nil {
						return fmt.Errorf("import item %s: %w", items[i].ID, err)
					}
					res.Items++
				}
				for i := range leads {
					if err := a.sql.UpsertLead(ctx, &leads[i]); err != nil {
						return fmt.Errorf("import lead %s: %w", leads[i].ID, err)
					}
					res.Leads++
				}
				logging.Info().Int("items", res.Items).Int("leads", res.Leads).Int("skipped", res.Skipped).Msg("Catalog imported")

				if recomputeNow {
					if _, err := a.engine.RecomputeAll(ctx); err != nil {
						return fmt.Errorf("recompute after import: %w", err)
					}
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "normalize and report without writing")
	cmd.Flags().BoolVar(&recomputeNow, "recompute", false, "run a full recompute after importing")
	return cmd
}

func readCatalogFile(path string) (*catalogFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse import file: %w", err)
	}
	return &file, nil
}

// normalizeCatalogFile maps raw rows onto catalog types. Leads without an id
// get a generated one; items without an id are skipped and reported.
func normalizeCatalogFile(file *catalogFile) ([]catalog.Item, []catalog.Lead, importResult) {
	var res importResult

	items := make([]catalog.Item, 0, len(file.Items))
	for i, row := range file.Items {
		item, err := catalog.NormalizeItem(row)
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("items[%d]: %v", i, err))
			continue
		}
		items = append(items, item)
	}

	leads := make([]catalog.Lead, 0, len(file.Leads))
	for i, row := range file.Leads {
		if row.String("id", "lead_id") == "" {
			if row == nil {
				row = catalog.Row{}
			}
			row["id"] = uuid.NewString()
		}
		lead, err := catalog.NormalizeLead(row)
		if err != nil {
			res.Skipped++
			res.Errors = append(res.Errors, fmt.Sprintf("leads[%d]: %v", i, err))
			continue
		}
		leads = append(leads, lead)
	}
	return items, leads, res
}
