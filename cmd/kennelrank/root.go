// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tomtom215/kennelrank/internal/config"
	"github.com/tomtom215/kennelrank/internal/logging"
)

// rootOptions are the flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string

	// loadedPath is the file loadConfig actually read, or "".
	loadedPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "kennelrank",
		Short:        "Catalog ranking and recommendation engine",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to config file (default: search "+config.ConfigPathEnvVar+" and standard locations)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging.level")

	root.AddCommand(
		newServeCmd(opts),
		newRecomputeCmd(opts),
		newTasksCmd(opts),
		newRankedCmd(opts),
		newImportCmd(opts),
		newMigrateCmd(opts),
		newConfigCmd(opts),
	)
	return root
}

// loadConfig loads configuration and initializes logging to the command's
// stderr.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, path, err := config.LoadFile(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	o.loadedPath = path
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}

	logCfg := cfg.Logging
	logCfg.Output = cmd.ErrOrStderr()
	logging.Init(logCfg)
	return cfg, nil
}
