// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tomtom215/kennelrank/internal/api"
	"github.com/tomtom215/kennelrank/internal/config"
	"github.com/tomtom215/kennelrank/internal/logging"
	"github.com/tomtom215/kennelrank/internal/supervisor"
	"github.com/tomtom215/kennelrank/internal/supervisor/services"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scheduled recompute loop",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, opts.loadedPath, !noScheduler)
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve reads and manual triggers only")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, configPath string, scheduler bool) error {
	logging.Info().
		Str("version", version).
		Str("db_driver", cfg.Database.Driver).
		Str("db_path", cfg.Database.Path).
		Bool("kv_mirror", cfg.Store.MirrorKV).
		Str("environment", cfg.Server.Environment).
		Msg("Starting kennelrank with supervisor tree")

	a, err := openApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing stores")
		}
	}()

	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED")
	}
	if cfg.Server.Environment == "production" && containsWildcard(cfg.Server.CORSOrigins) {
		logging.Warn().Msg("CORS allows any origin in production; set server.cors_origins to specific origins")
	}

	handler := api.NewHandler(a.engine, a.results, api.HandlerOptions{
		DB:               a.sql.DB(),
		RecomputeTimeout: cfg.Recompute.Timeout,
		Version:          version,
	})
	middleware := api.NewMiddleware(&api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		CORSMaxAge:         api.DefaultMiddlewareConfig().CORSMaxAge,
		RateLimitRequests:  cfg.Server.RateLimitRequests,
		RateLimitWindow:    cfg.Server.RateLimitWindow,
		RateLimitDisabled:  cfg.Server.RateLimitDisabled,
	})
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           api.NewRouter(handler, middleware).Setup(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger("supervisor"), cfg.Supervisor)
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	tree.AddAPIService(services.NewHTTPService(server, server.Addr, cfg.Server.ShutdownTimeout, logging.WithComponent("http")))

	if scheduler {
		tree.AddWorkerService(services.NewRecomputeService(a.engine, services.RecomputeServiceConfig{
			Interval:     cfg.Recompute.Interval,
			RunOnStartup: cfg.Recompute.RunOnStartup,
			Timeout:      cfg.Recompute.Timeout,
		}, logging.WithComponent("scheduler")))
	} else {
		logging.Info().Msg("Recompute scheduler disabled")
	}

	if a.kv != nil && cfg.Store.KV.GCInterval > 0 && !cfg.Store.KV.InMemory {
		tree.AddDataService(services.NewKVGCService(a.kv, cfg.Store.KV.GCInterval, cfg.Store.KV.GCRatio, logging.WithComponent("kv")))
	}

	if configPath != "" {
		watchLogLevel(configPath)
	}

	logging.Info().Str("addr", server.Addr).Msg("Supervisor tree starting")
	err = tree.Serve(ctx)

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop within the shutdown timeout")
		}
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor tree: %w", err)
	}
	logging.Info().Msg("Shutdown complete")
	return nil
}

// watchLogLevel reloads the config file on change and applies its log level.
// Other settings need a restart.
func watchLogLevel(path string) {
	err := config.WatchConfigFile(path, func() {
		cfg, _, err := config.LoadFile(path)
		if err != nil {
			logging.Warn().Err(err).Msg("Ignoring invalid configuration change")
			return
		}
		logging.SetLevelString(cfg.Logging.Level)
		logging.Info().Str("level", cfg.Logging.Level).Msg("Log level reloaded")
	})
	if err != nil {
		logging.Warn().Err(err).Str("path", path).Msg("Config file watch unavailable")
	}
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}
