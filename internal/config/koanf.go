// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/kennelrank/config.yaml",
	"/etc/kennelrank/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// envPrefix enables the generic KENNELRANK_<SECTION>__<KEY> form for any key
// the mapping table does not cover.
const envPrefix = "kennelrank_"

// LoadWithKoanf loads configuration with precedence env > file > defaults
// and validates the result.
func LoadWithKoanf() (*Config, error) {
	cfg, _, err := load(findConfigFile())
	return cfg, err
}

// LoadFile is LoadWithKoanf with an explicit file path. It also returns the
// path actually used, or "" when no file was read.
func LoadFile(path string) (*Config, string, error) {
	if path == "" {
		path = findConfigFile()
	} else if _, err := os.Stat(path); err != nil {
		return nil, "", fmt.Errorf("config file %s: %w", path, err)
	}
	return load(path)
}

func load(configPath string) (*Config, string, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, "", fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, "", fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, configPath, nil
}

// findConfigFile returns CONFIG_PATH when it exists, else the first default
// path that exists, else "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths accept comma-separated strings from the environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
	"pricing.rare_attributes",
	"pricing.seasonal_months",
	"priority.pending_statuses",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			// priority.pending_statuses may legitimately hold "" for no status.
			if p != "" || path == "priority.pending_statuses" {
				trimmed = append(trimmed, p)
			}
		}
		if strVal == "" {
			trimmed = []string{}
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lower case) to koanf paths.
var envMappings = map[string]string{
	// Server
	"http_host":           "server.host",
	"http_port":           "server.port",
	"http_read_timeout":   "server.read_timeout",
	"http_write_timeout":  "server.write_timeout",
	"shutdown_timeout":    "server.shutdown_timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",
	"environment":         "server.environment",

	// Database
	"db_driver":  "database.driver",
	"db_path":    "database.path",
	"db_threads": "database.threads",

	// KV mirror
	"kv_mirror":       "store.mirror_kv",
	"kv_path":         "store.kv.path",
	"kv_sync_writes":  "store.kv.sync_writes",
	"kv_gc_interval":  "store.kv.gc_interval",
	"breaker_enabled": "breaker.enabled",
	"breaker_timeout": "breaker.timeout",

	// Recompute
	"recompute_interval":   "recompute.interval",
	"recompute_on_startup": "recompute.run_on_startup",
	"recompute_timeout":    "recompute.timeout",
	"recompute_workers":    "recompute.workers",
	"recompute_write_rate": "recompute.write_rate_per_second",
	"lead_lookback":        "recompute.lead_lookback",

	// Engines
	"ranking_hot_threshold":   "ranking.hot_threshold",
	"ranking_slow_threshold":  "ranking.slow_threshold",
	"pricing_fallback_cents":  "pricing.fallback_price_cents",
	"pricing_rare_attributes": "pricing.rare_attributes",
	"pricing_seasonal_months": "pricing.seasonal_months",
	"priority_lead_window":    "priority.lead_window",

	// Cache
	"cache_ttl": "cache.ttl",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to a koanf path. Names
// that are neither in the table nor carry the KENNELRANK_ prefix are dropped
// so unrelated variables never leak into the configuration.
//
//	HTTP_PORT                        -> server.port
//	KENNELRANK_PRICING__BAND_LOW     -> pricing.band_low
//	KENNELRANK_STORE__KV__IN_MEMORY  -> store.kv.in_memory
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	if rest, ok := strings.CutPrefix(key, envPrefix); ok && strings.Contains(rest, "__") {
		return strings.ReplaceAll(rest, "__", ".")
	}
	return ""
}

// WatchConfigFile calls callback whenever the file at path changes. The
// callback is responsible for reloading and swapping the configuration.
func WatchConfigFile(path string, callback func()) error {
	return file.Provider(path).Watch(func(_ interface{}, err error) {
		if err != nil {
			return
		}
		callback()
	})
}
