// Kennelrank - Catalog Ranking and Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/kennelrank

// Command kennelrank ranks catalog items by demand, recommends prices and
// plans operator tasks.
//
// The serve command runs the HTTP API and the scheduled recompute loop under
// a suture supervisor tree. The remaining commands run a single operation
// against the configured store and exit:
//
//	kennelrank serve --config /etc/kennelrank/config.yaml
//	kennelrank recompute all
//	kennelrank tasks
//	kennelrank import catalog.yaml
//	kennelrank config show
//
// Configuration is loaded with koanf from defaults, an optional YAML file and
// KENNELRANK_* / legacy environment variables, in that order of precedence.
package main

import (
	"os"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
