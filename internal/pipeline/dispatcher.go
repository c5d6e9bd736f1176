// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline fans a query set out across providers and collects the
// normalised results of a run.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/pdiddy/brand-mentions/internal/provider"
)

// Dispatcher issues a list of queries against one provider.
type Dispatcher struct {
	// Limit caps concurrent queries per provider. Zero or less is unbounded.
	Limit int
	Log   *slog.Logger
}

// Run returns one outcome per query, in query order. Failures are logged
// and recorded in their slot; they never abort the batch.
func (d Dispatcher) Run(ctx context.Context, p provider.Provider, queries []string) []provider.Outcome {
	log := d.logger().With("provider", p.Name(), "model", p.Model())
	log.Debug("dispatching queries", "count", len(queries), "limit", d.Limit)

	start := time.Now()
	out := provider.BatchQuery(ctx, p, queries, d.Limit)

	failed := 0
	for i, o := range out {
		if o.Err != nil {
			failed++
			log.Warn("query failed", "index", i, "query", o.Query, "error", o.Err)
		}
	}
	log.Info("provider batch complete",
		"queries", len(out),
		"failed", failed,
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return out
}

func (d Dispatcher) logger() *slog.Logger {
	if d.Log == nil {
		return slog.Default()
	}
	return d.Log
}
