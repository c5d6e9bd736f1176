// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/brand-mentions/internal/provider"
	"github.com/pdiddy/brand-mentions/pkg/types"
)

// Input validation errors returned by RunAll.
var (
	ErrNoQueries   = errors.New("at least one query is required")
	ErrEmptyQuery  = errors.New("queries must not be empty")
	ErrRepeatCount = errors.New("repeat count must be at least 1")
	ErrNoProviders = errors.New("at least one provider is required")
	ErrNoBrand     = errors.New("brand name is required")

	ErrSubjectMismatch = errors.New("provider measures a different brand or competitor")
)

// ProviderOutcome holds every slot produced by one provider, in expanded
// query order.
type ProviderOutcome struct {
	Provider string
	Model    string
	Outcomes []provider.Outcome
	Elapsed  time.Duration
}

// Run is the complete, ordered output of one aggregation.
type Run struct {
	ID          string
	Brand       string
	Competitor  string
	Queries     []string
	RepeatCount int
	StartedAt   time.Time
	FinishedAt  time.Time
	Outcomes    []ProviderOutcome
}

// Results returns the successful records in provider order, then expanded
// query order within each provider.
func (r Run) Results() []types.ProviderResult {
	var out []types.ProviderResult
	for _, po := range r.Outcomes {
		for _, o := range po.Outcomes {
			if o.Err == nil {
				out = append(out, o.Result)
			}
		}
	}
	return out
}

// Failures returns the failed slots in the same order as Results.
func (r Run) Failures() []provider.Outcome {
	var out []provider.Outcome
	for _, po := range r.Outcomes {
		for _, o := range po.Outcomes {
			if o.Err != nil {
				out = append(out, o)
			}
		}
	}
	return out
}

// Slots returns the total number of query slots in the run.
func (r Run) Slots() int {
	n := 0
	for _, po := range r.Outcomes {
		n += len(po.Outcomes)
	}
	return n
}

// Aggregator runs a query set against every provider of a run.
type Aggregator struct {
	Dispatcher Dispatcher
	Log        *slog.Logger
}

// ExpandQueries repeats the whole list repeatCount times:
// [q1..qn, q1..qn, ...].
func ExpandQueries(queries []string, repeatCount int) []string {
	out := make([]string, 0, len(queries)*repeatCount)
	for range repeatCount {
		out = append(out, queries...)
	}
	return out
}

func validate(subject provider.Subject, providers []provider.Provider, queries []string, repeatCount int) error {
	if strings.TrimSpace(subject.Brand) == "" {
		return ErrNoBrand
	}
	if len(queries) == 0 {
		return ErrNoQueries
	}
	for i, q := range queries {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("query %d: %w", i, ErrEmptyQuery)
		}
	}
	if repeatCount < 1 {
		return ErrRepeatCount
	}
	if len(providers) == 0 {
		return ErrNoProviders
	}
	for _, p := range providers {
		if got := p.Subject(); got != subject {
			return fmt.Errorf("%s: %w: built for %q/%q, run is %q/%q",
				p.Name(), ErrSubjectMismatch, got.Brand, got.Competitor, subject.Brand, subject.Competitor)
		}
	}
	return nil
}

// RunAll sends every query repeatCount times to every provider. Providers
// run concurrently; the run preserves provider order and, within each
// provider, expanded query order. Individual query failures are recorded in
// their slot. Only invalid input returns an error, including a provider
// built for a different subject than the run.
func (a *Aggregator) RunAll(ctx context.Context, subject provider.Subject, providers []provider.Provider, queries []string, repeatCount int) (Run, error) {
	if err := validate(subject, providers, queries, repeatCount); err != nil {
		return Run{}, err
	}

	run := Run{
		ID:          uuid.NewString(),
		Brand:       subject.Brand,
		Competitor:  subject.Competitor,
		Queries:     append([]string(nil), queries...),
		RepeatCount: repeatCount,
		StartedAt:   time.Now().UTC(),
		Outcomes:    make([]ProviderOutcome, len(providers)),
	}
	expanded := ExpandQueries(queries, repeatCount)

	ctx, span := otel.Tracer("internal/pipeline").Start(ctx, "pipeline.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("run.id", run.ID),
		attribute.Int("run.providers", len(providers)),
		attribute.Int("run.slots", len(providers)*len(expanded)),
	)

	log := a.logger().With("run_id", run.ID)
	log.Info("run started",
		"brand", subject.Brand,
		"competitor", subject.Competitor,
		"providers", len(providers),
		"queries", len(queries),
		"repeat", repeatCount,
	)

	disp := a.Dispatcher
	if disp.Log == nil {
		disp.Log = log
	}

	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			pctx, pspan := otel.Tracer("internal/pipeline").Start(ctx, "pipeline.provider")
			defer pspan.End()
			pspan.SetAttributes(attribute.String("provider", p.Name()), attribute.String("model", p.Model()))

			start := time.Now()
			outs := disp.Run(pctx, p, expanded)
			run.Outcomes[i] = ProviderOutcome{
				Provider: p.Name(),
				Model:    p.Model(),
				Outcomes: outs,
				Elapsed:  time.Since(start),
			}
			return nil
		})
	}
	_ = g.Wait()

	run.FinishedAt = time.Now().UTC()
	failed := len(run.Failures())
	span.SetAttributes(attribute.Int("run.failed", failed))
	log.Info("run finished",
		"slots", run.Slots(),
		"failed", failed,
		"elapsed", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond).String(),
	)
	return run, nil
}

func (a *Aggregator) logger() *slog.Logger {
	if a.Log == nil {
		return slog.Default()
	}
	return a.Log
}
