// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package provider queries AI answer services and normalises each service's
// response into a types.ProviderResult. Every service is one implementation
// of Provider; adding a service never touches the existing ones.
package provider

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/brand-mentions/internal/signal"
	"github.com/pdiddy/brand-mentions/pkg/types"
)

// Provider answers one natural-language query. Implementations differ in
// how they build the request and parse the response; the returned record
// always carries mention signals for the Subject the provider was built
// with.
type Provider interface {
	Name() string
	Model() string
	Subject() Subject
	Query(ctx context.Context, query string) (types.ProviderResult, error)
}

// Subject names the brand being tracked and the competitor it is compared
// against.
type Subject struct {
	Brand      string
	Competitor string
}

// CallError reports a failed call to a provider: transport failure, auth
// failure, or a non-success status.
type CallError struct {
	Provider   string
	StatusCode int // 0 when no response was received
	Body       string
	Err        error
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: API returned HTTP %d: %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s: calling API: %v", e.Provider, e.Err)
}

func (e *CallError) Unwrap() error { return e.Err }

// ShapeError reports a provider payload that lacks a field needed to
// extract the answer text.
type ShapeError struct {
	Provider string
	Field    string
	Err      error
}

func (e *ShapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: unexpected response shape at %s: %v", e.Provider, e.Field, e.Err)
	}
	return fmt.Sprintf("%s: unexpected response shape: missing %s", e.Provider, e.Field)
}

func (e *ShapeError) Unwrap() error { return e.Err }

// ErrExtraction marks a failure while deriving signals from answer text.
// The text functions in package signal are total, so this only surfaces
// from a recovered panic inside a query.
var ErrExtraction = errors.New("signal extraction failed")

// Outcome is the result slot for one query of a batch: exactly one of
// Result (when Err is nil) or Err is meaningful.
type Outcome struct {
	Provider string
	Query    string
	Result   types.ProviderResult
	Err      error
}

// OK reports whether the query succeeded.
func (o Outcome) OK() bool { return o.Err == nil }

// BatchQuery issues p.Query for every element of queries concurrently, at
// most limit at a time (limit <= 0 means unbounded). The returned slice has
// the same length and order as queries. A failed query fills its own slot
// with the error and never affects its siblings.
func BatchQuery(ctx context.Context, p Provider, queries []string, limit int) []Outcome {
	out := make([]Outcome, len(queries))
	if len(queries) == 0 {
		return out
	}

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, q := range queries {
		g.Go(func() error {
			out[i] = queryOne(ctx, p, q)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// queryOne runs a single traced query and converts a panic into an error
// so one misbehaving answer cannot take down the batch.
func queryOne(ctx context.Context, p Provider, q string) (o Outcome) {
	o = Outcome{Provider: p.Name(), Query: q}

	ctx, span := otel.Tracer("internal/provider").Start(ctx, "provider.query")
	span.SetAttributes(
		attribute.String("provider", p.Name()),
		attribute.String("model", p.Model()),
	)
	defer func() {
		if r := recover(); r != nil {
			o.Result = types.ProviderResult{}
			o.Err = fmt.Errorf("%s: %w: panic: %v\n%s", p.Name(), ErrExtraction, r, debug.Stack())
		}
		if o.Err != nil {
			span.RecordError(o.Err)
			span.SetStatus(codes.Error, o.Err.Error())
		}
		span.End()
	}()

	o.Result, o.Err = p.Query(ctx, q)
	return o
}

// newResult assembles the uniform record and derives the mention signals
// from text for both the brand and the competitor.
func newResult(provider, model string, subject Subject, query string, raw []byte, text string, urls []types.SearchURL) types.ProviderResult {
	if urls == nil {
		urls = []types.SearchURL{}
	}
	r := types.ProviderResult{
		BrandName:         subject.Brand,
		CompetitorName:    subject.Competitor,
		ProviderName:      provider,
		ModelName:         model,
		QueryText:         query,
		RawResponse:       raw,
		ResponseText:      text,
		SearchURLs:        urls,
		BrandMention:      signal.HasMention(text, subject.Brand),
		CompetitorMention: signal.HasMention(text, subject.Competitor),
	}
	if c, ok := signal.ExtractContext(text, subject.Brand); ok {
		r.BrandMentionContext = &c
	}
	if c, ok := signal.ExtractContext(text, subject.Competitor); ok {
		r.CompetitorMentionContext = &c
	}
	return r
}
