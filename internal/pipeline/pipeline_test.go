// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/brand-mentions/internal/logger"
	"github.com/pdiddy/brand-mentions/internal/provider"
	"github.com/pdiddy/brand-mentions/internal/signal"
	"github.com/pdiddy/brand-mentions/pkg/types"
)

var acme = provider.Subject{Brand: "Acme", Competitor: "Globex"}

// scripted is a Provider that answers from a fixed map and fails on
// queries listed in fail.
type scripted struct {
	name    string
	answers map[string]string
	fail    map[string]bool
	calls   atomic.Int32
}

func (s *scripted) Name() string              { return s.name }
func (s *scripted) Model() string             { return s.name + "-model" }
func (s *scripted) Subject() provider.Subject { return acme }

func (s *scripted) Query(_ context.Context, q string) (types.ProviderResult, error) {
	s.calls.Add(1)
	if s.fail[q] {
		return types.ProviderResult{}, &provider.CallError{Provider: s.name, StatusCode: 500, Body: "down"}
	}
	text := s.answers[q]
	r := types.ProviderResult{
		BrandName:      acme.Brand,
		CompetitorName: acme.Competitor,
		ProviderName:   s.name,
		ModelName:      s.Model(),
		QueryText:      q,
		ResponseText:   text,
		SearchURLs:     []types.SearchURL{},
		BrandMention:   signal.HasMention(text, acme.Brand),
	}
	if c, ok := signal.ExtractContext(text, acme.Brand); ok {
		r.BrandMentionContext = &c
	}
	r.CompetitorMention = signal.HasMention(text, acme.Competitor)
	if c, ok := signal.ExtractContext(text, acme.Competitor); ok {
		r.CompetitorMentionContext = &c
	}
	return r, nil
}

func newAggregator() *Aggregator {
	return &Aggregator{Log: logger.Discard()}
}

// --- RunAll ---

func TestRunAllCountAndOrder(t *testing.T) {
	a := &scripted{name: "a", answers: map[string]string{}}
	b := &scripted{name: "b", answers: map[string]string{}}
	queries := []string{"q1", "q2", "q3"}

	run, err := newAggregator().RunAll(context.Background(), acme, []provider.Provider{a, b}, queries, 2)
	require.NoError(t, err)

	assert.NotEmpty(t, run.ID)
	assert.Equal(t, "Acme", run.Brand)
	assert.Equal(t, 2, run.RepeatCount)
	assert.False(t, run.FinishedAt.Before(run.StartedAt))
	assert.Equal(t, 2*3*2, run.Slots())

	results := run.Results()
	require.Len(t, results, 12)
	want := []string{"q1", "q2", "q3", "q1", "q2", "q3"}
	for i, r := range results[:6] {
		assert.Equal(t, "a", r.ProviderName)
		assert.Equal(t, want[i], r.QueryText)
	}
	for i, r := range results[6:] {
		assert.Equal(t, "b", r.ProviderName)
		assert.Equal(t, want[i], r.QueryText)
	}
	assert.Equal(t, int32(6), a.calls.Load())
	assert.Empty(t, run.Failures())
}

func TestRunAllIsolatesFailures(t *testing.T) {
	a := &scripted{name: "a", fail: map[string]bool{"q2": true}}
	b := &scripted{name: "b"}

	run, err := newAggregator().RunAll(context.Background(), acme, []provider.Provider{a, b}, []string{"q1", "q2"}, 1)
	require.NoError(t, err)

	assert.Equal(t, 4, run.Slots())
	assert.Len(t, run.Results(), 3)
	failures := run.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "a", failures[0].Provider)
	assert.Equal(t, "q2", failures[0].Query)

	var ce *provider.CallError
	assert.True(t, errors.As(failures[0].Err, &ce))
}

func TestRunAllValidation(t *testing.T) {
	p := []provider.Provider{&scripted{name: "a"}}
	tests := []struct {
		name      string
		subject   provider.Subject
		providers []provider.Provider
		queries   []string
		repeat    int
		want      error
	}{
		{"no brand", provider.Subject{}, p, []string{"q"}, 1, ErrNoBrand},
		{"no queries", acme, p, nil, 1, ErrNoQueries},
		{"empty query", acme, p, []string{"q", "  "}, 1, ErrEmptyQuery},
		{"zero repeat", acme, p, []string{"q"}, 0, ErrRepeatCount},
		{"no providers", acme, nil, []string{"q"}, 1, ErrNoProviders},
		{"other competitor", provider.Subject{Brand: "Acme", Competitor: "Initech"}, p, []string{"q"}, 1, ErrSubjectMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newAggregator().RunAll(context.Background(), tt.subject, tt.providers, tt.queries, tt.repeat)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestExpandQueries(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "a", "b", "a", "b"}, ExpandQueries([]string{"a", "b"}, 3))
	assert.Equal(t, []string{"a"}, ExpandQueries([]string{"a"}, 1))
}

// answerServer serves Perplexity-shaped replies from answers, keyed by the
// user message.
func answerServer(t *testing.T, answers map[string]string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		q := req.Messages[len(req.Messages)-1].Content
		body, _ := json.Marshal(map[string]any{
			"choices": []any{map[string]any{"message": map[string]string{"content": answers[q]}}},
		})
		w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestRunAllEndToEndWithHTTPProviders(t *testing.T) {
	tsA := answerServer(t, map[string]string{
		"q1": "Acme is great. It ships fast.",
		"q2": "Globex leads the market.",
	})
	tsB := answerServer(t, map[string]string{
		"q1": "Most teams pick Globex.",
		"q2": "Acme and Globex are both fine.",
	})

	a := provider.NewPerplexity(types.ProviderConfig{APIKey: "k", BaseURL: tsA.URL, Model: "model-a"}, acme, tsA.Client())
	b := provider.NewPerplexity(types.ProviderConfig{APIKey: "k", BaseURL: tsB.URL, Model: "model-b"}, acme, tsB.Client())
	run, err := newAggregator().RunAll(context.Background(), acme, []provider.Provider{a, b}, []string{"q1", "q2"}, 1)
	require.NoError(t, err)

	results, err := WithSentiment(context.Background(), run.Results(), signal.NewClassifier(nil))
	require.NoError(t, err)
	require.Len(t, results, 4)

	order := []struct{ model, query string }{
		{"model-a", "q1"}, {"model-a", "q2"}, {"model-b", "q1"}, {"model-b", "q2"},
	}
	for i, want := range order {
		assert.Equal(t, want.model, results[i].ModelName)
		assert.Equal(t, want.query, results[i].QueryText)
	}

	aq1 := results[0]
	assert.Equal(t, 1, aq1.BrandMention)
	require.NotNil(t, aq1.BrandMentionContext)
	assert.Equal(t, "Acme is great. It ships fast.", *aq1.BrandMentionContext)
	require.NotNil(t, aq1.Sentiment)
	assert.Contains(t, []types.Sentiment{types.SentimentPositive, types.SentimentVeryPositive}, *aq1.Sentiment)

	aq2 := results[1]
	assert.Equal(t, 0, aq2.BrandMention)
	assert.Nil(t, aq2.BrandMentionContext)
	assert.Nil(t, aq2.Sentiment)
	assert.Equal(t, 1, aq2.CompetitorMention)
	assert.NotNil(t, aq2.CompetitorSentiment)

	assert.Equal(t, 0, results[2].BrandMention)
	assert.Equal(t, 1, results[3].BrandMention)
	assert.NotNil(t, results[3].Sentiment)
}

func TestRunAllRejectsProviderBuiltForOtherBrand(t *testing.T) {
	ts := answerServer(t, map[string]string{"q": "Acme is great."})
	globex := provider.Subject{Brand: "Globex"}
	p := provider.NewPerplexity(types.ProviderConfig{APIKey: "k", BaseURL: ts.URL}, globex, ts.Client())

	_, err := newAggregator().RunAll(context.Background(), acme, []provider.Provider{p}, []string{"q"}, 1)
	require.ErrorIs(t, err, ErrSubjectMismatch)
	assert.Contains(t, err.Error(), "Globex")
}

// --- WithSentiment ---

type countingClassifier struct {
	calls atomic.Int32
	err   error
	label types.Sentiment
}

func (c *countingClassifier) Sentiment(context.Context, string) (types.Sentiment, error) {
	c.calls.Add(1)
	if c.err != nil {
		return "", c.err
	}
	return c.label, nil
}

func sampleResults() []types.ProviderResult {
	ctx := "Acme is fine."
	comp := "Globex is fine."
	return []types.ProviderResult{
		{ProviderName: "a", BrandMention: 1, BrandMentionContext: &ctx},
		{ProviderName: "a"},
		{ProviderName: "b", BrandMention: 1, BrandMentionContext: &ctx, CompetitorMention: 1, CompetitorMentionContext: &comp},
	}
}

func TestWithSentimentLabelsOnlyMentions(t *testing.T) {
	in := sampleResults()
	c := &countingClassifier{label: types.SentimentNeutral}

	out, err := WithSentiment(context.Background(), in, c)
	require.NoError(t, err)
	require.Len(t, out, 3)

	require.NotNil(t, out[0].Sentiment)
	assert.Equal(t, types.SentimentNeutral, *out[0].Sentiment)
	assert.Nil(t, out[1].Sentiment)
	assert.NotNil(t, out[2].Sentiment)
	assert.NotNil(t, out[2].CompetitorSentiment)
	assert.Equal(t, int32(3), c.calls.Load())

	for _, r := range in {
		assert.Nil(t, r.Sentiment, "input must not be modified")
		assert.Nil(t, r.CompetitorSentiment)
	}
}

func TestWithSentimentIdempotent(t *testing.T) {
	c := &countingClassifier{label: types.SentimentPositive}
	once, err := WithSentiment(context.Background(), sampleResults(), c)
	require.NoError(t, err)

	other := &countingClassifier{label: types.SentimentVeryNegative}
	twice, err := WithSentiment(context.Background(), once, other)
	require.NoError(t, err)

	assert.Equal(t, once, twice)
	assert.Equal(t, int32(0), other.calls.Load())
}

func TestWithSentimentClassifierFailure(t *testing.T) {
	pre := types.SentimentNegative
	in := sampleResults()
	in[2].Sentiment = &pre

	c := &countingClassifier{err: fmt.Errorf("model offline")}
	out, err := WithSentiment(context.Background(), in, c)

	var warn *SentimentWarning
	require.True(t, errors.As(err, &warn))
	assert.Contains(t, warn.Error(), "model offline")

	require.Len(t, out, 3)
	assert.Nil(t, out[0].Sentiment)
	assert.Nil(t, out[2].CompetitorSentiment)
	require.NotNil(t, out[2].Sentiment)
	assert.Equal(t, types.SentimentNegative, *out[2].Sentiment)
}

// pickyClassifier fails on the passages listed in fail and labels the rest.
type pickyClassifier struct {
	fail map[string]bool
}

func (c pickyClassifier) Sentiment(_ context.Context, text string) (types.Sentiment, error) {
	if c.fail[text] {
		return "", fmt.Errorf("no polarity in model reply")
	}
	return types.SentimentPositive, nil
}

func TestWithSentimentPartialFailureKeepsOtherLabels(t *testing.T) {
	var in []types.ProviderResult
	for i := range 6 {
		ctx := fmt.Sprintf("Acme passage %d.", i)
		in = append(in, types.ProviderResult{ProviderName: "a", QueryText: fmt.Sprint(i), BrandMention: 1, BrandMentionContext: &ctx})
	}
	c := pickyClassifier{fail: map[string]bool{"Acme passage 3.": true}}

	out, err := WithSentiment(context.Background(), in, c)

	var warn *SentimentWarning
	require.True(t, errors.As(err, &warn))
	assert.Equal(t, 1, warn.Failed)
	assert.Equal(t, 6, warn.Total)
	assert.Contains(t, warn.Error(), "1 of 6")

	require.Len(t, out, 6)
	for i, r := range out {
		if i == 3 {
			assert.Nil(t, r.Sentiment)
			continue
		}
		require.NotNil(t, r.Sentiment, "record %d", i)
		assert.Equal(t, types.SentimentPositive, *r.Sentiment)
	}
}

func TestWithSentimentEmpty(t *testing.T) {
	out, err := WithSentiment(context.Background(), nil, &countingClassifier{})
	require.NoError(t, err)
	assert.Empty(t, out)
}
