// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/brand-mentions/pkg/types"
)

var acme = Subject{Brand: "Acme", Competitor: "Globex"}

func TestPerplexityQuery(t *testing.T) {
	var got perplexityRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer pk", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"choices": [{"message": {"role": "assistant", "content": "Acme is great. It ships fast."}}],
			"citations": ["https://ignored.example"],
			"search_results": [{"title": "Acme Review", "url": "https://review.example/acme"}]
		}`))
	}))
	defer ts.Close()

	p := NewPerplexity(types.ProviderConfig{APIKey: "pk", BaseURL: ts.URL}, acme, ts.Client())
	res, err := p.Query(context.Background(), "best widgets?")
	require.NoError(t, err)

	assert.Equal(t, "sonar", got.Model)
	assert.Equal(t, 2000, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "best widgets?", got.Messages[1].Content)

	assert.Equal(t, "perplexity", res.ProviderName)
	assert.Equal(t, "sonar", res.ModelName)
	assert.Equal(t, "best widgets?", res.QueryText)
	assert.Equal(t, "Acme is great. It ships fast.", res.ResponseText)
	assert.Equal(t, 1, res.BrandMention)
	assert.Equal(t, 0, res.CompetitorMention)
	assert.Equal(t, []types.SearchURL{{URL: "https://review.example/acme", Title: "Acme Review"}}, res.SearchURLs)
	assert.NotEmpty(t, res.RawResponse)
}

func TestPerplexityCitationsFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"No brands here."}}],"citations":["https://a.example","https://b.example"]}`))
	}))
	defer ts.Close()

	p := NewPerplexity(types.ProviderConfig{APIKey: "pk", BaseURL: ts.URL, Model: "sonar-pro", MaxTokens: 50}, acme, ts.Client())
	res, err := p.Query(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, "sonar-pro", res.ModelName)
	assert.Equal(t, []types.SearchURL{{URL: "https://a.example"}, {URL: "https://b.example"}}, res.SearchURLs)
	assert.Equal(t, 0, res.BrandMention)
	assert.Nil(t, res.BrandMentionContext)
}

func TestPerplexityShapeErrors(t *testing.T) {
	for name, body := range map[string]string{
		"no choices":   `{"choices":[]}`,
		"no message":   `{"choices":[{}]}`,
		"no content":   `{"choices":[{"message":{}}]}`,
		"null content": `{"choices":[{"message":{"content":null}}]}`,
		"not json":     `<html>oops</html>`,
	} {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer ts.Close()

			p := NewPerplexity(types.ProviderConfig{APIKey: "pk", BaseURL: ts.URL}, acme, ts.Client())
			_, err := p.Query(context.Background(), "q")
			var se *ShapeError
			assert.True(t, errors.As(err, &se), "got %v", err)
		})
	}
}

func TestPerplexityEmptyAnswerIsNotAShapeError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":""}}]}`))
	}))
	defer ts.Close()

	p := NewPerplexity(types.ProviderConfig{APIKey: "pk", BaseURL: ts.URL}, acme, ts.Client())
	res, err := p.Query(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, res.ResponseText)
	assert.Equal(t, 0, res.BrandMention)
}

func TestPerplexityCallError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer ts.Close()

	p := NewPerplexity(types.ProviderConfig{APIKey: "bad", BaseURL: ts.URL}, acme, ts.Client())
	_, err := p.Query(context.Background(), "q")
	var ce *CallError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, http.StatusUnauthorized, ce.StatusCode)
	assert.Contains(t, ce.Body, "invalid key")
}

func TestPerplexityRetriesThrottle(t *testing.T) {
	var calls int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"Acme."}}]}`))
	}))
	defer ts.Close()

	p := NewPerplexity(types.ProviderConfig{APIKey: "pk", BaseURL: ts.URL}, acme, ts.Client())
	res, err := p.Query(context.Background(), "q")
	require.NoError(t, err)
	assert.Equal(t, 1, res.BrandMention)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestPerplexityTransportError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	p := NewPerplexity(types.ProviderConfig{APIKey: "pk", BaseURL: url}, acme, nil)
	_, err := p.Query(context.Background(), "q")
	var ce *CallError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 0, ce.StatusCode)
}
