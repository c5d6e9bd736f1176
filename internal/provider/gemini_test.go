// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/brand-mentions/pkg/types"
)

func TestGeminiQuery(t *testing.T) {
	var got map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1beta/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "gk", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{
			"candidates": [{
				"content": {"parts": [{"text": "**Acme** is great. "}, {"text": "Globex is fine."}]},
				"groundingMetadata": {"groundingChunks": [
					{"web": {"uri": "https://g.example/1", "title": "one"}},
					{"retrievedContext": {}},
					{"web": {"uri": "https://g.example/2", "title": "two"}}
				]}
			}]
		}`))
	}))
	defer ts.Close()

	g := NewGemini(types.ProviderConfig{APIKey: "gk", BaseURL: ts.URL}, acme, ts.Client())
	res, err := g.Query(context.Background(), "who makes widgets?")
	require.NoError(t, err)

	tools, ok := got["tools"].([]any)
	require.True(t, ok)
	require.Len(t, tools, 1)
	assert.Contains(t, tools[0], "google_search")

	assert.Equal(t, "Acme is great. Globex is fine.", res.ResponseText)
	assert.Equal(t, 1, res.BrandMention)
	assert.Equal(t, 1, res.CompetitorMention)
	require.NotNil(t, res.BrandMentionContext)
	assert.Equal(t, "Acme is great. Globex is fine.", *res.BrandMentionContext)
	require.NotNil(t, res.CompetitorMentionContext)
	assert.Equal(t, "Globex is fine.", *res.CompetitorMentionContext)
	assert.Equal(t, []types.SearchURL{
		{URL: "https://g.example/1", Title: "one"},
		{URL: "https://g.example/2", Title: "two"},
	}, res.SearchURLs)
}

func TestGeminiNoGrounding(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"plain"}]}}]}`))
	}))
	defer ts.Close()

	g := NewGemini(types.ProviderConfig{APIKey: "gk", BaseURL: ts.URL}, acme, ts.Client())
	res, err := g.Query(context.Background(), "q")
	require.NoError(t, err)
	assert.Empty(t, res.SearchURLs)
	assert.NotNil(t, res.SearchURLs)
}

func TestGeminiShapeErrors(t *testing.T) {
	for name, body := range map[string]string{
		"no candidates":      `{"candidates":[]}`,
		"no content":         `{"candidates":[{}]}`,
		"no parts":           `{"candidates":[{"content":{"parts":[]}}]}`,
		"parts without text": `{"candidates":[{"content":{"parts":[{"functionCall":{"name":"x"}}]}}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer ts.Close()

			g := NewGemini(types.ProviderConfig{APIKey: "gk", BaseURL: ts.URL}, acme, ts.Client())
			_, err := g.Query(context.Background(), "q")
			var se *ShapeError
			assert.True(t, errors.As(err, &se), "got %v", err)
		})
	}
}
