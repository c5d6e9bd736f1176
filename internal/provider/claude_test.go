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

func TestClaudeQuery(t *testing.T) {
	var got claudeRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ck", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{
			"content": [
				{"type": "server_tool_use", "name": "web_search"},
				{"type": "web_search_tool_result", "content": []},
				{"type": "text", "text": "Acme is good. ", "citations": [{"url": "https://c.example/1", "title": "c1"}]},
				{"type": "text", "text": "Nothing else."}
			]
		}`))
	}))
	defer ts.Close()

	c := NewClaude(types.ProviderConfig{APIKey: "ck", BaseURL: ts.URL}, acme, ts.Client())
	res, err := c.Query(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, 500, got.MaxTokens)
	require.Len(t, got.Tools, 1)
	assert.Equal(t, "web_search_20250305", got.Tools[0].Type)
	assert.Equal(t, "web_search", got.Tools[0].Name)

	assert.Equal(t, "claude", res.ProviderName)
	assert.Equal(t, "Acme is good. Nothing else.", res.ResponseText)
	assert.Equal(t, 1, res.BrandMention)
	assert.Equal(t, []types.SearchURL{{URL: "https://c.example/1", Title: "c1"}}, res.SearchURLs)
}

func TestClaudeShapeErrors(t *testing.T) {
	for name, body := range map[string]string{
		"empty content":           `{"content":[]}`,
		"no text block":           `{"content":[{"type":"server_tool_use"}]}`,
		"text block without text": `{"content":[{"type":"text"}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(body))
			}))
			defer ts.Close()

			c := NewClaude(types.ProviderConfig{APIKey: "ck", BaseURL: ts.URL}, acme, ts.Client())
			_, err := c.Query(context.Background(), "q")
			var se *ShapeError
			assert.True(t, errors.As(err, &se), "got %v", err)
		})
	}
}
