// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"net/http"
	"strings"

	"github.com/pdiddy/brand-mentions/pkg/types"
)

// claudeBaseURL is the Anthropic API root. Package-level var for test
// substitution.
var claudeBaseURL = "https://api.anthropic.com"

const (
	claudeDefaultModel     = "claude-sonnet-4-5-20250929"
	claudeDefaultMaxTokens = 500
	claudeAPIVersion       = "2023-06-01"
	claudeWebSearchTool    = "web_search_20250305"
	claudeWebSearchMaxUses = 2
)

// Claude queries the Messages API with the server-side web search tool.
type Claude struct {
	t         transport
	apiKey    string
	model     string
	maxTokens int
	subject   Subject
}

// NewClaude builds the adapter. client may be nil.
func NewClaude(cfg types.ProviderConfig, subject Subject, client *http.Client) *Claude {
	c := &Claude{
		t:         newTransport(types.ProviderClaude, cfg, claudeBaseURL, client),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		subject:   subject,
	}
	if c.model == "" {
		c.model = claudeDefaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = claudeDefaultMaxTokens
	}
	return c
}

// Name returns the provider identifier.
func (c *Claude) Name() string { return types.ProviderClaude }

// Model returns the configured model.
func (c *Claude) Model() string { return c.model }

// Subject returns the brand and competitor the adapter measures.
func (c *Claude) Subject() Subject { return c.subject }

// Query sends one question. The answer is the concatenation of every text
// block; citations attached to those blocks become the search URLs.
func (c *Claude) Query(ctx context.Context, query string) (types.ProviderResult, error) {
	req := claudeRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		Messages:  []chatMessage{{Role: "user", Content: query}},
		Tools: []claudeTool{{
			Type:    claudeWebSearchTool,
			Name:    "web_search",
			MaxUses: claudeWebSearchMaxUses,
		}},
	}
	raw, err := c.t.postJSON(ctx, "/v1/messages", map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": claudeAPIVersion,
	}, req)
	if err != nil {
		return types.ProviderResult{}, err
	}

	var resp claudeResponse
	if err := c.t.decode(raw, &resp); err != nil {
		return types.ProviderResult{}, err
	}
	if len(resp.Content) == 0 {
		return types.ProviderResult{}, c.t.missing("content")
	}

	var b strings.Builder
	var urls []types.SearchURL
	found := false
	for _, block := range resp.Content {
		if block.Type != "text" {
			continue
		}
		if block.Text == nil {
			return types.ProviderResult{}, c.t.missing("content[].text")
		}
		found = true
		b.WriteString(*block.Text)
		for _, cit := range block.Citations {
			if cit.URL != "" {
				urls = append(urls, types.SearchURL{URL: cit.URL, Title: cit.Title})
			}
		}
	}
	if !found {
		return types.ProviderResult{}, c.t.missing("content[type=text]")
	}

	return newResult(c.Name(), c.model, c.subject, query, raw, b.String(), urls), nil
}

type claudeTool struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	MaxUses int    `json:"max_uses,omitempty"`
}

type claudeRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	Messages  []chatMessage `json:"messages"`
	Tools     []claudeTool  `json:"tools,omitempty"`
}

type claudeResponse struct {
	Content []struct {
		Type      string  `json:"type"`
		Text      *string `json:"text"`
		Citations []struct {
			URL   string `json:"url"`
			Title string `json:"title"`
		} `json:"citations"`
	} `json:"content"`
}
