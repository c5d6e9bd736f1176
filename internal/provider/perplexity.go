// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"net/http"

	"github.com/pdiddy/brand-mentions/pkg/types"
)

// perplexityBaseURL is the Perplexity API root. Declared as a var so tests
// can substitute an httptest server.
var perplexityBaseURL = "https://api.perplexity.ai"

const (
	perplexityDefaultModel     = "sonar"
	perplexityDefaultMaxTokens = 2000
	perplexitySystemPrompt     = "You are a helpful assistant that can answer questions and help with tasks."
)

// Perplexity queries the Perplexity chat completions API, which searches
// the web on every request and returns citations alongside the answer.
type Perplexity struct {
	t         transport
	apiKey    string
	model     string
	maxTokens int
	subject   Subject
}

// NewPerplexity builds the adapter. client may be nil.
func NewPerplexity(cfg types.ProviderConfig, subject Subject, client *http.Client) *Perplexity {
	p := &Perplexity{
		t:         newTransport(types.ProviderPerplexity, cfg, perplexityBaseURL, client),
		apiKey:    cfg.APIKey,
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		subject:   subject,
	}
	if p.model == "" {
		p.model = perplexityDefaultModel
	}
	if p.maxTokens <= 0 {
		p.maxTokens = perplexityDefaultMaxTokens
	}
	return p
}

// Name returns the provider identifier.
func (p *Perplexity) Name() string { return types.ProviderPerplexity }

// Model returns the configured model.
func (p *Perplexity) Model() string { return p.model }

// Subject returns the brand and competitor the adapter measures.
func (p *Perplexity) Subject() Subject { return p.subject }

// Query sends one question and normalises the answer.
func (p *Perplexity) Query(ctx context.Context, query string) (types.ProviderResult, error) {
	req := perplexityRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: perplexitySystemPrompt},
			{Role: "user", Content: query},
		},
		MaxTokens: p.maxTokens,
	}
	raw, err := p.t.postJSON(ctx, "/chat/completions", map[string]string{
		"Authorization": "Bearer " + p.apiKey,
	}, req)
	if err != nil {
		return types.ProviderResult{}, err
	}

	var resp perplexityResponse
	if err := p.t.decode(raw, &resp); err != nil {
		return types.ProviderResult{}, err
	}
	if len(resp.Choices) == 0 {
		return types.ProviderResult{}, p.t.missing("choices")
	}
	msg := resp.Choices[0].Message
	if msg == nil {
		return types.ProviderResult{}, p.t.missing("choices[0].message")
	}
	if msg.Content == nil {
		return types.ProviderResult{}, p.t.missing("choices[0].message.content")
	}
	text := *msg.Content

	return newResult(p.Name(), p.model, p.subject, query, raw, text, perplexityURLs(resp)), nil
}

// perplexityURLs prefers the titled search_results list and falls back to
// the bare citations list.
func perplexityURLs(resp perplexityResponse) []types.SearchURL {
	var urls []types.SearchURL
	if len(resp.SearchResults) > 0 {
		for _, r := range resp.SearchResults {
			if r.URL != "" {
				urls = append(urls, types.SearchURL{URL: r.URL, Title: r.Title})
			}
		}
		return urls
	}
	for _, u := range resp.Citations {
		if u != "" {
			urls = append(urls, types.SearchURL{URL: u})
		}
	}
	return urls
}

// chatMessage is a role/content pair shared by OpenAI-style chat APIs.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type perplexityRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type perplexityResponse struct {
	Choices []struct {
		Message *struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Citations     []string `json:"citations"`
	SearchResults []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"search_results"`
}
