// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/pdiddy/brand-mentions/pkg/types"
)

// geminiBaseURL is the Generative Language API root. Package-level var for
// test substitution.
var geminiBaseURL = "https://generativelanguage.googleapis.com"

const geminiDefaultModel = "gemini-2.0-flash"

// Gemini queries Google's generateContent endpoint with Google Search
// grounding enabled.
type Gemini struct {
	t       transport
	apiKey  string
	model   string
	subject Subject
}

// NewGemini builds the adapter. client may be nil.
func NewGemini(cfg types.ProviderConfig, subject Subject, client *http.Client) *Gemini {
	g := &Gemini{
		t:       newTransport(types.ProviderGemini, cfg, geminiBaseURL, client),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		subject: subject,
	}
	if g.model == "" {
		g.model = geminiDefaultModel
	}
	return g
}

// Name returns the provider identifier.
func (g *Gemini) Name() string { return types.ProviderGemini }

// Model returns the configured model.
func (g *Gemini) Model() string { return g.model }

// Subject returns the brand and competitor the adapter measures.
func (g *Gemini) Subject() Subject { return g.subject }

// Query sends one question and normalises the grounded answer.
func (g *Gemini) Query(ctx context.Context, query string) (types.ProviderResult, error) {
	req := geminiRequest{
		Contents: []geminiContent{{
			Role:  "user",
			Parts: []geminiPart{{Text: query}},
		}},
		Tools: []geminiTool{{GoogleSearch: &struct{}{}}},
	}
	path := "/v1beta/models/" + url.PathEscape(g.model) + ":generateContent"
	raw, err := g.t.postJSON(ctx, path, map[string]string{
		"x-goog-api-key": g.apiKey,
	}, req)
	if err != nil {
		return types.ProviderResult{}, err
	}

	var resp geminiResponse
	if err := g.t.decode(raw, &resp); err != nil {
		return types.ProviderResult{}, err
	}
	if len(resp.Candidates) == 0 {
		return types.ProviderResult{}, g.t.missing("candidates")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil || len(cand.Content.Parts) == 0 {
		return types.ProviderResult{}, g.t.missing("candidates[0].content.parts")
	}

	var b strings.Builder
	found := false
	for _, part := range cand.Content.Parts {
		if part.Text != nil {
			found = true
			b.WriteString(*part.Text)
		}
	}
	if !found {
		return types.ProviderResult{}, g.t.missing("candidates[0].content.parts[].text")
	}
	// Gemini answers in Markdown; emphasis markers would split brand names.
	text := strings.ReplaceAll(b.String(), "*", "")

	var urls []types.SearchURL
	if cand.GroundingMetadata != nil {
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" {
				continue
			}
			urls = append(urls, types.SearchURL{URL: chunk.Web.URI, Title: chunk.Web.Title})
		}
	}

	return newResult(g.Name(), g.model, g.subject, query, raw, text, urls), nil
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
	Tools    []geminiTool    `json:"tools,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content *struct {
			Parts []struct {
				Text *string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *struct {
					URI   string `json:"uri"`
					Title string `json:"title"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}
