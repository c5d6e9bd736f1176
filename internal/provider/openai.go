// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"

	"github.com/pdiddy/brand-mentions/internal/httputil"
	"github.com/pdiddy/brand-mentions/pkg/types"
)

// openAIBaseURL is the OpenAI API root. Package-level var for test
// substitution.
var openAIBaseURL = "https://api.openai.com"

const (
	openAIDefaultModel = "gpt-4o"
	openAIMessageItem  = "message"
	openAIOutputText   = "output_text"
	openAIURLCitation  = "url_citation"
)

// OpenAI queries the Responses API with the web search tool forced on, so
// every answer is search-augmented.
type OpenAI struct {
	client  openai.Client
	model   string
	subject Subject
}

// NewOpenAI builds the adapter. client may be nil.
func NewOpenAI(cfg types.ProviderConfig, subject Subject, client *http.Client) *OpenAI {
	if client == nil {
		client = httputil.NewClient(cfg.HTTPConfig)
	}
	base := cfg.BaseURL
	if base == "" {
		base = openAIBaseURL
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(base, "/") + "/v1/"),
		option.WithHTTPClient(client),
		option.WithHeader("User-Agent", httputil.UserAgent(cfg.HTTPConfig)),
	}
	if cfg.MaxRetries > 0 {
		opts = append(opts, option.WithMaxRetries(cfg.MaxRetries))
	}

	o := &OpenAI{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		subject: subject,
	}
	if o.model == "" {
		o.model = openAIDefaultModel
	}
	return o
}

// Name returns the provider identifier.
func (o *OpenAI) Name() string { return types.ProviderOpenAI }

// Model returns the configured model.
func (o *OpenAI) Model() string { return o.model }

// Subject returns the brand and competitor the adapter measures.
func (o *OpenAI) Subject() Subject { return o.subject }

// Query sends one question and normalises the answer and its URL citations.
func (o *OpenAI) Query(ctx context.Context, query string) (types.ProviderResult, error) {
	resp, err := o.client.Responses.New(ctx, responses.ResponseNewParams{
		Model: o.model,
		Input: responses.ResponseNewParamsInputUnion{OfString: openai.String(query)},
		Tools: []responses.ToolUnionParam{{
			OfWebSearchPreview: &responses.WebSearchPreviewToolParam{
				Type: responses.WebSearchPreviewToolTypeWebSearchPreview,
			},
		}},
		ToolChoice: responses.ResponseNewParamsToolChoiceUnion{
			OfHostedTool: &responses.ToolChoiceTypesParam{
				Type: responses.ToolChoiceTypesTypeWebSearchPreview,
			},
		},
	})
	if err != nil {
		return types.ProviderResult{}, o.callError(err)
	}

	var urls []types.SearchURL
	found := false
	for _, item := range resp.Output {
		if item.Type != openAIMessageItem {
			continue
		}
		for _, c := range item.Content {
			if c.Type != openAIOutputText {
				continue
			}
			found = true
			for _, a := range c.Annotations {
				if a.Type == openAIURLCitation && a.URL != "" {
					urls = append(urls, types.SearchURL{URL: a.URL, Title: a.Title})
				}
			}
		}
	}
	if !found {
		return types.ProviderResult{}, &ShapeError{Provider: o.Name(), Field: "output[type=message].content[type=output_text]"}
	}

	return newResult(o.Name(), o.model, o.subject, query, []byte(resp.RawJSON()), resp.OutputText(), urls), nil
}

// callError maps an SDK failure onto CallError, keeping the HTTP status
// when the API answered.
func (o *OpenAI) callError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody] + "..."
		}
		return &CallError{Provider: o.Name(), StatusCode: apiErr.StatusCode, Body: msg, Err: err}
	}
	return &CallError{Provider: o.Name(), Err: err}
}
