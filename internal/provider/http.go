// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pdiddy/brand-mentions/internal/httputil"
	"github.com/pdiddy/brand-mentions/pkg/types"
)

// maxErrorBody bounds how much of an error response is kept in a CallError.
const maxErrorBody = 512

// transport is the HTTP plumbing every adapter shares.
type transport struct {
	name    string
	client  *http.Client
	cfg     types.HTTPConfig
	baseURL string
}

func newTransport(name string, cfg types.ProviderConfig, defaultBase string, client *http.Client) transport {
	if client == nil {
		client = httputil.NewClient(cfg.HTTPConfig)
	}
	base := cfg.BaseURL
	if base == "" {
		base = defaultBase
	}
	return transport{
		name:    name,
		client:  client,
		cfg:     cfg.HTTPConfig,
		baseURL: strings.TrimRight(base, "/"),
	}
}

// postJSON marshals body, POSTs it to baseURL+path with headers, and
// returns the raw response body of a 2xx reply. Anything else is a
// *CallError.
func (t transport) postJSON(ctx context.Context, path string, headers map[string]string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%s: marshaling request: %w", t.name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: creating request: %w", t.name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", httputil.UserAgent(t.cfg))
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httputil.DoWithRetry(ctx, t.client, req, t.cfg.MaxRetries)
	if err != nil {
		return nil, &CallError{Provider: t.name, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &CallError{Provider: t.name, StatusCode: 0, Err: fmt.Errorf("reading response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(data)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody] + "..."
		}
		return nil, &CallError{Provider: t.name, StatusCode: resp.StatusCode, Body: msg}
	}
	return data, nil
}

// decode unmarshals a provider payload; a payload that is not the
// expected JSON document is a shape error rather than a call error.
func (t transport) decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return &ShapeError{Provider: t.name, Field: "body", Err: err}
	}
	return nil
}

func (t transport) missing(field string) error {
	return &ShapeError{Provider: t.name, Field: field}
}
