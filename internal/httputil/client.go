// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pdiddy/brand-mentions/pkg/types"
)

// DefaultTimeout applies when HTTPConfig.Timeout is zero. Search-augmented
// answers routinely take tens of seconds.
const DefaultTimeout = 90 * time.Second

// DefaultUserAgent is sent when HTTPConfig.UserAgent is empty.
const DefaultUserAgent = "brand-mentions/0.1"

// NewClient returns an HTTP client with the configured timeout whose
// transport records an OpenTelemetry span per request.
func NewClient(cfg types.HTTPConfig) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// UserAgent returns cfg.UserAgent or the default.
func UserAgent(cfg types.HTTPConfig) string {
	if cfg.UserAgent != "" {
		return cfg.UserAgent
	}
	return DefaultUserAgent
}
