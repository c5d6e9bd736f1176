// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package llm wraps plain (non search-augmented) chat completion behind a
// small interface so the strategic-analysis pass and the model-based
// sentiment scorer can be tested without a network.
package llm

import "context"

// Client sends one system + user exchange and returns the reply text.
type Client interface {
	Complete(ctx context.Context, system, user string) (string, error)
}
