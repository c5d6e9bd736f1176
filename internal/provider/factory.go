// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package provider

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/pdiddy/brand-mentions/pkg/types"
)

// Names lists the providers Build understands, in their default run order.
var Names = []string{
	types.ProviderPerplexity,
	types.ProviderGemini,
	types.ProviderOpenAI,
	types.ProviderClaude,
}

// Build constructs the adapter named by cfg.Name. client may be nil, in
// which case each adapter gets its own client from cfg.HTTPConfig.
func Build(cfg types.ProviderConfig, subject Subject, client *http.Client) (Provider, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Name))
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %q: api key is missing", name)
	}
	switch name {
	case types.ProviderPerplexity:
		return NewPerplexity(cfg, subject, client), nil
	case types.ProviderGemini:
		return NewGemini(cfg, subject, client), nil
	case types.ProviderOpenAI:
		return NewOpenAI(cfg, subject, client), nil
	case types.ProviderClaude:
		return NewClaude(cfg, subject, client), nil
	default:
		return nil, fmt.Errorf("unknown provider: %q (valid: %s)", cfg.Name, strings.Join(Names, ", "))
	}
}

// BuildAll constructs every configured provider. Providers that cannot be
// built are reported in errs and left out, so a single misconfigured
// provider does not block the others.
func BuildAll(cfgs []types.ProviderConfig, subject Subject) (providers []Provider, errs []error) {
	for _, cfg := range cfgs {
		p, err := Build(cfg, subject, nil)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		providers = append(providers, p)
	}
	return providers, errs
}
