// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets resolves provider API keys. Keys live in a directory of
// plain-text files, one key per file, named after the key; well-known
// environment variables are consulted when a file is absent.
package secrets

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdiddy/brand-mentions/pkg/types"
)

// DefaultDir is the secrets directory used when none is configured.
const DefaultDir = ".secrets"

// Key file names.
const (
	PerplexityKey = "perplexity-api-key"
	GeminiKey     = "gemini-api-key"
	OpenAIKey     = "openai-api-key"
	AnthropicKey  = "anthropic-api-key"
)

// providerKeys maps each provider to its key file.
var providerKeys = map[string]string{
	types.ProviderPerplexity: PerplexityKey,
	types.ProviderGemini:     GeminiKey,
	types.ProviderOpenAI:     OpenAIKey,
	types.ProviderClaude:     AnthropicKey,
}

// envFallbacks lists environment variables checked, in order, for a key
// that has no file.
var envFallbacks = map[string][]string{
	PerplexityKey: {"PERPLEXITY_API_KEY", "PPLX_API_KEY"},
	GeminiKey:     {"GEMINI_API_KEY", "GOOGLE_API_KEY"},
	OpenAIKey:     {"OPENAI_API_KEY"},
	AnthropicKey:  {"ANTHROPIC_API_KEY", "CLAUDE_API_KEY"},
}

// Keys holds loaded secrets by key name.
type Keys map[string]string

// Load reads every regular, non-hidden file in dir. A missing directory is
// not an error. Unreadable files are logged and skipped.
func Load(dir string, log *slog.Logger) (Keys, error) {
	keys := Keys{}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return keys, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			log.Warn("could not read secret", "key", name, "error", err)
			continue
		}
		if value := strings.TrimSpace(string(data)); value != "" {
			keys[name] = value
		}
	}
	return keys, nil
}

// Get returns the named key from the loaded files, then from its
// environment fallbacks. It returns "" when neither has it.
func (k Keys) Get(name string) string {
	if v := k[name]; v != "" {
		return v
	}
	for _, env := range envFallbacks[name] {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return ""
}

// ForProvider returns the API key for a provider name.
func (k Keys) ForProvider(provider string) string {
	name, ok := providerKeys[strings.ToLower(provider)]
	if !ok {
		return ""
	}
	return k.Get(name)
}
