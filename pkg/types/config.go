// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Provider names understood by the provider factory.
const (
	ProviderPerplexity = "perplexity"
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
	ProviderClaude     = "claude"
)

// HTTPConfig holds shared HTTP settings used by every outbound client.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout (default 90s).
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries bounds retries on 429/503 responses (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// ProviderConfig configures one answer provider. The API key is resolved by
// the caller; adapters never read the environment themselves.
type ProviderConfig struct {
	HTTPConfig `yaml:",inline"`

	// Name selects the adapter: perplexity, gemini, openai, or claude.
	Name string `json:"name" yaml:"name"`

	// Model is the provider-specific model identifier.
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates against the provider.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the provider's default API endpoint root.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`

	// MaxTokens caps the answer length where the provider supports it.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty"`
}

// AIConfig holds settings for stages that call a plain chat-completion model.
type AIConfig struct {
	// Model is the chat model identifier (e.g. "gpt-4o-mini").
	Model string `json:"model" yaml:"model"`

	// APIKey is the authentication key for the chat API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// BaseURL overrides the API endpoint root.
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty"`
}

// Scorer names for SentimentConfig.Scorer.
const (
	ScorerLexicon = "lexicon"
	ScorerOpenAI  = "openai"
)

// SentimentConfig selects the polarity scorer behind the sentiment pass.
type SentimentConfig struct {
	AIConfig `yaml:",inline"`

	// Scorer is "lexicon" (default, offline) or "openai".
	Scorer string `json:"scorer" yaml:"scorer"`

	// Disabled skips the sentiment pass entirely.
	Disabled bool `json:"disabled" yaml:"disabled"`
}

// RunConfig describes one analysis run.
type RunConfig struct {
	Brand       string           `json:"brand" yaml:"brand"`
	Competitor  string           `json:"competitor" yaml:"competitor"`
	Queries     []string         `json:"queries" yaml:"queries"`
	RepeatCount int              `json:"repeat_count" yaml:"repeat_count"`
	Providers   []ProviderConfig `json:"providers" yaml:"providers"`

	// Concurrency caps in-flight queries per provider; 0 means unbounded.
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	Sentiment SentimentConfig `json:"sentiment" yaml:"sentiment"`
}

// StoreConfig locates the SQLite run database.
type StoreConfig struct {
	// DataDir is the directory holding brand-mentions.db (default ".brand-mentions").
	DataDir string `json:"data_dir" yaml:"data_dir"`
}

// PublishConfig configures optional publication of finished runs.
type PublishConfig struct {
	// NATSURL enables NATS publication when non-empty.
	NATSURL string `json:"nats_url,omitempty" yaml:"nats_url,omitempty"`

	// SubjectPrefix prefixes published subjects (default "brandmentions").
	SubjectPrefix string `json:"subject_prefix" yaml:"subject_prefix"`
}

// AppConfig groups every section of the configuration file.
type AppConfig struct {
	Run      RunConfig     `json:"run" yaml:"run"`
	Analysis AIConfig      `json:"analysis" yaml:"analysis"`
	Store    StoreConfig   `json:"store" yaml:"store"`
	Publish  PublishConfig `json:"publish" yaml:"publish"`
	LogLevel string        `json:"log_level" yaml:"log_level"`
}
