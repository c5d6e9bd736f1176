// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the shared data structures for the brand-mentions
// pipeline: the per-(provider, query) result record, its citation list, the
// sentiment categories, and the configuration structs the CLI decodes.
package types

import "encoding/json"

// Sentiment is one of five ordered categories derived from a polarity score.
type Sentiment string

const (
	SentimentVeryNegative Sentiment = "Very Negative"
	SentimentNegative     Sentiment = "Negative"
	SentimentNeutral      Sentiment = "Neutral"
	SentimentPositive     Sentiment = "Positive"
	SentimentVeryPositive Sentiment = "Very Positive"
)

// Sentiments lists the categories from most negative to most positive.
var Sentiments = []Sentiment{
	SentimentVeryNegative,
	SentimentNegative,
	SentimentNeutral,
	SentimentPositive,
	SentimentVeryPositive,
}

// Valid reports whether s is one of the five known categories.
func (s Sentiment) Valid() bool {
	for _, v := range Sentiments {
		if s == v {
			return true
		}
	}
	return false
}

// SearchURL is a source cited by a provider. Title is empty when the
// provider only returns the URL.
type SearchURL struct {
	URL   string `json:"url" yaml:"url"`
	Title string `json:"title,omitempty" yaml:"title,omitempty"`
}

// ProviderResult is the uniform record produced for one (provider, query)
// pair. It is built once by a provider adapter and only ever replaced by an
// enriched copy; fields are never mutated in place.
type ProviderResult struct {
	// BrandName and CompetitorName are the names the mention fields refer to.
	BrandName      string `json:"brand_name" yaml:"brand_name"`
	CompetitorName string `json:"competitor_name" yaml:"competitor_name"`

	// ProviderName identifies the answer service (e.g. "perplexity").
	ProviderName string `json:"provider_name" yaml:"provider_name"`

	// ModelName is the model the provider was asked to use.
	ModelName string `json:"model_name" yaml:"model_name"`

	// QueryText is the natural-language query as sent.
	QueryText string `json:"query_text" yaml:"query_text"`

	// RawResponse is the provider-native response body, kept for audit.
	RawResponse json.RawMessage `json:"raw_response,omitempty" yaml:"-"`

	// ResponseText is the plain-text answer extracted from RawResponse.
	ResponseText string `json:"response_text" yaml:"response_text"`

	// SearchURLs lists cited sources in the provider's citation order.
	SearchURLs []SearchURL `json:"search_urls" yaml:"search_urls"`

	// BrandMention and CompetitorMention are 1 when the name occurs at least
	// once in ResponseText (case-insensitive), 0 otherwise.
	BrandMention      int `json:"brand_mention" yaml:"brand_mention"`
	CompetitorMention int `json:"competitor_mention" yaml:"competitor_mention"`

	// BrandMentionContext holds up to three sentences starting at the first
	// brand occurrence. Nil iff BrandMention is 0.
	BrandMentionContext *string `json:"brand_mention_context,omitempty" yaml:"brand_mention_context,omitempty"`

	// CompetitorMentionContext mirrors BrandMentionContext for the competitor.
	CompetitorMentionContext *string `json:"competitor_mention_context,omitempty" yaml:"competitor_mention_context,omitempty"`

	// Sentiment classifies BrandMentionContext. Only ever set when the
	// context is present.
	Sentiment *Sentiment `json:"sentiment,omitempty" yaml:"sentiment,omitempty"`

	// CompetitorSentiment classifies CompetitorMentionContext.
	CompetitorSentiment *Sentiment `json:"competitor_sentiment,omitempty" yaml:"competitor_sentiment,omitempty"`
}

// WithSentiment returns a copy of r with the brand sentiment set. The copy
// is returned unchanged when r has no brand context.
func (r ProviderResult) WithSentiment(s Sentiment) ProviderResult {
	if r.BrandMentionContext == nil {
		return r
	}
	r.Sentiment = &s
	return r
}

// WithCompetitorSentiment returns a copy of r with the competitor sentiment
// set, provided r has a competitor context.
func (r ProviderResult) WithCompetitorSentiment(s Sentiment) ProviderResult {
	if r.CompetitorMentionContext == nil {
		return r
	}
	r.CompetitorSentiment = &s
	return r
}
