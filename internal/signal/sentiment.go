// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package signal

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pdiddy/brand-mentions/internal/llm"
	"github.com/pdiddy/brand-mentions/pkg/types"
)

// Category thresholds. A polarity equal to a threshold falls in the lower
// category.
const (
	veryNegativeMax = -0.6
	negativeMax     = -0.2
	neutralMax      = 0.2
	positiveMax     = 0.6
)

// Classify maps a polarity in [-1, 1] to one of the five sentiment
// categories. Values outside the interval are clamped first; NaN carries no
// polarity and is Neutral.
func Classify(polarity float64) types.Sentiment {
	if math.IsNaN(polarity) {
		return types.SentimentNeutral
	}
	p := math.Max(-1, math.Min(1, polarity))
	switch {
	case p <= veryNegativeMax:
		return types.SentimentVeryNegative
	case p <= negativeMax:
		return types.SentimentNegative
	case p <= neutralMax:
		return types.SentimentNeutral
	case p <= positiveMax:
		return types.SentimentPositive
	default:
		return types.SentimentVeryPositive
	}
}

// Scorer produces a polarity score in [-1, 1] for a piece of text. The
// categorical thresholds in Classify are fixed; scorers are swappable.
type Scorer interface {
	Polarity(ctx context.Context, text string) (float64, error)
}

// Classifier turns text into a sentiment category using its Scorer.
type Classifier struct {
	Scorer Scorer
}

// NewClassifier returns a Classifier backed by s, or by the lexicon scorer
// when s is nil.
func NewClassifier(s Scorer) *Classifier {
	if s == nil {
		s = NewLexiconScorer()
	}
	return &Classifier{Scorer: s}
}

// Sentiment scores text and buckets the result.
func (c *Classifier) Sentiment(ctx context.Context, text string) (types.Sentiment, error) {
	p, err := c.Scorer.Polarity(ctx, text)
	if err != nil {
		return "", err
	}
	if math.IsNaN(p) {
		return "", fmt.Errorf("scorer returned NaN polarity")
	}
	return Classify(p), nil
}

const chatScorerSystemPrompt = `You rate the sentiment of short passages. Reply with a single number between -1 and 1, where -1 is very negative, 0 is neutral and 1 is very positive. Reply with the number only.`

// ChatScorer asks a chat model for a polarity score.
type ChatScorer struct {
	Client llm.Client
}

// Polarity sends text to the chat model and parses the numeric reply.
func (s *ChatScorer) Polarity(ctx context.Context, text string) (float64, error) {
	if s == nil || s.Client == nil {
		return 0, fmt.Errorf("chat scorer has no client")
	}
	reply, err := s.Client.Complete(ctx, chatScorerSystemPrompt, text)
	if err != nil {
		return 0, fmt.Errorf("scoring sentiment: %w", err)
	}
	return parsePolarity(reply)
}

// parsePolarity reads the first numeric token of a model reply.
func parsePolarity(reply string) (float64, error) {
	for _, field := range strings.Fields(reply) {
		field = strings.Trim(field, "`\"'.,;:")
		if v, err := strconv.ParseFloat(field, 64); err == nil {
			if v < -1 || v > 1 {
				return 0, fmt.Errorf("polarity %v out of range [-1,1]", v)
			}
			return v, nil
		}
	}
	return 0, fmt.Errorf("no polarity in model reply %q", reply)
}
