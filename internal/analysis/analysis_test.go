// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package analysis

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/brand-mentions/internal/llm"
	"github.com/pdiddy/brand-mentions/internal/report"
	"github.com/pdiddy/brand-mentions/pkg/types"
)

func stats() []report.ProviderStats {
	return []report.ProviderStats{
		{Provider: "perplexity", Total: 4, BrandMentions: 3, CompetitorMentions: 1, BrandRate: 75, CompetitorRate: 25,
			Sentiments: map[types.Sentiment]int{types.SentimentPositive: 2, types.SentimentNeutral: 1}},
		{Provider: "gemini", Total: 4, BrandMentions: 0, CompetitorMentions: 2, BrandRate: 0, CompetitorRate: 50},
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := BuildPrompt("Acme", "Globex", stats())
	require.NoError(t, err)

	assert.Contains(t, prompt, "mentioned Acme and its competitor Globex")
	assert.Contains(t, prompt, "- perplexity: 4 answers, Acme mentioned in 3 (75.0%), Globex mentioned in 1 (25.0%); sentiment toward Acme: 1 neutral, 2 positive")
	assert.Contains(t, prompt, "- gemini: 4 answers, Acme mentioned in 0 (0.0%), Globex mentioned in 2 (50.0%)\n")
	assert.Contains(t, prompt, "compared with Globex")
}

func TestBuildPromptWithoutCompetitor(t *testing.T) {
	prompt, err := BuildPrompt("Acme", "", stats())
	require.NoError(t, err)
	assert.NotContains(t, prompt, "competitor")
	assert.NotContains(t, prompt, "compared with")
	assert.Contains(t, prompt, "- gemini: 4 answers, Acme mentioned in 0 (0.0%)\n")
}

func TestRecommend(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, systemPrompt, "the prompt").Return("  Do more PR.  ", nil)

	a := &Analyst{Client: client}
	got, err := a.Recommend(context.Background(), "the prompt")
	require.NoError(t, err)
	assert.Equal(t, "Do more PR.", got)
	client.AssertExpectations(t)
}

func TestRecommendFallback(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("quota exceeded"))

	a := &Analyst{Client: client}
	got, err := a.Recommend(context.Background(), "p")
	assert.Equal(t, Fallback, got)
	assert.ErrorContains(t, err, "quota exceeded")

	got, err = (&Analyst{}).Recommend(context.Background(), "p")
	assert.Equal(t, Fallback, got)
	assert.Error(t, err)
}

func TestRecommendEmptyReply(t *testing.T) {
	client := new(llm.MockClient)
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("   ", nil)

	got, err := (&Analyst{Client: client}).Recommend(context.Background(), "p")
	assert.Equal(t, Fallback, got)
	assert.Error(t, err)
}
