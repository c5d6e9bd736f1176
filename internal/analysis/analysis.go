// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analysis turns a run summary into strategic recommendations by
// asking a chat model to interpret the mention statistics.
package analysis

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/pdiddy/brand-mentions/internal/llm"
	"github.com/pdiddy/brand-mentions/internal/report"
	"github.com/pdiddy/brand-mentions/pkg/types"
)

// Fallback is returned by Recommend when the model call fails.
const Fallback = "Analysis failed to generate due to an error."

const systemPrompt = `You are a brand strategist who specialises in how AI answer engines portray brands. Be concrete and concise.`

var promptTemplate = template.Must(template.New("analysis").Funcs(template.FuncMap{
	"sentiments": sentimentLine,
}).Parse(`We asked several AI answer engines the same questions and counted how often each mentioned {{.Brand}}{{if .Competitor}} and its competitor {{.Competitor}}{{end}}.

Results per provider:
{{range .Stats}}- {{.Provider}}: {{.Total}} answers, {{$.Brand}} mentioned in {{.BrandMentions}} ({{printf "%.1f" .BrandRate}}%){{if $.Competitor}}, {{$.Competitor}} mentioned in {{.CompetitorMentions}} ({{printf "%.1f" .CompetitorRate}}%){{end}}{{with sentiments .Sentiments}}; sentiment toward {{$.Brand}}: {{.}}{{end}}
{{end}}
Based on these numbers:
1. Summarise how visible {{.Brand}} is in AI-generated answers{{if .Competitor}} compared with {{.Competitor}}{{end}}.
2. Point out providers where {{.Brand}} is under-represented.
3. Recommend three concrete actions to improve {{.Brand}}'s presence in AI answers.
`))

type promptData struct {
	Brand      string
	Competitor string
	Stats      []report.ProviderStats
}

func sentimentLine(m map[types.Sentiment]int) string {
	var parts []string
	for _, s := range types.Sentiments {
		if n := m[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", n, strings.ToLower(string(s))))
		}
	}
	return strings.Join(parts, ", ")
}

// BuildPrompt renders the analysis request for a run summary.
func BuildPrompt(brand, competitor string, stats []report.ProviderStats) (string, error) {
	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, promptData{Brand: brand, Competitor: competitor, Stats: stats})
	if err != nil {
		return "", fmt.Errorf("rendering analysis prompt: %w", err)
	}
	return buf.String(), nil
}

// Analyst asks a chat model for recommendations.
type Analyst struct {
	Client llm.Client
}

// Recommend sends prompt to the model. On failure it returns Fallback
// together with the error so callers can show something and still log why.
func (a *Analyst) Recommend(ctx context.Context, prompt string) (string, error) {
	if a.Client == nil {
		return Fallback, fmt.Errorf("analysis: no model client configured")
	}
	reply, err := a.Client.Complete(ctx, systemPrompt, prompt)
	if err != nil {
		return Fallback, fmt.Errorf("analysis: %w", err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return Fallback, fmt.Errorf("analysis: model returned an empty reply")
	}
	return reply, nil
}
