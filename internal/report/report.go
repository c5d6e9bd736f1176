// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package report summarises and renders the results of a run.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"

	"github.com/pdiddy/brand-mentions/pkg/types"
)

// ProviderStats aggregates one provider's results.
type ProviderStats struct {
	Provider           string                  `json:"provider" yaml:"provider"`
	Total              int                     `json:"total" yaml:"total"`
	BrandMentions      int                     `json:"brand_mentions" yaml:"brand_mentions"`
	CompetitorMentions int                     `json:"competitor_mentions" yaml:"competitor_mentions"`
	BrandRate          float64                 `json:"brand_mention_rate" yaml:"brand_mention_rate"`
	CompetitorRate     float64                 `json:"competitor_mention_rate" yaml:"competitor_mention_rate"`
	Sentiments         map[types.Sentiment]int `json:"sentiments,omitempty" yaml:"sentiments,omitempty"`
}

// QueryRow counts mentions for one query, per provider, across repeats.
type QueryRow struct {
	Query              string         `json:"query" yaml:"query"`
	BrandMentions      map[string]int `json:"brand_mentions" yaml:"brand_mentions"`
	CompetitorMentions map[string]int `json:"competitor_mentions" yaml:"competitor_mentions"`
}

// rate returns n/total as a percentage rounded to one decimal.
func rate(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(n)/float64(total)*1000) / 10
}

// Summarize groups results by provider in first-seen order.
func Summarize(results []types.ProviderResult) []ProviderStats {
	var stats []ProviderStats
	index := make(map[string]int)
	for _, r := range results {
		i, ok := index[r.ProviderName]
		if !ok {
			i = len(stats)
			index[r.ProviderName] = i
			stats = append(stats, ProviderStats{Provider: r.ProviderName})
		}
		s := &stats[i]
		s.Total++
		s.BrandMentions += r.BrandMention
		s.CompetitorMentions += r.CompetitorMention
		if r.Sentiment != nil {
			if s.Sentiments == nil {
				s.Sentiments = make(map[types.Sentiment]int)
			}
			s.Sentiments[*r.Sentiment]++
		}
	}
	for i := range stats {
		stats[i].BrandRate = rate(stats[i].BrandMentions, stats[i].Total)
		stats[i].CompetitorRate = rate(stats[i].CompetitorMentions, stats[i].Total)
	}
	return stats
}

// ByQuery builds the query-by-provider mention matrix, queries in
// first-seen order.
func ByQuery(results []types.ProviderResult) []QueryRow {
	var rows []QueryRow
	index := make(map[string]int)
	for _, r := range results {
		i, ok := index[r.QueryText]
		if !ok {
			i = len(rows)
			index[r.QueryText] = i
			rows = append(rows, QueryRow{
				Query:              r.QueryText,
				BrandMentions:      make(map[string]int),
				CompetitorMentions: make(map[string]int),
			})
		}
		rows[i].BrandMentions[r.ProviderName] += r.BrandMention
		rows[i].CompetitorMentions[r.ProviderName] += r.CompetitorMention
	}
	return rows
}

// providerOrder lists provider names in first-seen order.
func providerOrder(results []types.ProviderResult) []string {
	var names []string
	seen := make(map[string]bool)
	for _, r := range results {
		if !seen[r.ProviderName] {
			seen[r.ProviderName] = true
			names = append(names, r.ProviderName)
		}
	}
	return names
}

// FormatTable writes the per-provider summary as an aligned table.
func FormatTable(w io.Writer, brand, competitor string, stats []ProviderStats) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	compLabel := competitor
	if compLabel == "" {
		compLabel = "Competitor"
	}
	fmt.Fprintf(tw, "PROVIDER\tQUERIES\t%s\t%s\t%s RATE\t%s RATE\tSENTIMENT\n",
		strings.ToUpper(brand), strings.ToUpper(compLabel), strings.ToUpper(brand), strings.ToUpper(compLabel))
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.1f%%\t%.1f%%\t%s\n",
			s.Provider, s.Total, s.BrandMentions, s.CompetitorMentions,
			s.BrandRate, s.CompetitorRate, formatSentiments(s.Sentiments))
	}
	return tw.Flush()
}

func formatSentiments(m map[types.Sentiment]int) string {
	if len(m) == 0 {
		return "-"
	}
	var parts []string
	for _, s := range types.Sentiments {
		if n := m[s]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", s, n))
		}
	}
	return strings.Join(parts, ", ")
}

// FormatMatrix writes the query-by-provider mention counts.
func FormatMatrix(w io.Writer, results []types.ProviderResult) error {
	providers := providerOrder(results)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "QUERY")
	for _, p := range providers {
		fmt.Fprintf(tw, "\t%s BRAND\t%s COMP", p, p)
	}
	fmt.Fprintln(tw)
	for _, row := range ByQuery(results) {
		fmt.Fprint(tw, truncate(row.Query, 60))
		for _, p := range providers {
			fmt.Fprintf(tw, "\t%d\t%d", row.BrandMentions[p], row.CompetitorMentions[p])
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

// FormatResults writes one block per result: provider, query, mention
// flags, sentiment and the brand context.
func FormatResults(w io.Writer, results []types.ProviderResult) error {
	for i, r := range results {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "[%d] %s (%s)\n", i+1, r.ProviderName, r.ModelName)
		fmt.Fprintf(w, "  query:      %s\n", r.QueryText)
		fmt.Fprintf(w, "  brand:      %d", r.BrandMention)
		if r.Sentiment != nil {
			fmt.Fprintf(w, " (%s)", *r.Sentiment)
		}
		fmt.Fprintln(w)
		if r.CompetitorName != "" {
			fmt.Fprintf(w, "  competitor: %d", r.CompetitorMention)
			if r.CompetitorSentiment != nil {
				fmt.Fprintf(w, " (%s)", *r.CompetitorSentiment)
			}
			fmt.Fprintln(w)
		}
		if r.BrandMentionContext != nil {
			fmt.Fprintf(w, "  context:    %s\n", *r.BrandMentionContext)
		}
		if len(r.SearchURLs) > 0 {
			fmt.Fprintf(w, "  sources:    %d\n", len(r.SearchURLs))
		}
	}
	return nil
}

// FormatJSON writes v as indented JSON.
func FormatJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
