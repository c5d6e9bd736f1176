// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/brand-mentions/internal/analysis"
	"github.com/pdiddy/brand-mentions/internal/llm"
	"github.com/pdiddy/brand-mentions/internal/pipeline"
	"github.com/pdiddy/brand-mentions/internal/provider"
	"github.com/pdiddy/brand-mentions/internal/publish"
	"github.com/pdiddy/brand-mentions/internal/report"
	"github.com/pdiddy/brand-mentions/internal/secrets"
	"github.com/pdiddy/brand-mentions/internal/signal"
	"github.com/pdiddy/brand-mentions/internal/store"
	"github.com/pdiddy/brand-mentions/pkg/types"
)

// scorerOff disables the sentiment pass from the command line.
const scorerOff = "off"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Query every provider and report brand mentions",
	Long: `Run sends each query to every selected provider --repeat times, checks
each answer for the brand and competitor, classifies the sentiment of the
passages that mention them, and prints a per-provider summary.

Queries come from --query (repeatable), --queries-file (one per line), or
run.queries in the config file. Providers whose API key is missing are
skipped with a warning.`,
	RunE: runRun,
}

// runOutput selects what executeRun does after the run completes.
type runOutput struct {
	JSON    bool
	Save    bool
	Analyze bool
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig(viper.GetViper())
	if err != nil {
		return err
	}

	flagQueries, _ := cmd.Flags().GetStringArray("query")
	queriesFile, _ := cmd.Flags().GetString("queries-file")
	queries, err := collectQueries(cfg.Run.Queries, flagQueries, queriesFile)
	if err != nil {
		return err
	}
	cfg.Run.Queries = queries

	names, _ := cmd.Flags().GetStringSlice("providers")
	cfg.Run.Providers, err = resolveProviders(cfg.Run.Providers, names, loadedSecrets)
	if err != nil {
		return err
	}
	if cfg.Run.Sentiment.Scorer == scorerOff {
		cfg.Run.Sentiment.Disabled = true
	}

	var out runOutput
	out.JSON, _ = cmd.Flags().GetBool("json")
	out.Save, _ = cmd.Flags().GetBool("save")
	out.Analyze, _ = cmd.Flags().GetBool("analyze")

	_, err = executeRun(cmd.Context(), cfg, loadedSecrets, out, os.Stdout, os.Stderr)
	return err
}

// collectQueries merges configured, flag and file queries in that order.
// Flag or file queries replace the configured list.
func collectQueries(configured, flagQueries []string, file string) ([]string, error) {
	var queries []string
	queries = append(queries, flagQueries...)
	if file != "" {
		fromFile, err := readQueriesFile(file)
		if err != nil {
			return nil, err
		}
		queries = append(queries, fromFile...)
	}
	if len(queries) == 0 {
		queries = configured
	}
	if len(queries) == 0 {
		return nil, fmt.Errorf("no queries: use --query, --queries-file, or run.queries in the config file")
	}
	return queries, nil
}

// executeRun performs a complete run: build providers, aggregate, enrich
// with sentiment, print, and optionally save, publish and analyse. w gets
// the report and errw gets human-facing warnings.
func executeRun(ctx context.Context, cfg types.AppConfig, keys secrets.Keys, out runOutput, w, errw io.Writer) (pipeline.Run, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	subject := provider.Subject{Brand: cfg.Run.Brand, Competitor: cfg.Run.Competitor}

	providers, buildErrs := provider.BuildAll(cfg.Run.Providers, subject)
	for _, err := range buildErrs {
		fmt.Fprintf(errw, "warning: skipping provider: %v\n", err)
	}

	agg := &pipeline.Aggregator{
		Dispatcher: pipeline.Dispatcher{Limit: cfg.Run.Concurrency, Log: log},
		Log:        log,
	}
	run, err := agg.RunAll(ctx, subject, providers, cfg.Run.Queries, cfg.Run.RepeatCount)
	if err != nil {
		return pipeline.Run{}, err
	}

	results := run.Results()
	if !cfg.Run.Sentiment.Disabled {
		classifier, err := buildClassifier(cfg.Run.Sentiment, keys)
		if err != nil {
			return run, err
		}
		enriched, err := pipeline.WithSentiment(ctx, results, classifier)
		var warn *pipeline.SentimentWarning
		switch {
		case errors.As(err, &warn):
			log.Warn("sentiment incomplete", "run_id", run.ID, "failed", warn.Failed, "total", warn.Total, "error", warn.Err)
			fmt.Fprintf(errw, "warning: %v\n", warn)
		case err != nil:
			return run, err
		}
		results = enriched
	}

	stats := report.Summarize(results)
	if err := printRun(w, run, results, stats, out.JSON); err != nil {
		return run, err
	}
	for _, f := range run.Failures() {
		fmt.Fprintf(errw, "failed: %s %q: %v\n", f.Provider, f.Query, f.Err)
	}

	if out.Save {
		if err := saveRun(ctx, cfg.Store, run, results); err != nil {
			return run, err
		}
		fmt.Fprintf(errw, "saved run %s\n", run.ID)
	}

	pub, err := publish.New(log, cfg.Publish)
	if err != nil {
		fmt.Fprintf(errw, "warning: %v\n", err)
	} else {
		if err := pub.PublishRun(ctx, run, results); err != nil {
			fmt.Fprintf(errw, "warning: publishing run: %v\n", err)
		}
		pub.Close()
	}

	if out.Analyze {
		if err := analyze(ctx, w, cfg.Analysis, keys, run.Brand, run.Competitor, stats); err != nil {
			fmt.Fprintf(errw, "warning: %v\n", err)
		}
	}
	return run, nil
}

// buildClassifier returns the lexicon classifier or, for the openai
// scorer, one backed by a chat model.
func buildClassifier(cfg types.SentimentConfig, keys secrets.Keys) (*signal.Classifier, error) {
	switch strings.ToLower(cfg.Scorer) {
	case "", types.ScorerLexicon:
		return signal.NewClassifier(nil), nil
	case types.ScorerOpenAI:
		ai := cfg.AIConfig
		if ai.APIKey == "" {
			ai.APIKey = keys.Get(secrets.OpenAIKey)
		}
		client, err := llm.NewOpenAIClient(ai)
		if err != nil {
			return nil, fmt.Errorf("sentiment scorer: %w", err)
		}
		return signal.NewClassifier(&signal.ChatScorer{Client: client}), nil
	default:
		return nil, fmt.Errorf("unknown sentiment scorer %q (valid: lexicon, openai, off)", cfg.Scorer)
	}
}

// runDocument is the --json output of a run.
type runDocument struct {
	RunID    string                 `json:"run_id"`
	Brand    string                 `json:"brand"`
	Summary  []report.ProviderStats `json:"summary"`
	Results  []types.ProviderResult `json:"results"`
	Failures []failureDocument      `json:"failures,omitempty"`
}

type failureDocument struct {
	Provider string `json:"provider"`
	Query    string `json:"query"`
	Error    string `json:"error"`
}

func printRun(w io.Writer, run pipeline.Run, results []types.ProviderResult, stats []report.ProviderStats, asJSON bool) error {
	if asJSON {
		doc := runDocument{RunID: run.ID, Brand: run.Brand, Summary: stats, Results: results}
		for _, f := range run.Failures() {
			doc.Failures = append(doc.Failures, failureDocument{Provider: f.Provider, Query: f.Query, Error: f.Err.Error()})
		}
		return report.FormatJSON(w, doc)
	}

	fmt.Fprintf(w, "Run %s: %d answers, %d failed\n\n", run.ID, len(results), len(run.Failures()))
	if err := report.FormatTable(w, run.Brand, run.Competitor, stats); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return report.FormatMatrix(w, results)
}

func saveRun(ctx context.Context, cfg types.StoreConfig, run pipeline.Run, results []types.ProviderResult) error {
	st, err := store.NewStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.SaveRun(ctx, run, results)
}

// analyze renders the analysis prompt for stats and prints the model's
// recommendations, or the fallback text when the call fails.
func analyze(ctx context.Context, w io.Writer, cfg types.AIConfig, keys secrets.Keys, brand, competitor string, stats []report.ProviderStats) error {
	prompt, err := analysis.BuildPrompt(brand, competitor, stats)
	if err != nil {
		return err
	}
	if cfg.APIKey == "" {
		cfg.APIKey = keys.Get(secrets.OpenAIKey)
	}

	var client llm.Client
	if c, cerr := llm.NewOpenAIClient(cfg); cerr == nil {
		client = c
	}
	text, err := (&analysis.Analyst{Client: client}).Recommend(ctx, prompt)
	fmt.Fprintf(w, "\nStrategic analysis\n\n%s\n", text)
	return err
}

func init() {
	runCmd.Flags().String("brand", "", "brand to track (required)")
	runCmd.Flags().String("competitor", "", "competitor to compare against")
	runCmd.Flags().StringArray("query", nil, "query to send (repeatable)")
	runCmd.Flags().String("queries-file", "", "file with one query per line")
	runCmd.Flags().Int("repeat", 1, "times to send each query to each provider")
	runCmd.Flags().StringSlice("providers", nil, "providers to query (default: all configured)")
	runCmd.Flags().Int("concurrency", 0, "maximum in-flight queries per provider (0 = unbounded)")
	runCmd.Flags().String("sentiment", types.ScorerLexicon, "sentiment scorer: lexicon, openai, or off")
	runCmd.Flags().Bool("json", false, "print the run as JSON")
	runCmd.Flags().Bool("save", false, "save the run to the database")
	runCmd.Flags().Bool("analyze", false, "ask a chat model for strategic recommendations")

	viper.BindPFlag("run.brand", runCmd.Flags().Lookup("brand"))
	viper.BindPFlag("run.competitor", runCmd.Flags().Lookup("competitor"))
	viper.BindPFlag("run.repeat_count", runCmd.Flags().Lookup("repeat"))
	viper.BindPFlag("run.concurrency", runCmd.Flags().Lookup("concurrency"))
	viper.BindPFlag("run.sentiment.scorer", runCmd.Flags().Lookup("sentiment"))

	rootCmd.AddCommand(runCmd)
}
