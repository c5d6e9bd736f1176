// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/brand-mentions/internal/report"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <run-id>",
	Short: "Ask a chat model for recommendations on a saved run",
	Long: `Analyze summarises a saved run per provider and asks a chat model
(analysis.model, default gpt-4o-mini) how the brand's visibility in AI answers
could be improved. The OpenAI key comes from .secrets/openai-api-key,
OPENAI_API_KEY, or analysis.api_key.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAppConfig(viper.GetViper())
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()

		doc, err := st.LoadExport(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		stats := report.Summarize(doc.Results)
		return analyze(cmd.Context(), os.Stdout, cfg.Analysis, loadedSecrets, doc.Run.Brand, doc.Run.Competitor, stats)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
}
