// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the brand-mentions CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/brand-mentions/internal/logger"
	"github.com/pdiddy/brand-mentions/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// Process-wide state prepared by the root command before any subcommand.
var (
	loadedSecrets secrets.Keys
	log           = logger.Discard()
)

// rootCmd is the base command for the brand-mentions CLI.
var rootCmd = &cobra.Command{
	Use:   "brand-mentions",
	Short: "Measure how often AI answer engines mention a brand",
	Long: `brand-mentions sends the same questions to several search-augmented AI
answer engines (Perplexity, Gemini, OpenAI, Claude), checks every answer for
mentions of a brand and its competitor, and summarises visibility and
sentiment per provider.

Runs can be saved to a local SQLite database, exported, published to NATS,
and passed to a chat model for strategic recommendations.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		log = logger.New(os.Stderr, viper.GetString("log_level"))

		dir := viper.GetString("secrets_dir")
		if dir == "" {
			dir = secrets.DefaultDir
		}
		s, err := secrets.Load(dir, log)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			keys := make([]string, 0, len(s))
			for k := range s {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			log.Debug("loaded secrets", "keys", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./brand-mentions.yaml or ~/.config/brand-mentions/brand-mentions.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("secrets-dir", secrets.DefaultDir, "directory of API key files")
	rootCmd.PersistentFlags().String("data-dir", "", "directory holding the run database (default: .brand-mentions)")

	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("secrets_dir", rootCmd.PersistentFlags().Lookup("secrets-dir"))
	viper.BindPFlag("store.data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("brand-mentions")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "brand-mentions"))
		}
	}

	viper.SetEnvPrefix("BRAND_MENTIONS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	for _, key := range envKeys {
		viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
