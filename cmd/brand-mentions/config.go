// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/brand-mentions/internal/provider"
	"github.com/pdiddy/brand-mentions/internal/secrets"
	"github.com/pdiddy/brand-mentions/internal/store"
	"github.com/pdiddy/brand-mentions/pkg/types"
)

// envKeys are the configuration keys that can be set through
// BRAND_MENTIONS_* environment variables without a config file.
var envKeys = []string{
	"log_level",
	"secrets_dir",
	"run.brand",
	"run.competitor",
	"run.repeat_count",
	"run.concurrency",
	"run.sentiment.scorer",
	"run.sentiment.model",
	"analysis.model",
	"store.data_dir",
	"publish.nats_url",
	"publish.subject_prefix",
}

// loadAppConfig decodes every viper setting (file, env, bound flags) into
// AppConfig. Structured sections are round-tripped through YAML so the
// struct's yaml tags, including inline sections, drive the mapping. The
// scalar envKeys are then read through viper's typed getters, since env
// values arrive as strings.
func loadAppConfig(v *viper.Viper) (types.AppConfig, error) {
	var cfg types.AppConfig
	settings := v.AllSettings()
	for _, key := range envKeys {
		deletePath(settings, key)
	}
	data, err := yaml.Marshal(settings)
	if err != nil {
		return cfg, fmt.Errorf("encoding settings: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("decoding config: %w", err)
	}

	cfg.LogLevel = v.GetString("log_level")
	cfg.Run.Brand = v.GetString("run.brand")
	cfg.Run.Competitor = v.GetString("run.competitor")
	cfg.Run.RepeatCount = v.GetInt("run.repeat_count")
	cfg.Run.Concurrency = v.GetInt("run.concurrency")
	cfg.Run.Sentiment.Scorer = v.GetString("run.sentiment.scorer")
	cfg.Run.Sentiment.Model = v.GetString("run.sentiment.model")
	cfg.Analysis.Model = v.GetString("analysis.model")
	cfg.Store.DataDir = v.GetString("store.data_dir")
	cfg.Publish.NATSURL = v.GetString("publish.nats_url")
	cfg.Publish.SubjectPrefix = v.GetString("publish.subject_prefix")

	applyDefaults(&cfg)
	return cfg, nil
}

// deletePath removes a dotted key from viper's nested settings map.
func deletePath(m map[string]any, key string) {
	parts := strings.Split(key, ".")
	for _, p := range parts[:len(parts)-1] {
		next, ok := m[p].(map[string]any)
		if !ok {
			return
		}
		m = next
	}
	delete(m, parts[len(parts)-1])
}

func applyDefaults(cfg *types.AppConfig) {
	if cfg.Run.RepeatCount == 0 {
		cfg.Run.RepeatCount = 1
	}
	if cfg.Run.Sentiment.Scorer == "" {
		cfg.Run.Sentiment.Scorer = types.ScorerLexicon
	}
	if cfg.Store.DataDir == "" {
		cfg.Store.DataDir = store.DefaultDataDir
	}
}

// resolveProviders returns one config per selected provider name. names
// overrides the providers listed in the config file; per-provider settings
// from the file are kept for the names that appear in both. Missing API
// keys are filled from keys.
func resolveProviders(configured []types.ProviderConfig, names []string, keys secrets.Keys) ([]types.ProviderConfig, error) {
	byName := make(map[string]types.ProviderConfig, len(configured))
	var order []string
	for _, pc := range configured {
		name := strings.ToLower(strings.TrimSpace(pc.Name))
		pc.Name = name
		if _, seen := byName[name]; !seen {
			order = append(order, name)
		}
		byName[name] = pc
	}

	if len(names) > 0 {
		order = nil
		for _, n := range names {
			order = append(order, strings.ToLower(strings.TrimSpace(n)))
		}
	} else if len(order) == 0 {
		order = provider.Names
	}

	out := make([]types.ProviderConfig, 0, len(order))
	seen := make(map[string]bool)
	for _, name := range order {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		if !knownProvider(name) {
			return nil, fmt.Errorf("unknown provider %q (valid: %s)", name, strings.Join(provider.Names, ", "))
		}
		pc := byName[name]
		pc.Name = name
		if pc.APIKey == "" {
			pc.APIKey = keys.ForProvider(name)
		}
		out = append(out, pc)
	}
	return out, nil
}

func knownProvider(name string) bool {
	for _, n := range provider.Names {
		if n == name {
			return true
		}
	}
	return false
}

// readQueries reads one query per line, skipping blank lines and lines
// starting with '#'.
func readQueries(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading queries: %w", err)
	}
	return out, nil
}

// queryFile is the YAML form of a queries file.
type queryFile struct {
	Queries []string `yaml:"queries"`
}

// readQueriesFile reads a plain-text file with one query per line, or a
// YAML file (.yaml, .yml) with a top-level queries list.
func readQueriesFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening queries file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var qf queryFile
		if err := yaml.NewDecoder(f).Decode(&qf); err != nil {
			return nil, fmt.Errorf("parsing queries file %s: %w", path, err)
		}
		var out []string
		for _, q := range qf.Queries {
			if q = strings.TrimSpace(q); q != "" {
				out = append(out, q)
			}
		}
		return out, nil
	default:
		return readQueries(f)
	}
}
