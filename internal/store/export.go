// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/brand-mentions/pkg/types"
)

// Export is the document written by ExportYAML and ExportJSON.
type Export struct {
	Run      RunSummary             `json:"run" yaml:"run"`
	Results  []types.ProviderResult `json:"results" yaml:"results"`
	Failures []Failure              `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// LoadExport assembles the full export document for a run.
func (s *Store) LoadExport(ctx context.Context, runID string) (Export, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return Export{}, err
	}
	results, err := s.Query(ctx, ResultFilter{RunID: runID})
	if err != nil {
		return Export{}, err
	}
	failures, err := s.LoadFailures(ctx, runID)
	if err != nil {
		return Export{}, err
	}
	return Export{Run: run, Results: results, Failures: failures}, nil
}

// ExportYAML writes a run to path, or to <data-dir>/exports/<run-id>.yaml
// when path is empty. It returns the path written.
func (s *Store) ExportYAML(ctx context.Context, runID, path string) (string, error) {
	doc, err := s.LoadExport(ctx, runID)
	if err != nil {
		return "", err
	}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("marshaling YAML: %w", err)
	}
	return s.writeExport(runID, path, ".yaml", data)
}

// ExportJSON writes a run to path, or to <data-dir>/exports/<run-id>.json
// when path is empty. It returns the path written.
func (s *Store) ExportJSON(ctx context.Context, runID, path string) (string, error) {
	doc, err := s.LoadExport(ctx, runID)
	if err != nil {
		return "", err
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling JSON: %w", err)
	}
	return s.writeExport(runID, path, ".json", data)
}

func (s *Store) writeExport(runID, path, ext string, data []byte) (string, error) {
	if path == "" {
		dir := filepath.Join(s.dataDir, "exports")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating export directory: %w", err)
		}
		path = filepath.Join(dir, runID+ext)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
