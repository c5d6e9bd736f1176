// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists runs and their results in SQLite and exports
// them as YAML or JSON.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/brand-mentions/internal/pipeline"
	"github.com/pdiddy/brand-mentions/pkg/types"
)

const (
	dbFile = "brand-mentions.db"

	// DefaultDataDir is used when no data directory is configured.
	DefaultDataDir = ".brand-mentions"
)

// tsLayout is fixed width so stored timestamps sort as text.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when a run ID is not in the database.
var ErrRunNotFound = errors.New("run not found")

// Store manages the run database.
type Store struct {
	db      *sql.DB
	dataDir string
}

// RunSummary is the stored header of one run.
type RunSummary struct {
	ID          string    `json:"id" yaml:"id"`
	Brand       string    `json:"brand" yaml:"brand"`
	Competitor  string    `json:"competitor,omitempty" yaml:"competitor,omitempty"`
	Queries     []string  `json:"queries" yaml:"queries"`
	RepeatCount int       `json:"repeat_count" yaml:"repeat_count"`
	StartedAt   time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt  time.Time `json:"finished_at" yaml:"finished_at"`
	Results     int       `json:"results" yaml:"results"`
	Failures    int       `json:"failures" yaml:"failures"`
}

// Failure is a stored failed query slot.
type Failure struct {
	Provider string `json:"provider" yaml:"provider"`
	Query    string `json:"query" yaml:"query"`
	Error    string `json:"error" yaml:"error"`
}

// NewStore opens or creates dataDir/brand-mentions.db and its schema.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		dataDir = DefaultDataDir
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dataDir: dataDir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DataDir returns the directory holding the database.
func (s *Store) DataDir() string { return s.dataDir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			brand TEXT NOT NULL,
			competitor TEXT,
			queries TEXT NOT NULL,
			repeat_count INTEGER NOT NULL,
			started_at TEXT NOT NULL,
			finished_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS results (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			brand TEXT NOT NULL,
			competitor TEXT,
			provider TEXT NOT NULL,
			model TEXT,
			query TEXT NOT NULL,
			response_text TEXT,
			raw_response TEXT,
			search_urls TEXT,
			brand_mention INTEGER NOT NULL,
			competitor_mention INTEGER NOT NULL,
			brand_context TEXT,
			competitor_context TEXT,
			sentiment TEXT,
			competitor_sentiment TEXT,
			UNIQUE (run_id, seq)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_results_run_id ON results(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_results_provider ON results(provider)`,
		`CREATE TABLE IF NOT EXISTS failures (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			provider TEXT NOT NULL,
			query TEXT NOT NULL,
			error TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// SaveRun writes the run header, results and failures in one transaction.
// results is passed separately from run so that sentiment-enriched copies
// are the ones stored. Saving the same run ID again replaces it.
func (s *Store) SaveRun(ctx context.Context, run pipeline.Run, results []types.ProviderResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, run.ID); err != nil {
		return fmt.Errorf("replacing run: %w", err)
	}

	queriesJSON, _ := json.Marshal(run.Queries)
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, brand, competitor, queries, repeat_count, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Brand, run.Competitor, string(queriesJSON), run.RepeatCount,
		run.StartedAt.UTC().Format(tsLayout), run.FinishedAt.UTC().Format(tsLayout),
	)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO results (run_id, seq, brand, competitor, provider, model, query,
			response_text, raw_response, search_urls, brand_mention, competitor_mention,
			brand_context, competitor_context, sentiment, competitor_sentiment)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range results {
		urlsJSON, _ := json.Marshal(r.SearchURLs)
		_, err := stmt.ExecContext(ctx,
			run.ID, i, r.BrandName, r.CompetitorName, r.ProviderName, r.ModelName, r.QueryText,
			r.ResponseText, nullBytes(r.RawResponse), string(urlsJSON),
			r.BrandMention, r.CompetitorMention,
			r.BrandMentionContext, r.CompetitorMentionContext,
			nullSentiment(r.Sentiment), nullSentiment(r.CompetitorSentiment),
		)
		if err != nil {
			return fmt.Errorf("inserting result %d: %w", i, err)
		}
	}

	for _, f := range run.Failures() {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO failures (run_id, provider, query, error) VALUES (?, ?, ?, ?)`,
			run.ID, f.Provider, f.Query, f.Err.Error(),
		)
		if err != nil {
			return fmt.Errorf("inserting failure: %w", err)
		}
	}

	return tx.Commit()
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullSentiment(s *types.Sentiment) any {
	if s == nil {
		return nil
	}
	return string(*s)
}

// ListRuns returns every stored run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.brand, r.competitor, r.queries, r.repeat_count, r.started_at, r.finished_at,
			(SELECT count(*) FROM results WHERE run_id = r.id),
			(SELECT count(*) FROM failures WHERE run_id = r.id)
		 FROM runs r
		 ORDER BY r.started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		rs, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rs)
	}
	return runs, rows.Err()
}

// GetRun returns the header of one run.
func (s *Store) GetRun(ctx context.Context, id string) (RunSummary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT r.id, r.brand, r.competitor, r.queries, r.repeat_count, r.started_at, r.finished_at,
			(SELECT count(*) FROM results WHERE run_id = r.id),
			(SELECT count(*) FROM failures WHERE run_id = r.id)
		 FROM runs r WHERE r.id = ?`, id)
	rs, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return RunSummary{}, fmt.Errorf("%s: %w", id, ErrRunNotFound)
	}
	return rs, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (RunSummary, error) {
	var (
		rs          RunSummary
		competitor  sql.NullString
		queriesJSON string
		started     string
		finished    string
	)
	if err := sc.Scan(&rs.ID, &rs.Brand, &competitor, &queriesJSON, &rs.RepeatCount,
		&started, &finished, &rs.Results, &rs.Failures); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return RunSummary{}, err
		}
		return RunSummary{}, fmt.Errorf("scanning run: %w", err)
	}
	rs.Competitor = competitor.String
	json.Unmarshal([]byte(queriesJSON), &rs.Queries)
	rs.StartedAt, _ = time.Parse(tsLayout, started)
	rs.FinishedAt, _ = time.Parse(tsLayout, finished)
	return rs, nil
}

// LoadFailures returns the failed slots of a run in insertion order.
func (s *Store) LoadFailures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT provider, query, error FROM failures WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("loading failures: %w", err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.Provider, &f.Query, &f.Error); err != nil {
			return nil, fmt.Errorf("scanning failure: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
