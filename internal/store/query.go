// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pdiddy/brand-mentions/pkg/types"
)

const defaultLimit = 100000

// ResultFilter selects stored results. Zero fields do not filter.
type ResultFilter struct {
	RunID    string
	Provider string
	// Text matches response text case-insensitively as a substring.
	Text string
	// MentionedOnly keeps results that mention the brand.
	MentionedOnly bool
	Limit         int
}

// LoadResults returns the results of one run in their stored order.
func (s *Store) LoadResults(ctx context.Context, runID string) ([]types.ProviderResult, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}
	return s.Query(ctx, ResultFilter{RunID: runID})
}

// Query returns results matching f, ordered by run start time and then by
// position within the run.
func (s *Store) Query(ctx context.Context, f ResultFilter) ([]types.ProviderResult, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT res.brand, res.competitor, res.provider, res.model, res.query,
			res.response_text, res.raw_response, res.search_urls,
			res.brand_mention, res.competitor_mention,
			res.brand_context, res.competitor_context,
			res.sentiment, res.competitor_sentiment
		FROM results res
		JOIN runs r ON r.id = res.run_id
		WHERE 1=1`)

	if f.RunID != "" {
		qb.WriteString(` AND res.run_id = ?`)
		args = append(args, f.RunID)
	}
	if f.Provider != "" {
		qb.WriteString(` AND res.provider = ?`)
		args = append(args, f.Provider)
	}
	if f.Text != "" {
		qb.WriteString(` AND instr(lower(res.response_text), lower(?)) > 0`)
		args = append(args, f.Text)
	}
	if f.MentionedOnly {
		qb.WriteString(` AND res.brand_mention = 1`)
	}
	qb.WriteString(` ORDER BY r.started_at, res.run_id, res.seq LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var results []types.ProviderResult
	for rows.Next() {
		var (
			r          types.ProviderResult
			competitor sql.NullString
			model      sql.NullString
			text       sql.NullString
			raw        sql.NullString
			urlsJSON   sql.NullString
			brandCtx   sql.NullString
			compCtx    sql.NullString
			sent       sql.NullString
			compSent   sql.NullString
		)
		if err := rows.Scan(
			&r.BrandName, &competitor, &r.ProviderName, &model, &r.QueryText,
			&text, &raw, &urlsJSON,
			&r.BrandMention, &r.CompetitorMention,
			&brandCtx, &compCtx, &sent, &compSent,
		); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}

		r.CompetitorName = competitor.String
		r.ModelName = model.String
		r.ResponseText = text.String
		if raw.Valid {
			r.RawResponse = json.RawMessage(raw.String)
		}
		r.SearchURLs = []types.SearchURL{}
		if urlsJSON.Valid {
			json.Unmarshal([]byte(urlsJSON.String), &r.SearchURLs)
		}
		r.BrandMentionContext = nullString(brandCtx)
		r.CompetitorMentionContext = nullString(compCtx)
		r.Sentiment = nullSentimentValue(sent)
		r.CompetitorSentiment = nullSentimentValue(compSent)

		results = append(results, r)
	}
	return results, rows.Err()
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullSentimentValue(ns sql.NullString) *types.Sentiment {
	if !ns.Valid {
		return nil
	}
	s := types.Sentiment(ns.String)
	return &s
}
