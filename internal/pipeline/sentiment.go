// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/brand-mentions/pkg/types"
)

// sentimentWorkers caps concurrent classifier calls.
const sentimentWorkers = 8

// SentimentClassifier buckets a passage into a sentiment category.
// *signal.Classifier satisfies it.
type SentimentClassifier interface {
	Sentiment(ctx context.Context, text string) (types.Sentiment, error)
}

// SentimentWarning reports classifications that failed. The results that
// accompany it are still valid: records whose classification failed simply
// carry no new label.
type SentimentWarning struct {
	Failed int // classifier calls that returned an error
	Total  int // classifier calls attempted
	Err    error
}

func (w *SentimentWarning) Error() string {
	if w.Failed == w.Total {
		return fmt.Sprintf("sentiment enrichment skipped: %v", w.Err)
	}
	return fmt.Sprintf("sentiment enrichment incomplete (%d of %d failed): %v", w.Failed, w.Total, w.Err)
}

func (w *SentimentWarning) Unwrap() error { return w.Err }

// WithSentiment returns copies of results with Sentiment set on every record
// that has a brand context and no sentiment yet, and CompetitorSentiment set
// the same way. The input slice and its records are never modified, and
// records already labelled are left as they are.
//
// Classification is best effort. A failed call leaves only its own label
// unset; every failure is joined into a *SentimentWarning returned with the
// copies.
func WithSentiment(ctx context.Context, results []types.ProviderResult, classifier SentimentClassifier) ([]types.ProviderResult, error) {
	enriched := make([]types.ProviderResult, len(results))
	copy(enriched, results)

	var (
		mu    sync.Mutex
		errs  []error
		total int
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	var g errgroup.Group
	g.SetLimit(sentimentWorkers)
	for i := range enriched {
		r := enriched[i]
		needBrand := r.BrandMentionContext != nil && r.Sentiment == nil
		needComp := r.CompetitorMentionContext != nil && r.CompetitorSentiment == nil
		if needBrand {
			total++
		}
		if needComp {
			total++
		}
		if !needBrand && !needComp {
			continue
		}
		g.Go(func() error {
			if needBrand {
				if s, err := classifier.Sentiment(ctx, *r.BrandMentionContext); err != nil {
					fail(fmt.Errorf("%s %q brand context: %w", r.ProviderName, r.QueryText, err))
				} else {
					r = r.WithSentiment(s)
				}
			}
			if needComp {
				if s, err := classifier.Sentiment(ctx, *r.CompetitorMentionContext); err != nil {
					fail(fmt.Errorf("%s %q competitor context: %w", r.ProviderName, r.QueryText, err))
				} else {
					r = r.WithCompetitorSentiment(s)
				}
			}
			enriched[i] = r
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		return enriched, &SentimentWarning{Failed: len(errs), Total: total, Err: errors.Join(errs...)}
	}
	return enriched, nil
}
