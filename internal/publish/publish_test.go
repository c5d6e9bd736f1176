// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package publish

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/brand-mentions/internal/logger"
	"github.com/pdiddy/brand-mentions/internal/pipeline"
	"github.com/pdiddy/brand-mentions/internal/provider"
	"github.com/pdiddy/brand-mentions/pkg/types"
)

type fakeConn struct {
	subject  string
	data     []byte
	pubErr   error
	flushErr error
	closed   bool
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.subject, f.data = subject, data
	return f.pubErr
}

func (f *fakeConn) FlushWithContext(context.Context) error { return f.flushErr }
func (f *fakeConn) Close()                                 { f.closed = true }

func sampleRun() (pipeline.Run, []types.ProviderResult) {
	ctx := "Acme rocks."
	ok := types.ProviderResult{
		BrandName: "Acme", ProviderName: "gemini", QueryText: "q",
		RawResponse:  json.RawMessage(`{"big":"payload"}`),
		ResponseText: "Acme rocks.", BrandMention: 1, BrandMentionContext: &ctx,
		SearchURLs: []types.SearchURL{},
	}
	run := pipeline.Run{
		ID: "abc", Brand: "Acme", Queries: []string{"q"}, RepeatCount: 1,
		StartedAt: time.Unix(0, 0).UTC(), FinishedAt: time.Unix(1, 0).UTC(),
		Outcomes: []pipeline.ProviderOutcome{
			{Provider: "gemini", Outcomes: []provider.Outcome{{Provider: "gemini", Query: "q", Result: ok}}},
			{Provider: "claude", Outcomes: []provider.Outcome{{Provider: "claude", Query: "q", Err: errors.New("down")}}},
		},
	}
	return run, run.Results()
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "brandmentions.runs.r1", Subject("", "r1"))
	assert.Equal(t, "acme.prod.runs.r1", Subject("acme.prod", "r1"))
}

func TestNewEnvelope(t *testing.T) {
	run, results := sampleRun()
	env := NewEnvelope(run, results)

	assert.Equal(t, "abc", env.RunID)
	assert.Equal(t, 2, env.Slots)
	assert.Equal(t, 1, env.Failed)
	require.Len(t, env.Summary, 1)
	assert.Equal(t, 100.0, env.Summary[0].BrandRate)
	require.Len(t, env.Results, 1)
	assert.Nil(t, env.Results[0].RawResponse)
	assert.NotNil(t, results[0].RawResponse, "caller's results must be untouched")
}

func TestNATSPublisherPublishRun(t *testing.T) {
	conn := &fakeConn{}
	p := NewNATS(logger.Discard(), conn, "bm")
	run, results := sampleRun()

	require.NoError(t, p.PublishRun(context.Background(), run, results))
	assert.Equal(t, "bm.runs.abc", conn.subject)

	var env Envelope
	require.NoError(t, json.Unmarshal(conn.data, &env))
	assert.Equal(t, "Acme", env.Brand)
	assert.Len(t, env.Results, 1)

	require.NoError(t, p.Close())
	assert.True(t, conn.closed)
}

func TestNATSPublisherErrors(t *testing.T) {
	run, results := sampleRun()

	p := NewNATS(logger.Discard(), &fakeConn{pubErr: errors.New("no responders")}, "bm")
	assert.ErrorContains(t, p.PublishRun(context.Background(), run, results), "no responders")

	p = NewNATS(logger.Discard(), &fakeConn{flushErr: context.DeadlineExceeded}, "bm")
	assert.ErrorIs(t, p.PublishRun(context.Background(), run, results), context.DeadlineExceeded)
}

func TestNewWithoutURLIsNop(t *testing.T) {
	p, err := New(logger.Discard(), types.PublishConfig{})
	require.NoError(t, err)
	assert.IsType(t, NopPublisher{}, p)

	run, results := sampleRun()
	assert.NoError(t, p.PublishRun(context.Background(), run, results))
	assert.NoError(t, p.Close())
}
