// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package publish announces completed runs to downstream consumers.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/pdiddy/brand-mentions/internal/pipeline"
	"github.com/pdiddy/brand-mentions/internal/report"
	"github.com/pdiddy/brand-mentions/pkg/types"
)

// DefaultSubjectPrefix is used when no prefix is configured.
const DefaultSubjectPrefix = "brandmentions"

// Publisher announces a finished run.
type Publisher interface {
	PublishRun(ctx context.Context, run pipeline.Run, results []types.ProviderResult) error
	Close() error
}

// Envelope is the message body published for a run. Raw provider payloads
// are left out to keep messages small.
type Envelope struct {
	RunID      string                 `json:"run_id"`
	Brand      string                 `json:"brand"`
	Competitor string                 `json:"competitor,omitempty"`
	Queries    []string               `json:"queries"`
	Repeat     int                    `json:"repeat_count"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Slots      int                    `json:"slots"`
	Failed     int                    `json:"failed"`
	Summary    []report.ProviderStats `json:"summary"`
	Results    []types.ProviderResult `json:"results"`
}

// NewEnvelope builds the message for run.
func NewEnvelope(run pipeline.Run, results []types.ProviderResult) Envelope {
	slim := make([]types.ProviderResult, len(results))
	for i, r := range results {
		r.RawResponse = nil
		slim[i] = r
	}
	return Envelope{
		RunID:      run.ID,
		Brand:      run.Brand,
		Competitor: run.Competitor,
		Queries:    run.Queries,
		Repeat:     run.RepeatCount,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Slots:      run.Slots(),
		Failed:     len(run.Failures()),
		Summary:    report.Summarize(results),
		Results:    slim,
	}
}

// Subject returns the subject a run is published on.
func Subject(prefix, runID string) string {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return prefix + ".runs." + runID
}

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes run envelopes on a NATS subject.
type NATSPublisher struct {
	log    *slog.Logger
	nc     Conn
	prefix string
}

// NewNATS wraps an existing connection.
func NewNATS(log *slog.Logger, nc Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{log: log, nc: nc, prefix: prefix}
}

// Connect dials url and returns a publisher that owns the connection.
func Connect(log *slog.Logger, cfg types.PublishConfig) (*NATSPublisher, error) {
	nc, err := nats.Connect(cfg.NATSURL, nats.Name("brand-mentions"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	log.Info("using NATS publisher", "url", nc.ConnectedUrlRedacted())
	return NewNATS(log, nc, cfg.SubjectPrefix), nil
}

// PublishRun sends the run envelope and waits for the server to
// acknowledge the flush.
func (p *NATSPublisher) PublishRun(ctx context.Context, run pipeline.Run, results []types.ProviderResult) error {
	body, err := json.Marshal(NewEnvelope(run, results))
	if err != nil {
		return fmt.Errorf("encoding run envelope: %w", err)
	}
	subject := Subject(p.prefix, run.ID)
	if err := p.nc.Publish(subject, body); err != nil {
		return fmt.Errorf("publishing %s: %w", subject, err)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flushing %s: %w", subject, err)
	}
	p.log.Info("run published", "subject", subject, "bytes", len(body))
	return nil
}

// Close closes the connection.
func (p *NATSPublisher) Close() error {
	p.nc.Close()
	return nil
}

// NopPublisher discards runs. It is used when no broker is configured.
type NopPublisher struct{}

// PublishRun does nothing.
func (NopPublisher) PublishRun(context.Context, pipeline.Run, []types.ProviderResult) error {
	return nil
}

// Close does nothing.
func (NopPublisher) Close() error { return nil }

// New returns a NATS publisher when cfg names a server and a NopPublisher
// otherwise.
func New(log *slog.Logger, cfg types.PublishConfig) (Publisher, error) {
	if cfg.NATSURL == "" {
		return NopPublisher{}, nil
	}
	return Connect(log, cfg)
}
