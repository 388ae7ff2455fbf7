// Package observe holds the OpenTelemetry instruments of a curation run and
// the provider that exports them for Prometheus scraping.
package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "audio-curator"

// Metrics holds every instrument. All fields are safe for concurrent use.
type Metrics struct {
	// SamplesKept counts samples that passed a pass. Attribute: pass.
	SamplesKept metric.Int64Counter

	// SamplesDiscarded counts relocated samples. Attribute: category.
	SamplesDiscarded metric.Int64Counter

	// ReviewCommands counts key commands. Attribute: command.
	ReviewCommands metric.Int64Counter

	// ASRDuration tracks transcription latency per sample.
	ASRDuration metric.Float64Histogram
}

var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates the instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.SamplesKept, err = m.Int64Counter("curator.samples.kept",
		metric.WithDescription("Samples kept by a curation pass."),
	); err != nil {
		return nil, err
	}
	if met.SamplesDiscarded, err = m.Int64Counter("curator.samples.discarded",
		metric.WithDescription("Samples moved into the rejection tree."),
	); err != nil {
		return nil, err
	}
	if met.ReviewCommands, err = m.Int64Counter("curator.review.commands",
		metric.WithDescription("Key commands received during manual review."),
	); err != nil {
		return nil, err
	}
	if met.ASRDuration, err = m.Float64Histogram("curator.asr.duration",
		metric.WithDescription("Latency of speech-to-text transcription per sample."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	return met, nil
}

// RecordKept counts one kept sample for pass.
func (m *Metrics) RecordKept(ctx context.Context, pass string) {
	m.SamplesKept.Add(ctx, 1, metric.WithAttributes(attribute.String("pass", pass)))
}

// RecordDiscarded counts one relocated sample.
func (m *Metrics) RecordDiscarded(ctx context.Context, category string) {
	m.SamplesDiscarded.Add(ctx, 1, metric.WithAttributes(attribute.String("category", category)))
}

// RecordCommand counts one review command.
func (m *Metrics) RecordCommand(ctx context.Context, command string) {
	m.ReviewCommands.Add(ctx, 1, metric.WithAttributes(attribute.String("command", command)))
}

// RecordASR records the latency of one transcription.
func (m *Metrics) RecordASR(ctx context.Context, d time.Duration) {
	m.ASRDuration.Record(ctx, d.Seconds())
}
