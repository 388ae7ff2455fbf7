package observe

import (
	"context"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

func findMetric(t *testing.T, reader *sdkmetric.ManualReader, name string) *metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("%s: data is %T, want Sum[int64]", m.Name, m.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestCounters(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordKept(ctx, "automatic")
	m.RecordKept(ctx, "manual")
	m.RecordDiscarded(ctx, "automatic")
	m.RecordCommand(ctx, "forward")

	if got := findMetric(t, reader, "curator.samples.kept"); got == nil || sumOf(t, got) != 2 {
		t.Errorf("kept metric = %+v, want total 2", got)
	}
	if got := findMetric(t, reader, "curator.samples.discarded"); got == nil || sumOf(t, got) != 1 {
		t.Errorf("discarded metric = %+v, want total 1", got)
	}
	if got := findMetric(t, reader, "curator.review.commands"); got == nil || sumOf(t, got) != 1 {
		t.Errorf("commands metric = %+v, want total 1", got)
	}
}

func TestASRHistogram(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecordASR(context.Background(), 300*time.Millisecond)

	got := findMetric(t, reader, "curator.asr.duration")
	if got == nil {
		t.Fatal("histogram not found")
	}
	hist, ok := got.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("data is %T", got.Data)
	}
	if len(hist.DataPoints) != 1 || hist.DataPoints[0].Count != 1 {
		t.Errorf("datapoints = %+v", hist.DataPoints)
	}
}
