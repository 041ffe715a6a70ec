package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	ecerrors "github.com/randalmurphal/eventcentric/pkg/eventcentric/errors"
)

// MetricsRecorder records eventcentric metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordLoad records a stream read with the number of events replayed.
	RecordLoad(ctx context.Context, contract string, events int, duration time.Duration, err error)

	// RecordCommit records a stream commit with the number of events appended.
	// Concurrency conflicts are counted separately.
	RecordCommit(ctx context.Context, contract string, events int, duration time.Duration, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	loads         metric.Int64Counter
	loadLatency   metric.Float64Histogram
	commits       metric.Int64Counter
	commitLatency metric.Float64Histogram
	appended      metric.Int64Counter
	conflicts     metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics lazily initializes the shared OTel instruments.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("eventcentric")

	loads, err := meter.Int64Counter("eventcentric.stream.loads",
		metric.WithDescription("Number of stream loads"),
	)
	if err != nil {
		return nil, err
	}

	loadLatency, err := meter.Float64Histogram("eventcentric.stream.load_latency_ms",
		metric.WithDescription("Stream load latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	commits, err := meter.Int64Counter("eventcentric.stream.commits",
		metric.WithDescription("Number of stream commits"),
	)
	if err != nil {
		return nil, err
	}

	commitLatency, err := meter.Float64Histogram("eventcentric.stream.commit_latency_ms",
		metric.WithDescription("Stream commit latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	appended, err := meter.Int64Counter("eventcentric.events.appended",
		metric.WithDescription("Number of events committed"),
	)
	if err != nil {
		return nil, err
	}

	conflicts, err := meter.Int64Counter("eventcentric.commit.conflicts",
		metric.WithDescription("Number of commits rejected by optimistic concurrency"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		loads:         loads,
		loadLatency:   loadLatency,
		commits:       commits,
		commitLatency: commitLatency,
		appended:      appended,
		conflicts:     conflicts,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordLoad records a stream load.
func (m *otelMetrics) RecordLoad(ctx context.Context, contract string, _ int, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("contract", contract),
		attribute.Bool("success", err == nil),
	)
	m.loads.Add(ctx, 1, attrs)
	m.loadLatency.Record(ctx, Milliseconds(duration), attrs)
}

// RecordCommit records a stream commit.
func (m *otelMetrics) RecordCommit(ctx context.Context, contract string, events int, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("contract", contract),
		attribute.Bool("success", err == nil),
	)
	m.commits.Add(ctx, 1, attrs)
	m.commitLatency.Record(ctx, Milliseconds(duration), attrs)

	switch {
	case err == nil:
		m.appended.Add(ctx, int64(events), metric.WithAttributes(attribute.String("contract", contract)))
	case ecerrors.IsConflict(err):
		m.conflicts.Add(ctx, 1, metric.WithAttributes(attribute.String("contract", contract)))
	}
}
