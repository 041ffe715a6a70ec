package observability

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTracingTest installs a tracer provider backed by an in-memory exporter.
func setupTracingTest(t *testing.T) *tracetest.InMemoryExporter {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer("eventcentric")

	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		tracer = otel.Tracer("eventcentric")
		if err := tp.Shutdown(context.Background()); err != nil {
			t.Logf("Error shutting down tracer provider: %v", err)
		}
	})
	return exporter
}

func attr(attrs []attribute.KeyValue, key string) attribute.Value {
	for _, a := range attrs {
		if string(a.Key) == key {
			return a.Value
		}
	}
	return attribute.Value{}
}

func TestCommitSpans(t *testing.T) {
	exporter := setupTracingTest(t)
	sm := NewSpanManager()

	ctx, commit := sm.StartCommitSpan(context.Background(), 2)
	_, agg := sm.StartAggregateSpan(ctx, "orders.Order", "o-1")
	sm.EndSpanWithError(agg, nil)
	sm.EndSpanWithError(commit, errors.New("partial failure"))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	aggSpan, commitSpan := spans[0], spans[1]
	assert.Equal(t, "eventcentric.commit.orders.Order", aggSpan.Name)
	assert.Equal(t, "o-1", attr(aggSpan.Attributes, "aggregate.id").AsString())
	assert.Equal(t, codes.Ok, aggSpan.Status.Code)
	assert.Equal(t, commitSpan.SpanContext.SpanID(), aggSpan.Parent.SpanID())

	assert.Equal(t, "eventcentric.commit", commitSpan.Name)
	assert.Equal(t, int64(2), attr(commitSpan.Attributes, "aggregates.tracked").AsInt64())
	assert.Equal(t, codes.Error, commitSpan.Status.Code)
	assert.Len(t, commitSpan.Events, 1, "error recorded as span event")
}

func TestLoadSpanAndEvents(t *testing.T) {
	exporter := setupTracingTest(t)

	ctx, span := StartLoadSpan(context.Background(), "orders.Order", "o-1")
	AddSpanEvent(ctx, "stream.opened", attribute.Int("events", 3))
	EndSpanWithError(span, nil)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "eventcentric.load.orders.Order", spans[0].Name)
	require.Len(t, spans[0].Events, 1)
	assert.Equal(t, "stream.opened", spans[0].Events[0].Name)
}

func TestAddSpanEvent_NoSpan(t *testing.T) {
	assert.NotPanics(t, func() {
		AddSpanEvent(context.Background(), "nothing")
		EndSpanWithError(nil, nil)
	})
}
