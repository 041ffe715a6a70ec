package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// tracer uses the global OTel tracer provider.
var tracer = otel.Tracer("eventcentric")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartCommitSpan starts a span for a whole unit-of-work commit.
	StartCommitSpan(ctx context.Context, aggregates int) (context.Context, trace.Span)

	// StartAggregateSpan starts a span for committing one aggregate's
	// stream. It should be a child of the commit span.
	StartAggregateSpan(ctx context.Context, contract, id string) (context.Context, trace.Span)

	// StartLoadSpan starts a span for loading an aggregate.
	StartLoadSpan(ctx context.Context, contract, id string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

func (m *otelSpanManager) StartCommitSpan(ctx context.Context, aggregates int) (context.Context, trace.Span) {
	return StartCommitSpan(ctx, aggregates)
}

func (m *otelSpanManager) StartAggregateSpan(ctx context.Context, contract, id string) (context.Context, trace.Span) {
	return StartAggregateSpan(ctx, contract, id)
}

func (m *otelSpanManager) StartLoadSpan(ctx context.Context, contract, id string) (context.Context, trace.Span) {
	return StartLoadSpan(ctx, contract, id)
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// StartCommitSpan starts a span for a unit-of-work commit.
// Uses the global OTel tracer.
func StartCommitSpan(ctx context.Context, aggregates int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "eventcentric.commit",
		trace.WithAttributes(
			attribute.Int("aggregates.tracked", aggregates),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartAggregateSpan starts a span for committing one aggregate.
// Uses the global OTel tracer.
func StartAggregateSpan(ctx context.Context, contract, id string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "eventcentric.commit."+contract,
		trace.WithAttributes(
			attribute.String("aggregate.contract", contract),
			attribute.String("aggregate.id", id),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartLoadSpan starts a span for loading an aggregate.
// Uses the global OTel tracer.
func StartLoadSpan(ctx context.Context, contract, id string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "eventcentric.load."+contract,
		trace.WithAttributes(
			attribute.String("aggregate.contract", contract),
			attribute.String("aggregate.id", id),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
