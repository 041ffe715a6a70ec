package observability

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNoops(t *testing.T) {
	ctx := context.Background()

	var m MetricsRecorder = NoopMetrics{}
	assert.NotPanics(t, func() {
		m.RecordLoad(ctx, "c", 1, time.Millisecond, nil)
		m.RecordCommit(ctx, "c", 1, time.Millisecond, errors.New("x"))
	})

	var sm SpanManager = NoopSpanManager{}
	got, span := sm.StartCommitSpan(ctx, 1)
	assert.Equal(t, ctx, got)
	assert.False(t, span.IsRecording())

	got, _ = sm.StartAggregateSpan(ctx, "c", "id")
	assert.Equal(t, ctx, got)
	got, _ = sm.StartLoadSpan(ctx, "c", "id")
	assert.Equal(t, ctx, got)

	assert.NotPanics(t, func() {
		sm.EndSpanWithError(span, errors.New("x"))
		sm.AddSpanEvent(ctx, "event")
	})
}
