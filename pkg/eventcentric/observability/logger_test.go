package observability

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, &buf
}

func TestLogHelpers(t *testing.T) {
	logger, buf := newTestLogger()

	LogTrack(logger, "orders.Order", "o-1", 2)
	LogLoad(logger, "orders.Order", "o-1", 3, 1.5)
	LogCommit(logger, "orders.Order", "o-1", "commit-1", 2, 0.5)
	LogCommitError(logger, "orders.Order", "o-1", errors.New("conflict"))

	out := buf.String()
	assert.Contains(t, out, "aggregate tracked")
	assert.Contains(t, out, "pending_events=2")
	assert.Contains(t, out, "aggregate loaded")
	assert.Contains(t, out, "stream committed")
	assert.Contains(t, out, "commit_id=commit-1")
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "error=conflict")
}

func TestLogHelpers_NilLogger(t *testing.T) {
	assert.NotPanics(t, func() {
		LogTrack(nil, "c", "id", 0)
		LogLoad(nil, "c", "id", 0, 0)
		LogCommit(nil, "c", "id", "x", 0, 0)
		LogCommitError(nil, "c", "id", errors.New("x"))
	})
	assert.Nil(t, EnrichLogger(nil, "uow-1"))
}

func TestEnrichLogger(t *testing.T) {
	logger, buf := newTestLogger()
	EnrichLogger(logger, "uow-1").Info("hello")
	assert.Contains(t, buf.String(), "unit_of_work=uow-1")
}

func TestTimedOperation(t *testing.T) {
	done := TimedOperation()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, done(), 2*time.Millisecond)
	assert.InDelta(t, 1.5, Milliseconds(1500*time.Microsecond), 1e-9)
}
