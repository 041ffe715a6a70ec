// Package observability provides structured logging, metrics and tracing
// for eventcentric.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds unit-of-work context to a logger.
//
// Example:
//
//	enriched := EnrichLogger(logger, "uow-123")
//	enriched.Info("loading") // includes unit_of_work
func EnrichLogger(logger *slog.Logger, unitID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(slog.String("unit_of_work", unitID))
}

// LogTrack logs an aggregate entering a unit of work.
func LogTrack(logger *slog.Logger, contract, id string, pending int) {
	if logger == nil {
		return
	}
	logger.Debug("aggregate tracked",
		slog.String("contract", contract),
		slog.String("aggregate_id", id),
		slog.Int("pending_events", pending),
	)
}

// LogLoad logs an aggregate reconstituted from its stream.
func LogLoad(logger *slog.Logger, contract, id string, events int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("aggregate loaded",
		slog.String("contract", contract),
		slog.String("aggregate_id", id),
		slog.Int("events", events),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogCommit logs a successful stream commit.
func LogCommit(logger *slog.Logger, contract, id, commitID string, events int, durationMs float64) {
	if logger == nil {
		return
	}
	logger.Debug("stream committed",
		slog.String("contract", contract),
		slog.String("aggregate_id", id),
		slog.String("commit_id", commitID),
		slog.Int("events", events),
		slog.Float64("duration_ms", durationMs),
	)
}

// LogCommitError logs a failed stream commit. The error is still returned
// to the caller; this only records it.
func LogCommitError(logger *slog.Logger, contract, id string, err error) {
	if logger == nil {
		return
	}
	logger.Warn("stream commit failed",
		slog.String("contract", contract),
		slog.String("aggregate_id", id),
		slog.String("error", err.Error()),
	)
}

// TimedOperation measures the duration of an operation.
// Returns a function that, when called, returns the elapsed time.
//
// Example:
//
//	done := TimedOperation()
//	// ... do work ...
//	elapsed := done()
func TimedOperation() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}

// Milliseconds converts d to fractional milliseconds for log fields.
func Milliseconds(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
