package unitofwork

import (
	"log/slog"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/identity"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/observability"
)

// Option configures a UnitOfWork.
type Option func(*UnitOfWork)

// WithLogger sets the logger. Default: slog.Default().
// A nil logger disables logging.
func WithLogger(logger *slog.Logger) Option {
	return func(u *UnitOfWork) {
		u.logger = logger
	}
}

// WithMetrics sets the metrics recorder. Default: observability.NoopMetrics.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(u *UnitOfWork) {
		if m != nil {
			u.metrics = m
		}
	}
}

// WithSpanManager sets the span manager. Default: observability.NoopSpanManager.
func WithSpanManager(s observability.SpanManager) Option {
	return func(u *UnitOfWork) {
		if s != nil {
			u.spans = s
		}
	}
}

// WithIDGenerator sets the event and commit id source.
// Default: identity.UUIDGenerator.
//
// Example:
//
//	uow := unitofwork.New(store, ser, rec,
//	    unitofwork.WithIDGenerator(identity.NewSequenceGenerator("test")))
func WithIDGenerator(g identity.Generator) Option {
	return func(u *UnitOfWork) {
		if g != nil {
			u.ids = g
		}
	}
}
