package unitofwork

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/aggregate"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	ecerrors "github.com/randalmurphal/eventcentric/pkg/eventcentric/errors"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/eventstore"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/identity"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/observability"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/serializer"
)

// UnitOfWork tracks aggregates and commits their new events.
type UnitOfWork struct {
	store         eventstore.Store
	serializer    serializer.Serializer
	reconstituter *aggregate.Reconstituter

	ids     identity.Generator
	logger  *slog.Logger
	metrics observability.MetricsRecorder
	spans   observability.SpanManager

	tracked map[key]*Aggregate
	order   []*Aggregate
}

// New creates an empty UnitOfWork.
func New(store eventstore.Store, ser serializer.Serializer, rec *aggregate.Reconstituter, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{
		store:         store,
		serializer:    ser,
		reconstituter: rec,
		ids:           identity.UUIDGenerator{},
		logger:        slog.Default(),
		metrics:       observability.NoopMetrics{},
		spans:         observability.NoopSpanManager{},
		tracked:       make(map[key]*Aggregate),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// Track adds an aggregate to the unit of work with whatever pending changes
// it holds. It fails with *AlreadyTrackedError if the contract and identity
// are already tracked; use Get for aggregates that may be loaded.
//
// A tracked aggregate is treated as new: its commit fails with a conflict if
// the stream already has events.
func (u *UnitOfWork) Track(c contract.Contract, id identity.Identity, root aggregate.Root) error {
	if c.IsZero() {
		return &contract.ValidationError{Reason: "zero contract"}
	}
	if id == nil || id.String() == "" {
		return fmt.Errorf("track %s: empty identity: %w", c, ecerrors.ErrValidation)
	}
	if root == nil {
		return fmt.Errorf("track %s/%s: nil aggregate: %w", c, id, ecerrors.ErrValidation)
	}

	k := key{contract: c, id: id.String()}
	if _, exists := u.tracked[k]; exists {
		return &AlreadyTrackedError{Contract: c, ID: k.id}
	}

	u.add(&Aggregate{contract: c, id: id, root: root})
	observability.LogTrack(u.logger, c.String(), k.id, len(root.Changes()))
	return nil
}

// Get returns the aggregate for c and id. A tracked aggregate is returned as
// is. Otherwise its stream is read, each envelope is deserialized under its
// own contract, and the events are replayed into a fresh instance, which is
// then tracked. A stream with no events yields a fresh instance.
func (u *UnitOfWork) Get(ctx context.Context, c contract.Contract, id identity.Identity) (aggregate.Root, error) {
	if id == nil || id.String() == "" {
		return nil, fmt.Errorf("get %s: empty identity: %w", c, ecerrors.ErrValidation)
	}
	if agg, ok := u.tracked[key{contract: c, id: id.String()}]; ok {
		return agg.root, nil
	}

	done := observability.TimedOperation()
	ctx, span := u.spans.StartLoadSpan(ctx, c.String(), id.String())

	agg, err := u.load(ctx, c, id)
	elapsed := done()
	events := 0
	if agg != nil {
		events = int(agg.Version())
	}
	u.metrics.RecordLoad(ctx, c.String(), events, elapsed, err)
	u.spans.EndSpanWithError(span, err)
	if err != nil {
		return nil, err
	}

	u.add(agg)
	observability.LogLoad(u.logger, c.String(), id.String(), events, observability.Milliseconds(elapsed))
	return agg.root, nil
}

func (u *UnitOfWork) load(ctx context.Context, c contract.Contract, id identity.Identity) (*Aggregate, error) {
	stream, err := u.store.OpenStream(ctx, c, id)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", c, id, err)
	}

	envelopes := stream.All()
	events := make([]any, 0, len(envelopes))
	for _, env := range envelopes {
		event, err := u.serializer.Deserialize(env.Contract(), env.Payload())
		if err != nil {
			return nil, fmt.Errorf("get %s/%s: event %s: %w", c, id, env.EventID(), err)
		}
		events = append(events, event)
	}
	u.spans.AddSpanEvent(ctx, "stream.read", attribute.Int("events", len(events)))

	root, err := u.reconstituter.Reconstitute(c, events)
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", c, id, err)
	}
	return &Aggregate{contract: c, id: id, root: root, stream: stream}, nil
}

func (u *UnitOfWork) add(agg *Aggregate) {
	u.tracked[agg.key()] = agg
	u.order = append(u.order, agg)
}

// Commit persists the pending events of every tracked aggregate, in tracking
// order. Aggregates without pending events are skipped. A failure for one
// aggregate does not stop the others; all failures are joined into the
// returned error, each naming its aggregate.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	ctx, span := u.spans.StartCommitSpan(ctx, len(u.order))

	var errs []error
	for _, agg := range u.order {
		if !agg.root.HasChanges() {
			continue
		}
		if err := u.commitAggregate(ctx, agg); err != nil {
			observability.LogCommitError(u.logger, agg.contract.String(), agg.id.String(), err)
			errs = append(errs, fmt.Errorf("commit %s: %w", agg, err))
		}
	}

	err := errors.Join(errs...)
	u.spans.EndSpanWithError(span, err)
	return err
}

func (u *UnitOfWork) commitAggregate(ctx context.Context, agg *Aggregate) (err error) {
	ctx, span := u.spans.StartAggregateSpan(ctx, agg.contract.String(), agg.id.String())
	done := observability.TimedOperation()
	changes := agg.root.Changes()
	defer func() {
		u.metrics.RecordCommit(ctx, agg.contract.String(), len(changes), done(), err)
		u.spans.EndSpanWithError(span, err)
	}()

	envelopes, err := u.wrap(changes)
	if err != nil {
		return err
	}

	stream := agg.stream
	if stream == nil {
		stream, err = u.store.CreateStream(ctx, agg.contract, agg.id)
		if err != nil {
			return err
		}
	}

	commitID := u.ids.CommitID()
	stream.AppendAll(envelopes...)
	if err := stream.Commit(ctx, commitID); err != nil {
		stream.Discard()
		return err
	}

	agg.stream = stream
	agg.root.ClearChanges()
	observability.LogCommit(u.logger, agg.contract.String(), agg.id.String(), commitID.String(),
		len(envelopes), observability.Milliseconds(done()))
	return nil
}

// wrap serializes events into envelopes under the contract of each event's
// runtime type.
func (u *UnitOfWork) wrap(events []any) ([]eventstore.Envelope, error) {
	envelopes := make([]eventstore.Envelope, 0, len(events))
	for i, event := range events {
		c, err := contract.Of(event)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		payload, err := u.serializer.Serialize(c, event)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		envelopes = append(envelopes, eventstore.Wrap(u.ids.EventID(), c, payload))
	}
	return envelopes, nil
}

// Tracked returns the tracked aggregates in tracking order.
func (u *UnitOfWork) Tracked() []*Aggregate {
	return slices.Clone(u.order)
}

// Len returns the number of tracked aggregates.
func (u *UnitOfWork) Len() int {
	return len(u.order)
}
