package unitofwork_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/aggregate"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/eventstore"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/identity"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/internal/orders"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/serializer"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/unitofwork"
)

// persistence lists the stores every scenario runs against.
func persistence() map[string]func(t *testing.T) eventstore.Store {
	return map[string]func(t *testing.T) eventstore.Store{
		"memory": func(t *testing.T) eventstore.Store {
			return eventstore.NewMemoryStore()
		},
		"sqlite": func(t *testing.T) eventstore.Store {
			store, err := eventstore.NewSQLiteStore(filepath.Join(t.TempDir(), "events.db"))
			require.NoError(t, err)
			t.Cleanup(func() { store.Close() })
			return store
		},
	}
}

func newSerializer(t *testing.T) serializer.Serializer {
	t.Helper()
	types := serializer.NewTypeRegistry()
	require.NoError(t, types.Register(orders.Events()...))
	return serializer.NewJSON(types)
}

func newReconstituter(t *testing.T) *aggregate.Reconstituter {
	t.Helper()
	rec := aggregate.NewReconstituter()
	require.NoError(t, rec.Register(orders.Contract, orders.Factory))
	return rec
}

func newUnitOfWork(t *testing.T, store eventstore.Store, opts ...unitofwork.Option) *unitofwork.UnitOfWork {
	t.Helper()
	return unitofwork.New(store, newSerializer(t), newReconstituter(t), opts...)
}

func newOrder(t *testing.T, id orders.OrderID, price int) *orders.Order {
	t.Helper()
	o, err := orders.OrderProduct(id, identity.Generate(), price)
	require.NoError(t, err)
	return o
}

// failingStore fails commits for the listed stream ids.
type failingStore struct {
	eventstore.Store
	fail map[string]error
}

func (s *failingStore) OpenStream(ctx context.Context, c contract.Contract, id identity.Identity) (eventstore.Stream, error) {
	stream, err := s.Store.OpenStream(ctx, c, id)
	if err != nil {
		return nil, err
	}
	return &failingStream{Stream: stream, err: s.fail[id.String()]}, nil
}

func (s *failingStore) CreateStream(ctx context.Context, c contract.Contract, id identity.Identity) (eventstore.Stream, error) {
	stream, err := s.Store.CreateStream(ctx, c, id)
	if err != nil {
		return nil, err
	}
	return &failingStream{Stream: stream, err: s.fail[id.String()]}, nil
}

type failingStream struct {
	eventstore.Stream
	err error
}

func (s *failingStream) Commit(ctx context.Context, commitID identity.CommitID) error {
	if s.err != nil {
		return s.err
	}
	return s.Stream.Commit(ctx, commitID)
}

var errDiskFull = errors.New("disk full")

func newEmptySerializer() serializer.Serializer {
	return serializer.NewJSON(serializer.NewTypeRegistry())
}

// otherRoot is an aggregate of an unrelated type.
type otherRoot struct {
	aggregate.Base
}

// pointerRoot records its events as pointers.
type pointerRoot struct {
	pending []any
}

func (r *pointerRoot) Replay(any) error { return nil }
func (r *pointerRoot) Changes() []any   { return r.pending }
func (r *pointerRoot) HasChanges() bool { return len(r.pending) > 0 }
func (r *pointerRoot) ClearChanges()    { r.pending = nil }

// fixedCommitIDs hands out the same commit id every time.
type fixedCommitIDs struct {
	identity.UUIDGenerator
}

func (fixedCommitIDs) CommitID() identity.CommitID { return "fixed" }
