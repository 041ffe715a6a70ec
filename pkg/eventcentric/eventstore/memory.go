package eventstore

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/identity"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/registry"
)

// MemoryStore is an in-memory event store for testing.
// Data is lost when the process exits.
//
// Each stream has its own lock, so commits to different streams never
// contend beyond the stream lookup.
type MemoryStore struct {
	streams *registry.Registry[streamKey, *memoryLog]
	closed  atomic.Bool
}

type streamKey struct {
	contract contract.Contract
	id       string
}

// memoryLog is the committed state of one stream.
type memoryLog struct {
	mu        sync.Mutex
	envelopes []Envelope
	commits   map[identity.CommitID]AppliedCommit
}

// NewMemoryStore creates a new in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		streams: registry.New[streamKey, *memoryLog](),
	}
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)

// OpenStream implements Store.
func (m *MemoryStore) OpenStream(ctx context.Context, c contract.Contract, id identity.Identity) (Stream, error) {
	if m.closed.Load() {
		return nil, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var committed []Envelope
	if log, ok := m.streams.Get(streamKey{contract: c, id: id.String()}); ok {
		log.mu.Lock()
		committed = slices.Clone(log.envelopes)
		log.mu.Unlock()
	}
	return &memoryStream{Buffer: NewBuffer(c, id, committed), store: m}, nil
}

// CreateStream implements Store.
func (m *MemoryStore) CreateStream(ctx context.Context, c contract.Contract, id identity.Identity) (Stream, error) {
	if m.closed.Load() {
		return nil, ErrStoreClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &memoryStream{Buffer: NewBuffer(c, id, nil), store: m}, nil
}

// Len returns the number of streams with at least one commit.
func (m *MemoryStore) Len() int {
	return m.streams.Len()
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.closed.Store(true)
	return nil
}

type memoryStream struct {
	*Buffer
	store *MemoryStore
}

// Commit implements Stream.
func (s *memoryStream) Commit(ctx context.Context, commitID identity.CommitID) error {
	if s.store.closed.Load() {
		return ErrStoreClosed
	}
	if len(s.Staged()) == 0 {
		return nil
	}
	if err := ValidateCommit(ctx, commitID); err != nil {
		return err
	}

	log := s.store.streams.GetOrCreate(streamKey{contract: s.Contract(), id: s.StreamID()}, func() *memoryLog {
		return &memoryLog{commits: make(map[identity.CommitID]AppliedCommit)}
	})

	log.mu.Lock()
	defer log.mu.Unlock()

	actual := int64(len(log.envelopes))
	if applied, ok := log.commits[commitID]; ok {
		return s.Resolve(commitID, applied, actual)
	}
	if actual != s.Version() {
		return s.Conflict(actual)
	}

	log.envelopes = append(log.envelopes, s.Staged()...)
	log.commits[commitID] = AppliedCommit{Base: s.Version(), Events: len(s.Staged())}
	s.Advance()
	return nil
}
