package eventstore

import (
	"slices"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/identity"
)

// Buffer holds the client-side state of a stream handle: the envelopes read
// at open, the expected version and the staged envelopes. Backends embed it
// and implement Commit.
type Buffer struct {
	contract  contract.Contract
	id        identity.Identity
	committed []Envelope
	staged    []Envelope
}

// NewBuffer creates a buffer for a stream whose committed envelopes are
// known. The expected version is len(committed).
func NewBuffer(c contract.Contract, id identity.Identity, committed []Envelope) *Buffer {
	return &Buffer{
		contract:  c,
		id:        id,
		committed: committed,
	}
}

// Contract implements Stream.
func (b *Buffer) Contract() contract.Contract {
	return b.contract
}

// Identity implements Stream.
func (b *Buffer) Identity() identity.Identity {
	return b.id
}

// StreamID returns the identity's string form, the storage key.
func (b *Buffer) StreamID() string {
	return b.id.String()
}

// Version implements Stream.
func (b *Buffer) Version() int64 {
	return int64(len(b.committed))
}

// All implements Stream.
func (b *Buffer) All() []Envelope {
	return slices.Clone(b.committed)
}

// AppendAll implements Stream.
func (b *Buffer) AppendAll(envelopes ...Envelope) {
	b.staged = append(b.staged, envelopes...)
}

// Staged returns the envelopes waiting for commit.
func (b *Buffer) Staged() []Envelope {
	return b.staged
}

// Advance marks the staged envelopes as committed.
func (b *Buffer) Advance() {
	b.committed = append(b.committed, b.staged...)
	b.staged = nil
}

// Discard implements Stream.
func (b *Buffer) Discard() {
	b.staged = nil
}

// Resolve settles a commit whose id the stream already recorded as applied.
// If the handle stages the same number of envelopes against the same base
// version, the commit is a retry: the handle advances and Resolve returns
// nil. Otherwise it returns a *ConflictError naming the commit.
func (b *Buffer) Resolve(commitID identity.CommitID, applied AppliedCommit, actual int64) error {
	if applied.Base == b.Version() && applied.Events == len(b.staged) {
		b.Advance()
		return nil
	}
	conflict := b.Conflict(actual)
	conflict.CommitID = commitID
	return conflict
}

// Conflict builds a *ConflictError for this stream.
func (b *Buffer) Conflict(actual int64) *ConflictError {
	return &ConflictError{
		Contract: b.contract,
		StreamID: b.StreamID(),
		Expected: b.Version(),
		Actual:   actual,
	}
}
