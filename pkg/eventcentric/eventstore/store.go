// Package eventstore provides append-only event streams with optimistic
// concurrency control.
//
// A stream is the ordered log of envelopes for one aggregate, keyed by the
// aggregate's contract and identity. Handles returned by a Store stage
// envelopes in memory; nothing is visible to readers until Commit succeeds.
//
// Commit compares the version the handle was opened at with the stream's
// current version. If another writer committed in between, Commit fails with
// a *ConflictError and writes nothing. Retrying is the caller's decision.
package eventstore

import (
	"context"
	"fmt"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	ecerrors "github.com/randalmurphal/eventcentric/pkg/eventcentric/errors"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/identity"
)

// Store opens event streams.
// Implementations must be safe for concurrent use.
type Store interface {
	// OpenStream reads all committed envelopes of a stream.
	// A stream that does not exist yields an empty handle, not an error.
	OpenStream(ctx context.Context, c contract.Contract, id identity.Identity) (Stream, error)

	// CreateStream returns a handle for a new stream without reading it.
	// Its commit fails with a *ConflictError if the stream already has events.
	CreateStream(ctx context.Context, c contract.Contract, id identity.Identity) (Stream, error)

	// Close releases any resources (connections, files).
	// Operations after Close return ErrStoreClosed.
	Close() error
}

// Stream is a handle on one aggregate's event log.
// A handle is owned by a single caller and is not safe for concurrent use.
type Stream interface {
	// Contract returns the aggregate contract of the stream.
	Contract() contract.Contract

	// Identity returns the aggregate identity of the stream.
	Identity() identity.Identity

	// Version returns the number of committed events this handle expects
	// the stream to have.
	Version() int64

	// All returns the committed envelopes known to this handle, in order.
	All() []Envelope

	// AppendAll stages envelopes, in order, for the next commit.
	AppendAll(envelopes ...Envelope)

	// Discard drops staged envelopes without committing them.
	Discard()

	// Commit atomically persists the staged envelopes.
	//
	// With nothing staged, Commit does nothing. If commitID was already
	// applied to this stream from the same version with the same number of
	// envelopes, the commit is a retry: nothing is written, the handle
	// advances and Commit returns nil. A commitID reused from any other
	// version, or a stream that moved past Version, yields a *ConflictError.
	// On success the handle's version advances and the stage is cleared.
	Commit(ctx context.Context, commitID identity.CommitID) error
}

// ErrStoreClosed indicates the event store has been closed.
var ErrStoreClosed = ecerrors.ErrStoreClosed

// ConflictError reports a stream that changed between open and commit.
type ConflictError struct {
	Contract contract.Contract
	StreamID string
	Expected int64
	Actual   int64 // -1 if unknown

	// CommitID is set when the commit id was already applied to the stream
	// from a different version or with different envelopes.
	CommitID identity.CommitID
}

// Error implements the error interface.
func (e *ConflictError) Error() string {
	if e.CommitID != "" {
		return fmt.Sprintf("stream %s/%s: commit %s was already applied to another state (expected %d, found %d)",
			e.Contract, e.StreamID, e.CommitID, e.Expected, e.Actual)
	}
	if e.Actual < 0 {
		return fmt.Sprintf("stream %s/%s: expected version %d, stream was modified concurrently",
			e.Contract, e.StreamID, e.Expected)
	}
	return fmt.Sprintf("stream %s/%s: expected version %d, found %d",
		e.Contract, e.StreamID, e.Expected, e.Actual)
}

// Unwrap returns ErrConcurrency so callers can use errors.Is.
func (e *ConflictError) Unwrap() error {
	return ecerrors.ErrConcurrency
}

// AppliedCommit describes a commit recorded for a stream.
type AppliedCommit struct {
	// Base is the stream version the commit was staged against.
	Base int64

	// Events is the number of envelopes the commit wrote.
	Events int
}

// ValidateCommit checks the arguments common to every Commit implementation.
func ValidateCommit(ctx context.Context, commitID identity.CommitID) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("commit stream: %w", err)
	}
	if commitID == "" {
		return fmt.Errorf("commit stream: empty commit id: %w", ecerrors.ErrValidation)
	}
	return nil
}
