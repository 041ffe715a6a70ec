// Package errors defines the error taxonomy shared by every eventcentric
// package, plus categorisation and a caller-side retry helper.
//
// Each package returns its own structured error type (carrying the contract,
// identity or stream involved) that unwraps to one of the sentinels below, so
// callers branch with errors.Is and inspect details with errors.As.
//
// Nothing in eventcentric retries on its own. A concurrency conflict surfaces
// from UnitOfWork.Commit and the caller decides whether to reload and retry,
// optionally through RetryOnConflict.
package errors

import "errors"

var (
	// ErrValidation indicates a value failed construction-time validation,
	// such as a contract name outside 1..255 characters.
	ErrValidation = errors.New("validation failed")

	// ErrAggregateAlreadyTracked indicates a (contract, identity) pair is
	// already tracked by the unit of work. Use Get instead of Track.
	ErrAggregateAlreadyTracked = errors.New("aggregate already tracked")

	// ErrUnknownContract indicates no aggregate or event type is registered
	// for a contract.
	ErrUnknownContract = errors.New("unknown contract")

	// ErrUnknownEvent indicates an aggregate has no handler for an event kind.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrConcurrency indicates the stream changed between open and commit.
	ErrConcurrency = errors.New("concurrency conflict")

	// ErrSerialization indicates an event could not be encoded or decoded.
	ErrSerialization = errors.New("serialization failed")

	// ErrStoreClosed indicates the event store has been closed.
	ErrStoreClosed = errors.New("event store closed")
)
