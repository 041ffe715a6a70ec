package unitofwork

import (
	"fmt"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/aggregate"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	ecerrors "github.com/randalmurphal/eventcentric/pkg/eventcentric/errors"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/eventstore"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/identity"
)

// key identifies a tracked aggregate.
type key struct {
	contract contract.Contract
	id       string
}

// Aggregate is an aggregate root tracked by a UnitOfWork.
type Aggregate struct {
	contract contract.Contract
	id       identity.Identity
	root     aggregate.Root

	// stream is the handle opened by Get, or nil for an aggregate added by
	// Track that has not been committed yet.
	stream eventstore.Stream
}

// Contract returns the aggregate contract.
func (a *Aggregate) Contract() contract.Contract { return a.contract }

// Identity returns the aggregate identity.
func (a *Aggregate) Identity() identity.Identity { return a.id }

// Root returns the tracked instance.
func (a *Aggregate) Root() aggregate.Root { return a.root }

// Version returns the number of committed events the aggregate is based on.
func (a *Aggregate) Version() int64 {
	if a.stream == nil {
		return 0
	}
	return a.stream.Version()
}

// Equals reports whether both wrap the same contract and identity,
// regardless of instance.
func (a *Aggregate) Equals(other *Aggregate) bool {
	return other != nil && a.key() == other.key()
}

func (a *Aggregate) key() key {
	return key{contract: a.contract, id: a.id.String()}
}

func (a *Aggregate) String() string {
	return fmt.Sprintf("%s/%s", a.contract, a.id)
}

// AlreadyTrackedError indicates Track was called for a contract and identity
// the unit of work already holds.
type AlreadyTrackedError struct {
	Contract contract.Contract
	ID       string
}

// Error implements the error interface.
func (e *AlreadyTrackedError) Error() string {
	return fmt.Sprintf("aggregate %s/%s is already tracked", e.Contract, e.ID)
}

// Unwrap returns ErrAggregateAlreadyTracked.
func (e *AlreadyTrackedError) Unwrap() error {
	return ecerrors.ErrAggregateAlreadyTracked
}
