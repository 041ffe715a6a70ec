package aggregate

import (
	"fmt"
	"slices"
	"strings"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	ecerrors "github.com/randalmurphal/eventcentric/pkg/eventcentric/errors"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/registry"
)

// Factory builds an empty aggregate instance with its handlers registered.
type Factory func() Root

// UnknownContractError indicates no factory is registered for a contract.
type UnknownContractError struct {
	Contract contract.Contract
}

// Error implements the error interface.
func (e *UnknownContractError) Error() string {
	return fmt.Sprintf("no aggregate registered for contract %s", e.Contract)
}

// Unwrap returns ErrUnknownContract.
func (e *UnknownContractError) Unwrap() error {
	return ecerrors.ErrUnknownContract
}

// Reconstituter rebuilds aggregates from their event history.
type Reconstituter struct {
	factories *registry.Registry[contract.Contract, Factory]
}

// NewReconstituter creates an empty Reconstituter.
func NewReconstituter() *Reconstituter {
	return &Reconstituter{
		factories: registry.New[contract.Contract, Factory](),
	}
}

// Register associates an aggregate contract with a factory.
// Returns an error wrapping registry.ErrDuplicate if c is already registered.
func (r *Reconstituter) Register(c contract.Contract, f Factory) error {
	if c.IsZero() {
		return &contract.ValidationError{Reason: "zero contract"}
	}
	if f == nil {
		return fmt.Errorf("register aggregate %s: nil factory", c)
	}
	return r.factories.Register(c, f)
}

// Reconstitute builds a fresh aggregate for c and replays events in order.
// The result has no pending changes. With no events, the fresh instance is
// returned as is.
func (r *Reconstituter) Reconstitute(c contract.Contract, events []any) (Root, error) {
	factory, ok := r.factories.Get(c)
	if !ok {
		return nil, &UnknownContractError{Contract: c}
	}

	root := factory()
	for i, event := range events {
		if err := root.Replay(event); err != nil {
			return nil, fmt.Errorf("reconstitute %s: event %d: %w", c, i, err)
		}
	}
	root.ClearChanges()
	return root, nil
}

// Contracts returns the registered aggregate contracts, sorted by name.
func (r *Reconstituter) Contracts() []contract.Contract {
	keys := r.factories.Keys()
	slices.SortFunc(keys, func(a, b contract.Contract) int {
		return strings.Compare(a.String(), b.String())
	})
	return keys
}
