package serializer

import (
	"fmt"
	"reflect"
	"slices"
	"strings"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/registry"
)

// TypeRegistry maps event contracts to Go types.
// It is safe for concurrent use.
type TypeRegistry struct {
	types *registry.Registry[contract.Contract, reflect.Type]
}

// NewTypeRegistry creates an empty TypeRegistry.
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{
		types: registry.New[contract.Contract, reflect.Type](),
	}
}

// Register adds the types of samples under their canonical contracts
// (see contract.Of). Registration stops at the first failure.
func (r *TypeRegistry) Register(samples ...any) error {
	for _, sample := range samples {
		c, err := contract.Of(sample)
		if err != nil {
			return fmt.Errorf("register event type: %w", err)
		}
		if err := r.RegisterAs(c, sample); err != nil {
			return err
		}
	}
	return nil
}

// RegisterAs adds the type of sample under an explicit contract.
func (r *TypeRegistry) RegisterAs(c contract.Contract, sample any) error {
	if c.IsZero() {
		return &contract.ValidationError{Reason: "zero contract"}
	}
	if sample == nil {
		return fmt.Errorf("register event type %s: nil sample", c)
	}
	t := valueType(sample)
	if existing, ok := r.types.Get(c); ok && existing != t {
		return &CollisionError{Contract: c, Existing: existing, Type: t}
	}
	return r.types.Register(c, t)
}

// CollisionError reports two distinct types claiming one contract, e.g. two
// packages named "orders" that both declare PaymentWasMade.
type CollisionError struct {
	Contract contract.Contract
	Existing reflect.Type
	Type     reflect.Type
}

// Error implements the error interface.
func (e *CollisionError) Error() string {
	return fmt.Sprintf("register event type %s (%s): contract already maps to %s (%s); register one with RegisterAs",
		e.Type, e.Type.PkgPath(), e.Existing, e.Existing.PkgPath())
}

// Unwrap returns registry.ErrDuplicate.
func (e *CollisionError) Unwrap() error {
	return registry.ErrDuplicate
}

// Alias makes old resolve to the type registered for current, so payloads
// stored under a renamed contract still decode.
func (r *TypeRegistry) Alias(old, current contract.Contract) error {
	t, err := r.Lookup(current)
	if err != nil {
		return fmt.Errorf("alias %s: %w", old, err)
	}
	return r.types.Register(old, t)
}

// Lookup returns the type registered for c.
func (r *TypeRegistry) Lookup(c contract.Contract) (reflect.Type, error) {
	t, ok := r.types.Get(c)
	if !ok {
		return nil, &UnknownContractError{Contract: c}
	}
	return t, nil
}

// New returns a pointer to a new zero value of the type registered for c.
func (r *TypeRegistry) New(c contract.Contract) (reflect.Value, error) {
	t, err := r.Lookup(c)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.New(t), nil
}

// Contracts returns all registered contracts, aliases included, sorted.
func (r *TypeRegistry) Contracts() []contract.Contract {
	keys := r.types.Keys()
	slices.SortFunc(keys, func(a, b contract.Contract) int {
		return strings.Compare(a.String(), b.String())
	})
	return keys
}

// check verifies event has the type registered for c.
func (r *TypeRegistry) check(c contract.Contract, event any) error {
	t, err := r.Lookup(c)
	if err != nil {
		return err
	}
	if event == nil {
		return &SerializationError{Contract: c, Op: "serialize", Err: fmt.Errorf("nil event")}
	}
	if reflect.TypeOf(event).Kind() == reflect.Pointer {
		return &SerializationError{
			Contract: c,
			Op:       "serialize",
			Err:      fmt.Errorf("event is a pointer (%T); events are values", event),
		}
	}
	if got := valueType(event); got != t {
		return &SerializationError{
			Contract: c,
			Op:       "serialize",
			Err:      fmt.Errorf("event type %s does not match registered type %s", got, t),
		}
	}
	return nil
}

func valueType(v any) reflect.Type {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
