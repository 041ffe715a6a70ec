package aggregate

import (
	"fmt"
	"reflect"
	"slices"

	ecerrors "github.com/randalmurphal/eventcentric/pkg/eventcentric/errors"
)

// Root is what a unit of work needs from an aggregate root.
// Embedding Base provides all of it.
type Root interface {
	// Replay applies a historical event without recording it.
	Replay(event any) error

	// Changes returns the events recorded since the last ClearChanges.
	Changes() []any

	// HasChanges reports whether any events are pending.
	HasChanges() bool

	// ClearChanges discards pending events. State is kept.
	ClearChanges()
}

// Compile-time interface check.
var _ Root = (*Base)(nil)

// Base tracks pending changes and dispatches events to handlers.
// The zero value is ready to use; embed it in aggregate roots.
type Base struct {
	handlers map[reflect.Type]func(any)
	changes  []any
}

// On registers fn as the state transition for events of type E.
// Events are values: E must be a concrete non-pointer type, since events
// decoded from a stream are always values. Events are matched on their
// dynamic type. Registering the same event type twice, or a pointer or
// interface type, panics.
func On[E any](b *Base, fn func(E)) {
	t := reflect.TypeFor[E]()
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface:
		panic(fmt.Sprintf("aggregate: handler for %s must take an event value", t))
	}
	if b.handlers == nil {
		b.handlers = make(map[reflect.Type]func(any))
	}
	if _, exists := b.handlers[t]; exists {
		panic(fmt.Sprintf("aggregate: handler for %s already registered", t))
	}
	b.handlers[t] = func(event any) { fn(event.(E)) }
}

// Record applies a new event and appends it to the pending changes.
// If no handler exists for the event, nothing is applied or recorded.
func (b *Base) Record(event any) error {
	if err := b.apply(event); err != nil {
		return err
	}
	b.changes = append(b.changes, event)
	return nil
}

// Replay applies a historical event. Pending changes are untouched.
func (b *Base) Replay(event any) error {
	return b.apply(event)
}

// HasChanges reports whether any events were recorded since the last clear.
func (b *Base) HasChanges() bool {
	return len(b.changes) > 0
}

// Changes returns a copy of the pending events in recording order.
func (b *Base) Changes() []any {
	return slices.Clone(b.changes)
}

// ClearChanges discards pending events.
func (b *Base) ClearChanges() {
	b.changes = nil
}

func (b *Base) apply(event any) error {
	if event == nil {
		return &UnknownEventError{Kind: "<nil>"}
	}
	t := reflect.TypeOf(event)
	handler, ok := b.handlers[t]
	if !ok {
		return &UnknownEventError{Kind: t.String()}
	}
	handler(event)
	return nil
}

// UnknownEventError indicates an aggregate has no handler for an event.
type UnknownEventError struct {
	Kind string
}

// Error implements the error interface.
func (e *UnknownEventError) Error() string {
	return fmt.Sprintf("no handler for event %s", e.Kind)
}

// Unwrap returns ErrUnknownEvent.
func (e *UnknownEventError) Unwrap() error {
	return ecerrors.ErrUnknownEvent
}
