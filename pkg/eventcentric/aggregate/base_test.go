package aggregate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/aggregate"
	ecerrors "github.com/randalmurphal/eventcentric/pkg/eventcentric/errors"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/identity"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/internal/orders"
)

func newOrder(t *testing.T) *orders.Order {
	t.Helper()
	o, err := orders.OrderProduct(identity.Generate(), identity.Generate(), 100)
	require.NoError(t, err)
	return o
}

func TestBase_TracksChanges(t *testing.T) {
	o := newOrder(t)
	assert.True(t, o.HasChanges())
	require.Len(t, o.Changes(), 1)
	assert.IsType(t, orders.ProductWasOrdered{}, o.Changes()[0])
}

func TestBase_ClearChanges(t *testing.T) {
	o := newOrder(t)
	o.ClearChanges()

	assert.False(t, o.HasChanges())
	assert.Empty(t, o.Changes())
	assert.Equal(t, 100, o.Price(), "state survives clearing")
}

func TestBase_RecordsNewChangesAfterClear(t *testing.T) {
	o := newOrder(t)
	o.ClearChanges()

	require.NoError(t, o.Pay(50))
	assert.Len(t, o.Changes(), 1)
}

func TestBase_PayInFullRecordsTwoEvents(t *testing.T) {
	o := newOrder(t)
	o.ClearChanges()

	require.NoError(t, o.Pay(100))
	changes := o.Changes()
	require.Len(t, changes, 2)
	assert.IsType(t, orders.PaymentWasMade{}, changes[0])
	assert.IsType(t, orders.OrderWasPaidInFull{}, changes[1])
	assert.True(t, o.IsPaidInFull())

	assert.ErrorIs(t, o.Pay(1), orders.ErrAlreadyPaid)
	assert.Len(t, o.Changes(), 2)
}

func TestBase_ChangesIsSnapshot(t *testing.T) {
	o := newOrder(t)
	snapshot := o.Changes()
	snapshot[0] = "mutated"

	assert.IsType(t, orders.ProductWasOrdered{}, o.Changes()[0])
}

func TestBase_ReplayDoesNotRecord(t *testing.T) {
	o := orders.New()
	require.NoError(t, o.Replay(orders.ProductWasOrdered{OrderID: "o-1", ProductID: "p-1", Price: 80}))
	require.NoError(t, o.Replay(orders.PaymentWasMade{OrderID: "o-1", Amount: 30}))

	assert.False(t, o.HasChanges())
	assert.Equal(t, orders.OrderID("o-1"), o.ID())
	assert.Equal(t, 30, o.Paid())
}

func TestBase_UnknownEvent(t *testing.T) {
	type unhandled struct{}

	o := orders.New()
	err := o.Record(unhandled{})

	var unknown *aggregate.UnknownEventError
	require.ErrorAs(t, err, &unknown)
	assert.Contains(t, unknown.Kind, "unhandled")
	assert.ErrorIs(t, err, ecerrors.ErrUnknownEvent)
	assert.False(t, o.HasChanges(), "nothing recorded on failure")

	assert.ErrorIs(t, o.Replay(nil), ecerrors.ErrUnknownEvent)
}

func TestBase_PointerAndValueAreDistinctKinds(t *testing.T) {
	o := orders.New()
	err := o.Replay(&orders.PaymentWasMade{Amount: 10})
	assert.ErrorIs(t, err, ecerrors.ErrUnknownEvent)
}

func TestOn_PointerOrInterfacePanics(t *testing.T) {
	var b aggregate.Base

	assert.Panics(t, func() {
		aggregate.On(&b, func(*orders.PaymentWasMade) {})
	})
	assert.Panics(t, func() {
		aggregate.On(&b, func(any) {})
	})
	assert.NotPanics(t, func() {
		aggregate.On(&b, func(orders.PaymentWasMade) {})
	})
}

func TestOn_DuplicatePanics(t *testing.T) {
	var b aggregate.Base
	aggregate.On(&b, func(orders.PaymentWasMade) {})

	assert.Panics(t, func() {
		aggregate.On(&b, func(orders.PaymentWasMade) {})
	})
}

// Replaying the recorded changes of one aggregate into a fresh one must reach
// the same observable state.
func TestBase_ReplayEquivalence(t *testing.T) {
	original := newOrder(t)
	require.NoError(t, original.Pay(30))
	require.NoError(t, original.Pay(70))

	replayed := orders.New()
	for _, e := range original.Changes() {
		require.NoError(t, replayed.Replay(e))
	}

	assert.Equal(t, original.ID(), replayed.ID())
	assert.Equal(t, original.ProductID(), replayed.ProductID())
	assert.Equal(t, original.Price(), replayed.Price())
	assert.Equal(t, original.Paid(), replayed.Paid())
	assert.Equal(t, original.IsPaidInFull(), replayed.IsPaidInFull())
}
