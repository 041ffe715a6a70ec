package aggregate_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/aggregate"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	ecerrors "github.com/randalmurphal/eventcentric/pkg/eventcentric/errors"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/internal/orders"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/registry"
)

func TestReconstituter_Register(t *testing.T) {
	rec := aggregate.NewReconstituter()

	require.NoError(t, rec.Register(orders.Contract, orders.Factory))
	assert.ErrorIs(t, rec.Register(orders.Contract, orders.Factory), registry.ErrDuplicate)
	assert.ErrorIs(t, rec.Register(contract.Contract{}, orders.Factory), ecerrors.ErrValidation)
	assert.Error(t, rec.Register(contract.MustWith("orders.Other"), nil))
}

func TestReconstituter_Reconstitute(t *testing.T) {
	rec := aggregate.NewReconstituter()
	require.NoError(t, rec.Register(orders.Contract, orders.Factory))

	history := []any{
		orders.ProductWasOrdered{OrderID: "o-1", ProductID: "p-1", Price: 100},
		orders.PaymentWasMade{OrderID: "o-1", Amount: 50},
	}

	root, err := rec.Reconstitute(orders.Contract, history)
	require.NoError(t, err)

	order, ok := root.(*orders.Order)
	require.True(t, ok)
	assert.False(t, order.HasChanges())
	assert.Equal(t, 50, order.Paid())

	require.NoError(t, order.Pay(50))
	changes := order.Changes()
	require.Len(t, changes, 2)
	assert.IsType(t, orders.OrderWasPaidInFull{}, changes[1])
}

func TestReconstituter_NoEvents(t *testing.T) {
	rec := aggregate.NewReconstituter()
	require.NoError(t, rec.Register(orders.Contract, orders.Factory))

	root, err := rec.Reconstitute(orders.Contract, nil)
	require.NoError(t, err)
	assert.False(t, root.HasChanges())
	assert.Equal(t, 0, root.(*orders.Order).Price())
}

func TestReconstituter_UnknownContract(t *testing.T) {
	rec := aggregate.NewReconstituter()

	_, err := rec.Reconstitute(orders.Contract, nil)
	var unknown *aggregate.UnknownContractError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, orders.Contract, unknown.Contract)
	assert.ErrorIs(t, err, ecerrors.ErrUnknownContract)
}

func TestReconstituter_UnknownEventIsFatal(t *testing.T) {
	rec := aggregate.NewReconstituter()
	require.NoError(t, rec.Register(orders.Contract, orders.Factory))

	_, err := rec.Reconstitute(orders.Contract, []any{
		orders.ProductWasOrdered{OrderID: "o-1", Price: 10},
		struct{ Foo string }{"bar"},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ecerrors.ErrUnknownEvent)
	assert.Contains(t, err.Error(), "event 1")
}

func TestReconstituter_Contracts(t *testing.T) {
	rec := aggregate.NewReconstituter()
	require.NoError(t, rec.Register(contract.MustWith("b.Second"), orders.Factory))
	require.NoError(t, rec.Register(contract.MustWith("a.First"), orders.Factory))

	got := rec.Contracts()
	require.Len(t, got, 2)
	assert.Equal(t, "a.First", got[0].String())
	assert.Equal(t, "b.Second", got[1].String())
}
