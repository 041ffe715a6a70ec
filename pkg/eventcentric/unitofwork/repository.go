package unitofwork

import (
	"context"
	"fmt"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/aggregate"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/identity"
)

// Repository gives typed access to one aggregate contract within a unit of
// work.
//
//	orders := unitofwork.NewRepository[*orders.Order](uow, orders.Contract)
//	order, err := orders.Get(ctx, orderID)
type Repository[T aggregate.Root] struct {
	uow      *UnitOfWork
	contract contract.Contract
}

// NewRepository creates a repository for aggregates of contract c.
func NewRepository[T aggregate.Root](uow *UnitOfWork, c contract.Contract) *Repository[T] {
	return &Repository[T]{uow: uow, contract: c}
}

// Add tracks a new aggregate.
func (r *Repository[T]) Add(id identity.Identity, root T) error {
	return r.uow.Track(r.contract, id, root)
}

// Get loads or returns the tracked aggregate with the given identity.
func (r *Repository[T]) Get(ctx context.Context, id identity.Identity) (T, error) {
	var zero T
	root, err := r.uow.Get(ctx, r.contract, id)
	if err != nil {
		return zero, err
	}
	typed, ok := root.(T)
	if !ok {
		return zero, fmt.Errorf("get %s/%s: aggregate is %T, not %T", r.contract, id, root, zero)
	}
	return typed, nil
}
