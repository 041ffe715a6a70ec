// Package aggregate provides change tracking and reconstitution for
// event-sourced aggregate roots.
//
// An aggregate root embeds Base and registers one handler per event kind in
// its constructor:
//
//	type Order struct {
//	    aggregate.Base
//	    paid int
//	}
//
//	func newOrder() *Order {
//	    o := &Order{}
//	    aggregate.On(&o.Base, func(e PaymentWasMade) { o.paid += e.Amount })
//	    return o
//	}
//
//	func (o *Order) Pay(amount int) error {
//	    return o.Record(PaymentWasMade{Amount: amount})
//	}
//
// Behaviour methods call Record, which applies the event and keeps it as a
// pending change. Loading replays history through Replay, which applies the
// same handlers without recording anything, so a reloaded aggregate reaches
// exactly the state the original had.
//
// # Reconstitution
//
// A Reconstituter maps aggregate contracts to factories. It is an explicit
// object, so independent registries can coexist in one process:
//
//	rec := aggregate.NewReconstituter()
//	_ = rec.Register(orderContract, func() aggregate.Root { return newOrder() })
//	root, err := rec.Reconstitute(orderContract, history)
//
// # Thread Safety
//
// Aggregates are owned by a single unit of work and are not safe for
// concurrent use. The Reconstituter is safe for concurrent use.
package aggregate
