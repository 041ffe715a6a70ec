/*
Package unitofwork coordinates the aggregates touched by one use case.

A UnitOfWork tracks new aggregates, loads existing ones from their event
streams, and on Commit persists only the events each aggregate recorded since
it was tracked or loaded.

# Basic Usage

	uow := unitofwork.New(store, ser, rec)

	order, err := orders.OrderProduct(orderID, productID, 100)
	if err != nil {
	    return err
	}
	if err := uow.Track(orders.Contract, orderID, order); err != nil {
	    return err
	}
	if err := uow.Commit(ctx); err != nil {
	    return err
	}

Loading goes through Get, which replays the stream through the
Reconstituter. Within one UnitOfWork, Get returns the same instance for the
same contract and identity, so every caller sees the same mutations.

# Commit Semantics

Each aggregate's stream commits atomically and independently. If one
aggregate fails, the others are still attempted and already committed streams
stay committed; Commit returns every failure joined with errors.Join. A
failed aggregate keeps its pending events.

Concurrency conflicts are returned, not retried. To retry a whole use case,
wrap it in errors.RetryOnConflict and build a fresh UnitOfWork per attempt.

# Thread Safety

A UnitOfWork is owned by a single goroutine and is not safe for concurrent
use. The store it writes to is shared safely between many units of work.
*/
package unitofwork
