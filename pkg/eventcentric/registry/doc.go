// Package registry provides a generic thread-safe registry for values indexed
// by key.
//
// eventcentric uses explicit registry objects instead of process-wide type
// tables: the aggregate Reconstituter maps contracts to aggregate factories,
// the serializer TypeRegistry maps contracts to event types, and the memory
// event store keeps its streams in one.
//
// # Basic Usage
//
//	factories := registry.New[contract.Contract, aggregate.Factory]()
//	if err := factories.Register(orderContract, newOrder); err != nil {
//	    return err // already registered
//	}
//
//	factory, ok := factories.Get(orderContract)
//
// Register refuses to overwrite: a contract resolving to two different types
// would make replay depend on registration order.
//
// # Lazy Initialization
//
// GetOrCreate is atomic. The factory runs at most once per key, even under
// concurrent access:
//
//	stream := streams.GetOrCreate(key, newStream)
//
// # Thread Safety
//
// All methods are safe for concurrent use. Keys returns a copy, so callers
// may register while walking it.
package registry
