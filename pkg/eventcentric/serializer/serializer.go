// Package serializer converts domain events to and from payload bytes.
//
// A Serializer is keyed by contract: the contract stored in each envelope
// selects the Go type a payload decodes into. Types are declared up front in
// a TypeRegistry, so decoding never guesses.
//
//	types := serializer.NewTypeRegistry()
//	_ = types.Register(ProductWasOrdered{}, PaymentWasMade{})
//	ser := serializer.NewJSON(types)
//
//	data, _ := ser.Serialize(c, PaymentWasMade{Amount: 50})
//	event, _ := ser.Deserialize(c, data) // PaymentWasMade{Amount: 50}
//
// Events are values. Serialize rejects pointers, Deserialize returns values,
// and a pointer sample passed to Register registers the type it points to.
package serializer

import (
	"fmt"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	ecerrors "github.com/randalmurphal/eventcentric/pkg/eventcentric/errors"
)

// Serializer encodes and decodes events for a contract.
//
// Deserialize(c, Serialize(c, e)) must return a value equal to e.
type Serializer interface {
	Serialize(c contract.Contract, event any) ([]byte, error)
	Deserialize(c contract.Contract, data []byte) (any, error)
}

// UnknownContractError indicates no event type is registered for a contract.
type UnknownContractError struct {
	Contract contract.Contract
}

// Error implements the error interface.
func (e *UnknownContractError) Error() string {
	return fmt.Sprintf("no event type registered for contract %s", e.Contract)
}

// Unwrap returns ErrUnknownContract.
func (e *UnknownContractError) Unwrap() error {
	return ecerrors.ErrUnknownContract
}

// SerializationError reports a failed encode or decode.
type SerializationError struct {
	Contract contract.Contract
	Op       string // "serialize" or "deserialize"
	Err      error
}

// Error implements the error interface.
func (e *SerializationError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Contract, e.Err)
}

// Unwrap returns both ErrSerialization and the underlying codec error.
func (e *SerializationError) Unwrap() []error {
	return []error{ecerrors.ErrSerialization, e.Err}
}
