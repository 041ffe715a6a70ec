package serializer

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
)

// JSON serializes events with encoding/json.
// Unknown fields in a payload are rejected.
type JSON struct {
	types *TypeRegistry
}

// Compile-time interface check.
var _ Serializer = (*JSON)(nil)

// NewJSON creates a JSON serializer over the given types.
func NewJSON(types *TypeRegistry) *JSON {
	return &JSON{types: types}
}

// Serialize encodes event, which must have the type registered for c.
func (s *JSON) Serialize(c contract.Contract, event any) ([]byte, error) {
	if err := s.types.check(c, event); err != nil {
		return nil, err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, &SerializationError{Contract: c, Op: "serialize", Err: err}
	}
	return data, nil
}

// Deserialize decodes data into a new value of the type registered for c.
func (s *JSON) Deserialize(c contract.Contract, data []byte) (any, error) {
	ptr, err := s.types.New(c)
	if err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(ptr.Interface()); err != nil {
		return nil, &SerializationError{Contract: c, Op: "deserialize", Err: err}
	}
	if dec.More() {
		return nil, &SerializationError{Contract: c, Op: "deserialize", Err: fmt.Errorf("trailing data after payload")}
	}
	return ptr.Elem().Interface(), nil
}
