package serializer

import (
	"bytes"

	"gopkg.in/yaml.v3"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
)

// YAML serializes events with gopkg.in/yaml.v3.
// Unknown fields in a payload are rejected.
type YAML struct {
	types *TypeRegistry
}

// Compile-time interface check.
var _ Serializer = (*YAML)(nil)

// NewYAML creates a YAML serializer over the given types.
func NewYAML(types *TypeRegistry) *YAML {
	return &YAML{types: types}
}

// Serialize encodes event, which must have the type registered for c.
func (s *YAML) Serialize(c contract.Contract, event any) ([]byte, error) {
	if err := s.types.check(c, event); err != nil {
		return nil, err
	}
	data, err := yaml.Marshal(event)
	if err != nil {
		return nil, &SerializationError{Contract: c, Op: "serialize", Err: err}
	}
	return data, nil
}

// Deserialize decodes data into a new value of the type registered for c.
func (s *YAML) Deserialize(c contract.Contract, data []byte) (any, error) {
	ptr, err := s.types.New(c)
	if err != nil {
		return nil, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(ptr.Interface()); err != nil {
		return nil, &SerializationError{Contract: c, Op: "deserialize", Err: err}
	}
	return ptr.Elem().Interface(), nil
}
