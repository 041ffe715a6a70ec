package eventstore

import (
	"slices"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/identity"
)

// Envelope is the unit of storage: a serialized event tagged with its id and
// contract. Envelopes are immutable; the payload is copied on the way in and
// on the way out.
type Envelope struct {
	eventID  identity.EventID
	contract contract.Contract
	payload  []byte
}

// Wrap creates an envelope.
func Wrap(eventID identity.EventID, c contract.Contract, payload []byte) Envelope {
	return Envelope{
		eventID:  eventID,
		contract: c,
		payload:  slices.Clone(payload),
	}
}

// EventID returns the event id.
func (e Envelope) EventID() identity.EventID {
	return e.eventID
}

// Contract returns the contract of the wrapped event.
func (e Envelope) Contract() contract.Contract {
	return e.contract
}

// Payload returns a copy of the serialized event.
func (e Envelope) Payload() []byte {
	return slices.Clone(e.payload)
}
