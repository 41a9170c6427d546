package event

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/erp/production/internal/domain/production"
	"github.com/erp/production/internal/domain/shared"
)

type decodeFunc func(data []byte) (shared.DomainEvent, error)

// decodeInto builds a decoder for the concrete event type E, where *E is the
// value published on the bus.
func decodeInto[E any, PE interface {
	*E
	shared.DomainEvent
}]() decodeFunc {
	return func(data []byte) (shared.DomainEvent, error) {
		ev := PE(new(E))
		if err := json.Unmarshal(data, ev); err != nil {
			return nil, err
		}
		return ev, nil
	}
}

// EventSerializer converts production order events to and from JSON.
// The set of known types is fixed at construction.
type EventSerializer struct {
	decoders map[string]decodeFunc
}

// NewEventSerializer knows every production order event type.
func NewEventSerializer() *EventSerializer {
	movement := decodeInto[production.OrderMovementEvent]()
	return &EventSerializer{decoders: map[string]decodeFunc{
		production.EventTypeOrderCreated:        decodeInto[production.OrderCreatedEvent](),
		production.EventTypeOrderReserved:       movement,
		production.EventTypeOrderUnreserved:     movement,
		production.EventTypeOrderConsumed:       movement,
		production.EventTypeOrderResultRecorded: decodeInto[production.OrderResultRecordedEvent](),
		production.EventTypeOrderReceived:       decodeInto[production.OrderReceivedEvent](),
		production.EventTypeOrderCancelled:      decodeInto[production.OrderCancelledEvent](),
	}}
}

// Serialize encodes event as JSON. Decimal quantities are written as strings.
func (s *EventSerializer) Serialize(event shared.DomainEvent) ([]byte, error) {
	return json.Marshal(event)
}

// Deserialize decodes data into the concrete type registered for eventType.
func (s *EventSerializer) Deserialize(eventType string, data []byte) (shared.DomainEvent, error) {
	decode, ok := s.decoders[eventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", eventType)
	}
	ev, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", eventType, err)
	}
	return ev, nil
}

// RegisteredTypes lists the known event types, sorted.
func (s *EventSerializer) RegisteredTypes() []string {
	types := make([]string, 0, len(s.decoders))
	for t := range s.decoders {
		types = append(types, t)
	}
	slices.Sort(types)
	return types
}
