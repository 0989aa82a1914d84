package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/peakrent/peakrent-backend/pkg/config"
	"github.com/peakrent/peakrent-backend/pkg/db/models"
	"github.com/peakrent/peakrent-backend/pkg/enums"
	"github.com/peakrent/peakrent-backend/pkg/outbox"
)

// ErrPermanent marks outbox rows that no amount of retrying will deliver.
var ErrPermanent = errors.New("permanent outbox failure")

// Permanent tags err so IsPermanent reports true for it.
func Permanent(err error) error {
	if err == nil {
		return ErrPermanent
	}
	return fmt.Errorf("%w: %w", ErrPermanent, err)
}

func IsPermanent(err error) bool {
	return errors.Is(err, ErrPermanent)
}

// EventDescriptor is the route of one event type: its aggregate and topic.
type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
}

// ResolvedEvent is an outbox row whose envelope and payload were validated.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry validates outbox rows before publishing, using the same
// versioned decoders the consumers run so an undecodable row never leaves.
type EventRegistry struct {
	routes   map[enums.OutboxEventType]EventDescriptor
	decoders *DecoderRegistry
}

// NewEventRegistry routes every order lifecycle event to the orders topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.OrdersTopic == "" {
		return nil, fmt.Errorf("orders topic is required")
	}
	reg := &EventRegistry{
		routes:   make(map[enums.OutboxEventType]EventDescriptor),
		decoders: NewOrderDecoders(),
	}
	for _, eventType := range enums.OrderEventTypes() {
		reg.routes[eventType] = EventDescriptor{
			EventType:     eventType,
			AggregateType: enums.AggregateOrder,
			Topic:         cfg.OrdersTopic,
		}
	}
	return reg, nil
}

// Resolve checks the row against its route and decodes the payload at the
// envelope's schema version. Every failure is permanent.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	route, ok := r.routes[event.EventType]
	switch {
	case !ok:
		return nil, Permanent(fmt.Errorf("no route for event type %q", event.EventType))
	case route.AggregateType != event.AggregateType:
		return nil, Permanent(fmt.Errorf("%s belongs to %s aggregates, row has %s", event.EventType, route.AggregateType, event.AggregateType))
	case event.AggregateID == uuid.Nil:
		return nil, Permanent(errors.New("row has no aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, Permanent(fmt.Errorf("envelope: %w", err))
	}
	if data := bytes.TrimSpace(envelope.Data); len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, Permanent(fmt.Errorf("%s envelope carries no data", event.EventType))
	}
	version := envelope.Version
	if version == 0 {
		version = 1
	}
	payload, err := r.decoders.Decode(event.EventType, version, envelope.Data)
	if err != nil {
		return nil, Permanent(err)
	}
	return &ResolvedEvent{Descriptor: route, Envelope: envelope, Payload: payload}, nil
}
