package registry

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/peakrent/peakrent-backend/pkg/enums"
	"github.com/peakrent/peakrent-backend/pkg/outbox/payloads"
)

type decoderFunc func(payload json.RawMessage) (any, error)

type registryKey struct {
	eventType enums.OutboxEventType
	version   int
}

// DecoderRegistry stores versioned payload decoders for consumers.
type DecoderRegistry struct {
	mtx      sync.RWMutex
	registry map[registryKey]decoderFunc
}

func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{registry: make(map[registryKey]decoderFunc)}
}

// NewOrderDecoders registers the v1 order payload for every order event type.
func NewOrderDecoders() *DecoderRegistry {
	reg := NewDecoderRegistry()
	decode := func(payload json.RawMessage) (any, error) {
		var evt payloads.OrderEvent
		if err := json.Unmarshal(payload, &evt); err != nil {
			return nil, err
		}
		return &evt, nil
	}
	for _, eventType := range enums.OrderEventTypes() {
		reg.Register(eventType, 1, decode)
	}
	return reg
}

func (r *DecoderRegistry) Register(eventType enums.OutboxEventType, version int, decoder decoderFunc) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.registry[registryKey{eventType: eventType, version: version}] = decoder
}

func (r *DecoderRegistry) Decode(eventType enums.OutboxEventType, version int, payload json.RawMessage) (any, error) {
	r.mtx.RLock()
	defer r.mtx.RUnlock()
	if decoder, ok := r.registry[registryKey{eventType: eventType, version: version}]; ok {
		return decoder(payload)
	}
	return nil, fmt.Errorf("decoder not registered for %s@v%d", eventType, version)
}
