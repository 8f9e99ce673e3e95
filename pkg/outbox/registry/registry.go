// Package registry maps outbox event types to their Pub/Sub topic and typed
// payload, and decodes stored rows for the relay.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/angelmondragon/merchdrop-backend/pkg/config"
	"github.com/angelmondragon/merchdrop-backend/pkg/db/models"
	"github.com/angelmondragon/merchdrop-backend/pkg/enums"
	"github.com/angelmondragon/merchdrop-backend/pkg/outbox"
	"github.com/angelmondragon/merchdrop-backend/pkg/outbox/payloads"
)

type EventDescriptor struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	Topic         string
	newPayload    func() any
}

type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row that can never publish as stored; the relay
// parks it instead of retrying.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error { return e.Err }

func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

func nonRetryable(format string, args ...any) error {
	return NonRetryableError{Err: fmt.Errorf(format, args...)}
}

func describe[T any](event enums.OutboxEventType, aggregate enums.OutboxAggregateType, topic string) EventDescriptor {
	return EventDescriptor{
		EventType:     event,
		AggregateType: aggregate,
		Topic:         topic,
		newPayload:    func() any { return new(T) },
	}
}

// NewEventRegistry routes order lifecycle events to the orders topic and
// publish-state changes to the catalog topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	var missing []error
	if cfg.OrdersTopic == "" {
		missing = append(missing, errors.New("orders topic is required"))
	}
	if cfg.CatalogTopic == "" {
		missing = append(missing, errors.New("catalog topic is required"))
	}
	if len(missing) > 0 {
		return nil, errors.Join(missing...)
	}

	orders, catalog := cfg.OrdersTopic, cfg.CatalogTopic
	reg := &EventRegistry{entries: map[enums.OutboxEventType]EventDescriptor{}}
	for _, d := range []EventDescriptor{
		describe[payloads.OrderCreatedEvent](enums.EventOrderCreated, enums.AggregateOrder, orders),
		describe[payloads.OrderPaidEvent](enums.EventOrderPaid, enums.AggregateOrder, orders),
		describe[payloads.OrderPaymentFailedEvent](enums.EventOrderPaymentFailed, enums.AggregateOrder, orders),
		describe[payloads.OrderFulfillmentEvent](enums.EventOrderFulfillmentSubmitted, enums.AggregateOrder, orders),
		describe[payloads.OrderFulfillmentEvent](enums.EventOrderFulfillmentFailed, enums.AggregateOrder, orders),
		describe[payloads.ProductPublishStateChangedEvent](enums.EventProductPublishStateChanged, enums.AggregateProduct, catalog),
	} {
		reg.entries[d.EventType] = d
	}
	return reg, nil
}

// Topics lists every topic some event routes to, sorted.
func (r *EventRegistry) Topics() []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range r.entries {
		if !seen[d.Topic] {
			seen[d.Topic] = true
			out = append(out, d.Topic)
		}
	}
	sort.Strings(out)
	return out
}

// Resolve checks a stored row against its descriptor and decodes the typed
// payload. Every failure is non-retryable: the bytes will not change.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	switch {
	case !ok:
		return nil, nonRetryable("unsupported event type %s", event.EventType)
	case desc.AggregateType != event.AggregateType:
		return nil, nonRetryable("%s belongs to %s aggregates, row says %s", event.EventType, desc.AggregateType, event.AggregateType)
	case event.AggregateID == uuid.Nil:
		return nil, nonRetryable("%s row has no aggregate_id", event.EventType)
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &env); err != nil {
		return nil, nonRetryable("decode envelope: %w", err)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nonRetryable("%s envelope has no data", event.EventType)
	}
	payload := desc.newPayload()
	if err := json.Unmarshal(data, payload); err != nil {
		return nil, nonRetryable("decode %s payload: %w", event.EventType, err)
	}
	return &ResolvedEvent{Descriptor: desc, Envelope: env, Payload: payload}, nil
}
