package enums

import "slices"

// OutboxAggregateType is the entity an outbox event is keyed on. Events of
// one aggregate are relayed in commit order.
type OutboxAggregateType string

const (
	AggregateOrder   OutboxAggregateType = "order"
	AggregateProduct OutboxAggregateType = "product"
)

var aggregateTypes = []OutboxAggregateType{AggregateOrder, AggregateProduct}

func (a OutboxAggregateType) IsValid() bool { return slices.Contains(aggregateTypes, a) }

func ParseOutboxAggregateType(raw string) (OutboxAggregateType, error) {
	return parse("aggregate type", raw, aggregateTypes)
}

// OutboxEventType names a domain event staged in outbox_events.
type OutboxEventType string

const (
	EventOrderCreated               OutboxEventType = "order_created"
	EventOrderPaid                  OutboxEventType = "order_paid"
	EventOrderPaymentFailed         OutboxEventType = "order_payment_failed"
	EventOrderFulfillmentSubmitted  OutboxEventType = "order_fulfillment_submitted"
	EventOrderFulfillmentFailed     OutboxEventType = "order_fulfillment_failed"
	EventProductPublishStateChanged OutboxEventType = "product_publish_state_changed"
)

var outboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderPaid,
	EventOrderPaymentFailed,
	EventOrderFulfillmentSubmitted,
	EventOrderFulfillmentFailed,
	EventProductPublishStateChanged,
}

func (e OutboxEventType) IsValid() bool { return slices.Contains(outboxEventTypes, e) }

func ParseOutboxEventType(raw string) (OutboxEventType, error) {
	return parse("event type", raw, outboxEventTypes)
}
