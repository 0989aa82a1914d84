package enums

// OutboxAggregateType names the entity an outbox event is about.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

var validAggregateTypes = []OutboxAggregateType{AggregateOrder}

func (a OutboxAggregateType) IsValid() bool {
	return contains(validAggregateTypes, a)
}

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse("aggregate type", value, validAggregateTypes)
}

// OutboxEventType is the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderPaid          OutboxEventType = "order_paid"
	EventOrderPaymentFailed OutboxEventType = "order_payment_failed"
	EventOrderCancelled     OutboxEventType = "order_cancelled"
	EventOrderStatusChanged OutboxEventType = "order_status_changed"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderPaid,
	EventOrderPaymentFailed,
	EventOrderCancelled,
	EventOrderStatusChanged,
}

// OrderEventTypes lists the events raised on the order aggregate.
func OrderEventTypes() []OutboxEventType {
	out := make([]OutboxEventType, len(validOutboxEventTypes))
	copy(out, validOutboxEventTypes)
	return out
}

func (e OutboxEventType) String() string {
	return string(e)
}

func (e OutboxEventType) IsValid() bool {
	return contains(validOutboxEventTypes, e)
}

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse("outbox event type", value, validOutboxEventTypes)
}
