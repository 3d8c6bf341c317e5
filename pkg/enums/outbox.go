package enums

// OutboxAggregateType names the entity an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder OutboxAggregateType = "order"
)

var validAggregateTypes = []OutboxAggregateType{AggregateOrder}

func (a OutboxAggregateType) IsValid() bool { return contains(validAggregateTypes, a) }

func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	return parse(validAggregateTypes, "aggregate type", value)
}

// OutboxEventType is the event_type column of outbox_events.
type OutboxEventType string

const (
	EventOrderCreated       OutboxEventType = "order_created"
	EventOrderStatusUpdated OutboxEventType = "order_status_updated"
	EventOrderPaid          OutboxEventType = "order_paid"
	EventOrderPaymentFailed OutboxEventType = "order_payment_failed"
	EventOrderRefunded      OutboxEventType = "order_refunded"
	EventOrderCancelled     OutboxEventType = "order_cancelled"
)

var validEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderStatusUpdated,
	EventOrderPaid,
	EventOrderPaymentFailed,
	EventOrderRefunded,
	EventOrderCancelled,
}

func (e OutboxEventType) IsValid() bool { return contains(validEventTypes, e) }

func ParseOutboxEventType(value string) (OutboxEventType, error) {
	return parse(validEventTypes, "event type", value)
}
