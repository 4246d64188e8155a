package enums

import "fmt"

// OutboxEventType enumerates the domain events relayed through the outbox.
type OutboxEventType string

const (
	EventOrderConfirmed    OutboxEventType = "order.confirmed"
	EventOrderCreated      OutboxEventType = "order.created"
	EventPaymentFailed     OutboxEventType = "payment.failed"
	EventStockShortfall    OutboxEventType = "inventory.shortfall"
	EventCartLineDiscarded OutboxEventType = "cart.line_discarded"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderConfirmed,
	EventOrderCreated,
	EventPaymentFailed,
	EventStockShortfall,
	EventCartLineDiscarded,
}

// String implements fmt.Stringer.
func (o OutboxEventType) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OutboxEventType.
func (o OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into an OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid outbox event type %q", value)
}

// OutboxDLQErrorReason classifies why an outbox row was parked.
type OutboxDLQErrorReason string

const (
	OutboxDLQReasonNonRetryable OutboxDLQErrorReason = "non_retryable"
	OutboxDLQReasonMaxAttempts  OutboxDLQErrorReason = "max_attempts"
)

// String implements fmt.Stringer.
func (o OutboxDLQErrorReason) String() string {
	return string(o)
}

// OutboxAggregateType names the aggregate an outbox event belongs to.
type OutboxAggregateType string

const (
	AggregateOrder              OutboxAggregateType = "order"
	AggregateCart               OutboxAggregateType = "cart"
	AggregatePaymentTransaction OutboxAggregateType = "payment_transaction"
)

// String implements fmt.Stringer.
func (o OutboxAggregateType) String() string {
	return string(o)
}
