package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haanhtuan/storefront-backend/pkg/enums"
)

// OrderCreatedEvent signals a new order awaiting payment or delivery.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderCode     string              `json:"order_code"`
	UserID        uuid.UUID           `json:"user_id"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Total         decimal.Decimal     `json:"total"`
}

// OrderConfirmedEvent is emitted exactly once when an order becomes paid.
type OrderConfirmedEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderCode     string              `json:"order_code"`
	UserID        uuid.UUID           `json:"user_id"`
	ReceiverEmail string              `json:"receiver_email"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Total         decimal.Decimal     `json:"total"`
	PaidAt        time.Time           `json:"paid_at"`
}

// PaymentFailedEvent reports a gateway attempt that did not complete.
type PaymentFailedEvent struct {
	OrderID      uuid.UUID `json:"order_id"`
	OrderCode    string    `json:"order_code"`
	UserID       uuid.UUID `json:"user_id"`
	GatewayRef   string    `json:"gateway_ref"`
	ResponseCode string    `json:"response_code"`
}

// StockShortfallEvent flags a paid order whose stock could not be deducted.
type StockShortfallEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	OrderCode string    `json:"order_code"`
	ProductID uuid.UUID `json:"product_id"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
}

// CartLineDiscardedEvent records a cart line dropped during reconciliation.
type CartLineDiscardedEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	LineID    uuid.UUID `json:"line_id"`
	ProductID uuid.UUID `json:"product_id"`
	Reason    string    `json:"reason"`
}
