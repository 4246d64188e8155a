package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haanhtuan/storefront-backend/pkg/enums"
)

// Order is an immutable-once-created checkout snapshot. Business status may
// move pending->paid or pending->canceled; paid never transitions back.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code            string              `gorm:"column:code;uniqueIndex;not null"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	ReceiverName    string              `gorm:"column:receiver_name;not null"`
	ReceiverPhone   string              `gorm:"column:receiver_phone;not null"`
	ReceiverEmail   string              `gorm:"column:receiver_email;not null"`
	ReceiverAddress string              `gorm:"column:receiver_address;not null"`
	ReceiverNote    *string             `gorm:"column:receiver_note"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;not null"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;not null;default:'pending'"`
	Status          enums.OrderStatus   `gorm:"column:status;not null;default:'pending'"`
	Subtotal        decimal.Decimal     `gorm:"column:subtotal;type:numeric(14,2);not null"`
	ExtrasTotal     decimal.Decimal     `gorm:"column:extras_total;type:numeric(14,2);not null;default:0"`
	Total           decimal.Decimal     `gorm:"column:total;type:numeric(14,2);not null"`
	PaidAt          *time.Time          `gorm:"column:paid_at"`
	GatewayRef      *string             `gorm:"column:gateway_ref"`
	FulfillmentNote *string             `gorm:"column:fulfillment_note"`
	Lines           []OrderLine         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
