package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haanhtuan/storefront-backend/pkg/enums"
	"github.com/haanhtuan/storefront-backend/pkg/types"
)

// PaymentTransaction is one gateway payment attempt. The gateway reference is
// globally unique and serves as the finalization idempotency key.
type PaymentTransaction struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GatewayRef  string              `gorm:"column:gateway_ref;uniqueIndex;not null"`
	OrderID     uuid.UUID           `gorm:"column:order_id;type:uuid;not null"`
	UserID      uuid.UUID           `gorm:"column:user_id;type:uuid;not null"`
	Amount      decimal.Decimal     `gorm:"column:amount;type:numeric(14,2);not null"`
	Status      enums.PaymentStatus `gorm:"column:status;not null;default:'pending'"`
	Verified    bool                `gorm:"column:verified;not null;default:false"`
	RawCallback json.RawMessage     `gorm:"column:raw_callback;type:jsonb"`
	Receiver    *types.Receiver     `gorm:"column:receiver;type:jsonb;serializer:json"`
	Order       *Order              `gorm:"foreignKey:OrderID"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
