package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haanhtuan/storefront-backend/pkg/types"
)

// OrderLine snapshots one cart line at checkout. Product display data is
// copied so the line survives later catalog edits or deletions.
type OrderLine struct {
	ID              uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID            `gorm:"column:order_id;type:uuid;not null"`
	ProductID       *uuid.UUID           `gorm:"column:product_id;type:uuid"`
	ProductName     string               `gorm:"column:product_name;not null"`
	ProductSlug     string               `gorm:"column:product_slug;not null"`
	ThumbnailURL    *string              `gorm:"column:thumbnail_url"`
	Quantity        int                  `gorm:"column:quantity;not null"`
	Options         types.Document       `gorm:"column:options;type:jsonb;serializer:json"`
	SizeSnapshot    *types.SizeSnapshot  `gorm:"column:size_snapshot;type:jsonb;serializer:json"`
	Toppings        types.SelectionItems `gorm:"column:toppings;type:jsonb;serializer:json"`
	OtherAttributes types.SelectionItems `gorm:"column:other_attributes;type:jsonb;serializer:json"`
	UnitPrice       decimal.Decimal      `gorm:"column:unit_price;type:numeric(14,2);not null"`
	ExtrasTotal     decimal.Decimal      `gorm:"column:extras_total;type:numeric(14,2);not null;default:0"`
	LineTotal       decimal.Decimal      `gorm:"column:line_total;type:numeric(14,2);not null"`
	CreatedAt       time.Time            `gorm:"column:created_at;autoCreateTime"`
}
