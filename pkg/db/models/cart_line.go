package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/haanhtuan/storefront-backend/pkg/db/types"
	"github.com/haanhtuan/storefront-backend/pkg/types"
)

// CartLine is one configured product in a user's cart. The line key hashes
// product + options + normalized attribute ids; at most one line may exist
// per (user, line key), which is what makes duplicate adds merge.
type CartLine struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID            uuid.UUID            `gorm:"column:user_id;type:uuid;not null;uniqueIndex:ux_cart_lines_user_line_key"`
	ProductID         uuid.UUID            `gorm:"column:product_id;type:uuid;not null"`
	Quantity          int                  `gorm:"column:quantity;not null"`
	Options           types.Document       `gorm:"column:options;type:jsonb;serializer:json"`
	AttributeValueIDs dbtypes.UUIDArray    `gorm:"column:attribute_value_ids;type:text"`
	LineKey           string               `gorm:"column:line_key;type:char(64);not null;uniqueIndex:ux_cart_lines_user_line_key"`
	SizeSnapshot      *types.SizeSnapshot  `gorm:"column:size_snapshot;type:jsonb;serializer:json"`
	Toppings          types.SelectionItems `gorm:"column:toppings;type:jsonb;serializer:json"`
	OtherAttributes   types.SelectionItems `gorm:"column:other_attributes;type:jsonb;serializer:json"`
	UnitPrice         decimal.Decimal      `gorm:"column:unit_price;type:numeric(14,2);not null;default:0"`
	ExtrasTotal       decimal.Decimal      `gorm:"column:extras_total;type:numeric(14,2);not null;default:0"`
	LineTotal         decimal.Decimal      `gorm:"column:line_total;type:numeric(14,2);not null;default:0"`
	Product           *Product             `gorm:"foreignKey:ProductID"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
