package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InventoryItem tracks the sellable stock per product.
type InventoryItem struct {
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;primaryKey"`
	StockQty  int             `gorm:"column:stock_qty;not null;default:0"`
	LastCost  decimal.Decimal `gorm:"column:last_cost;type:numeric(14,2);not null;default:0"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
