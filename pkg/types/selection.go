package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SizeSnapshot is the denormalized size choice stored on cart and order lines.
type SizeSnapshot struct {
	ValueID   uuid.UUID       `json:"value_id"`
	Name      string          `json:"name"`
	Surcharge decimal.Decimal `json:"surcharge"`
}

// SelectionItem is the denormalized form of a selected topping or other
// attribute value.
type SelectionItem struct {
	ValueID   uuid.UUID       `json:"value_id"`
	GroupID   uuid.UUID       `json:"group_id"`
	GroupName string          `json:"group_name"`
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	Surcharge decimal.Decimal `json:"surcharge"`
}

// SelectionItems is stored as a JSON column.
type SelectionItems []SelectionItem
