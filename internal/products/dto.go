package products

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haanhtuan/storefront-backend/internal/pricing"
	"github.com/haanhtuan/storefront-backend/pkg/enums"
)

// Summary is the catalog card shown in product listings.
type Summary struct {
	ID             uuid.UUID                `json:"id"`
	Slug           string                   `json:"slug"`
	Name           string                   `json:"name"`
	ThumbnailURL   *string                  `json:"thumbnail_url,omitempty"`
	BasePrice      decimal.Decimal          `json:"base_price"`
	EffectivePrice decimal.Decimal          `json:"effective_price"`
	Discount       *pricing.AppliedDiscount `json:"discount,omitempty"`
	InStock        bool                     `json:"in_stock"`
}

// AttributeValueOption is one selectable value on the product page.
type AttributeValueOption struct {
	ID        uuid.UUID       `json:"id"`
	Name      string          `json:"name"`
	Surcharge decimal.Decimal `json:"surcharge"`
}

// AttributeGroupOption is a group of selectable values on the product page.
type AttributeGroupOption struct {
	ID     uuid.UUID              `json:"id"`
	Name   string                 `json:"name"`
	Kind   enums.AttributeKind    `json:"kind"`
	Values []AttributeValueOption `json:"values"`
}

// Detail is the full product page payload.
type Detail struct {
	Summary
	Description *string                `json:"description,omitempty"`
	StockQty    int                    `json:"stock_qty"`
	Attributes  []AttributeGroupOption `json:"attributes"`
}

// ListResult pages through the active catalog.
type ListResult struct {
	Items  []Summary `json:"items"`
	Total  int64     `json:"total"`
	Limit  int       `json:"limit"`
	Offset int       `json:"offset"`
}
