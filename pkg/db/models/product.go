package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is the canonical catalog listing. The effective price is always
// derived (base price plus any active campaign), never stored.
type Product struct {
	ID                  uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Slug                string               `gorm:"column:slug;uniqueIndex;not null"`
	Name                string               `gorm:"column:name;not null"`
	Description         *string              `gorm:"column:description"`
	ThumbnailURL        *string              `gorm:"column:thumbnail_url"`
	BasePrice           decimal.Decimal      `gorm:"column:base_price;type:numeric(14,2);not null"`
	IsActive            bool                 `gorm:"column:is_active;not null;default:true"`
	Inventory           *InventoryItem       `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CampaignAssignments []CampaignAssignment `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt           time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
