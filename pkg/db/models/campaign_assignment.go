package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haanhtuan/storefront-backend/pkg/enums"
)

// CampaignAssignment attaches a campaign's discount formula to one product.
// When several assignments qualify at the same instant, the earliest-created
// one wins.
type CampaignAssignment struct {
	ID           uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CampaignID   uuid.UUID          `gorm:"column:campaign_id;type:uuid;not null"`
	ProductID    uuid.UUID          `gorm:"column:product_id;type:uuid;not null"`
	DiscountType enums.DiscountType `gorm:"column:discount_type;not null"`
	Value        decimal.Decimal    `gorm:"column:value;type:numeric(14,2);not null"`
	Campaign     *SaleCampaign      `gorm:"foreignKey:CampaignID"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
}
