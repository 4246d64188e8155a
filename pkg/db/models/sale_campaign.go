package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/haanhtuan/storefront-backend/pkg/enums"
)

// SaleCampaign is a time-windowed discount rule. Window boundaries are
// inclusive on both ends.
type SaleCampaign struct {
	ID        uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string               `gorm:"column:name;not null"`
	Status    enums.CampaignStatus `gorm:"column:status;not null;default:'active'"`
	StartsAt  time.Time            `gorm:"column:starts_at;not null"`
	EndsAt    time.Time            `gorm:"column:ends_at;not null"`
	CreatedAt time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
