package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AttributeValue is one selectable value within a group, carrying a fixed
// surcharge added on top of the product's unit price.
type AttributeValue struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	GroupID   uuid.UUID       `gorm:"column:group_id;type:uuid;not null"`
	Name      string          `gorm:"column:name;not null"`
	Surcharge decimal.Decimal `gorm:"column:surcharge;type:numeric(14,2);not null;default:0"`
	Position  int             `gorm:"column:position;not null;default:0"`
	Group     *AttributeGroup `gorm:"foreignKey:GroupID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
