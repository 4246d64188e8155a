package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/haanhtuan/storefront-backend/pkg/enums"
)

// AttributeGroup is a named option category (Size, Topping, ...). The kind
// drives selection rules: at most one value from a size group.
type AttributeGroup struct {
	ID        uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string              `gorm:"column:name;not null"`
	Kind      enums.AttributeKind `gorm:"column:kind;not null;default:'other'"`
	Position  int                 `gorm:"column:position;not null;default:0"`
	Values    []AttributeValue    `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
