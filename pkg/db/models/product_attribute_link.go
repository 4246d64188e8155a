package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductAttributeLink marks an attribute value as selectable for a product.
// Only linked AND active values may appear in a selection.
type ProductAttributeLink struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID        uuid.UUID       `gorm:"column:product_id;type:uuid;not null;uniqueIndex:ux_product_attribute_links_product_value"`
	AttributeValueID uuid.UUID       `gorm:"column:attribute_value_id;type:uuid;not null;uniqueIndex:ux_product_attribute_links_product_value"`
	IsActive         bool            `gorm:"column:is_active;not null;default:true"`
	AttributeValue   *AttributeValue `gorm:"foreignKey:AttributeValueID"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
