package attributes

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/haanhtuan/storefront-backend/pkg/enums"
)

// LinkedValue is one selectable attribute value for a product.
type LinkedValue struct {
	ValueID       uuid.UUID
	ValueName     string
	GroupID       uuid.UUID
	GroupName     string
	Kind          enums.AttributeKind
	Surcharge     decimal.Decimal
	GroupPosition int
	ValuePosition int
}

// GroupView groups the selectable values for display.
type GroupView struct {
	GroupID   uuid.UUID
	GroupName string
	Kind      enums.AttributeKind
	Values    []LinkedValue
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an attribute repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActiveLinks(ctx context.Context, productID uuid.UUID) ([]LinkedValue, error) {
	var rows []LinkedValue
	err := r.db.WithContext(ctx).
		Table("product_attribute_links").
		Select(`attribute_values.id AS value_id,
			attribute_values.name AS value_name,
			attribute_groups.id AS group_id,
			attribute_groups.name AS group_name,
			attribute_groups.kind AS kind,
			attribute_values.surcharge AS surcharge,
			attribute_groups.position AS group_position,
			attribute_values.position AS value_position`).
		Joins("JOIN attribute_values ON attribute_values.id = product_attribute_links.attribute_value_id").
		Joins("JOIN attribute_groups ON attribute_groups.id = attribute_values.group_id").
		Where("product_attribute_links.product_id = ? AND product_attribute_links.is_active = ?", productID, true).
		Order("attribute_groups.position ASC, attribute_values.position ASC, attribute_values.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) FindGroupsForProduct(ctx context.Context, productID uuid.UUID) ([]GroupView, error) {
	links, err := r.FindActiveLinks(ctx, productID)
	if err != nil {
		return nil, err
	}

	var groups []GroupView
	index := map[uuid.UUID]int{}
	for _, link := range links {
		pos, ok := index[link.GroupID]
		if !ok {
			groups = append(groups, GroupView{
				GroupID:   link.GroupID,
				GroupName: link.GroupName,
				Kind:      link.Kind,
			})
			pos = len(groups) - 1
			index[link.GroupID] = pos
		}
		groups[pos].Values = append(groups[pos].Values, link)
	}
	return groups, nil
}
