package attributes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Repository reads which attribute values a product currently offers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// FindActiveLinks returns every linked-and-active value for the product,
	// with its group metadata, ordered by group then value position.
	FindActiveLinks(ctx context.Context, productID uuid.UUID) ([]LinkedValue, error)
	FindGroupsForProduct(ctx context.Context, productID uuid.UUID) ([]GroupView, error)
}
