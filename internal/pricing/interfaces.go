package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haanhtuan/storefront-backend/pkg/db/models"
)

// Repository reads campaign assignments for price resolution.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	// FindActiveAssignment returns the assignment that wins for the product
	// at the given instant, or nil when no campaign applies. When several
	// campaigns cover the product the earliest-created assignment wins.
	FindActiveAssignment(ctx context.Context, productID uuid.UUID, asOf time.Time) (*models.CampaignAssignment, error)
}
