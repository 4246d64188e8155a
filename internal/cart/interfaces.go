package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haanhtuan/storefront-backend/pkg/db/models"
)

// Repository persists cart lines and reads the catalog rows they reference.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	FindProductForSale(ctx context.Context, productID uuid.UUID) (*models.Product, error)

	FindLinesByUser(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	// FindLinesByUserLocked locks the user's cart rows for the rest of the
	// transaction. Cart rows are always locked before product rows.
	FindLinesByUserLocked(ctx context.Context, userID uuid.UUID) ([]models.CartLine, error)
	FindLineByKey(ctx context.Context, userID uuid.UUID, lineKey string) (*models.CartLine, error)
	FindLineByID(ctx context.Context, userID, lineID uuid.UUID) (*models.CartLine, error)

	CreateLine(ctx context.Context, line *models.CartLine) error
	SaveLine(ctx context.Context, line *models.CartLine) error
	DeleteLines(ctx context.Context, userID uuid.UUID, lineIDs []uuid.UUID) error
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
}
