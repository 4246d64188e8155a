package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haanhtuan/storefront-backend/pkg/db/models"
)

// Repository persists payment attempts and the order rows they finalize.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateTransaction(ctx context.Context, txn *models.PaymentTransaction) error
	// FindTransactionByRefLocked locks the attempt row so concurrent
	// callbacks for the same reference serialize.
	FindTransactionByRefLocked(ctx context.Context, gatewayRef string) (*models.PaymentTransaction, error)
	FindTransactionByRef(ctx context.Context, gatewayRef string) (*models.PaymentTransaction, error)
	UpdateTransaction(ctx context.Context, id uuid.UUID, fields map[string]any) error

	FindOrderByIDLocked(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	UpdateOrder(ctx context.Context, orderID uuid.UUID, fields map[string]any) error
}
