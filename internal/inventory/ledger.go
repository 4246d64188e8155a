package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/haanhtuan/storefront-backend/pkg/db/models"
	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
)

// Ledger tracks on-hand stock per product. Decrements are guarded single
// statements so concurrent buyers can never drive a quantity negative.
type Ledger interface {
	WithTx(tx *gorm.DB) Ledger
	Available(ctx context.Context, productID uuid.UUID) (int, error)
	// AvailableForUpdate reads the quantity under a row lock when the
	// dialect supports one. Call it inside a transaction.
	AvailableForUpdate(ctx context.Context, productID uuid.UUID) (int, error)
	// Decrement subtracts qty if at least qty units remain. It reports false
	// without error when stock was insufficient.
	Decrement(ctx context.Context, productID uuid.UUID, qty int) (bool, error)
	Increment(ctx context.Context, productID uuid.UUID, qty int) error
}

type ledger struct {
	db *gorm.DB
}

// NewLedger builds a stock ledger bound to the provided DB.
func NewLedger(db *gorm.DB) Ledger {
	return &ledger{db: db}
}

func (l *ledger) WithTx(tx *gorm.DB) Ledger {
	if tx == nil {
		return l
	}
	return &ledger{db: tx}
}

func (l *ledger) Available(ctx context.Context, productID uuid.UUID) (int, error) {
	return l.read(ctx, productID, false)
}

func (l *ledger) AvailableForUpdate(ctx context.Context, productID uuid.UUID) (int, error) {
	return l.read(ctx, productID, true)
}

func (l *ledger) read(ctx context.Context, productID uuid.UUID, locked bool) (int, error) {
	query := l.db.WithContext(ctx)
	if locked && query.Dialector.Name() == "postgres" {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var item models.InventoryItem
	err := query.Where("product_id = ?", productID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// A product with no inventory row has nothing to sell.
		return 0, nil
	}
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "read inventory item")
	}
	return item.StockQty, nil
}

func (l *ledger) Decrement(ctx context.Context, productID uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, pkgerrors.New(pkgerrors.CodeValidation, "decrement quantity must be positive")
	}

	res := l.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("product_id = ? AND stock_qty >= ?", productID, qty).
		UpdateColumn("stock_qty", gorm.Expr("stock_qty - ?", qty))
	if res.Error != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "decrement stock")
	}
	return res.RowsAffected == 1, nil
}

func (l *ledger) Increment(ctx context.Context, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "increment quantity must be positive")
	}

	res := l.db.WithContext(ctx).
		Model(&models.InventoryItem{}).
		Where("product_id = ?", productID).
		UpdateColumn("stock_qty", gorm.Expr("stock_qty + ?", qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, res.Error, "increment stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "inventory item not found").
			WithDetails(map[string]any{"product_id": productID})
	}
	return nil
}
