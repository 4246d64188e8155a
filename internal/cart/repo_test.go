package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dbpkg "github.com/haanhtuan/storefront-backend/pkg/db"
	"github.com/haanhtuan/storefront-backend/pkg/db/models"
)

func TestCreateLineEnforcesUserLineKeyUniqueness(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	userID := uuid.New()
	productID := seedProduct(t, db, "milk-tea", 50000, true, 10)

	line := &models.CartLine{
		UserID:    userID,
		ProductID: productID,
		Quantity:  1,
		LineKey:   "abc123",
		UnitPrice: decimal.NewFromInt(50000),
		LineTotal: decimal.NewFromInt(50000),
	}
	require.NoError(t, repo.CreateLine(context.Background(), line))

	dup := &models.CartLine{
		UserID:    userID,
		ProductID: productID,
		Quantity:  2,
		LineKey:   "abc123",
	}
	err := repo.CreateLine(context.Background(), dup)
	require.Error(t, err)
	assert.True(t, dbpkg.IsUniqueViolation(err, ""), "duplicate (user, line_key) must hit the unique index")

	// The same key under another user is a different cart.
	other := &models.CartLine{
		UserID:    uuid.New(),
		ProductID: productID,
		Quantity:  1,
		LineKey:   "abc123",
	}
	require.NoError(t, repo.CreateLine(context.Background(), other))
}

func TestFindLineByKeyScopesToUser(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	productID := seedProduct(t, db, "milk-tea", 50000, true, 10)
	userID := uuid.New()

	require.NoError(t, repo.CreateLine(context.Background(), &models.CartLine{
		UserID:    userID,
		ProductID: productID,
		Quantity:  1,
		LineKey:   "key-1",
	}))

	found, err := repo.FindLineByKey(context.Background(), userID, "key-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, productID, found.ProductID)

	missing, err := repo.FindLineByKey(context.Background(), uuid.New(), "key-1")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindLinesByUserPreloadsProductAndStock(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	productID := seedProduct(t, db, "milk-tea", 50000, true, 7)
	userID := uuid.New()

	require.NoError(t, repo.CreateLine(context.Background(), &models.CartLine{
		UserID:    userID,
		ProductID: productID,
		Quantity:  1,
		LineKey:   "key-1",
	}))

	lines, err := repo.FindLinesByUser(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.NotNil(t, lines[0].Product)
	assert.Equal(t, "milk-tea", lines[0].Product.Slug)
	require.NotNil(t, lines[0].Product.Inventory)
	assert.Equal(t, 7, lines[0].Product.Inventory.StockQty)
}

func TestDeleteAllForUserLeavesOtherCartsAlone(t *testing.T) {
	db := setupCartTestDB(t)
	repo := NewRepository(db)
	productID := seedProduct(t, db, "milk-tea", 50000, true, 10)
	userA, userB := uuid.New(), uuid.New()

	for _, userID := range []uuid.UUID{userA, userB} {
		require.NoError(t, repo.CreateLine(context.Background(), &models.CartLine{
			UserID:    userID,
			ProductID: productID,
			Quantity:  1,
			LineKey:   uuid.NewString(),
		}))
	}

	require.NoError(t, repo.DeleteAllForUser(context.Background(), userA))

	gone, err := repo.FindLinesByUser(context.Background(), userA)
	require.NoError(t, err)
	assert.Empty(t, gone)

	kept, err := repo.FindLinesByUser(context.Background(), userB)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}
