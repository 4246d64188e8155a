package payments

import (
	"context"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haanhtuan/storefront-backend/internal/checkout"
	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
	"github.com/haanhtuan/storefront-backend/pkg/gateway"
)

func TestSessionCreateBuildsSignedRedirect(t *testing.T) {
	f := newPaymentsFixture(t, nil)
	userID := uuid.New()
	productID := f.seedProduct(t, "milk-tea", 50000, 10)
	f.addToCart(t, userID, productID, 2)

	view := f.startSession(t, userID)

	assert.True(t, strings.HasPrefix(view.GatewayRef, view.OrderCode+"-"))
	assert.True(t, view.Amount.Equal(decimal.NewFromInt(100000)))

	parsed, err := url.Parse(view.RedirectURL)
	require.NoError(t, err)
	assert.Equal(t, "sandbox.gateway.example", parsed.Host)

	query := parsed.Query()
	assert.Equal(t, "10000000", query.Get(gateway.ParamAmount), "gateway amounts are in minor units")
	assert.Equal(t, view.GatewayRef, query.Get(gateway.ParamTxnRef))

	// The redirect query verifies against the shared secret.
	cb, err := gateway.New(paymentsTestGatewayConfig).ParseCallback(query)
	require.NoError(t, err)
	assert.Equal(t, view.GatewayRef, cb.TxnRef)
	assert.True(t, cb.Amount.Equal(view.Amount))
}

func TestSessionCreateRecordsPendingAttempt(t *testing.T) {
	f := newPaymentsFixture(t, nil)
	userID := uuid.New()
	productID := f.seedProduct(t, "milk-tea", 50000, 10)
	f.addToCart(t, userID, productID, 1)

	view := f.startSession(t, userID)

	row := map[string]any{}
	require.NoError(t, f.db.Table("payment_transactions").
		Where("gateway_ref = ?", view.GatewayRef).
		Take(&row).Error)
	assert.Equal(t, "pending", row["status"])
	assert.Equal(t, view.OrderID.String(), row["order_id"])
	assert.Equal(t, userID.String(), row["user_id"])

	// The cart survives until the gateway confirms payment.
	cartView, err := f.cartSvc.Get(context.Background(), userID)
	require.NoError(t, err)
	assert.Len(t, cartView.Lines, 1)
}

func TestSessionCreateEmptyCart(t *testing.T) {
	f := newPaymentsFixture(t, nil)

	_, err := f.session.Create(context.Background(), checkout.PlaceOrderInput{
		UserID:   uuid.New(),
		Receiver: paymentsTestReceiver,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart))
}

func TestSessionCreateProceedsAfterStockDrop(t *testing.T) {
	f := newPaymentsFixture(t, nil)
	userID := uuid.New()
	productID := f.seedProduct(t, "milk-tea", 50000, 10)
	f.addToCart(t, userID, productID, 2)

	// Stock shrinks between add and session start. The session is not the
	// stock gate; the finalizer checks authoritatively when the gateway
	// confirms. The pending order carries the reconciled quantity.
	f.setStock(t, productID, 1)

	view := f.startSession(t, userID)
	assert.True(t, view.Amount.Equal(decimal.NewFromInt(50000)))

	row := map[string]any{}
	require.NoError(t, f.db.Table("payment_transactions").
		Where("gateway_ref = ?", view.GatewayRef).
		Take(&row).Error)
	assert.Equal(t, "pending", row["status"])
}

func TestSessionCreateEmptyAfterStockGone(t *testing.T) {
	f := newPaymentsFixture(t, nil)
	userID := uuid.New()
	productID := f.seedProduct(t, "milk-tea", 50000, 10)
	f.addToCart(t, userID, productID, 2)
	f.setStock(t, productID, 0)

	// With nothing left to sell the reconciled cart has no lines at all.
	_, err := f.session.Create(context.Background(), checkout.PlaceOrderInput{
		UserID:   userID,
		Receiver: paymentsTestReceiver,
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeEmptyCart))

	var attempts int64
	require.NoError(t, f.db.Table("payment_transactions").Count(&attempts).Error)
	assert.Equal(t, int64(0), attempts)
}
