package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haanhtuan/storefront-backend/internal/checkout"
	"github.com/haanhtuan/storefront-backend/pkg/db/models"
	"github.com/haanhtuan/storefront-backend/pkg/enums"
	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
)

type stubCheckoutService struct {
	placed    *checkout.PlaceOrderInput
	order     *checkout.OrderView
	list      *checkout.OrderListResult
	listLimit int
	err       error
}

func (s *stubCheckoutService) PlaceCODOrder(_ context.Context, input checkout.PlaceOrderInput) (*checkout.OrderView, error) {
	s.placed = &input
	return s.order, s.err
}

func (s *stubCheckoutService) CreatePendingOrderTx(_ context.Context, _ *gorm.DB, _ checkout.PlaceOrderInput, _ enums.PaymentMethod) (*models.Order, error) {
	return nil, s.err
}

func (s *stubCheckoutService) GetOrder(_ context.Context, _ uuid.UUID, _ uuid.UUID) (*checkout.OrderView, error) {
	return s.order, s.err
}

func (s *stubCheckoutService) ListOrders(_ context.Context, _ uuid.UUID, limit, _ int) (*checkout.OrderListResult, error) {
	s.listLimit = limit
	return s.list, s.err
}

const validReceiverBody = `{"receiver":{"name":"An Nguyen","phone":"0901234567","address":"12 Ly Thuong Kiet, Ha Noi"}}`

func TestPlaceCODOrder(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		stub := &stubCheckoutService{order: &checkout.OrderView{Code: "SF260314-000001"}}
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/cod", strings.NewReader(validReceiverBody)), userID)
		rec := httptest.NewRecorder()
		PlaceCODOrder(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.placed == nil {
			t.Fatal("expected PlaceCODOrder to be invoked")
		}
		if stub.placed.UserID != userID || stub.placed.Receiver.Name != "An Nguyen" {
			t.Fatalf("unexpected input: %+v", stub.placed)
		}
	})

	t.Run("missing receiver fields", func(t *testing.T) {
		body := `{"receiver":{"name":"An Nguyen"}}`
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/cod", strings.NewReader(body)), userID)
		rec := httptest.NewRecorder()
		PlaceCODOrder(&stubCheckoutService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("empty cart surfaces as 422", func(t *testing.T) {
		stub := &stubCheckoutService{err: pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")}
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/cod", strings.NewReader(validReceiverBody)), userID)
		rec := httptest.NewRecorder()
		PlaceCODOrder(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("expected 422, got %d", rec.Code)
		}
	})
}

func TestListOrders(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()

	t.Run("defaults applied", func(t *testing.T) {
		stub := &stubCheckoutService{list: &checkout.OrderListResult{}}
		req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil), userID)
		rec := httptest.NewRecorder()
		ListOrders(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if stub.listLimit != 25 {
			t.Fatalf("expected default limit 25, got %d", stub.listLimit)
		}
	})

	t.Run("limit out of range", func(t *testing.T) {
		req := withUser(httptest.NewRequest(http.MethodGet, "/api/v1/orders?limit=5000", nil), userID)
		rec := httptest.NewRecorder()
		ListOrders(&stubCheckoutService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestGetOrderRejectsBadID(t *testing.T) {
	logg := testLogger()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders/nope", nil)
	req = withURLParam(withUser(req, uuid.New()), "orderID", "nope")
	rec := httptest.NewRecorder()
	GetOrder(&stubCheckoutService{}, logg).ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
