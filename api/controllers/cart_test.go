package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haanhtuan/storefront-backend/api/middleware"
	"github.com/haanhtuan/storefront-backend/internal/cart"
	"github.com/haanhtuan/storefront-backend/pkg/logger"
)

type stubCartService struct {
	addInput    *cart.AddLineInput
	updateInput *cart.UpdateLineInput
	removed     *uuid.UUID
	cleared     bool
	view        *cart.View
	err         error
}

func (s *stubCartService) Get(_ context.Context, _ uuid.UUID) (*cart.View, error) {
	return s.view, s.err
}

func (s *stubCartService) AddLine(_ context.Context, input cart.AddLineInput) (*cart.View, error) {
	s.addInput = &input
	return s.view, s.err
}

func (s *stubCartService) UpdateLine(_ context.Context, input cart.UpdateLineInput) (*cart.View, error) {
	s.updateInput = &input
	return s.view, s.err
}

func (s *stubCartService) RemoveLine(_ context.Context, _ uuid.UUID, lineID uuid.UUID) (*cart.View, error) {
	s.removed = &lineID
	return s.view, s.err
}

func (s *stubCartService) Clear(_ context.Context, _ uuid.UUID) error {
	s.cleared = true
	return s.err
}

func (s *stubCartService) ReconcileTx(_ context.Context, _ *gorm.DB, _ uuid.UUID) (*cart.View, error) {
	return s.view, s.err
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func withUser(req *http.Request, userID uuid.UUID) *http.Request {
	return req.WithContext(middleware.WithUserID(req.Context(), userID))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestAddCartLine(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()
	productID := uuid.New()

	t.Run("success", func(t *testing.T) {
		stub := &stubCartService{view: &cart.View{}}
		body := `{"product_id":"` + productID.String() + `","quantity":2}`
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", strings.NewReader(body)), userID)
		rec := httptest.NewRecorder()
		AddCartLine(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.addInput == nil {
			t.Fatal("expected AddLine to be invoked")
		}
		if stub.addInput.UserID != userID || stub.addInput.ProductID != productID || stub.addInput.Quantity != 2 {
			t.Fatalf("unexpected input: %+v", stub.addInput)
		}
	})

	t.Run("missing user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", strings.NewReader(`{}`))
		rec := httptest.NewRecorder()
		AddCartLine(&stubCartService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("zero quantity rejected", func(t *testing.T) {
		body := `{"product_id":"` + productID.String() + `","quantity":0}`
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", strings.NewReader(body)), userID)
		rec := httptest.NewRecorder()
		AddCartLine(&stubCartService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("unknown field rejected", func(t *testing.T) {
		body := `{"product_id":"` + productID.String() + `","quantity":1,"price":"1.00"}`
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/cart/lines", strings.NewReader(body)), userID)
		rec := httptest.NewRecorder()
		AddCartLine(&stubCartService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
		}
	})
}

func TestUpdateCartLine(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()
	lineID := uuid.New()

	t.Run("success", func(t *testing.T) {
		stub := &stubCartService{view: &cart.View{}}
		req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/lines/"+lineID.String(), strings.NewReader(`{"quantity":3}`))
		req = withURLParam(withUser(req, userID), "lineID", lineID.String())
		rec := httptest.NewRecorder()
		UpdateCartLine(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.updateInput == nil || stub.updateInput.LineID != lineID || stub.updateInput.Quantity != 3 {
			t.Fatalf("unexpected input: %+v", stub.updateInput)
		}
	})

	t.Run("invalid line id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/cart/lines/bogus", strings.NewReader(`{"quantity":3}`))
		req = withURLParam(withUser(req, userID), "lineID", "bogus")
		rec := httptest.NewRecorder()
		UpdateCartLine(&stubCartService{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestRemoveCartLine(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()
	lineID := uuid.New()

	stub := &stubCartService{view: &cart.View{}}
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/cart/lines/"+lineID.String(), nil)
	req = withURLParam(withUser(req, userID), "lineID", lineID.String())
	rec := httptest.NewRecorder()
	RemoveCartLine(stub, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if stub.removed == nil || *stub.removed != lineID {
		t.Fatalf("expected RemoveLine(%s) to be invoked", lineID)
	}
}

func TestClearCart(t *testing.T) {
	logg := testLogger()
	stub := &stubCartService{}
	req := withUser(httptest.NewRequest(http.MethodDelete, "/api/v1/cart", nil), uuid.New())
	rec := httptest.NewRecorder()
	ClearCart(stub, logg).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !stub.cleared {
		t.Fatal("expected Clear to be invoked")
	}
}
