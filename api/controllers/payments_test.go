package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haanhtuan/storefront-backend/internal/checkout"
	"github.com/haanhtuan/storefront-backend/internal/payments"
	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
)

type stubPaymentSession struct {
	input *checkout.PlaceOrderInput
	view  *payments.SessionView
	err   error
}

func (s *stubPaymentSession) Create(_ context.Context, input checkout.PlaceOrderInput) (*payments.SessionView, error) {
	s.input = &input
	return s.view, s.err
}

type stubFinalizer struct {
	query  url.Values
	result *payments.Result
	err    error
}

func (s *stubFinalizer) HandleCallback(_ context.Context, query url.Values) (*payments.Result, error) {
	s.query = query
	return s.result, s.err
}

func TestCreatePaymentSession(t *testing.T) {
	logg := testLogger()
	userID := uuid.New()

	t.Run("success", func(t *testing.T) {
		stub := &stubPaymentSession{view: &payments.SessionView{
			OrderCode:   "SF260314-000001",
			Amount:      decimal.NewFromInt(100000),
			RedirectURL: "https://sandbox.gateway.example/pay?x=1",
		}}
		req := withUser(httptest.NewRequest(http.MethodPost, "/api/v1/checkout/gateway", strings.NewReader(validReceiverBody)), userID)
		rec := httptest.NewRecorder()
		CreatePaymentSession(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
		}
		if stub.input == nil || stub.input.UserID != userID {
			t.Fatalf("unexpected input: %+v", stub.input)
		}
		if !strings.Contains(rec.Body.String(), "redirect_url") {
			t.Fatalf("expected redirect_url in body: %s", rec.Body.String())
		}
	})

	t.Run("missing user", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/gateway", strings.NewReader(validReceiverBody))
		rec := httptest.NewRecorder()
		CreatePaymentSession(&stubPaymentSession{}, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rec.Code)
		}
	})
}

func TestPaymentReturn(t *testing.T) {
	logg := testLogger()

	t.Run("settled", func(t *testing.T) {
		stub := &stubFinalizer{result: &payments.Result{Outcome: payments.OutcomePaid}}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/return?sp_TxnRef=SF-1", nil)
		rec := httptest.NewRecorder()
		PaymentReturn(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if stub.query.Get("sp_TxnRef") != "SF-1" {
			t.Fatalf("expected query forwarded, got %v", stub.query)
		}
	})

	t.Run("signature mismatch", func(t *testing.T) {
		stub := &stubFinalizer{err: pkgerrors.New(pkgerrors.CodeSignatureMismatch, "signature mismatch")}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/return", nil)
		rec := httptest.NewRecorder()
		PaymentReturn(stub, logg).ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestPaymentIPN(t *testing.T) {
	logg := testLogger()

	t.Run("confirmed", func(t *testing.T) {
		stub := &stubFinalizer{result: &payments.Result{Outcome: payments.OutcomePaid}}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/ipn", nil)
		rec := httptest.NewRecorder()
		PaymentIPN(stub, logg).ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"RspCode":"00"`) {
			t.Fatalf("expected confirm ack, got %s", rec.Body.String())
		}
	})

	t.Run("amount mismatch", func(t *testing.T) {
		stub := &stubFinalizer{result: &payments.Result{Outcome: payments.OutcomeAmountMismatch}}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/ipn", nil)
		rec := httptest.NewRecorder()
		PaymentIPN(stub, logg).ServeHTTP(rec, req)

		// A verified callback with the wrong total settled as a failed
		// attempt; the ack tells the gateway the amount was the problem.
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"RspCode":"04"`) {
			t.Fatalf("expected invalid-amount ack, got %s", rec.Body.String())
		}
	})

	t.Run("replayed success", func(t *testing.T) {
		stub := &stubFinalizer{result: &payments.Result{Outcome: payments.OutcomeAlreadyPaid}}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/ipn", nil)
		rec := httptest.NewRecorder()
		PaymentIPN(stub, logg).ServeHTTP(rec, req)

		if !strings.Contains(rec.Body.String(), `"RspCode":"02"`) {
			t.Fatalf("expected already-confirmed ack, got %s", rec.Body.String())
		}
	})

	t.Run("unknown attempt", func(t *testing.T) {
		stub := &stubFinalizer{err: pkgerrors.New(pkgerrors.CodeUnknownAttempt, "payment attempt not found")}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/ipn", nil)
		rec := httptest.NewRecorder()
		PaymentIPN(stub, logg).ServeHTTP(rec, req)

		// The gateway protocol acknowledges rejections with HTTP 200 and a
		// non-zero response code.
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"RspCode":"01"`) {
			t.Fatalf("expected order-not-found ack, got %s", rec.Body.String())
		}
	})

	t.Run("bad signature", func(t *testing.T) {
		stub := &stubFinalizer{err: pkgerrors.New(pkgerrors.CodeSignatureMismatch, "signature mismatch")}
		req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/ipn", nil)
		rec := httptest.NewRecorder()
		PaymentIPN(stub, logg).ServeHTTP(rec, req)

		if !strings.Contains(rec.Body.String(), `"RspCode":"97"`) {
			t.Fatalf("expected signature ack, got %s", rec.Body.String())
		}
	})
}
