package responses

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
	"github.com/haanhtuan/storefront-backend/pkg/logger"
	"github.com/haanhtuan/storefront-backend/pkg/types"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.ErrorEnvelope {
	t.Helper()
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope
}

func TestWriteErrorEchoesSafeMessages(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	rec := httptest.NewRecorder()

	WriteError(context.Background(), logg, rec, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive"))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	envelope := decodeError(t, rec)
	if envelope.Error.Code != string(pkgerrors.CodeValidation) {
		t.Fatalf("unexpected code: %s", envelope.Error.Code)
	}
	if envelope.Error.Message != "quantity must be positive" {
		t.Fatalf("expected caller message echoed, got %q", envelope.Error.Message)
	}
}

func TestWriteErrorHidesInternalDetail(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	rec := httptest.NewRecorder()

	WriteError(context.Background(), logg, rec, pkgerrors.New(pkgerrors.CodeInternal, "connection string leaked"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	envelope := decodeError(t, rec)
	if envelope.Error.Message == "connection string leaked" {
		t.Fatal("internal message must not reach the client")
	}
}

func TestWriteErrorMapsDomainCodes(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	cases := map[pkgerrors.Code]int{
		pkgerrors.CodeEmptyCart:         http.StatusUnprocessableEntity,
		pkgerrors.CodeInsufficientStock: http.StatusConflict,
		pkgerrors.CodeSignatureMismatch: http.StatusBadRequest,
		pkgerrors.CodeUnknownAttempt:    http.StatusNotFound,
	}
	for code, status := range cases {
		rec := httptest.NewRecorder()
		WriteError(context.Background(), logg, rec, pkgerrors.New(code, "x"))
		if rec.Code != status {
			t.Fatalf("code %s: expected %d, got %d", code, status, rec.Code)
		}
	}
}

func TestWriteSuccessWrapsData(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"hello": "world"})

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode success envelope: %v", err)
	}
	if envelope.Data["hello"] != "world" {
		t.Fatalf("unexpected payload: %v", envelope.Data)
	}
}
