package errors

import (
	stdErrors "errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeInvalidSelection, status: http.StatusUnprocessableEntity, publicMsg: "attribute selection is not valid for this product", detailsOK: true},
		{code: CodeInsufficientStock, status: http.StatusConflict, publicMsg: "insufficient stock", retryable: true, detailsOK: true},
		{code: CodeSignatureMismatch, status: http.StatusBadRequest, publicMsg: "callback signature verification failed"},
		{code: CodeUnknownAttempt, status: http.StatusNotFound, publicMsg: "payment attempt not found"},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s retryable mismatch", tt.code)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s details mismatch", tt.code)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stdErrors.New("root cause")
	err := Wrap(CodeDependency, cause, "load product")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be discoverable via errors.Is")
	}
	typed := As(err)
	if typed == nil || typed.Code() != CodeDependency {
		t.Fatalf("unexpected typed error: %v", typed)
	}
}

func TestHasCode(t *testing.T) {
	err := New(CodeAmountMismatch, "expected 4400000 got 1000000")
	if !HasCode(err, CodeAmountMismatch) {
		t.Fatal("expected HasCode to match")
	}
	if HasCode(err, CodeEmptyCart) {
		t.Fatal("unexpected code match")
	}
	if HasCode(nil, CodeEmptyCart) {
		t.Fatal("nil error must not match")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeInsufficientStock, "product out of stock").
		WithDetails(map[string]any{"available": 2, "requested": 5})
	details, ok := err.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected map details, got %T", err.Details())
	}
	if details["available"] != 2 {
		t.Fatalf("unexpected details: %v", details)
	}
}
