package controllers

import (
	"net/http"

	"github.com/haanhtuan/storefront-backend/api/responses"
	"github.com/haanhtuan/storefront-backend/api/validators"
	"github.com/haanhtuan/storefront-backend/internal/checkout"
	"github.com/haanhtuan/storefront-backend/internal/payments"
	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
	"github.com/haanhtuan/storefront-backend/pkg/logger"
)

// CreatePaymentSession snapshots the cart into a pending order and returns
// the gateway redirect URL. The cart survives until the callback confirms
// payment.
func CreatePaymentSession(session payments.Session, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var req placeOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := session.Create(r.Context(), checkout.PlaceOrderInput{
			UserID:   userID,
			Receiver: req.Receiver.toReceiver(),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// PaymentReturn settles the browser redirect leg of the gateway callback.
// The query carries the signed gateway parameters.
func PaymentReturn(finalizer payments.Finalizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := finalizer.HandleCallback(r.Context(), r.URL.Query())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PaymentIPN settles the server-to-server leg. The gateway expects a flat
// acknowledgement body rather than the API envelope, and it retries on any
// non-zero response code.
func PaymentIPN(finalizer payments.Finalizer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result, err := finalizer.HandleCallback(r.Context(), r.URL.Query())
		if err != nil {
			writeIPNAck(w, ipnCodeFor(err), "Confirm Fail")
			if logg != nil {
				logg.Error(r.Context(), "payment ipn rejected", err)
			}
			return
		}
		code, message := ipnAckForOutcome(result.Outcome)
		writeIPNAck(w, code, message)
	}
}

func ipnCodeFor(err error) string {
	switch {
	case pkgerrors.HasCode(err, pkgerrors.CodeUnknownAttempt):
		return "01"
	case pkgerrors.HasCode(err, pkgerrors.CodeSignatureMismatch):
		return "97"
	default:
		return "99"
	}
}

// ipnAckForOutcome maps a settled outcome to the gateway's ack codes. A
// recorded gateway-side failure still acks 00: the notification itself was
// processed and must not be redelivered.
func ipnAckForOutcome(outcome string) (string, string) {
	switch outcome {
	case payments.OutcomeAlreadyPaid:
		return "02", "Order Already Confirmed"
	case payments.OutcomeAmountMismatch:
		return "04", "Invalid Amount"
	default:
		return "00", "Confirm Success"
	}
}

func writeIPNAck(w http.ResponseWriter, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"RspCode":"` + code + `","Message":"` + message + `"}`))
}
