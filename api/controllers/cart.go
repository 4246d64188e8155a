package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/haanhtuan/storefront-backend/api/middleware"
	"github.com/haanhtuan/storefront-backend/api/responses"
	"github.com/haanhtuan/storefront-backend/api/validators"
	"github.com/haanhtuan/storefront-backend/internal/cart"
	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
	"github.com/haanhtuan/storefront-backend/pkg/logger"
	"github.com/haanhtuan/storefront-backend/pkg/types"
)

type addCartLineRequest struct {
	ProductID         uuid.UUID      `json:"product_id" validate:"required"`
	Quantity          int            `json:"quantity" validate:"required,min=1"`
	Options           types.Document `json:"options,omitempty"`
	AttributeValueIDs []uuid.UUID    `json:"attribute_value_ids,omitempty"`
}

type updateCartLineRequest struct {
	Quantity          int            `json:"quantity" validate:"required,min=1"`
	Options           types.Document `json:"options,omitempty"`
	AttributeValueIDs []uuid.UUID    `json:"attribute_value_ids,omitempty"`
}

// GetCart returns the reconciled cart for the current shopper.
func GetCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		view, err := svc.Get(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// AddCartLine adds a configured product to the cart, merging with an
// existing line when the configuration matches.
func AddCartLine(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		var req addCartLineRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.AddLine(r.Context(), cart.AddLineInput{
			UserID:            userID,
			ProductID:         req.ProductID,
			Quantity:          req.Quantity,
			Options:           req.Options,
			AttributeValueIDs: req.AttributeValueIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, view)
	}
}

// UpdateCartLine replaces a line's quantity and configuration.
func UpdateCartLine(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		lineID, err := uuid.Parse(chi.URLParam(r, "lineID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line id"))
			return
		}

		var req updateCartLineRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.UpdateLine(r.Context(), cart.UpdateLineInput{
			UserID:            userID,
			LineID:            lineID,
			Quantity:          req.Quantity,
			Options:           req.Options,
			AttributeValueIDs: req.AttributeValueIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// RemoveCartLine drops a single line from the cart.
func RemoveCartLine(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		lineID, err := uuid.Parse(chi.URLParam(r, "lineID"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid line id"))
			return
		}

		view, err := svc.RemoveLine(r.Context(), userID, lineID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// ClearCart empties the cart entirely.
func ClearCart(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := requireUser(w, r, logg)
		if !ok {
			return
		}

		if err := svc.Clear(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

func requireUser(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	userID := middleware.UserIDFromContext(r.Context())
	if userID == uuid.Nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity"))
		return uuid.Nil, false
	}
	return userID, true
}
