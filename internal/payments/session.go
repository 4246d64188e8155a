package payments

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/haanhtuan/storefront-backend/internal/checkout"
	dbpkg "github.com/haanhtuan/storefront-backend/pkg/db"
	"github.com/haanhtuan/storefront-backend/pkg/db/models"
	"github.com/haanhtuan/storefront-backend/pkg/enums"
	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
	"github.com/haanhtuan/storefront-backend/pkg/gateway"
	"github.com/haanhtuan/storefront-backend/pkg/logger"
	"github.com/haanhtuan/storefront-backend/pkg/types"
)

const gatewayRefRetries = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type gatewayClient interface {
	BuildPayURL(req gateway.PayRequest) (string, error)
	ParseCallback(query url.Values) (gateway.Callback, error)
}

// SessionView is returned to the shopper starting a gateway payment.
type SessionView struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderCode   string          `json:"order_code"`
	GatewayRef  string          `json:"gateway_ref"`
	Amount      decimal.Decimal `json:"amount"`
	RedirectURL string          `json:"redirect_url"`
}

// Session starts gateway payment attempts. The cart stays intact until the
// gateway confirms the payment; only the callback consumes it.
type Session interface {
	Create(ctx context.Context, input checkout.PlaceOrderInput) (*SessionView, error)
}

// SessionParams wires the payment session dependencies.
type SessionParams struct {
	DB       txRunner
	Repo     Repository
	Checkout checkout.Service
	Gateway  gatewayClient
	Logger   *logger.Logger
}

type session struct {
	db       txRunner
	repo     Repository
	checkout checkout.Service
	gateway  gatewayClient
	logg     *logger.Logger
}

// NewSession wires the payment session service.
func NewSession(params SessionParams) (Session, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repository is required")
	}
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service is required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gateway client is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	return &session{
		db:       params.DB,
		repo:     params.Repo,
		checkout: params.Checkout,
		gateway:  params.Gateway,
		logg:     params.Logger,
	}, nil
}

func (s *session) Create(ctx context.Context, input checkout.PlaceOrderInput) (*SessionView, error) {
	var view *SessionView
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.checkout.CreatePendingOrderTx(ctx, tx, input, enums.PaymentMethodGateway)
		if err != nil {
			return err
		}

		txn, err := s.createAttempt(ctx, tx, order)
		if err != nil {
			return err
		}

		redirectURL, err := s.gateway.BuildPayURL(gateway.PayRequest{
			TxnRef:    txn.GatewayRef,
			Amount:    order.Total,
			OrderInfo: fmt.Sprintf("Thanh toan don hang %s", order.Code),
		})
		if err != nil {
			return err
		}

		view = &SessionView{
			OrderID:     order.ID,
			OrderCode:   order.Code,
			GatewayRef:  txn.GatewayRef,
			Amount:      order.Total,
			RedirectURL: redirectURL,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_code":  view.OrderCode,
		"gateway_ref": view.GatewayRef,
		"user_id":     input.UserID.String(),
	})
	s.logg.Info(logCtx, "payment session created")
	return view, nil
}

// createAttempt snapshots the receiver onto the attempt so the callback can
// be processed even if the order row ever changes shape.
func (s *session) createAttempt(ctx context.Context, tx *gorm.DB, order *models.Order) (*models.PaymentTransaction, error) {
	repo := s.repo.WithTx(tx)

	receiver := &types.Receiver{
		Name:    order.ReceiverName,
		Phone:   order.ReceiverPhone,
		Email:   order.ReceiverEmail,
		Address: order.ReceiverAddress,
	}
	if order.ReceiverNote != nil {
		receiver.Note = *order.ReceiverNote
	}

	var lastErr error
	for attempt := 0; attempt < gatewayRefRetries; attempt++ {
		ref, err := generateGatewayRef(order.Code)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate gateway reference")
		}

		txn := &models.PaymentTransaction{
			GatewayRef: ref,
			OrderID:    order.ID,
			UserID:     order.UserID,
			Amount:     order.Total,
			Status:     enums.PaymentStatusPending,
			Receiver:   receiver,
		}
		err = repo.CreateTransaction(ctx, txn)
		if err == nil {
			return txn, nil
		}
		if !dbpkg.IsUniqueViolation(err, "idx_payment_transactions_gateway_ref") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create payment attempt")
		}
		lastErr = err
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, lastErr, "gateway reference collisions exhausted retries")
}

// generateGatewayRef derives the attempt reference from the order code so
// support staff can read it, with a random suffix to keep retries distinct.
func generateGatewayRef(orderCode string) (string, error) {
	suffix := make([]byte, 4)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", orderCode, hex.EncodeToString(suffix)), nil
}
