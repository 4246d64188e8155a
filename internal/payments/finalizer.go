package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/haanhtuan/storefront-backend/internal/cart"
	"github.com/haanhtuan/storefront-backend/internal/inventory"
	"github.com/haanhtuan/storefront-backend/pkg/config"
	"github.com/haanhtuan/storefront-backend/pkg/db/models"
	"github.com/haanhtuan/storefront-backend/pkg/enums"
	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
	"github.com/haanhtuan/storefront-backend/pkg/gateway"
	"github.com/haanhtuan/storefront-backend/pkg/logger"
	"github.com/haanhtuan/storefront-backend/pkg/metrics"
	"github.com/haanhtuan/storefront-backend/pkg/outbox"
	"github.com/haanhtuan/storefront-backend/pkg/outbox/idempotency"
	"github.com/haanhtuan/storefront-backend/pkg/outbox/payloads"
)

// Finalization outcomes, also used as metric labels.
const (
	OutcomePaid           = "paid"
	OutcomeAlreadyPaid    = "already_paid"
	OutcomeFailed         = "failed"
	OutcomeAmountMismatch = "amount_mismatch"
)

const finalizerConsumer = "payment-finalizer"

// Result reports how a gateway callback was settled.
type Result struct {
	Outcome    string    `json:"outcome"`
	OrderID    uuid.UUID `json:"order_id"`
	OrderCode  string    `json:"order_code"`
	GatewayRef string    `json:"gateway_ref"`
}

// Paid reports whether the order ended up paid, counting replays.
func (r *Result) Paid() bool {
	return r.Outcome == OutcomePaid || r.Outcome == OutcomeAlreadyPaid
}

// Finalizer settles gateway callbacks: it verifies the signature and amount,
// moves the attempt and order to their terminal state, deducts stock and
// consumes the cart exactly once per successful payment.
type Finalizer interface {
	HandleCallback(ctx context.Context, query url.Values) (*Result, error)
}

// FinalizerParams wires the payment finalizer dependencies.
type FinalizerParams struct {
	DB          txRunner
	Repo        Repository
	CartRepo    cart.Repository
	Ledger      inventory.Ledger
	Gateway     gatewayClient
	Events      *outbox.Service
	Idempotency *idempotency.Manager
	Metrics     *metrics.CheckoutMetrics
	Logger      *logger.Logger
	Config      config.GatewayConfig
	Now         func() time.Time
}

type finalizer struct {
	db          txRunner
	repo        Repository
	cartRepo    cart.Repository
	ledger      inventory.Ledger
	gateway     gatewayClient
	events      *outbox.Service
	idem        *idempotency.Manager
	metrics     *metrics.CheckoutMetrics
	logg        *logger.Logger
	successCode string
	now         func() time.Time
}

// NewFinalizer wires the payment finalizer. The idempotency guard and metrics
// are optional; everything else is required.
func NewFinalizer(params FinalizerParams) (Finalizer, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments repository is required")
	}
	if params.CartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repository is required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stock ledger is required")
	}
	if params.Gateway == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "gateway client is required")
	}
	if params.Events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox service is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	successCode := params.Config.SuccessCode
	if successCode == "" {
		successCode = "00"
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &finalizer{
		db:          params.DB,
		repo:        params.Repo,
		cartRepo:    params.CartRepo,
		ledger:      params.Ledger,
		gateway:     params.Gateway,
		events:      params.Events,
		idem:        params.Idempotency,
		metrics:     params.Metrics,
		logg:        params.Logger,
		successCode: successCode,
		now:         now,
	}, nil
}

func (f *finalizer) HandleCallback(ctx context.Context, query url.Values) (*Result, error) {
	start := f.now()

	cb, err := f.gateway.ParseCallback(query)
	if err != nil {
		return nil, err
	}

	attemptID, processed, err := f.guard(ctx, cb.TxnRef)
	if err != nil {
		return nil, err
	}
	if processed {
		result := &Result{Outcome: OutcomeAlreadyPaid, GatewayRef: cb.TxnRef}
		f.finish(ctx, result, start)
		return result, nil
	}

	var result *Result
	err = f.db.WithTx(ctx, func(tx *gorm.DB) error {
		settled, err := f.settle(ctx, tx, cb)
		if err != nil {
			return err
		}
		result = settled
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Outcome == OutcomePaid {
		// The guard key is written only after the transaction commits, so a
		// duplicate racing the first finalization falls through to the row
		// lock instead of being acked off an uncommitted payment.
		f.markProcessed(ctx, attemptID)
	}

	f.finish(ctx, result, start)
	return result, nil
}

func (f *finalizer) settle(ctx context.Context, tx *gorm.DB, cb gateway.Callback) (*Result, error) {
	repo := f.repo.WithTx(tx)

	txn, err := repo.FindTransactionByRefLocked(ctx, cb.TxnRef)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment attempt")
	}
	if txn == nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnknownAttempt, "no payment attempt matches the callback reference").
			WithDetails(map[string]any{"gateway_ref": cb.TxnRef})
	}

	order, err := repo.FindOrderByIDLocked(ctx, txn.OrderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order for payment attempt")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment attempt references a missing order")
	}

	result := &Result{OrderID: order.ID, OrderCode: order.Code, GatewayRef: txn.GatewayRef}

	// A replayed callback for an attempt that already succeeded changes
	// nothing. Stock was deducted and the cart consumed the first time.
	if txn.Status == enums.PaymentStatusSuccess {
		result.Outcome = OutcomeAlreadyPaid
		return result, nil
	}
	// A failed attempt is terminal for its reference. Recovery happens on a
	// fresh attempt with a new ref, so a late success replay changes nothing.
	if txn.Status == enums.PaymentStatusFailed {
		result.Outcome = OutcomeFailed
		return result, nil
	}

	raw, err := json.Marshal(cb.Params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode callback payload")
	}

	if !cb.Success(f.successCode) {
		result.Outcome = OutcomeFailed
		return result, f.markFailed(ctx, tx, repo, txn, order, raw, cb.ResponseCode)
	}
	if !cb.Amount.Equal(txn.Amount) {
		result.Outcome = OutcomeAmountMismatch
		return result, f.markFailed(ctx, tx, repo, txn, order, raw, fmt.Sprintf("amount %s != %s", cb.Amount, txn.Amount))
	}

	result.Outcome = OutcomePaid
	return result, f.markPaid(ctx, tx, repo, txn, order, raw)
}

// markFailed settles a rejected attempt. The order only moves to failed if it
// has not been paid through another attempt; paid never reverts.
func (f *finalizer) markFailed(ctx context.Context, tx *gorm.DB, repo Repository, txn *models.PaymentTransaction, order *models.Order, raw json.RawMessage, reason string) error {
	err := repo.UpdateTransaction(ctx, txn.ID, map[string]any{
		"status":       enums.PaymentStatusFailed,
		"verified":     true,
		"raw_callback": raw,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle failed attempt")
	}

	if order.Status != enums.OrderStatusPaid && order.PaymentStatus != enums.PaymentStatusSuccess {
		err = repo.UpdateOrder(ctx, order.ID, map[string]any{
			"payment_status": enums.PaymentStatusFailed,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order payment failed")
		}
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventPaymentFailed,
		AggregateType: enums.AggregatePaymentTransaction,
		AggregateID:   txn.ID,
		Data: payloads.PaymentFailedEvent{
			OrderID:      order.ID,
			OrderCode:    order.Code,
			UserID:       txn.UserID,
			GatewayRef:   txn.GatewayRef,
			ResponseCode: reason,
		},
	}
	if err := f.events.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue payment failed event")
	}
	return nil
}

// markPaid settles a successful attempt: deduct stock line by line, move the
// attempt and order to paid, consume the cart and confirm the order once.
func (f *finalizer) markPaid(ctx context.Context, tx *gorm.DB, repo Repository, txn *models.PaymentTransaction, order *models.Order, raw json.RawMessage) error {
	shortfalls, err := f.deductStock(ctx, tx, order)
	if err != nil {
		return err
	}

	err = repo.UpdateTransaction(ctx, txn.ID, map[string]any{
		"status":       enums.PaymentStatusSuccess,
		"verified":     true,
		"raw_callback": raw,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "settle paid attempt")
	}

	paidAt := f.now().UTC()
	orderFields := map[string]any{
		"status":         enums.OrderStatusPaid,
		"payment_status": enums.PaymentStatusSuccess,
		"paid_at":        paidAt,
		"gateway_ref":    txn.GatewayRef,
	}
	if len(shortfalls) > 0 {
		orderFields["fulfillment_note"] = strings.Join(shortfalls, "; ")
	}
	if err := repo.UpdateOrder(ctx, order.ID, orderFields); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mark order paid")
	}

	if err := f.cartRepo.WithTx(tx).DeleteAllForUser(ctx, txn.UserID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume cart")
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderConfirmed,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: txn.UserID},
		Data: payloads.OrderConfirmedEvent{
			OrderID:       order.ID,
			OrderCode:     order.Code,
			UserID:        txn.UserID,
			ReceiverEmail: order.ReceiverEmail,
			PaymentMethod: order.PaymentMethod,
			Total:         order.Total,
			PaidAt:        paidAt,
		},
	}
	if err := f.events.EmitIfNotExists(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue order confirmed event")
	}
	return nil
}

// deductStock applies the guarded per-line decrement. A shortfall does not
// block the payment, the money is already captured; it is recorded on the
// order and flagged for operators instead.
func (f *finalizer) deductStock(ctx context.Context, tx *gorm.DB, order *models.Order) ([]string, error) {
	ledger := f.ledger.WithTx(tx)

	var notes []string
	for i := range order.Lines {
		line := &order.Lines[i]
		if line.ProductID == nil {
			continue
		}
		productID := *line.ProductID

		applied, err := ledger.Decrement(ctx, productID, line.Quantity)
		if err != nil {
			return nil, err
		}
		if applied {
			continue
		}

		available, err := ledger.Available(ctx, productID)
		if err != nil {
			return nil, err
		}
		notes = append(notes, fmt.Sprintf("short %d of %d for %s", line.Quantity-available, line.Quantity, line.ProductName))

		event := outbox.DomainEvent{
			EventType:     enums.EventStockShortfall,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.StockShortfallEvent{
				OrderID:   order.ID,
				OrderCode: order.Code,
				ProductID: productID,
				Requested: line.Quantity,
				Available: available,
			},
		}
		if err := f.events.Emit(ctx, tx, event); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue stock shortfall event")
		}
		f.metrics.IncStockShortfall()

		logCtx := f.logg.WithFields(ctx, map[string]any{
			"order_code": order.Code,
			"product_id": productID.String(),
			"requested":  line.Quantity,
			"available":  available,
		})
		f.logg.Warn(logCtx, "paid order could not deduct stock")
	}
	return notes, nil
}

// guard consults the optional Redis idempotency key before touching the DB.
// It only reads; the key is written by markProcessed after a paid outcome has
// committed. Redis being down degrades to row locking alone, so errors only
// log.
func (f *finalizer) guard(ctx context.Context, gatewayRef string) (uuid.UUID, bool, error) {
	if f.idem == nil {
		return uuid.Nil, false, nil
	}

	txn, err := f.repo.FindTransactionByRef(ctx, gatewayRef)
	if err != nil {
		return uuid.Nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load payment attempt")
	}
	if txn == nil {
		return uuid.Nil, false, pkgerrors.New(pkgerrors.CodeUnknownAttempt, "no payment attempt matches the callback reference").
			WithDetails(map[string]any{"gateway_ref": gatewayRef})
	}

	processed, err := f.idem.IsProcessed(ctx, finalizerConsumer, txn.ID)
	if err != nil {
		f.logg.Warn(ctx, "idempotency check unavailable, relying on row locks")
		return txn.ID, false, nil
	}
	return txn.ID, processed, nil
}

func (f *finalizer) markProcessed(ctx context.Context, attemptID uuid.UUID) {
	if f.idem == nil || attemptID == uuid.Nil {
		return
	}
	if err := f.idem.MarkProcessed(ctx, finalizerConsumer, attemptID); err != nil {
		f.logg.Warn(ctx, "failed to record idempotency key")
	}
}

func (f *finalizer) finish(ctx context.Context, result *Result, start time.Time) {
	f.metrics.ObserveFinalization(result.Outcome, f.now().Sub(start))

	logCtx := f.logg.WithFields(ctx, map[string]any{
		"outcome":     result.Outcome,
		"order_code":  result.OrderCode,
		"gateway_ref": result.GatewayRef,
	})
	f.logg.Info(logCtx, "payment callback settled")
}
