package checkout

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/haanhtuan/storefront-backend/internal/cart"
	"github.com/haanhtuan/storefront-backend/internal/inventory"
	"github.com/haanhtuan/storefront-backend/pkg/config"
	dbpkg "github.com/haanhtuan/storefront-backend/pkg/db"
	"github.com/haanhtuan/storefront-backend/pkg/db/models"
	"github.com/haanhtuan/storefront-backend/pkg/enums"
	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
	"github.com/haanhtuan/storefront-backend/pkg/logger"
	"github.com/haanhtuan/storefront-backend/pkg/metrics"
	"github.com/haanhtuan/storefront-backend/pkg/outbox"
	"github.com/haanhtuan/storefront-backend/pkg/outbox/payloads"
	"github.com/haanhtuan/storefront-backend/pkg/types"
)

const (
	defaultOrderCodePrefix  = "SF"
	defaultOrderCodeRetries = 5
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// PlaceOrderInput carries everything needed to turn a cart into an order.
type PlaceOrderInput struct {
	UserID   uuid.UUID
	Receiver types.Receiver
}

// LineView is one snapshot line on an order.
type LineView struct {
	ID              uuid.UUID            `json:"id"`
	ProductID       *uuid.UUID           `json:"product_id,omitempty"`
	ProductName     string               `json:"product_name"`
	ProductSlug     string               `json:"product_slug"`
	ThumbnailURL    *string              `json:"thumbnail_url,omitempty"`
	Quantity        int                  `json:"quantity"`
	Options         types.Document       `json:"options,omitempty"`
	Size            *types.SizeSnapshot  `json:"size,omitempty"`
	Toppings        types.SelectionItems `json:"toppings,omitempty"`
	OtherAttributes types.SelectionItems `json:"other_attributes,omitempty"`
	UnitPrice       decimal.Decimal      `json:"unit_price"`
	ExtrasTotal     decimal.Decimal      `json:"extras_total"`
	LineTotal       decimal.Decimal      `json:"line_total"`
}

// OrderView is the API-facing shape of an order.
type OrderView struct {
	ID              uuid.UUID           `json:"id"`
	Code            string              `json:"code"`
	Status          enums.OrderStatus   `json:"status"`
	PaymentStatus   enums.PaymentStatus `json:"payment_status"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	Receiver        types.Receiver      `json:"receiver"`
	Subtotal        decimal.Decimal     `json:"subtotal"`
	ExtrasTotal     decimal.Decimal     `json:"extras_total"`
	Total           decimal.Decimal     `json:"total"`
	FulfillmentNote *string             `json:"fulfillment_note,omitempty"`
	PaidAt          *time.Time          `json:"paid_at,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	Lines           []LineView          `json:"lines"`
}

// OrderListResult pages through a user's order history.
type OrderListResult struct {
	Items  []OrderView `json:"items"`
	Total  int64       `json:"total"`
	Limit  int         `json:"limit"`
	Offset int         `json:"offset"`
}

// Service turns reconciled carts into orders.
type Service interface {
	// PlaceCODOrder creates a cash-on-delivery order: the cart is consumed
	// immediately, stock is verified but not deducted until the order is
	// marked paid.
	PlaceCODOrder(ctx context.Context, input PlaceOrderInput) (*OrderView, error)
	// CreatePendingOrderTx snapshots the reconciled cart into a pending
	// order inside an open transaction. The cart is left intact; gateway
	// payment flows consume it only after a successful callback.
	CreatePendingOrderTx(ctx context.Context, tx *gorm.DB, input PlaceOrderInput, method enums.PaymentMethod) (*models.Order, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderView, error)
	ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) (*OrderListResult, error)
}

// ServiceParams wires the checkout service dependencies.
type ServiceParams struct {
	DB       txRunner
	Repo     Repository
	Cart     cart.Service
	CartRepo cart.Repository
	Ledger   inventory.Ledger
	Events   *outbox.Service
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
	Checkout config.CheckoutConfig
	Now      func() time.Time
}

type service struct {
	db          txRunner
	repo        Repository
	cart        cart.Service
	cartRepo    cart.Repository
	ledger      inventory.Ledger
	events      *outbox.Service
	metrics     *metrics.CheckoutMetrics
	logg        *logger.Logger
	codePrefix  string
	codeRetries int
	now         func() time.Time
}

// NewService wires the checkout service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order repository is required")
	}
	if params.Cart == nil || params.CartRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service is required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "stock ledger is required")
	}
	if params.Events == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "outbox service is required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	codePrefix := params.Checkout.OrderCodePrefix
	if codePrefix == "" {
		codePrefix = defaultOrderCodePrefix
	}
	codeRetries := params.Checkout.OrderCodeMaxRetries
	if codeRetries <= 0 {
		codeRetries = defaultOrderCodeRetries
	}
	return &service{
		db:          params.DB,
		repo:        params.Repo,
		cart:        params.Cart,
		cartRepo:    params.CartRepo,
		ledger:      params.Ledger,
		events:      params.Events,
		metrics:     params.Metrics,
		logg:        params.Logger,
		codePrefix:  codePrefix,
		codeRetries: codeRetries,
		now:         now,
	}, nil
}

func (s *service) PlaceCODOrder(ctx context.Context, input PlaceOrderInput) (*OrderView, error) {
	if err := validateReceiver(input.Receiver); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.CreatePendingOrderTx(ctx, tx, input, enums.PaymentMethodCOD)
		if err != nil {
			return err
		}
		// COD consumes the cart at checkout time.
		if err := s.cartRepo.WithTx(tx).DeleteAllForUser(ctx, input.UserID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "consume cart")
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":   order.ID.String(),
		"order_code": order.Code,
		"user_id":    input.UserID.String(),
	})
	s.logg.Info(logCtx, "cod order placed")
	return toOrderView(order), nil
}

func (s *service) CreatePendingOrderTx(ctx context.Context, tx *gorm.DB, input PlaceOrderInput, method enums.PaymentMethod) (*models.Order, error) {
	if err := validateReceiver(input.Receiver); err != nil {
		return nil, err
	}
	if !method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	// Cart rows are locked first; products and inventory are locked after,
	// which keeps the lock order consistent across checkout flows.
	originals, err := s.cartRepo.WithTx(tx).FindLinesByUserLocked(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart lines")
	}
	requested := make(map[uuid.UUID]requestedLine, len(originals))
	for i := range originals {
		name := ""
		if originals[i].Product != nil {
			name = originals[i].Product.Name
		}
		requested[originals[i].ID] = requestedLine{
			productID:   originals[i].ProductID,
			productName: name,
			quantity:    originals[i].Quantity,
		}
	}

	view, err := s.cart.ReconcileTx(ctx, tx, input.UserID)
	if err != nil {
		return nil, err
	}

	// COD settles on delivery and never sees a later stock gate, so any line
	// the buyer asked for that cannot be fully served fails the order here,
	// named by its discard reason. Gateway orders carry the reconciled
	// quantities and are authoritatively stock-checked at finalization.
	if method == enums.PaymentMethodCOD {
		if err := s.rejectShortfalls(requested, view); err != nil {
			return nil, err
		}
		if err := s.verifyStock(ctx, tx, view); err != nil {
			return nil, err
		}
	}
	if len(view.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart has no purchasable lines")
	}

	repo := s.repo.WithTx(tx)
	order := &models.Order{
		UserID:          input.UserID,
		ReceiverName:    input.Receiver.Name,
		ReceiverPhone:   input.Receiver.Phone,
		ReceiverEmail:   input.Receiver.Email,
		ReceiverAddress: input.Receiver.Address,
		PaymentMethod:   method,
		PaymentStatus:   enums.PaymentStatusPending,
		Status:          enums.OrderStatusPending,
		Subtotal:        view.Subtotal,
		ExtrasTotal:     view.ExtrasTotal,
		Total:           view.GrandTotal,
	}
	if input.Receiver.Note != "" {
		note := input.Receiver.Note
		order.ReceiverNote = &note
	}

	if err := s.createWithCodeRetry(ctx, repo, order); err != nil {
		return nil, err
	}

	lines := make([]models.OrderLine, 0, len(view.Lines))
	for _, cartLine := range view.Lines {
		productID := cartLine.ProductID
		lines = append(lines, models.OrderLine{
			OrderID:         order.ID,
			ProductID:       &productID,
			ProductName:     cartLine.ProductName,
			ProductSlug:     cartLine.ProductSlug,
			ThumbnailURL:    cartLine.ThumbnailURL,
			Quantity:        cartLine.Quantity,
			Options:         cartLine.Options,
			SizeSnapshot:    cartLine.Size,
			Toppings:        cartLine.Toppings,
			OtherAttributes: cartLine.OtherAttributes,
			UnitPrice:       cartLine.UnitPrice,
			ExtrasTotal:     cartLine.ExtrasTotal,
			LineTotal:       cartLine.LineTotal,
		})
	}
	if err := repo.CreateOrderLines(ctx, lines); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "snapshot order lines")
	}
	order.Lines = lines

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: input.UserID},
		Data: payloads.OrderCreatedEvent{
			OrderID:       order.ID,
			OrderCode:     order.Code,
			UserID:        input.UserID,
			PaymentMethod: method,
			Total:         order.Total,
		},
	}
	if err := s.events.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue order created event")
	}

	s.metrics.IncOrderCreated(method.String())
	return order, nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.repo.FindOrderByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	if order == nil || order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return toOrderView(order), nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int) (*OrderListResult, error) {
	orders, total, err := s.repo.ListOrdersByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	items := make([]OrderView, 0, len(orders))
	for i := range orders {
		items = append(items, *toOrderView(&orders[i]))
	}
	return &OrderListResult{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

type requestedLine struct {
	productID   uuid.UUID
	productName string
	quantity    int
}

// rejectShortfalls fails checkout when reconciliation clamped or dropped a
// line. The discard reason decides the error: a dead attribute selection is
// not a stock problem, so it surfaces as one the buyer can fix on the line.
func (s *service) rejectShortfalls(requested map[uuid.UUID]requestedLine, view *cart.View) error {
	surviving := make(map[uuid.UUID]int, len(view.Lines))
	for _, line := range view.Lines {
		surviving[line.ID] = line.Quantity
	}
	discarded := make(map[uuid.UUID]string, len(view.Discarded))
	for _, d := range view.Discarded {
		discarded[d.LineID] = d.Reason
	}
	for lineID, want := range requested {
		got, kept := surviving[lineID]
		if kept && got >= want.quantity {
			continue
		}
		switch discarded[lineID] {
		case cart.DiscardReasonProductUnavailable:
			// The product left the catalog; there is nothing to sell or fix.
			continue
		case cart.DiscardReasonSelectionInvalid:
			return pkgerrors.New(pkgerrors.CodeInvalidSelection, fmt.Sprintf("selection for %s is no longer available", want.productName)).
				WithDetails(map[string]any{
					"product_id":   want.productID,
					"product_name": want.productName,
				})
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("not enough stock for %s", want.productName)).
			WithDetails(map[string]any{
				"product_id":   want.productID,
				"product_name": want.productName,
				"requested":    want.quantity,
				"available":    got,
			})
	}
	return nil
}

// verifyStock checks every line against current stock without deducting.
// Deduction happens only when the order transitions to paid.
func (s *service) verifyStock(ctx context.Context, tx *gorm.DB, view *cart.View) error {
	ledger := s.ledger.WithTx(tx)
	for _, line := range view.Lines {
		available, err := ledger.AvailableForUpdate(ctx, line.ProductID)
		if err != nil {
			return err
		}
		if available < line.Quantity {
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, fmt.Sprintf("not enough stock for %s", line.ProductName)).
				WithDetails(map[string]any{
					"product_id":   line.ProductID,
					"product_name": line.ProductName,
					"requested":    line.Quantity,
					"available":    available,
				})
		}
	}
	return nil
}

func (s *service) createWithCodeRetry(ctx context.Context, repo Repository, order *models.Order) error {
	var lastErr error
	for attempt := 0; attempt < s.codeRetries; attempt++ {
		code, err := generateOrderCode(s.codePrefix, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate order code")
		}
		order.Code = code

		err = repo.CreateOrder(ctx, order)
		if err == nil {
			return nil
		}
		if !dbpkg.IsUniqueViolation(err, "idx_orders_code") {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create order")
		}
		lastErr = err
		order.ID = uuid.Nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeInternal, lastErr, "order code collisions exhausted retries")
}

// generateOrderCode yields codes like SF260314-483920: date for operators,
// random suffix for uniqueness.
func generateOrderCode(prefix string, now time.Time) (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%s-%06d", prefix, now.UTC().Format("060102"), n.Int64()), nil
}

func toOrderView(order *models.Order) *OrderView {
	view := &OrderView{
		ID:              order.ID,
		Code:            order.Code,
		Status:          order.Status,
		PaymentStatus:   order.PaymentStatus,
		PaymentMethod:   order.PaymentMethod,
		Subtotal:        order.Subtotal,
		ExtrasTotal:     order.ExtrasTotal,
		Total:           order.Total,
		FulfillmentNote: order.FulfillmentNote,
		PaidAt:          order.PaidAt,
		CreatedAt:       order.CreatedAt,
		Receiver: types.Receiver{
			Name:    order.ReceiverName,
			Phone:   order.ReceiverPhone,
			Email:   order.ReceiverEmail,
			Address: order.ReceiverAddress,
		},
	}
	if order.ReceiverNote != nil {
		view.Receiver.Note = *order.ReceiverNote
	}
	for i := range order.Lines {
		line := &order.Lines[i]
		view.Lines = append(view.Lines, LineView{
			ID:              line.ID,
			ProductID:       line.ProductID,
			ProductName:     line.ProductName,
			ProductSlug:     line.ProductSlug,
			ThumbnailURL:    line.ThumbnailURL,
			Quantity:        line.Quantity,
			Options:         line.Options,
			Size:            line.SizeSnapshot,
			Toppings:        line.Toppings,
			OtherAttributes: line.OtherAttributes,
			UnitPrice:       line.UnitPrice,
			ExtrasTotal:     line.ExtrasTotal,
			LineTotal:       line.LineTotal,
		})
	}
	return view
}

func validateReceiver(receiver types.Receiver) error {
	missing := make([]string, 0, 3)
	if receiver.Name == "" {
		missing = append(missing, "name")
	}
	if receiver.Phone == "" {
		missing = append(missing, "phone")
	}
	if receiver.Address == "" {
		missing = append(missing, "address")
	}
	if len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "receiver is incomplete").
			WithDetails(map[string]any{"missing": missing})
	}
	return nil
}
