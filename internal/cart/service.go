package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/haanhtuan/storefront-backend/internal/attributes"
	"github.com/haanhtuan/storefront-backend/internal/pricing"
	dbpkg "github.com/haanhtuan/storefront-backend/pkg/db"
	"github.com/haanhtuan/storefront-backend/pkg/db/models"
	dbtypes "github.com/haanhtuan/storefront-backend/pkg/db/types"
	"github.com/haanhtuan/storefront-backend/pkg/enums"
	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
	"github.com/haanhtuan/storefront-backend/pkg/logger"
	"github.com/haanhtuan/storefront-backend/pkg/outbox"
	"github.com/haanhtuan/storefront-backend/pkg/outbox/payloads"
	"github.com/haanhtuan/storefront-backend/pkg/types"
)

// Discard reasons recorded on cart.line_discarded events.
const (
	DiscardReasonProductUnavailable = "product_unavailable"
	DiscardReasonOutOfStock         = "out_of_stock"
	DiscardReasonSelectionInvalid   = "selection_invalid"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Line is the API-facing shape of one cart line after reconciliation.
type Line struct {
	ID              uuid.UUID            `json:"id"`
	ProductID       uuid.UUID            `json:"product_id"`
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

// DiscardedLine reports a line reconciliation removed and why.
type DiscardedLine struct {
	LineID      uuid.UUID `json:"line_id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name,omitempty"`
	Reason      string    `json:"reason"`
}

// View is the reconciled cart: every line repriced against the live catalog,
// with aggregate totals. Discarded carries the lines the last reconciliation
// removed so callers can tell stock problems from dead selections.
type View struct {
	Lines       []Line          `json:"lines"`
	Discarded   []DiscardedLine `json:"discarded,omitempty"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ExtrasTotal decimal.Decimal `json:"extras_total"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	LineCount   int             `json:"line_count"`
	ItemCount   int             `json:"item_count"`
}

// AddLineInput configures one product for the cart.
type AddLineInput struct {
	UserID            uuid.UUID
	ProductID         uuid.UUID
	Quantity          int
	Options           types.Document
	AttributeValueIDs []uuid.UUID
}

// UpdateLineInput replaces a line's quantity and configuration.
type UpdateLineInput struct {
	UserID            uuid.UUID
	LineID            uuid.UUID
	Quantity          int
	Options           types.Document
	AttributeValueIDs []uuid.UUID
}

// Service owns the cart lifecycle. Every read or mutation reconciles the cart
// against the live catalog before returning, so callers always see current
// prices and availability.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*View, error)
	AddLine(ctx context.Context, input AddLineInput) (*View, error)
	UpdateLine(ctx context.Context, input UpdateLineInput) (*View, error)
	RemoveLine(ctx context.Context, userID, lineID uuid.UUID) (*View, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	// ReconcileTx reconciles inside an already-open transaction. Checkout
	// uses it so the reconciled snapshot and the order share one tx.
	ReconcileTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*View, error)
}

// ServiceParams wires the cart service dependencies.
type ServiceParams struct {
	DB        txRunner
	Repo      Repository
	AttrRepo  attributes.Repository
	Attrs     attributes.Service
	PriceRepo pricing.Repository
	Pricer    pricing.Service
	Events    *outbox.Service
	Logger    *logger.Logger
	Now       func() time.Time
}

type service struct {
	db        txRunner
	repo      Repository
	attrRepo  attributes.Repository
	attrs     attributes.Service
	priceRepo pricing.Repository
	pricer    pricing.Service
	events    *outbox.Service
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the cart service.
func NewService(params ServiceParams) (Service, error) {
	if params.DB == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "db is required")
	}
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart repository is required")
	}
	if params.AttrRepo == nil || params.Attrs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "attribute resolver is required")
	}
	if params.PriceRepo == nil || params.Pricer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing engine is required")
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
	return &service{
		db:        params.DB,
		repo:      params.Repo,
		attrRepo:  params.AttrRepo,
		attrs:     params.Attrs,
		priceRepo: params.PriceRepo,
		pricer:    params.Pricer,
		events:    params.Events,
		logg:      params.Logger,
		now:       now,
	}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*View, error) {
	var view *View
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		reconciled, err := s.ReconcileTx(ctx, tx, userID)
		if err != nil {
			return err
		}
		view = reconciled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) AddLine(ctx context.Context, input AddLineInput) (*View, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var view *View
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		product, err := repo.FindProductForSale(ctx, input.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		if product == nil || !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not available")
		}

		line, err := s.buildLine(ctx, tx, input.UserID, product, input.Quantity, input.Options, input.AttributeValueIDs)
		if err != nil {
			return err
		}

		if err := s.upsertLine(ctx, repo, line, input.Quantity); err != nil {
			return err
		}

		view, err = s.ReconcileTx(ctx, tx, input.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) UpdateLine(ctx context.Context, input UpdateLineInput) (*View, error) {
	if input.Quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	var view *View
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindLineByID(ctx, input.UserID, input.LineID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
		}
		if existing == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}

		product, err := repo.FindProductForSale(ctx, existing.ProductID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
		}
		if product == nil || !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not available")
		}

		rebuilt, err := s.buildLine(ctx, tx, input.UserID, product, input.Quantity, input.Options, input.AttributeValueIDs)
		if err != nil {
			return err
		}

		if rebuilt.LineKey != existing.LineKey {
			// The new configuration may collide with another line; merge
			// into it and drop this one.
			twin, err := repo.FindLineByKey(ctx, input.UserID, rebuilt.LineKey)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check for twin line")
			}
			if twin != nil && twin.ID != existing.ID {
				if err := s.mergeInto(ctx, tx, repo, twin, input.Quantity, product); err != nil {
					return err
				}
				if err := repo.DeleteLines(ctx, input.UserID, []uuid.UUID{existing.ID}); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drop merged cart line")
				}
				view, err = s.ReconcileTx(ctx, tx, input.UserID)
				return err
			}
		}

		rebuilt.ID = existing.ID
		rebuilt.CreatedAt = existing.CreatedAt
		if err := repo.SaveLine(ctx, rebuilt); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save cart line")
		}

		view, err = s.ReconcileTx(ctx, tx, input.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) RemoveLine(ctx context.Context, userID, lineID uuid.UUID) (*View, error) {
	var view *View
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		line, err := repo.FindLineByID(ctx, userID, lineID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart line")
		}
		if line == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cart line not found")
		}
		if err := repo.DeleteLines(ctx, userID, []uuid.UUID{lineID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete cart line")
		}

		view, err = s.ReconcileTx(ctx, tx, userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}

func (s *service) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).DeleteAllForUser(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "clear cart")
		}
		return nil
	})
}

// ReconcileTx brings every cart line in sync with the live catalog: lines for
// missing, inactive, or sold-out products are discarded, quantities are
// clamped to stock, and prices plus snapshots are refreshed. Discards are
// recorded as outbox events in the same transaction.
func (s *service) ReconcileTx(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*View, error) {
	repo := s.repo.WithTx(tx)
	lines, err := repo.FindLinesByUserLocked(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load cart lines")
	}

	now := s.now()
	view := &View{
		Subtotal:    decimal.Zero,
		ExtrasTotal: decimal.Zero,
		GrandTotal:  decimal.Zero,
	}

	for i := range lines {
		line := &lines[i]

		if line.Product == nil || !line.Product.IsActive {
			if err := s.discardLine(ctx, tx, repo, line, DiscardReasonProductUnavailable); err != nil {
				return nil, err
			}
			view.Discarded = append(view.Discarded, toDiscardedLine(line, DiscardReasonProductUnavailable))
			continue
		}
		stock := 0
		if line.Product.Inventory != nil {
			stock = line.Product.Inventory.StockQty
		}
		if stock <= 0 {
			if err := s.discardLine(ctx, tx, repo, line, DiscardReasonOutOfStock); err != nil {
				return nil, err
			}
			view.Discarded = append(view.Discarded, toDiscardedLine(line, DiscardReasonOutOfStock))
			continue
		}

		attrs := s.attrs.WithRepository(s.attrRepo.WithTx(tx))
		selection, err := attrs.Resolve(ctx, line.ProductID, line.AttributeValueIDs)
		if err != nil {
			if pkgerrors.HasCode(err, pkgerrors.CodeInvalidSelection) || pkgerrors.HasCode(err, pkgerrors.CodeMultipleSizesSelected) {
				if err := s.discardLine(ctx, tx, repo, line, DiscardReasonSelectionInvalid); err != nil {
					return nil, err
				}
				view.Discarded = append(view.Discarded, toDiscardedLine(line, DiscardReasonSelectionInvalid))
				continue
			}
			return nil, err
		}

		changed := false
		if line.Quantity > stock {
			line.Quantity = stock
			changed = true
		}

		pricer := s.pricer.WithRepository(s.priceRepo.WithTx(tx))
		priceView, err := pricer.ResolveUnitPrice(ctx, line.ProductID, line.Product.BasePrice, now)
		if err != nil {
			return nil, err
		}
		quote, err := pricer.PriceLine(priceView.UnitPrice, selection.ExtrasPerUnit, line.Quantity)
		if err != nil {
			return nil, err
		}

		if !line.UnitPrice.Equal(quote.UnitPrice) || !line.ExtrasTotal.Equal(quote.ExtrasTotal) || !line.LineTotal.Equal(quote.LineTotal) {
			changed = true
		}
		line.UnitPrice = quote.UnitPrice
		line.ExtrasTotal = quote.ExtrasTotal
		line.LineTotal = quote.LineTotal
		line.SizeSnapshot = selection.Size
		line.Toppings = selection.Toppings
		line.OtherAttributes = selection.Others

		if changed {
			if err := repo.SaveLine(ctx, line); err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "refresh cart line")
			}
		}

		view.Lines = append(view.Lines, toLine(line))
		view.Subtotal = view.Subtotal.Add(quote.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
		view.ExtrasTotal = view.ExtrasTotal.Add(quote.ExtrasTotal)
		view.GrandTotal = view.GrandTotal.Add(quote.LineTotal)
		view.ItemCount += line.Quantity
	}

	view.LineCount = len(view.Lines)
	return view, nil
}

func (s *service) buildLine(ctx context.Context, tx *gorm.DB, userID uuid.UUID, product *models.Product, quantity int, options types.Document, valueIDs []uuid.UUID) (*models.CartLine, error) {
	attrs := s.attrs.WithRepository(s.attrRepo.WithTx(tx))
	selection, err := attrs.Resolve(ctx, product.ID, valueIDs)
	if err != nil {
		return nil, err
	}

	pricer := s.pricer.WithRepository(s.priceRepo.WithTx(tx))
	priceView, err := pricer.ResolveUnitPrice(ctx, product.ID, product.BasePrice, s.now())
	if err != nil {
		return nil, err
	}
	quote, err := pricer.PriceLine(priceView.UnitPrice, selection.ExtrasPerUnit, quantity)
	if err != nil {
		return nil, err
	}

	key, err := ComputeLineKey(product.ID, options, selection.NormalizedIDs)
	if err != nil {
		return nil, err
	}

	return &models.CartLine{
		UserID:            userID,
		ProductID:         product.ID,
		Quantity:          quantity,
		Options:           options,
		AttributeValueIDs: dbtypes.UUIDArray(selection.NormalizedIDs),
		LineKey:           key,
		SizeSnapshot:      selection.Size,
		Toppings:          selection.Toppings,
		OtherAttributes:   selection.Others,
		UnitPrice:         quote.UnitPrice,
		ExtrasTotal:       quote.ExtrasTotal,
		LineTotal:         quote.LineTotal,
	}, nil
}

// upsertLine creates the line, or merges quantities when a line with the same
// key already exists. The unique index on (user_id, line_key) backstops the
// lookup under concurrency.
func (s *service) upsertLine(ctx context.Context, repo Repository, line *models.CartLine, addedQty int) error {
	existing, err := repo.FindLineByKey(ctx, line.UserID, line.LineKey)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check for existing line")
	}
	if existing != nil {
		return s.mergeQuantities(ctx, repo, existing, line, addedQty)
	}

	if err := repo.CreateLine(ctx, line); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_cart_lines_user_line_key") {
			existing, findErr := repo.FindLineByKey(ctx, line.UserID, line.LineKey)
			if findErr != nil || existing == nil {
				return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart line")
			}
			return s.mergeQuantities(ctx, repo, existing, line, addedQty)
		}
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create cart line")
	}
	return nil
}

func (s *service) mergeQuantities(ctx context.Context, repo Repository, existing, rebuilt *models.CartLine, addedQty int) error {
	existing.Quantity += addedQty
	existing.Options = rebuilt.Options
	existing.AttributeValueIDs = rebuilt.AttributeValueIDs
	existing.SizeSnapshot = rebuilt.SizeSnapshot
	existing.Toppings = rebuilt.Toppings
	existing.OtherAttributes = rebuilt.OtherAttributes
	existing.UnitPrice = rebuilt.UnitPrice

	extrasPerUnit := decimal.Zero
	if rebuilt.Quantity > 0 {
		extrasPerUnit = rebuilt.ExtrasTotal.Div(decimal.NewFromInt(int64(rebuilt.Quantity)))
	}
	qty := decimal.NewFromInt(int64(existing.Quantity))
	existing.ExtrasTotal = extrasPerUnit.Mul(qty)
	existing.LineTotal = existing.UnitPrice.Add(extrasPerUnit).Mul(qty)

	if err := repo.SaveLine(ctx, existing); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "merge cart lines")
	}
	return nil
}

func (s *service) mergeInto(ctx context.Context, tx *gorm.DB, repo Repository, twin *models.CartLine, addedQty int, product *models.Product) error {
	rebuilt, err := s.buildLine(ctx, tx, twin.UserID, product, addedQty, twin.Options, twin.AttributeValueIDs)
	if err != nil {
		return err
	}
	return s.mergeQuantities(ctx, repo, twin, rebuilt, addedQty)
}

func (s *service) discardLine(ctx context.Context, tx *gorm.DB, repo Repository, line *models.CartLine, reason string) error {
	if err := repo.DeleteLines(ctx, line.UserID, []uuid.UUID{line.ID}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "discard cart line")
	}
	event := outbox.DomainEvent{
		EventType:     enums.EventCartLineDiscarded,
		AggregateType: enums.AggregateCart,
		AggregateID:   line.UserID,
		Actor:         &outbox.ActorRef{UserID: line.UserID},
		Data: payloads.CartLineDiscardedEvent{
			UserID:    line.UserID,
			LineID:    line.ID,
			ProductID: line.ProductID,
			Reason:    reason,
		},
	}
	if err := s.events.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "queue discard event")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"user_id": line.UserID.String(),
		"line_id": line.ID.String(),
		"reason":  reason,
	})
	s.logg.Info(logCtx, "cart line discarded during reconciliation")
	return nil
}

func toDiscardedLine(line *models.CartLine, reason string) DiscardedLine {
	out := DiscardedLine{LineID: line.ID, ProductID: line.ProductID, Reason: reason}
	if line.Product != nil {
		out.ProductName = line.Product.Name
	}
	return out
}

func toLine(line *models.CartLine) Line {
	out := Line{
		ID:              line.ID,
		ProductID:       line.ProductID,
		Quantity:        line.Quantity,
		Options:         line.Options,
		Size:            line.SizeSnapshot,
		Toppings:        line.Toppings,
		OtherAttributes: line.OtherAttributes,
		UnitPrice:       line.UnitPrice,
		ExtrasTotal:     line.ExtrasTotal,
		LineTotal:       line.LineTotal,
	}
	if line.Product != nil {
		out.ProductName = line.Product.Name
		out.ProductSlug = line.Product.Slug
		out.ThumbnailURL = line.Product.ThumbnailURL
	}
	return out
}
