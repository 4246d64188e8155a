package pricing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haanhtuan/storefront-backend/pkg/enums"
	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
	"github.com/haanhtuan/storefront-backend/pkg/logger"
)

// AppliedDiscount describes the campaign that produced an effective price.
type AppliedDiscount struct {
	CampaignID   uuid.UUID          `json:"campaign_id"`
	CampaignName string             `json:"campaign_name"`
	DiscountType enums.DiscountType `json:"discount_type"`
	Value        decimal.Decimal    `json:"value"`
}

// PriceView is the resolved per-unit price for a product at an instant.
type PriceView struct {
	BasePrice decimal.Decimal  `json:"base_price"`
	UnitPrice decimal.Decimal  `json:"unit_price"`
	Discount  *AppliedDiscount `json:"discount,omitempty"`
}

// Quote is the priced form of one line: quantity times unit price plus
// per-unit extras.
type Quote struct {
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	ExtrasPerUnit decimal.Decimal `json:"extras_per_unit"`
	ExtrasTotal   decimal.Decimal `json:"extras_total"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

// Service resolves effective unit prices and prices cart lines.
type Service interface {
	WithRepository(repo Repository) Service
	ResolveUnitPrice(ctx context.Context, productID uuid.UUID, basePrice decimal.Decimal, asOf time.Time) (*PriceView, error)
	PriceLine(unitPrice, extrasPerUnit decimal.Decimal, quantity int) (*Quote, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the pricing engine.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing repository is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) WithRepository(repo Repository) Service {
	if repo == nil {
		return s
	}
	return &service{repo: repo, logg: s.logg}
}

// ResolveUnitPrice applies the winning campaign, if any, to the base price.
// Campaign windows are inclusive on both ends.
func (s *service) ResolveUnitPrice(ctx context.Context, productID uuid.UUID, basePrice decimal.Decimal, asOf time.Time) (*PriceView, error) {
	assignment, err := s.repo.FindActiveAssignment(ctx, productID, asOf)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "resolve campaign assignment")
	}

	view := &PriceView{BasePrice: basePrice, UnitPrice: basePrice}
	if assignment == nil {
		return view, nil
	}

	view.UnitPrice = ApplyDiscount(basePrice, assignment.DiscountType, assignment.Value)
	view.Discount = &AppliedDiscount{
		CampaignID:   assignment.CampaignID,
		DiscountType: assignment.DiscountType,
		Value:        assignment.Value,
	}
	if assignment.Campaign != nil {
		view.Discount.CampaignName = assignment.Campaign.Name
	}
	return view, nil
}

// PriceLine computes the money columns of a cart or order line. It is a pure
// function of its inputs.
func (s *service) PriceLine(unitPrice, extrasPerUnit decimal.Decimal, quantity int) (*Quote, error) {
	if quantity <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
			WithDetails(map[string]any{"quantity": quantity})
	}
	if unitPrice.IsNegative() || extrasPerUnit.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "prices must not be negative")
	}

	qty := decimal.NewFromInt(int64(quantity))
	extrasTotal := extrasPerUnit.Mul(qty)
	lineTotal := unitPrice.Add(extrasPerUnit).Mul(qty)
	return &Quote{
		Quantity:      quantity,
		UnitPrice:     unitPrice,
		ExtrasPerUnit: extrasPerUnit,
		ExtrasTotal:   extrasTotal,
		LineTotal:     lineTotal,
	}, nil
}

// ApplyDiscount evaluates one discount formula against a base price. Results
// are rounded to whole currency units and never drop below zero.
func ApplyDiscount(basePrice decimal.Decimal, discountType enums.DiscountType, value decimal.Decimal) decimal.Decimal {
	var discounted decimal.Decimal
	switch discountType {
	case enums.DiscountTypePercent:
		factor := decimal.NewFromInt(100).Sub(value).Div(decimal.NewFromInt(100))
		discounted = basePrice.Mul(factor)
	case enums.DiscountTypeFixedAmount:
		discounted = basePrice.Sub(value)
	case enums.DiscountTypeFixedPrice:
		discounted = value
	default:
		return basePrice
	}
	discounted = discounted.Round(0)
	if discounted.IsNegative() {
		return decimal.Zero
	}
	return discounted
}

// WindowContains reports whether a campaign window covers the instant, with
// inclusive boundaries on both ends.
func WindowContains(startsAt, endsAt, asOf time.Time) bool {
	return !asOf.Before(startsAt) && !asOf.After(endsAt)
}
