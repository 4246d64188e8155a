package products

import (
	"context"
	"time"

	"github.com/haanhtuan/storefront-backend/internal/attributes"
	"github.com/haanhtuan/storefront-backend/internal/pricing"
	"github.com/haanhtuan/storefront-backend/pkg/db/models"
	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
	"github.com/haanhtuan/storefront-backend/pkg/logger"
)

// Service serves the storefront catalog with effective prices resolved at
// read time.
type Service interface {
	GetBySlug(ctx context.Context, slug string) (*Detail, error)
	List(ctx context.Context, limit, offset int) (*ListResult, error)
}

type service struct {
	repo   Repository
	attrs  attributes.Service
	pricer pricing.Service
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires the catalog read service.
func NewService(repo Repository, attrs attributes.Service, pricer pricing.Service, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "products repository is required")
	}
	if attrs == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "attribute resolver is required")
	}
	if pricer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "pricing engine is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	return &service{repo: repo, attrs: attrs, pricer: pricer, logg: logg, now: time.Now}, nil
}

func (s *service) GetBySlug(ctx context.Context, slug string) (*Detail, error) {
	if slug == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}

	product, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product")
	}
	if product == nil || !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	summary, err := s.summarize(ctx, product)
	if err != nil {
		return nil, err
	}

	groups, err := s.attrs.ListGroups(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	stock := 0
	if product.Inventory != nil {
		stock = product.Inventory.StockQty
	}
	return &Detail{
		Summary:     *summary,
		Description: product.Description,
		StockQty:    stock,
		Attributes:  toGroupOptions(groups),
	}, nil
}

func (s *service) List(ctx context.Context, limit, offset int) (*ListResult, error) {
	rows, total, err := s.repo.ListActive(ctx, limit, offset)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list products")
	}

	items := make([]Summary, 0, len(rows))
	for i := range rows {
		summary, err := s.summarize(ctx, &rows[i])
		if err != nil {
			return nil, err
		}
		items = append(items, *summary)
	}
	return &ListResult{Items: items, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *service) summarize(ctx context.Context, product *models.Product) (*Summary, error) {
	view, err := s.pricer.ResolveUnitPrice(ctx, product.ID, product.BasePrice, s.now())
	if err != nil {
		return nil, err
	}

	inStock := product.Inventory != nil && product.Inventory.StockQty > 0
	return &Summary{
		ID:             product.ID,
		Slug:           product.Slug,
		Name:           product.Name,
		ThumbnailURL:   product.ThumbnailURL,
		BasePrice:      product.BasePrice,
		EffectivePrice: view.UnitPrice,
		Discount:       view.Discount,
		InStock:        inStock,
	}, nil
}

func toGroupOptions(groups []attributes.GroupView) []AttributeGroupOption {
	out := make([]AttributeGroupOption, 0, len(groups))
	for _, group := range groups {
		option := AttributeGroupOption{
			ID:   group.GroupID,
			Name: group.GroupName,
			Kind: group.Kind,
		}
		for _, value := range group.Values {
			option.Values = append(option.Values, AttributeValueOption{
				ID:        value.ValueID,
				Name:      value.ValueName,
				Surcharge: value.Surcharge,
			})
		}
		out = append(out, option)
	}
	return out
}
