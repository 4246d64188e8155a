package attributes

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/haanhtuan/storefront-backend/pkg/enums"
	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
	"github.com/haanhtuan/storefront-backend/pkg/logger"
	"github.com/haanhtuan/storefront-backend/pkg/types"
)

// Selection is the validated, normalized outcome of resolving a customer's
// attribute choices against a product's active links.
type Selection struct {
	Size     *types.SizeSnapshot
	Toppings types.SelectionItems
	Others   types.SelectionItems
	// NormalizedIDs is the deduplicated, ascending-sorted set of selected
	// value ids. It feeds the cart line key, so its order must be stable.
	NormalizedIDs []uuid.UUID
	// ExtrasPerUnit is the size surcharge plus every topping and other
	// surcharge, per product unit.
	ExtrasPerUnit decimal.Decimal
}

// Service validates attribute selections for a product.
type Service interface {
	WithRepository(repo Repository) Service
	Resolve(ctx context.Context, productID uuid.UUID, valueIDs []uuid.UUID) (*Selection, error)
	ListGroups(ctx context.Context, productID uuid.UUID) ([]GroupView, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService wires the selection resolver.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "attributes repository is required")
	}
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger is required")
	}
	return &service{repo: repo, logg: logg}, nil
}

// WithRepository returns a copy of the service bound to another repository,
// typically one scoped to an open transaction.
func (s *service) WithRepository(repo Repository) Service {
	if repo == nil {
		return s
	}
	return &service{repo: repo, logg: s.logg}
}

func (s *service) Resolve(ctx context.Context, productID uuid.UUID, valueIDs []uuid.UUID) (*Selection, error) {
	normalized := normalizeIDs(valueIDs)

	selection := &Selection{
		NormalizedIDs: normalized,
		ExtrasPerUnit: decimal.Zero,
	}
	if len(normalized) == 0 {
		return selection, nil
	}

	links, err := s.repo.FindActiveLinks(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product attribute links")
	}
	linked := make(map[uuid.UUID]LinkedValue, len(links))
	for _, link := range links {
		linked[link.ValueID] = link
	}

	var unknown []uuid.UUID
	for _, id := range normalized {
		if _, ok := linked[id]; !ok {
			unknown = append(unknown, id)
		}
	}
	if len(unknown) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidSelection, "selection contains values not offered by this product").
			WithDetails(map[string]any{
				"product_id":  productID,
				"invalid_ids": unknown,
			})
	}

	// Re-walk in link order so toppings and others come out in the catalog's
	// display order rather than in request order.
	var sizes []LinkedValue
	for _, link := range links {
		if !containsID(normalized, link.ValueID) {
			continue
		}
		switch link.Kind {
		case enums.AttributeKindSize:
			sizes = append(sizes, link)
		case enums.AttributeKindTopping:
			selection.Toppings = append(selection.Toppings, selectionItem(link))
		default:
			selection.Others = append(selection.Others, selectionItem(link))
		}
		selection.ExtrasPerUnit = selection.ExtrasPerUnit.Add(link.Surcharge)
	}

	if len(sizes) > 1 {
		ids := make([]uuid.UUID, 0, len(sizes))
		for _, sz := range sizes {
			ids = append(ids, sz.ValueID)
		}
		return nil, pkgerrors.New(pkgerrors.CodeMultipleSizesSelected, "selection names more than one size").
			WithDetails(map[string]any{
				"product_id": productID,
				"size_ids":   ids,
			})
	}
	if len(sizes) == 1 {
		selection.Size = &types.SizeSnapshot{
			ValueID:   sizes[0].ValueID,
			Name:      sizes[0].ValueName,
			Surcharge: sizes[0].Surcharge,
		}
	}
	return selection, nil
}

func (s *service) ListGroups(ctx context.Context, productID uuid.UUID) ([]GroupView, error) {
	groups, err := s.repo.FindGroupsForProduct(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load product attribute groups")
	}
	return groups, nil
}

func selectionItem(link LinkedValue) types.SelectionItem {
	return types.SelectionItem{
		ValueID:   link.ValueID,
		GroupID:   link.GroupID,
		GroupName: link.GroupName,
		Name:      link.ValueName,
		Qty:       1,
		Surcharge: link.Surcharge,
	}
}

// normalizeIDs deduplicates and sorts ascending by canonical string form.
func normalizeIDs(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].String() < out[j].String()
	})
	if len(out) == 0 {
		return nil
	}
	return out
}

func containsID(ids []uuid.UUID, id uuid.UUID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
