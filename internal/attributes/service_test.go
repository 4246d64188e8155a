package attributes

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/haanhtuan/storefront-backend/pkg/enums"
	pkgerrors "github.com/haanhtuan/storefront-backend/pkg/errors"
	"github.com/haanhtuan/storefront-backend/pkg/logger"
)

type stubAttributesRepo struct {
	links []LinkedValue
	err   error
}

func (s *stubAttributesRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubAttributesRepo) FindActiveLinks(ctx context.Context, productID uuid.UUID) ([]LinkedValue, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.links, nil
}

func (s *stubAttributesRepo) FindGroupsForProduct(ctx context.Context, productID uuid.UUID) ([]GroupView, error) {
	if s.err != nil {
		return nil, s.err
	}
	var groups []GroupView
	index := map[uuid.UUID]int{}
	for _, link := range s.links {
		pos, ok := index[link.GroupID]
		if !ok {
			groups = append(groups, GroupView{GroupID: link.GroupID, GroupName: link.GroupName, Kind: link.Kind})
			pos = len(groups) - 1
			index[link.GroupID] = pos
		}
		groups[pos].Values = append(groups[pos].Values, link)
	}
	return groups, nil
}

func newTestService(t *testing.T, repo Repository) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "attributes-test", Output: io.Discard})
	svc, err := NewService(repo, logg)
	require.NoError(t, err)
	return svc
}

func linkFixture(group string, kind enums.AttributeKind, name string, surcharge int64, groupPos, valuePos int) LinkedValue {
	return LinkedValue{
		ValueID:       uuid.New(),
		ValueName:     name,
		GroupID:       uuid.NewSHA1(uuid.NameSpaceOID, []byte(group)),
		GroupName:     group,
		Kind:          kind,
		Surcharge:     decimal.NewFromInt(surcharge),
		GroupPosition: groupPos,
		ValuePosition: valuePos,
	}
}

func TestResolvePartitionsSelectionByKind(t *testing.T) {
	size := linkFixture("Size", enums.AttributeKindSize, "Large", 10000, 0, 1)
	topping := linkFixture("Toppings", enums.AttributeKindTopping, "Pearls", 5000, 1, 0)
	other := linkFixture("Sweetness", enums.AttributeKindOther, "50%", 0, 2, 0)
	repo := &stubAttributesRepo{links: []LinkedValue{size, topping, other}}
	svc := newTestService(t, repo)

	selection, err := svc.Resolve(context.Background(), uuid.New(), []uuid.UUID{other.ValueID, size.ValueID, topping.ValueID})
	require.NoError(t, err)

	require.NotNil(t, selection.Size)
	assert.Equal(t, size.ValueID, selection.Size.ValueID)
	assert.Equal(t, "Large", selection.Size.Name)

	require.Len(t, selection.Toppings, 1)
	assert.Equal(t, topping.ValueID, selection.Toppings[0].ValueID)
	assert.Equal(t, 1, selection.Toppings[0].Qty)

	require.Len(t, selection.Others, 1)
	assert.Equal(t, other.ValueID, selection.Others[0].ValueID)

	assert.True(t, selection.ExtrasPerUnit.Equal(decimal.NewFromInt(15000)),
		"extras per unit should sum every surcharge, got %s", selection.ExtrasPerUnit)
}

func TestResolveNormalizesIDsDedupedAndSorted(t *testing.T) {
	a := linkFixture("Toppings", enums.AttributeKindTopping, "Pearls", 5000, 0, 0)
	b := linkFixture("Toppings", enums.AttributeKindTopping, "Jelly", 4000, 0, 1)
	repo := &stubAttributesRepo{links: []LinkedValue{a, b}}
	svc := newTestService(t, repo)

	selection, err := svc.Resolve(context.Background(), uuid.New(), []uuid.UUID{b.ValueID, a.ValueID, b.ValueID, uuid.Nil})
	require.NoError(t, err)

	require.Len(t, selection.NormalizedIDs, 2)
	assert.Less(t, selection.NormalizedIDs[0].String(), selection.NormalizedIDs[1].String())
	// The duplicated id must count its surcharge exactly once.
	assert.True(t, selection.ExtrasPerUnit.Equal(decimal.NewFromInt(9000)))
}

func TestResolveRejectsUnknownValues(t *testing.T) {
	known := linkFixture("Toppings", enums.AttributeKindTopping, "Pearls", 5000, 0, 0)
	repo := &stubAttributesRepo{links: []LinkedValue{known}}
	svc := newTestService(t, repo)

	_, err := svc.Resolve(context.Background(), uuid.New(), []uuid.UUID{known.ValueID, uuid.New()})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidSelection))
}

func TestResolveRejectsTwoSizes(t *testing.T) {
	small := linkFixture("Size", enums.AttributeKindSize, "Small", 0, 0, 0)
	large := LinkedValue{
		ValueID:   uuid.New(),
		ValueName: "Large",
		GroupID:   small.GroupID,
		GroupName: small.GroupName,
		Kind:      enums.AttributeKindSize,
		Surcharge: decimal.NewFromInt(10000),
	}
	repo := &stubAttributesRepo{links: []LinkedValue{small, large}}
	svc := newTestService(t, repo)

	_, err := svc.Resolve(context.Background(), uuid.New(), []uuid.UUID{small.ValueID, large.ValueID})
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeMultipleSizesSelected))
}

func TestResolveEmptySelectionSkipsRepository(t *testing.T) {
	repo := &stubAttributesRepo{err: assert.AnError}
	svc := newTestService(t, repo)

	selection, err := svc.Resolve(context.Background(), uuid.New(), nil)
	require.NoError(t, err)
	assert.Nil(t, selection.Size)
	assert.Empty(t, selection.NormalizedIDs)
	assert.True(t, selection.ExtrasPerUnit.IsZero())
}
