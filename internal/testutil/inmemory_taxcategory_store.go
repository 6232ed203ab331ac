package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/voxbill/voxbill/internal/domain/taxcategory"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/types"
)

// InMemoryTaxCategoryStore implements taxcategory.Repository
type InMemoryTaxCategoryStore struct {
	*InMemoryStore[*taxcategory.TaxCategory]
}

func NewInMemoryTaxCategoryStore() *InMemoryTaxCategoryStore {
	return &InMemoryTaxCategoryStore{
		InMemoryStore: NewInMemoryStore[*taxcategory.TaxCategory](),
	}
}

func taxCategoryFilterFn(ctx context.Context, c *taxcategory.TaxCategory, filter interface{}) bool {
	if c == nil {
		return false
	}

	if !CheckTenantFilter(ctx, c.TenantID) {
		return false
	}

	f, ok := filter.(*types.TaxCategoryFilter)
	if !ok || f == nil {
		return true
	}

	if len(f.CategoryIDs) > 0 && !lo.Contains(f.CategoryIDs, c.ID) {
		return false
	}
	if f.ServiceType != "" && !c.MatchesServiceType(f.ServiceType) {
		return false
	}
	if f.Taxable != nil && c.Taxable != *f.Taxable {
		return false
	}
	if f.QueryFilter != nil && f.Status != nil && c.Status != *f.Status {
		return false
	}

	return true
}

func taxCategorySortFn(i, j *taxcategory.TaxCategory) bool {
	if i == nil || j == nil {
		return false
	}
	if i.Priority != j.Priority {
		return i.Priority < j.Priority
	}
	return i.CreatedAt.After(j.CreatedAt)
}

func (s *InMemoryTaxCategoryStore) Create(ctx context.Context, c *taxcategory.TaxCategory) error {
	if c == nil {
		return ierr.NewError("tax category cannot be nil").
			WithHint("Tax category data is required").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, c.ID, c)
}

func (s *InMemoryTaxCategoryStore) Get(ctx context.Context, id string) (*taxcategory.TaxCategory, error) {
	c, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Tax category with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return c, nil
}

func (s *InMemoryTaxCategoryStore) List(ctx context.Context, filter *types.TaxCategoryFilter) ([]*taxcategory.TaxCategory, error) {
	return s.InMemoryStore.List(ctx, filter, taxCategoryFilterFn, taxCategorySortFn)
}

func (s *InMemoryTaxCategoryStore) Count(ctx context.Context, filter *types.TaxCategoryFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, taxCategoryFilterFn)
}

func (s *InMemoryTaxCategoryStore) Update(ctx context.Context, c *taxcategory.TaxCategory) error {
	if c == nil {
		return ierr.NewError("tax category cannot be nil").
			WithHint("Tax category data is required").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, c.ID, c)
}

func (s *InMemoryTaxCategoryStore) Delete(ctx context.Context, c *taxcategory.TaxCategory) error {
	if c == nil {
		return ierr.NewError("tax category cannot be nil").
			WithHint("Tax category data is required").
			Mark(ierr.ErrValidation)
	}
	c.Status = types.StatusArchived
	return s.InMemoryStore.Update(ctx, c.ID, c)
}
