package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/voxbill/voxbill/internal/domain/taxrate"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/types"
)

// InMemoryTaxRateStore implements taxrate.Repository
type InMemoryTaxRateStore struct {
	*InMemoryStore[*taxrate.TaxRate]
}

func NewInMemoryTaxRateStore() *InMemoryTaxRateStore {
	return &InMemoryTaxRateStore{
		InMemoryStore: NewInMemoryStore[*taxrate.TaxRate](),
	}
}

func taxRateFilterFn(ctx context.Context, rate *taxrate.TaxRate, filter interface{}) bool {
	if rate == nil {
		return false
	}

	if !CheckTenantFilter(ctx, rate.TenantID) {
		return false
	}

	f, ok := filter.(*types.TaxRateFilter)
	if !ok || f == nil {
		return true
	}

	if len(f.TaxRateIDs) > 0 && !lo.Contains(f.TaxRateIDs, rate.ID) {
		return false
	}
	if len(f.TaxRateCodes) > 0 && !lo.Contains(f.TaxRateCodes, rate.Code) {
		return false
	}
	if len(f.JurisdictionIDs) > 0 && !lo.Contains(f.JurisdictionIDs, rate.JurisdictionID) {
		return false
	}
	if len(f.CategoryIDs) > 0 && !lo.Contains(f.CategoryIDs, rate.CategoryID) {
		return false
	}
	if len(f.TaxTypes) > 0 && !lo.Contains(f.TaxTypes, rate.TaxType) {
		return false
	}
	if f.ServiceType != "" && !rate.AppliesToServiceType(f.ServiceType) {
		return false
	}
	if f.EffectiveOn != nil && !rate.IsEffectiveOn(*f.EffectiveOn) {
		return false
	}
	if f.TimeRangeFilter != nil {
		if f.StartTime != nil && rate.CreatedAt.Before(*f.StartTime) {
			return false
		}
		if f.EndTime != nil && rate.CreatedAt.After(*f.EndTime) {
			return false
		}
	}
	if f.QueryFilter != nil && f.Status != nil && rate.Status != *f.Status {
		return false
	}

	return true
}

func taxRateSortFn(i, j *taxrate.TaxRate) bool {
	if i == nil || j == nil {
		return false
	}
	if i.Priority != j.Priority {
		return i.Priority < j.Priority
	}
	return i.CreatedAt.After(j.CreatedAt)
}

func (s *InMemoryTaxRateStore) Create(ctx context.Context, rate *taxrate.TaxRate) error {
	if rate == nil {
		return ierr.NewError("tax rate cannot be nil").
			WithHint("Tax rate data is required").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, rate.ID, rate)
}

func (s *InMemoryTaxRateStore) Get(ctx context.Context, id string) (*taxrate.TaxRate, error) {
	rate, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Tax rate with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return rate, nil
}

func (s *InMemoryTaxRateStore) GetByCode(ctx context.Context, code string) (*taxrate.TaxRate, error) {
	filter := types.NewNoLimitTaxRateFilter()
	filter.TaxRateCodes = []string{code}
	rates, err := s.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(rates) == 0 {
		return nil, ierr.NewError("tax rate not found").
			WithHintf("Tax rate with code %s was not found", code).
			Mark(ierr.ErrNotFound)
	}
	return rates[0], nil
}

func (s *InMemoryTaxRateStore) List(ctx context.Context, filter *types.TaxRateFilter) ([]*taxrate.TaxRate, error) {
	return s.InMemoryStore.List(ctx, filter, taxRateFilterFn, taxRateSortFn)
}

func (s *InMemoryTaxRateStore) ListAll(ctx context.Context, filter *types.TaxRateFilter) ([]*taxrate.TaxRate, error) {
	if filter == nil {
		filter = types.NewNoLimitTaxRateFilter()
	}
	return s.List(ctx, filter)
}

func (s *InMemoryTaxRateStore) Count(ctx context.Context, filter *types.TaxRateFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, taxRateFilterFn)
}

func (s *InMemoryTaxRateStore) Update(ctx context.Context, rate *taxrate.TaxRate) error {
	if rate == nil {
		return ierr.NewError("tax rate cannot be nil").
			WithHint("Tax rate data is required").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, rate.ID, rate)
}

func (s *InMemoryTaxRateStore) Delete(ctx context.Context, rate *taxrate.TaxRate) error {
	if rate == nil {
		return ierr.NewError("tax rate cannot be nil").
			WithHint("Tax rate data is required").
			Mark(ierr.ErrValidation)
	}
	rate.Status = types.StatusArchived
	return s.InMemoryStore.Update(ctx, rate.ID, rate)
}
