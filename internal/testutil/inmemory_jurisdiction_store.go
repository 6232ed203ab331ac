package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/voxbill/voxbill/internal/domain/jurisdiction"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/types"
)

// InMemoryJurisdictionStore implements jurisdiction.Repository
type InMemoryJurisdictionStore struct {
	*InMemoryStore[*jurisdiction.TaxJurisdiction]
}

func NewInMemoryJurisdictionStore() *InMemoryJurisdictionStore {
	return &InMemoryJurisdictionStore{
		InMemoryStore: NewInMemoryStore[*jurisdiction.TaxJurisdiction](),
	}
}

func jurisdictionFilterFn(ctx context.Context, j *jurisdiction.TaxJurisdiction, filter interface{}) bool {
	if j == nil {
		return false
	}

	if !CheckTenantFilter(ctx, j.TenantID) {
		return false
	}

	f, ok := filter.(*types.JurisdictionFilter)
	if !ok || f == nil {
		return true
	}

	if len(f.JurisdictionIDs) > 0 && !lo.Contains(f.JurisdictionIDs, j.ID) {
		return false
	}
	if f.JurisdictionType != "" && j.JurisdictionType != f.JurisdictionType {
		return false
	}
	if f.StateCode != "" && j.StateCode != f.StateCode {
		return false
	}
	if f.CountyName != "" && j.CountyName != f.CountyName {
		return false
	}
	if f.CityName != "" && j.CityName != f.CityName {
		return false
	}
	if f.Zip != "" && !lo.Contains(j.ZipCodes, f.Zip) {
		return false
	}
	if f.QueryFilter != nil && f.Status != nil && j.Status != *f.Status {
		return false
	}

	return true
}

func jurisdictionSortFn(i, j *jurisdiction.TaxJurisdiction) bool {
	if i == nil || j == nil {
		return false
	}
	return i.CreatedAt.After(j.CreatedAt)
}

func (s *InMemoryJurisdictionStore) Create(ctx context.Context, j *jurisdiction.TaxJurisdiction) error {
	if j == nil {
		return ierr.NewError("jurisdiction cannot be nil").
			WithHint("Jurisdiction data is required").
			Mark(ierr.ErrValidation)
	}

	return s.InMemoryStore.Create(ctx, j.ID, j)
}

func (s *InMemoryJurisdictionStore) Get(ctx context.Context, id string) (*jurisdiction.TaxJurisdiction, error) {
	j, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Jurisdiction with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return j, nil
}

func (s *InMemoryJurisdictionStore) List(ctx context.Context, filter *types.JurisdictionFilter) ([]*jurisdiction.TaxJurisdiction, error) {
	return s.InMemoryStore.List(ctx, filter, jurisdictionFilterFn, jurisdictionSortFn)
}

func (s *InMemoryJurisdictionStore) Count(ctx context.Context, filter *types.JurisdictionFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, jurisdictionFilterFn)
}

func (s *InMemoryJurisdictionStore) Update(ctx context.Context, j *jurisdiction.TaxJurisdiction) error {
	if j == nil {
		return ierr.NewError("jurisdiction cannot be nil").
			WithHint("Jurisdiction data is required").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, j.ID, j)
}

func (s *InMemoryJurisdictionStore) Delete(ctx context.Context, j *jurisdiction.TaxJurisdiction) error {
	if j == nil {
		return ierr.NewError("jurisdiction cannot be nil").
			WithHint("Jurisdiction data is required").
			Mark(ierr.ErrValidation)
	}
	j.Status = types.StatusArchived
	return s.InMemoryStore.Update(ctx, j.ID, j)
}
