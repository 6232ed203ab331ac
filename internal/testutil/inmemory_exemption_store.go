package testutil

import (
	"context"

	"github.com/samber/lo"

	"github.com/voxbill/voxbill/internal/domain/exemption"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/types"
)

// InMemoryExemptionStore implements exemption.Repository
type InMemoryExemptionStore struct {
	*InMemoryStore[*exemption.TaxExemption]
}

func NewInMemoryExemptionStore() *InMemoryExemptionStore {
	return &InMemoryExemptionStore{
		InMemoryStore: NewInMemoryStore[*exemption.TaxExemption](),
	}
}

func exemptionFilterFn(ctx context.Context, e *exemption.TaxExemption, filter interface{}) bool {
	if e == nil {
		return false
	}

	if !CheckTenantFilter(ctx, e.TenantID) {
		return false
	}

	f, ok := filter.(*types.ExemptionFilter)
	if !ok || f == nil {
		return true
	}

	if len(f.ExemptionIDs) > 0 && !lo.Contains(f.ExemptionIDs, e.ID) {
		return false
	}
	if f.ClientID != "" && e.ClientID != f.ClientID {
		return false
	}
	if len(f.JurisdictionIDs) > 0 {
		if e.JurisdictionID == nil || !lo.Contains(f.JurisdictionIDs, *e.JurisdictionID) {
			return false
		}
	}
	if f.ExemptionStatus != "" && e.ExemptionStatus != f.ExemptionStatus {
		return false
	}
	if f.QueryFilter != nil && f.Status != nil && e.Status != *f.Status {
		return false
	}

	return true
}

func exemptionSortFn(i, j *exemption.TaxExemption) bool {
	if i == nil || j == nil {
		return false
	}
	if i.Priority != j.Priority {
		return i.Priority < j.Priority
	}
	return i.CreatedAt.After(j.CreatedAt)
}

func (s *InMemoryExemptionStore) Create(ctx context.Context, e *exemption.TaxExemption) error {
	if e == nil {
		return ierr.NewError("exemption cannot be nil").
			WithHint("Exemption data is required").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Create(ctx, e.ID, e)
}

func (s *InMemoryExemptionStore) Get(ctx context.Context, id string) (*exemption.TaxExemption, error) {
	e, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Exemption with ID %s was not found", id).
			Mark(ierr.ErrNotFound)
	}
	return e, nil
}

func (s *InMemoryExemptionStore) List(ctx context.Context, filter *types.ExemptionFilter) ([]*exemption.TaxExemption, error) {
	return s.InMemoryStore.List(ctx, filter, exemptionFilterFn, exemptionSortFn)
}

func (s *InMemoryExemptionStore) Count(ctx context.Context, filter *types.ExemptionFilter) (int, error) {
	return s.InMemoryStore.Count(ctx, filter, exemptionFilterFn)
}

func (s *InMemoryExemptionStore) Update(ctx context.Context, e *exemption.TaxExemption) error {
	if e == nil {
		return ierr.NewError("exemption cannot be nil").
			WithHint("Exemption data is required").
			Mark(ierr.ErrValidation)
	}
	return s.InMemoryStore.Update(ctx, e.ID, e)
}

func (s *InMemoryExemptionStore) Delete(ctx context.Context, e *exemption.TaxExemption) error {
	if e == nil {
		return ierr.NewError("exemption cannot be nil").
			WithHint("Exemption data is required").
			Mark(ierr.ErrValidation)
	}
	e.Status = types.StatusArchived
	return s.InMemoryStore.Update(ctx, e.ID, e)
}
