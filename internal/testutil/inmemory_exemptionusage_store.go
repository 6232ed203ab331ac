package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/voxbill/voxbill/internal/domain/exemption"
	ierr "github.com/voxbill/voxbill/internal/errors"
)

// InMemoryExemptionUsageStore implements exemption.UsageRepository with the
// same idempotency contract as the real store: recording the same
// (exemption, document, line) twice is a no-op.
type InMemoryExemptionUsageStore struct {
	mu   sync.RWMutex
	rows map[string]*exemption.TaxExemptionUsage
}

func NewInMemoryExemptionUsageStore() *InMemoryExemptionUsageStore {
	return &InMemoryExemptionUsageStore{
		rows: make(map[string]*exemption.TaxExemptionUsage),
	}
}

func (s *InMemoryExemptionUsageStore) Record(ctx context.Context, u *exemption.TaxExemptionUsage) error {
	if u == nil {
		return ierr.NewError("usage entry cannot be nil").
			WithHint("Usage data is required").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := u.TenantID + ":" + u.IdempotencyKey()
	if _, exists := s.rows[key]; exists {
		return nil
	}

	s.rows[key] = u
	return nil
}

func (s *InMemoryExemptionUsageStore) ListByExemption(ctx context.Context, exemptionID string) ([]*exemption.TaxExemptionUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*exemption.TaxExemptionUsage
	for _, u := range s.rows {
		if u.ExemptionID != exemptionID {
			continue
		}
		if !CheckTenantFilter(ctx, u.TenantID) {
			continue
		}
		result = append(result, u)
	}

	sortUsageRows(result)
	return result, nil
}

func (s *InMemoryExemptionUsageStore) ListByReference(ctx context.Context, referenceType, referenceID string) ([]*exemption.TaxExemptionUsage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*exemption.TaxExemptionUsage
	for _, u := range s.rows {
		if u.ReferenceType != referenceType || u.ReferenceID != referenceID {
			continue
		}
		if !CheckTenantFilter(ctx, u.TenantID) {
			continue
		}
		result = append(result, u)
	}

	sortUsageRows(result)
	return result, nil
}

func sortUsageRows(rows []*exemption.TaxExemptionUsage) {
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].AppliedAt.After(rows[j].AppliedAt)
	})
}

// Clear removes all usage rows
func (s *InMemoryExemptionUsageStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = make(map[string]*exemption.TaxExemptionUsage)
}
