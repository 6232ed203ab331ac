package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/voxbill/voxbill/internal/domain/taxrate"
	ierr "github.com/voxbill/voxbill/internal/errors"
)

// InMemoryTaxRateHistoryStore implements taxrate.HistoryRepository. The log
// is append-only; rows are never updated or deleted.
type InMemoryTaxRateHistoryStore struct {
	mu   sync.RWMutex
	rows []*taxrate.TaxRateHistory
}

func NewInMemoryTaxRateHistoryStore() *InMemoryTaxRateHistoryStore {
	return &InMemoryTaxRateHistoryStore{}
}

func (s *InMemoryTaxRateHistoryStore) Create(ctx context.Context, h *taxrate.TaxRateHistory) error {
	if h == nil {
		return ierr.NewError("history entry cannot be nil").
			WithHint("History data is required").
			Mark(ierr.ErrValidation)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, h)
	return nil
}

func (s *InMemoryTaxRateHistoryStore) ListByTaxRate(ctx context.Context, taxRateID string) ([]*taxrate.TaxRateHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*taxrate.TaxRateHistory
	for _, h := range s.rows {
		if h.TaxRateID != taxRateID {
			continue
		}
		if !CheckTenantFilter(ctx, h.TenantID) {
			continue
		}
		result = append(result, h)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].ChangedAt.After(result[j].ChangedAt)
	})

	return result, nil
}

// Clear removes all history rows
func (s *InMemoryTaxRateHistoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = nil
}
