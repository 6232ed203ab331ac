package taxrate

import (
	"context"

	"github.com/voxbill/voxbill/internal/types"
)

// Repository defines the interface for tax rate persistence operations
type Repository interface {
	Create(ctx context.Context, rate *TaxRate) error
	Get(ctx context.Context, id string) (*TaxRate, error)
	GetByCode(ctx context.Context, code string) (*TaxRate, error)
	List(ctx context.Context, filter *types.TaxRateFilter) ([]*TaxRate, error)
	ListAll(ctx context.Context, filter *types.TaxRateFilter) ([]*TaxRate, error)
	Count(ctx context.Context, filter *types.TaxRateFilter) (int, error)
	Update(ctx context.Context, rate *TaxRate) error
	Delete(ctx context.Context, rate *TaxRate) error
}

// HistoryRepository persists the append-only tax rate change log
type HistoryRepository interface {
	Create(ctx context.Context, h *TaxRateHistory) error
	ListByTaxRate(ctx context.Context, taxRateID string) ([]*TaxRateHistory, error)
}
