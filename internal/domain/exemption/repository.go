package exemption

import (
	"context"

	"github.com/voxbill/voxbill/internal/types"
)

// Repository defines the interface for exemption persistence operations
type Repository interface {
	Create(ctx context.Context, e *TaxExemption) error
	Get(ctx context.Context, id string) (*TaxExemption, error)
	List(ctx context.Context, filter *types.ExemptionFilter) ([]*TaxExemption, error)
	Count(ctx context.Context, filter *types.ExemptionFilter) (int, error)
	Update(ctx context.Context, e *TaxExemption) error
	Delete(ctx context.Context, e *TaxExemption) error
}

// UsageRepository persists the append-only exemption usage audit log.
// Record must be idempotent on the usage's IdempotencyKey: recording the
// same (exemption, document, line) twice is a no-op, not an error.
type UsageRepository interface {
	Record(ctx context.Context, u *TaxExemptionUsage) error
	ListByExemption(ctx context.Context, exemptionID string) ([]*TaxExemptionUsage, error)
	ListByReference(ctx context.Context, referenceType, referenceID string) ([]*TaxExemptionUsage, error)
}
