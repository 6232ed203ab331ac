package jurisdiction

import (
	"context"

	"github.com/voxbill/voxbill/internal/types"
)

// Repository defines the interface for jurisdiction persistence operations
type Repository interface {
	Create(ctx context.Context, j *TaxJurisdiction) error
	Get(ctx context.Context, id string) (*TaxJurisdiction, error)
	List(ctx context.Context, filter *types.JurisdictionFilter) ([]*TaxJurisdiction, error)
	Count(ctx context.Context, filter *types.JurisdictionFilter) (int, error)
	Update(ctx context.Context, j *TaxJurisdiction) error
	Delete(ctx context.Context, j *TaxJurisdiction) error
}
