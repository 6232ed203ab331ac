package taxcategory

import (
	"context"

	"github.com/voxbill/voxbill/internal/types"
)

// Repository defines the interface for tax category persistence operations
type Repository interface {
	Create(ctx context.Context, c *TaxCategory) error
	Get(ctx context.Context, id string) (*TaxCategory, error)
	List(ctx context.Context, filter *types.TaxCategoryFilter) ([]*TaxCategory, error)
	Count(ctx context.Context, filter *types.TaxCategoryFilter) (int, error)
	Update(ctx context.Context, c *TaxCategory) error
	Delete(ctx context.Context, c *TaxCategory) error
}
