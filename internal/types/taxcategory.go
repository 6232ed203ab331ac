package types

import (
	ierr "github.com/voxbill/voxbill/internal/errors"
)

// TaxCategoryFilter represents filters for tax category queries
type TaxCategoryFilter struct {
	*QueryFilter
	CategoryIDs []string `json:"category_ids,omitempty" form:"category_ids" validate:"omitempty"`
	ServiceType string   `json:"service_type,omitempty" form:"service_type" validate:"omitempty"`
	Taxable     *bool    `json:"taxable,omitempty" form:"taxable" validate:"omitempty"`
}

// NewDefaultTaxCategoryFilter creates a new TaxCategoryFilter with default values
func NewDefaultTaxCategoryFilter() *TaxCategoryFilter {
	return &TaxCategoryFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitTaxCategoryFilter creates a new TaxCategoryFilter with no pagination limits
func NewNoLimitTaxCategoryFilter() *TaxCategoryFilter {
	return &TaxCategoryFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

// Validate validates the TaxCategoryFilter
func (f TaxCategoryFilter) Validate() error {
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}

	for _, id := range f.CategoryIDs {
		if id == "" {
			return ierr.NewError("category_ids cannot contain empty strings").
				WithHint("Category IDs must be non-empty strings").
				Mark(ierr.ErrValidation)
		}
	}

	return nil
}
