package dto

import (
	"github.com/voxbill/voxbill/internal/domain/taxcategory"
	"github.com/voxbill/voxbill/internal/types"
	"github.com/voxbill/voxbill/internal/validator"
)

// CreateTaxCategoryRequest represents the request payload for creating a tax
// category
type CreateTaxCategoryRequest struct {
	Name        string `json:"name" binding:"required" example:"Telecommunications"`
	Description string `json:"description,omitempty"`
	// ServiceTypes lists the service types the category covers; empty means
	// the category matches everything.
	ServiceTypes []string `json:"service_types,omitempty"`
	Taxable      *bool    `json:"taxable,omitempty"`
	Priority     int      `json:"priority,omitempty"`
}

func (r *CreateTaxCategoryRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// ToTaxCategory converts the request to a domain TaxCategory
func (r *CreateTaxCategoryRequest) ToTaxCategory(baseModel types.BaseModel) *taxcategory.TaxCategory {
	taxable := true
	if r.Taxable != nil {
		taxable = *r.Taxable
	}

	return &taxcategory.TaxCategory{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_CATEGORY),
		Name:         r.Name,
		Description:  r.Description,
		ServiceTypes: r.ServiceTypes,
		Taxable:      taxable,
		Priority:     r.Priority,
		BaseModel:    baseModel,
	}
}

// UpdateTaxCategoryRequest represents the request payload for updating a tax
// category. Nil fields are left unchanged.
type UpdateTaxCategoryRequest struct {
	Name         *string  `json:"name,omitempty"`
	Description  *string  `json:"description,omitempty"`
	ServiceTypes []string `json:"service_types,omitempty"`
	Taxable      *bool    `json:"taxable,omitempty"`
	Priority     *int     `json:"priority,omitempty"`
}

// TaxCategoryResponse represents the tax category response structure
type TaxCategoryResponse struct {
	*taxcategory.TaxCategory
}

// ToTaxCategoryResponse converts a domain category to the response form
func ToTaxCategoryResponse(c *taxcategory.TaxCategory) *TaxCategoryResponse {
	return &TaxCategoryResponse{TaxCategory: c}
}

// ListTaxCategoriesResponse represents a paginated list of tax categories
type ListTaxCategoriesResponse = types.ListResponse[*TaxCategoryResponse]
