package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/voxbill/voxbill/internal/domain/taxrate"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/types"
	"github.com/voxbill/voxbill/internal/validator"
)

// CreateTaxRateRequest represents the request payload for creating a tax rate
type CreateTaxRateRequest struct {
	Name           string `json:"name" binding:"required" example:"TX State Sales Tax"`
	Code           string `json:"code" binding:"required" example:"TX-SALES"`
	Description    string `json:"description,omitempty"`
	JurisdictionID string `json:"jurisdiction_id" binding:"required"`
	CategoryID     string `json:"category_id" binding:"required"`
	TaxType        string `json:"tax_type" binding:"required" example:"state_sales_tax"`
	RateType       types.TaxRateType `json:"rate_type" binding:"required" example:"percentage"`

	PercentageRate   *decimal.Decimal   `json:"percentage_rate,omitempty" swaggertype:"string" example:"6.25"`
	FixedAmount      *decimal.Decimal   `json:"fixed_amount,omitempty" swaggertype:"string"`
	MinimumThreshold *decimal.Decimal   `json:"minimum_threshold,omitempty" swaggertype:"string"`
	MaximumAmount    *decimal.Decimal   `json:"maximum_amount,omitempty" swaggertype:"string"`
	Tiers            []taxrate.RateTier `json:"tiers,omitempty"`

	CalculationMethod types.TaxCalculationMethod `json:"calculation_method,omitempty" example:"standard"`
	AuthorityName     string                     `json:"authority_name,omitempty"`
	ServiceTypes      []string                   `json:"service_types,omitempty"`

	EffectiveFrom *time.Time `json:"effective_from,omitempty"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
	Priority      int        `json:"priority,omitempty"`

	Metadata map[string]string `json:"metadata,omitempty"`
	Reason   string            `json:"reason,omitempty"`
}

func (r *CreateTaxRateRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if err := r.RateType.Validate(); err != nil {
		return err
	}
	if err := r.CalculationMethod.Validate(); err != nil {
		return err
	}

	switch r.RateType {
	case types.TaxRateTypePercentage:
		if r.PercentageRate == nil {
			return ierr.NewError("percentage_rate is required").
				WithHint("Percentage rates require a percentage_rate").
				Mark(ierr.ErrValidation)
		}
		if r.PercentageRate.IsNegative() {
			return ierr.NewError("percentage_rate cannot be negative").
				WithHint("Percentage rate must be zero or positive").
				Mark(ierr.ErrValidation)
		}
	case types.TaxRateTypeFixed, types.TaxRateTypePerLine, types.TaxRateTypePerMinute, types.TaxRateTypePerUnit:
		if r.FixedAmount == nil {
			return ierr.NewError("fixed_amount is required").
				WithHintf("Tax rates of type %s require a fixed_amount", r.RateType).
				Mark(ierr.ErrValidation)
		}
		if r.FixedAmount.IsNegative() {
			return ierr.NewError("fixed_amount cannot be negative").
				WithHint("Fixed amount must be zero or positive").
				Mark(ierr.ErrValidation)
		}
	case types.TaxRateTypeTiered:
		// tier shape problems are rejected here, before the rate is ever
		// persisted
		if err := taxrate.ValidateTiers(r.Tiers); err != nil {
			return err
		}
	}

	if r.MinimumThreshold != nil && r.MinimumThreshold.IsNegative() {
		return ierr.NewError("minimum_threshold cannot be negative").
			WithHint("Minimum threshold must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	if r.MaximumAmount != nil && r.MaximumAmount.IsNegative() {
		return ierr.NewError("maximum_amount cannot be negative").
			WithHint("Maximum amount must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	if r.MinimumThreshold != nil && r.MaximumAmount != nil && r.MinimumThreshold.GreaterThan(*r.MaximumAmount) {
		return ierr.NewError("minimum_threshold cannot exceed maximum_amount").
			WithHint("Minimum threshold must not exceed the maximum amount").
			Mark(ierr.ErrValidation)
	}

	if r.EffectiveFrom != nil && r.EffectiveTo != nil && r.EffectiveFrom.After(*r.EffectiveTo) {
		return ierr.NewError("effective_from must be before effective_to").
			WithHint("The effective window start must precede its end").
			Mark(ierr.ErrValidation)
	}

	return nil
}

// ToTaxRate converts the request to a domain TaxRate
func (r *CreateTaxRateRequest) ToTaxRate(baseModel types.BaseModel) *taxrate.TaxRate {
	method := r.CalculationMethod
	if method == "" {
		method = types.TaxCalculationMethodStandard
	}

	return &taxrate.TaxRate{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_RATE),
		Name:              r.Name,
		Code:              r.Code,
		Description:       r.Description,
		JurisdictionID:    r.JurisdictionID,
		CategoryID:        r.CategoryID,
		TaxType:           r.TaxType,
		RateType:          r.RateType,
		PercentageRate:    r.PercentageRate,
		FixedAmount:       r.FixedAmount,
		MinimumThreshold:  r.MinimumThreshold,
		MaximumAmount:     r.MaximumAmount,
		Tiers:             r.Tiers,
		CalculationMethod: method,
		AuthorityName:     r.AuthorityName,
		ServiceTypes:      r.ServiceTypes,
		EffectiveFrom:     r.EffectiveFrom,
		EffectiveTo:       r.EffectiveTo,
		Priority:          r.Priority,
		TaxRateStatus:     types.TaxRateStatusActive,
		Metadata:          r.Metadata,
		BaseModel:         baseModel,
	}
}

// UpdateTaxRateRequest represents the request payload for updating a tax rate.
// Nil fields are left unchanged.
type UpdateTaxRateRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`

	PercentageRate   *decimal.Decimal   `json:"percentage_rate,omitempty" swaggertype:"string"`
	FixedAmount      *decimal.Decimal   `json:"fixed_amount,omitempty" swaggertype:"string"`
	MinimumThreshold *decimal.Decimal   `json:"minimum_threshold,omitempty" swaggertype:"string"`
	MaximumAmount    *decimal.Decimal   `json:"maximum_amount,omitempty" swaggertype:"string"`
	Tiers            []taxrate.RateTier `json:"tiers,omitempty"`

	AuthorityName *string  `json:"authority_name,omitempty"`
	ServiceTypes  []string `json:"service_types,omitempty"`

	EffectiveFrom *time.Time `json:"effective_from,omitempty"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
	Priority      *int       `json:"priority,omitempty"`

	TaxRateStatus *types.TaxRateStatus `json:"tax_rate_status,omitempty"`
	Metadata      map[string]string    `json:"metadata,omitempty"`
	Reason        string               `json:"reason,omitempty"`
}

func (r *UpdateTaxRateRequest) Validate() error {
	if r.PercentageRate != nil && r.PercentageRate.IsNegative() {
		return ierr.NewError("percentage_rate cannot be negative").
			WithHint("Percentage rate must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	if r.FixedAmount != nil && r.FixedAmount.IsNegative() {
		return ierr.NewError("fixed_amount cannot be negative").
			WithHint("Fixed amount must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	if len(r.Tiers) > 0 {
		if err := taxrate.ValidateTiers(r.Tiers); err != nil {
			return err
		}
	}
	if r.TaxRateStatus != nil {
		if err := r.TaxRateStatus.Validate(); err != nil {
			return err
		}
	}
	if r.EffectiveFrom != nil && r.EffectiveTo != nil && r.EffectiveFrom.After(*r.EffectiveTo) {
		return ierr.NewError("effective_from must be before effective_to").
			WithHint("The effective window start must precede its end").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ScheduleTaxRateChangeRequest schedules a replacement rate to take effect
// at a future instant. The existing rate is end-dated at the same instant.
type ScheduleTaxRateChangeRequest struct {
	EffectiveFrom time.Time             `json:"effective_from" binding:"required"`
	NewRate       *CreateTaxRateRequest `json:"new_rate" binding:"required"`
	Reason        string                `json:"reason,omitempty"`
}

func (r *ScheduleTaxRateChangeRequest) Validate() error {
	if r.NewRate == nil {
		return ierr.NewError("new_rate is required").
			WithHint("A scheduled change requires the replacement rate definition").
			Mark(ierr.ErrValidation)
	}
	if r.EffectiveFrom.Before(time.Now().UTC()) {
		return ierr.NewError("effective_from must be in the future").
			WithHint("Scheduled changes must take effect in the future").
			Mark(ierr.ErrValidation)
	}
	return r.NewRate.Validate()
}

// ExpireTaxRateRequest expires a rate, optionally at a future instant
type ExpireTaxRateRequest struct {
	EffectiveTo *time.Time `json:"effective_to,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

// BulkImportTaxRatesRequest imports a batch of rates in a single
// transaction.
type BulkImportTaxRatesRequest struct {
	Rates  []CreateTaxRateRequest `json:"rates" binding:"required"`
	Reason string                 `json:"reason,omitempty"`
}

func (r *BulkImportTaxRatesRequest) Validate() error {
	if len(r.Rates) == 0 {
		return ierr.NewError("rates cannot be empty").
			WithHint("Bulk import requires at least one rate").
			Mark(ierr.ErrValidation)
	}
	for i := range r.Rates {
		if err := r.Rates[i].Validate(); err != nil {
			return ierr.WithError(err).
				WithHintf("Rate at index %d is invalid", i).
				WithReportableDetails(map[string]any{
					"index": i,
					"code":  r.Rates[i].Code,
				}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}

// BulkImportTaxRatesResponse reports the outcome of a bulk import
type BulkImportTaxRatesResponse struct {
	Imported int                `json:"imported"`
	Rates    []*TaxRateResponse `json:"rates"`
}

// RestoreTaxRatesRequest restores a previously exported rate catalog.
// Restored rates get fresh IDs; the export payload is treated as
// definitions, not rows.
type RestoreTaxRatesRequest struct {
	Export *TaxRateExport `json:"export" binding:"required"`
	Reason string         `json:"reason,omitempty"`
}

// TaxRateExport is the portable snapshot format produced by the export
// operation.
type TaxRateExport struct {
	ExportedAt time.Time          `json:"exported_at"`
	Rates      []*taxrate.TaxRate `json:"rates"`
}

// TaxRateResponse represents the tax rate response structure
type TaxRateResponse struct {
	*taxrate.TaxRate
}

// ToTaxRateResponse converts a domain tax rate to the response form
func ToTaxRateResponse(r *taxrate.TaxRate) *TaxRateResponse {
	return &TaxRateResponse{TaxRate: r}
}

// TaxRateHistoryResponse represents one change-log row
type TaxRateHistoryResponse struct {
	*taxrate.TaxRateHistory
}

// ListTaxRatesResponse represents a paginated list of tax rates
type ListTaxRatesResponse = types.ListResponse[*TaxRateResponse]
