package types

import (
	"slices"
	"time"

	ierr "github.com/voxbill/voxbill/internal/errors"
)

// TaxRateType determines how a tax rate is applied to a base amount
type TaxRateType string

const (
	TaxRateTypePercentage TaxRateType = "percentage"
	TaxRateTypeFixed      TaxRateType = "fixed"
	TaxRateTypePerLine    TaxRateType = "per_line"
	TaxRateTypePerMinute  TaxRateType = "per_minute"
	TaxRateTypePerUnit    TaxRateType = "per_unit"
	TaxRateTypeTiered     TaxRateType = "tiered"
)

func (t TaxRateType) String() string {
	return string(t)
}

func (t TaxRateType) Validate() error {
	allowedValues := []string{
		string(TaxRateTypePercentage),
		string(TaxRateTypeFixed),
		string(TaxRateTypePerLine),
		string(TaxRateTypePerMinute),
		string(TaxRateTypePerUnit),
		string(TaxRateTypeTiered),
	}
	if !slices.Contains(allowedValues, string(t)) {
		return ierr.NewError("invalid tax rate type").
			WithHint("Tax rate type must be one of percentage, fixed, per_line, per_minute, per_unit, tiered").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TaxCalculationMethod controls whether a rate applies to the bare base
// amount or to the base plus previously applied taxes.
type TaxCalculationMethod string

const (
	TaxCalculationMethodStandard TaxCalculationMethod = "standard"
	TaxCalculationMethodCompound TaxCalculationMethod = "compound"
)

func (m TaxCalculationMethod) Validate() error {
	if m == "" {
		return nil
	}
	allowedValues := []string{
		string(TaxCalculationMethodStandard),
		string(TaxCalculationMethodCompound),
	}
	if !slices.Contains(allowedValues, string(m)) {
		return ierr.NewError("invalid tax calculation method").
			WithHint("Tax calculation method must be either standard or compound").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// TaxRateStatus defines the effective-window status of a tax rate
type TaxRateStatus string

const (
	TaxRateStatusActive   TaxRateStatus = "ACTIVE"
	TaxRateStatusInactive TaxRateStatus = "INACTIVE"
	TaxRateStatusExpired  TaxRateStatus = "EXPIRED"
)

func (s TaxRateStatus) String() string {
	return string(s)
}

func (s TaxRateStatus) Validate() error {
	allowedValues := []string{
		TaxRateStatusActive.String(),
		TaxRateStatusInactive.String(),
		TaxRateStatusExpired.String(),
	}
	if !slices.Contains(allowedValues, string(s)) {
		return ierr.NewError("invalid tax rate status").
			WithHint("Tax rate status must be ACTIVE, INACTIVE or EXPIRED").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// Well-known tax types the built-in catalog and tests reference. Tenants may
// define additional tax types per jurisdiction.
const (
	TaxTypeFederalExcise      = "federal_excise_tax"
	TaxTypeUSF                = "universal_service_fund"
	TaxTypeStateSales         = "state_sales_tax"
	TaxTypeStateTelecom       = "state_telecom_tax"
	TaxTypeCountyTax          = "county_tax"
	TaxTypeCityTax            = "city_tax"
	TaxTypeE911Fee            = "e911_fee"
	TaxTypeSpecialDistrictTax = "special_district_tax"
)

// TaxRateChangeType records why a history row was written
type TaxRateChangeType string

const (
	TaxRateChangeTypeCreated   TaxRateChangeType = "created"
	TaxRateChangeTypeUpdated   TaxRateChangeType = "updated"
	TaxRateChangeTypeExpired   TaxRateChangeType = "expired"
	TaxRateChangeTypeScheduled TaxRateChangeType = "scheduled"
	TaxRateChangeTypeImported  TaxRateChangeType = "imported"
	TaxRateChangeTypeRestored  TaxRateChangeType = "restored"
)

// TaxRateFilter represents filters for tax rate queries
type TaxRateFilter struct {
	*QueryFilter
	*TimeRangeFilter
	TaxRateIDs      []string `json:"tax_rate_ids,omitempty" form:"tax_rate_ids" validate:"omitempty"`
	TaxRateCodes    []string `json:"tax_rate_codes,omitempty" form:"tax_rate_codes" validate:"omitempty"`
	JurisdictionIDs []string `json:"jurisdiction_ids,omitempty" form:"jurisdiction_ids" validate:"omitempty"`
	CategoryIDs     []string `json:"category_ids,omitempty" form:"category_ids" validate:"omitempty"`
	TaxTypes        []string `json:"tax_types,omitempty" form:"tax_types" validate:"omitempty"`
	ServiceType     string   `json:"service_type,omitempty" form:"service_type" validate:"omitempty"`
	// EffectiveOn limits results to rates whose effective window contains
	// the given instant.
	EffectiveOn *time.Time `json:"effective_on,omitempty" form:"effective_on" validate:"omitempty"`
}

// NewDefaultTaxRateFilter creates a new TaxRateFilter with default values
func NewDefaultTaxRateFilter() *TaxRateFilter {
	return &TaxRateFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitTaxRateFilter creates a new TaxRateFilter with no pagination limits
func NewNoLimitTaxRateFilter() *TaxRateFilter {
	return &TaxRateFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

// Validate validates the TaxRateFilter
func (f TaxRateFilter) Validate() error {
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}

	if f.TimeRangeFilter != nil {
		if err := f.TimeRangeFilter.Validate(); err != nil {
			return err
		}
	}

	for _, id := range f.TaxRateIDs {
		if id == "" {
			return ierr.NewError("tax_rate_ids cannot contain empty strings").
				WithHint("Tax rate IDs must be non-empty strings").
				Mark(ierr.ErrValidation)
		}
	}

	return nil
}

// GetLimit returns the limit for the TaxRateFilter
func (f TaxRateFilter) GetLimit() int {
	return f.QueryFilter.GetLimit()
}
