package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/voxbill/voxbill/internal/domain/calculation"
	"github.com/voxbill/voxbill/internal/domain/jurisdiction"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/validator"
)

// ServiceAddress is the service location a calculation resolves
// jurisdictions against. All fields are optional; an empty address yields
// federal taxes only.
type ServiceAddress struct {
	Line1   string `json:"line1,omitempty"`
	City    string `json:"city,omitempty" example:"Austin"`
	State   string `json:"state,omitempty" example:"TX"`
	Zip     string `json:"zip,omitempty" example:"78701"`
	County  string `json:"county,omitempty" example:"Travis"`
	Country string `json:"country,omitempty" example:"US"`
}

// CalculateTaxRequest represents one tax calculation request for a single
// charge.
type CalculateTaxRequest struct {
	Amount      decimal.Decimal `json:"amount" binding:"required" swaggertype:"string" example:"100.00"`
	ServiceType string          `json:"service_type" binding:"required" example:"voip_fixed"`
	Address     *ServiceAddress `json:"service_address,omitempty"`
	ClientID    string          `json:"client_id,omitempty"`
	// CalculationDate selects which effective-dated rates apply; defaults to
	// now.
	CalculationDate *time.Time `json:"calculation_date,omitempty"`
	LineCount       int        `json:"line_count,omitempty" example:"1"`
	Minutes         decimal.Decimal `json:"minutes,omitempty" swaggertype:"string" example:"0"`
	Units           decimal.Decimal `json:"units,omitempty" swaggertype:"string" example:"0"`

	// ReferenceType/ReferenceID tie the calculation to a billing document so
	// exemption usage is recorded. Absent means a preview: nothing is
	// written.
	ReferenceType string `json:"reference_type,omitempty" example:"invoice"`
	ReferenceID   string `json:"reference_id,omitempty"`
	LineRef       string `json:"line_ref,omitempty"`
}

func (r *CalculateTaxRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if r.Amount.IsNegative() {
		return ierr.NewError("amount cannot be negative").
			WithHint("Amount must be zero or positive").
			WithReportableDetails(map[string]any{
				"amount": r.Amount.String(),
			}).
			Mark(ierr.ErrValidation)
	}
	if r.ServiceType == "" {
		return ierr.NewError("service_type is required").
			WithHint("Service type is required").
			Mark(ierr.ErrValidation)
	}
	if r.LineCount < 0 {
		return ierr.NewError("line_count cannot be negative").
			WithHint("Line count must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	if r.Minutes.IsNegative() {
		return ierr.NewError("minutes cannot be negative").
			WithHint("Minutes must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	if r.Units.IsNegative() {
		return ierr.NewError("units cannot be negative").
			WithHint("Units must be zero or positive").
			Mark(ierr.ErrValidation)
	}
	if r.ReferenceID != "" && r.ReferenceType == "" {
		return ierr.NewError("reference_type is required when reference_id is set").
			WithHint("Provide both reference_type and reference_id to record exemption usage").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetLineCount returns the line count, defaulting to one line
func (r *CalculateTaxRequest) GetLineCount() int {
	if r.LineCount <= 0 {
		return 1
	}
	return r.LineCount
}

// GetCalculationDate returns the calculation instant, defaulting to now
func (r *CalculateTaxRequest) GetCalculationDate() time.Time {
	if r.CalculationDate != nil {
		return r.CalculationDate.UTC()
	}
	return time.Now().UTC()
}

// ToAddress converts the request address to the domain form
func (r *CalculateTaxRequest) ToAddress() *jurisdiction.Address {
	if r.Address == nil {
		return nil
	}
	return &jurisdiction.Address{
		Line1:   r.Address.Line1,
		City:    r.Address.City,
		State:   r.Address.State,
		Zip:     r.Address.Zip,
		County:  r.Address.County,
		Country: r.Address.Country,
	}
}

// IsPreview reports whether the calculation should skip writing exemption
// usage.
func (r *CalculateTaxRequest) IsPreview() bool {
	return r.ReferenceID == ""
}

// CalculationResponse represents the full tax breakdown for one calculation
type CalculationResponse struct {
	BaseAmount     decimal.Decimal               `json:"base_amount" swaggertype:"string"`
	FederalTaxes   []calculation.TaxLineResult   `json:"federal_taxes"`
	StateTaxes     []calculation.TaxLineResult   `json:"state_taxes"`
	LocalTaxes     []calculation.TaxLineResult   `json:"local_taxes"`
	TotalTaxAmount decimal.Decimal               `json:"total_tax_amount" swaggertype:"string"`
	FinalAmount    decimal.Decimal               `json:"final_amount" swaggertype:"string"`

	Jurisdictions     []string  `json:"jurisdictions,omitempty"`
	ExemptionsApplied []string  `json:"exemptions_applied,omitempty"`
	IsFallback        bool      `json:"is_fallback,omitempty"`
	CalculatedAt      time.Time `json:"calculated_at"`
}

// ToCalculationResponse converts a domain result to the response form
func ToCalculationResponse(res *calculation.Result) *CalculationResponse {
	return &CalculationResponse{
		BaseAmount:        res.BaseAmount,
		FederalTaxes:      res.FederalTaxes,
		StateTaxes:        res.StateTaxes,
		LocalTaxes:        res.LocalTaxes,
		TotalTaxAmount:    res.TotalTaxAmount,
		FinalAmount:       res.FinalAmount,
		Jurisdictions:     res.Jurisdictions,
		ExemptionsApplied: res.ExemptionsApplied,
		IsFallback:        res.IsFallback,
		CalculatedAt:      res.CalculatedAt,
	}
}
