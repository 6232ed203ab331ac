package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/voxbill/voxbill/internal/domain/exemption"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/types"
	"github.com/voxbill/voxbill/internal/validator"
)

// CreateExemptionRequest represents the request payload for creating a tax
// exemption
type CreateExemptionRequest struct {
	ClientID           string   `json:"client_id" binding:"required"`
	JurisdictionID     *string  `json:"jurisdiction_id,omitempty"`
	ApplicableTaxTypes []string `json:"applicable_tax_types,omitempty"`
	IsBlanketExemption bool     `json:"is_blanket_exemption,omitempty"`
	// ExemptionPercentage is the reduction applied to matching tax lines,
	// in [0,100]. Defaults to a full exemption.
	ExemptionPercentage *decimal.Decimal      `json:"exemption_percentage,omitempty" swaggertype:"string" example:"100"`
	CertificateNumber   string                `json:"certificate_number,omitempty"`
	ExemptionStatus     types.ExemptionStatus `json:"exemption_status,omitempty" example:"active"`
	ExpiresAt           *time.Time            `json:"expires_at,omitempty"`
	Priority            int                   `json:"priority,omitempty"`
}

func (r *CreateExemptionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}

	if r.ExemptionPercentage != nil {
		if r.ExemptionPercentage.IsNegative() || r.ExemptionPercentage.GreaterThan(decimal.NewFromInt(100)) {
			return ierr.NewError("exemption_percentage out of range").
				WithHint("Exemption percentage must be between 0 and 100").
				WithReportableDetails(map[string]any{
					"exemption_percentage": r.ExemptionPercentage.String(),
				}).
				Mark(ierr.ErrValidation)
		}
	}
	if r.ExemptionStatus != "" {
		if err := r.ExemptionStatus.Validate(); err != nil {
			return err
		}
	}
	if !r.IsBlanketExemption && len(r.ApplicableTaxTypes) == 0 && r.JurisdictionID == nil {
		return ierr.NewError("exemption has no scope").
			WithHint("Non-blanket exemptions require applicable_tax_types or a jurisdiction_id").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ToExemption converts the request to a domain TaxExemption
func (r *CreateExemptionRequest) ToExemption(baseModel types.BaseModel) *exemption.TaxExemption {
	percentage := decimal.NewFromInt(100)
	if r.ExemptionPercentage != nil {
		percentage = *r.ExemptionPercentage
	}
	status := r.ExemptionStatus
	if status == "" {
		status = types.ExemptionStatusActive
	}

	return &exemption.TaxExemption{
		ID:                  types.GenerateUUIDWithPrefix(types.UUID_PREFIX_EXEMPTION),
		ClientID:            r.ClientID,
		JurisdictionID:      r.JurisdictionID,
		ApplicableTaxTypes:  r.ApplicableTaxTypes,
		IsBlanketExemption:  r.IsBlanketExemption,
		ExemptionPercentage: percentage,
		CertificateNumber:   r.CertificateNumber,
		ExemptionStatus:     status,
		ExpiresAt:           r.ExpiresAt,
		Priority:            r.Priority,
		BaseModel:           baseModel,
	}
}

// UpdateExemptionRequest represents the request payload for updating an
// exemption. Nil fields are left unchanged.
type UpdateExemptionRequest struct {
	JurisdictionID      *string               `json:"jurisdiction_id,omitempty"`
	ApplicableTaxTypes  []string              `json:"applicable_tax_types,omitempty"`
	IsBlanketExemption  *bool                 `json:"is_blanket_exemption,omitempty"`
	ExemptionPercentage *decimal.Decimal      `json:"exemption_percentage,omitempty" swaggertype:"string"`
	CertificateNumber   *string               `json:"certificate_number,omitempty"`
	ExemptionStatus     *types.ExemptionStatus `json:"exemption_status,omitempty"`
	ExpiresAt           *time.Time            `json:"expires_at,omitempty"`
	Priority            *int                  `json:"priority,omitempty"`
}

func (r *UpdateExemptionRequest) Validate() error {
	if r.ExemptionPercentage != nil {
		if r.ExemptionPercentage.IsNegative() || r.ExemptionPercentage.GreaterThan(decimal.NewFromInt(100)) {
			return ierr.NewError("exemption_percentage out of range").
				WithHint("Exemption percentage must be between 0 and 100").
				Mark(ierr.ErrValidation)
		}
	}
	if r.ExemptionStatus != nil {
		if err := r.ExemptionStatus.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ExemptionResponse represents the exemption response structure
type ExemptionResponse struct {
	*exemption.TaxExemption
}

// ToExemptionResponse converts a domain exemption to the response form
func ToExemptionResponse(e *exemption.TaxExemption) *ExemptionResponse {
	return &ExemptionResponse{TaxExemption: e}
}

// ExemptionUsageResponse represents one usage audit row
type ExemptionUsageResponse struct {
	*exemption.TaxExemptionUsage
}

// ListExemptionsResponse represents a paginated list of exemptions
type ListExemptionsResponse = types.ListResponse[*ExemptionResponse]
