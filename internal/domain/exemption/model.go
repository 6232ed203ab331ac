package exemption

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/voxbill/voxbill/internal/types"
)

// TaxExemption is a client-specific or blanket relief from one or more tax
// types/jurisdictions. A blanket exemption applies across all jurisdictions
// and tax types regardless of its scoping fields.
type TaxExemption struct {
	ID                 string           `db:"id" json:"id"`
	ClientID           string           `db:"client_id" json:"client_id"`
	JurisdictionID     *string          `db:"jurisdiction_id" json:"jurisdiction_id,omitempty"`
	ApplicableTaxTypes []string         `db:"applicable_tax_types" json:"applicable_tax_types,omitempty"`
	IsBlanketExemption bool             `db:"is_blanket_exemption" json:"is_blanket_exemption"`
	// ExemptionPercentage is the reduction applied to matching tax lines,
	// in [0,100].
	ExemptionPercentage decimal.Decimal       `db:"exemption_percentage" json:"exemption_percentage" swaggertype:"string"`
	CertificateNumber   string                `db:"certificate_number" json:"certificate_number,omitempty"`
	ExemptionStatus     types.ExemptionStatus `db:"exemption_status" json:"exemption_status"`
	ExpiresAt           *time.Time            `db:"expires_at" json:"expires_at,omitempty"`
	Priority            int                   `db:"priority" json:"priority"`
	types.BaseModel
}

// IsValidOn reports whether the exemption may reduce tax at the given
// instant.
func (e *TaxExemption) IsValidOn(t time.Time) bool {
	if e.ExemptionStatus != types.ExemptionStatusActive {
		return false
	}
	if e.ExpiresAt != nil && e.ExpiresAt.Before(t) {
		return false
	}
	return true
}

// AppliesToTaxType reports whether the exemption covers the given tax type.
// Blanket exemptions cover everything.
func (e *TaxExemption) AppliesToTaxType(taxType string) bool {
	if e.IsBlanketExemption {
		return true
	}
	return lo.Contains(e.ApplicableTaxTypes, taxType)
}

// AppliesToJurisdiction reports whether the exemption covers the given
// jurisdiction. Blanket exemptions and exemptions without a jurisdiction
// scope cover everything.
func (e *TaxExemption) AppliesToJurisdiction(jurisdictionID string) bool {
	if e.IsBlanketExemption || e.JurisdictionID == nil {
		return true
	}
	return *e.JurisdictionID == jurisdictionID
}
