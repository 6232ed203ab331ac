package calculation

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/voxbill/voxbill/internal/types"
)

// TaxLineResult is the in-memory output of applying one resolved rate to a
// base amount. Lines are aggregated into the billing document's stored tax
// fields by the caller; they are not persisted directly.
type TaxLineResult struct {
	TaxName          string            `json:"tax_name"`
	TaxType          string            `json:"tax_type"`
	RateType         types.TaxRateType `json:"rate_type"`
	RateValue        decimal.Decimal   `json:"rate_value" swaggertype:"string"`
	BaseAmount       decimal.Decimal   `json:"base_amount" swaggertype:"string"`
	TaxAmount        decimal.Decimal   `json:"tax_amount" swaggertype:"string"`
	ExemptedAmount   decimal.Decimal   `json:"exempted_amount" swaggertype:"string"`
	AuthorityName    string            `json:"authority_name,omitempty"`
	JurisdictionName string            `json:"jurisdiction_name,omitempty"`
}

// Result is the full output of one tax calculation: a per-level breakdown
// plus totals. Computed fresh per request and optionally cached; serving a
// cached Result must be indistinguishable from recomputing it.
type Result struct {
	BaseAmount     decimal.Decimal `json:"base_amount" swaggertype:"string"`
	FederalTaxes   []TaxLineResult `json:"federal_taxes"`
	StateTaxes     []TaxLineResult `json:"state_taxes"`
	LocalTaxes     []TaxLineResult `json:"local_taxes"`
	TotalTaxAmount decimal.Decimal `json:"total_tax_amount" swaggertype:"string"`
	FinalAmount    decimal.Decimal `json:"final_amount" swaggertype:"string"`

	Jurisdictions     []string `json:"jurisdictions,omitempty"`
	ExemptionsApplied []string `json:"exemptions_applied,omitempty"`

	// IsFallback marks a result computed with the flat estimated rate
	// because the rate catalog was unreachable. Fallback results are not
	// authoritative and must be reconciled later.
	IsFallback   bool      `json:"is_fallback,omitempty"`
	CalculatedAt time.Time `json:"calculated_at"`
}

// Lines returns all tax lines across the three levels in breakdown order
func (r *Result) Lines() []TaxLineResult {
	lines := make([]TaxLineResult, 0, len(r.FederalTaxes)+len(r.StateTaxes)+len(r.LocalTaxes))
	lines = append(lines, r.FederalTaxes...)
	lines = append(lines, r.StateTaxes...)
	lines = append(lines, r.LocalTaxes...)
	return lines
}
