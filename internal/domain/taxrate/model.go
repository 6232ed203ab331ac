package taxrate

import (
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/types"
)

// TaxRate is a single rate definition scoped to one jurisdiction, category
// and tax type. Rates are never hard-deleted; they are deactivated or
// expired, and every mutation writes a TaxRateHistory row.
type TaxRate struct {
	ID             string            `db:"id" json:"id"`
	Name           string            `db:"name" json:"name"`
	Code           string            `db:"code" json:"code"`
	Description    string            `db:"description" json:"description,omitempty"`
	JurisdictionID string            `db:"jurisdiction_id" json:"jurisdiction_id"`
	CategoryID     string            `db:"category_id" json:"category_id"`
	TaxType        string            `db:"tax_type" json:"tax_type"`
	RateType       types.TaxRateType `db:"rate_type" json:"rate_type"`

	PercentageRate   *decimal.Decimal `db:"percentage_rate" json:"percentage_rate,omitempty" swaggertype:"string"`
	FixedAmount      *decimal.Decimal `db:"fixed_amount" json:"fixed_amount,omitempty" swaggertype:"string"`
	MinimumThreshold *decimal.Decimal `db:"minimum_threshold" json:"minimum_threshold,omitempty" swaggertype:"string"`
	MaximumAmount    *decimal.Decimal `db:"maximum_amount" json:"maximum_amount,omitempty" swaggertype:"string"`
	Tiers            []RateTier       `db:"tiers" json:"tiers,omitempty"`

	CalculationMethod types.TaxCalculationMethod `db:"calculation_method" json:"calculation_method,omitempty"`
	AuthorityName     string                     `db:"authority_name" json:"authority_name,omitempty"`
	ServiceTypes      []string                   `db:"service_types" json:"service_types,omitempty"`

	EffectiveFrom *time.Time `db:"effective_from" json:"effective_from,omitempty"`
	EffectiveTo   *time.Time `db:"effective_to" json:"effective_to,omitempty"`
	// Priority orders rate application within a jurisdiction; lower first.
	Priority int `db:"priority" json:"priority"`

	TaxRateStatus types.TaxRateStatus `db:"tax_rate_status" json:"tax_rate_status"`
	Metadata      map[string]string   `db:"metadata" json:"metadata,omitempty"`
	types.BaseModel
}

// RateTier is one marginal slice of a tiered rate. UpperBound nil means the
// tier is open-ended. Tiers are stored sorted, contiguous and
// non-overlapping; this is enforced at rate creation/update time.
type RateTier struct {
	LowerBound decimal.Decimal  `json:"lower_bound" swaggertype:"string"`
	UpperBound *decimal.Decimal `json:"upper_bound,omitempty" swaggertype:"string"`
	// Rate is the percentage applied to the slice (4 = 4%).
	Rate decimal.Decimal `json:"rate" swaggertype:"string"`
}

// IsEffectiveOn reports whether the rate's effective window contains the
// given instant. EffectiveFrom is inclusive and EffectiveTo exclusive, so a
// scheduled replacement whose EffectiveFrom equals the outgoing rate's
// EffectiveTo leaves exactly one rate live at the boundary.
func (r *TaxRate) IsEffectiveOn(t time.Time) bool {
	if r.EffectiveFrom != nil && r.EffectiveFrom.After(t) {
		return false
	}
	if r.EffectiveTo != nil && !r.EffectiveTo.After(t) {
		return false
	}
	return true
}

// AppliesToServiceType reports whether the rate covers the given service
// type. An empty service type set is a wildcard.
func (r *TaxRate) AppliesToServiceType(serviceType string) bool {
	if len(r.ServiceTypes) == 0 {
		return true
	}
	return lo.Contains(r.ServiceTypes, serviceType)
}

// SanityCheck verifies the rate carries the fields its rate type needs.
// The compute path skips (and logs) rates failing this check rather than
// aborting a whole calculation.
func (r *TaxRate) SanityCheck() error {
	switch r.RateType {
	case types.TaxRateTypePercentage:
		if r.PercentageRate == nil {
			return ierr.NewError("percentage rate missing percentage_rate").
				WithHint("Percentage tax rates require a percentage_rate").
				Mark(ierr.ErrValidation)
		}
	case types.TaxRateTypeFixed, types.TaxRateTypePerLine, types.TaxRateTypePerMinute, types.TaxRateTypePerUnit:
		if r.FixedAmount == nil {
			return ierr.NewError("rate missing fixed_amount").
				WithHintf("Tax rates of type %s require a fixed_amount", r.RateType).
				Mark(ierr.ErrValidation)
		}
	case types.TaxRateTypeTiered:
		if len(r.Tiers) == 0 {
			return ierr.NewError("tiered rate has no tiers").
				WithHint("Tiered tax rates require at least one tier").
				Mark(ierr.ErrValidation)
		}
	default:
		return ierr.NewError("unknown rate type").
			WithHintf("Tax rate type %s is not supported", r.RateType).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ValidateTiers enforces the tier configuration precondition the compute
// path relies on: sorted by lower bound, non-overlapping, contiguous, with
// only the last tier open-ended.
func ValidateTiers(tiers []RateTier) error {
	if len(tiers) == 0 {
		return ierr.NewError("tiers are required").
			WithHint("Tiered tax rates require at least one tier").
			Mark(ierr.ErrValidation)
	}

	for i, tier := range tiers {
		if tier.Rate.IsNegative() {
			return ierr.NewError("tier rate cannot be negative").
				WithHint("Tier rates must be non-negative percentages").
				Mark(ierr.ErrValidation)
		}

		if tier.UpperBound == nil {
			if i != len(tiers)-1 {
				return ierr.NewError("only the last tier may be open-ended").
					WithHint("Only the last tier may omit an upper bound").
					Mark(ierr.ErrValidation)
			}
			continue
		}

		if !tier.UpperBound.GreaterThan(tier.LowerBound) {
			return ierr.NewError("tier upper bound must exceed lower bound").
				WithHint("Each tier's upper bound must be greater than its lower bound").
				WithReportableDetails(map[string]any{
					"tier_index":  i,
					"lower_bound": tier.LowerBound.String(),
					"upper_bound": tier.UpperBound.String(),
				}).
				Mark(ierr.ErrValidation)
		}

		if i < len(tiers)-1 {
			next := tiers[i+1]
			if !next.LowerBound.Equal(*tier.UpperBound) {
				return ierr.NewError("tiers must be contiguous").
					WithHint("Each tier must start where the previous one ends").
					WithReportableDetails(map[string]any{
						"tier_index":       i,
						"upper_bound":      tier.UpperBound.String(),
						"next_lower_bound": next.LowerBound.String(),
					}).
					Mark(ierr.ErrValidation)
			}
		}
	}

	return nil
}
