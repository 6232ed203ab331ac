package service

import (
	"github.com/shopspring/decimal"

	"github.com/voxbill/voxbill/internal/domain/taxrate"
	ierr "github.com/voxbill/voxbill/internal/errors"
	"github.com/voxbill/voxbill/internal/types"
)

// ComputationInput carries the quantities a rate may be applied against.
// BaseAmount drives percentage and tiered rates; the unit counts drive the
// per_line/per_minute/per_unit models.
type ComputationInput struct {
	BaseAmount decimal.Decimal
	LineCount  int
	Minutes    decimal.Decimal
	Units      decimal.Decimal
}

// TaxComputationEngine applies one resolved rate to a computation input.
// It is pure: no storage, no caching, no tenant awareness.
type TaxComputationEngine interface {
	ComputeLine(rate *taxrate.TaxRate, input ComputationInput) (decimal.Decimal, error)
	ApplyExemptionReduction(raw decimal.Decimal, exemptionPercentages []decimal.Decimal) (taxAmount, exempted decimal.Decimal)
}

type taxComputationEngine struct{}

// NewTaxComputationEngine creates the rate application engine
func NewTaxComputationEngine() TaxComputationEngine {
	return &taxComputationEngine{}
}

var oneHundred = decimal.NewFromInt(100)

// ComputeLine computes the raw tax amount for one rate, clamped to the
// rate's minimum/maximum and rounded to the tax-line precision.
func (e *taxComputationEngine) ComputeLine(rate *taxrate.TaxRate, input ComputationInput) (decimal.Decimal, error) {
	if err := rate.SanityCheck(); err != nil {
		return decimal.Zero, err
	}

	var amount decimal.Decimal

	switch rate.RateType {
	case types.TaxRateTypePercentage:
		amount = input.BaseAmount.Mul(rate.PercentageRate.Div(oneHundred))
	case types.TaxRateTypeFixed:
		amount = *rate.FixedAmount
	case types.TaxRateTypePerLine:
		amount = rate.FixedAmount.Mul(decimal.NewFromInt(int64(input.LineCount)))
	case types.TaxRateTypePerMinute:
		amount = rate.FixedAmount.Mul(input.Minutes)
	case types.TaxRateTypePerUnit:
		amount = rate.FixedAmount.Mul(input.Units)
	case types.TaxRateTypeTiered:
		amount = computeTiered(rate.Tiers, input.BaseAmount)
	default:
		return decimal.Zero, ierr.NewError("unknown rate type").
			WithHintf("Tax rate type %s is not supported", rate.RateType).
			Mark(ierr.ErrValidation)
	}

	// a zero raw amount stays zero; the minimum threshold only lifts
	// amounts that are already due
	if !amount.IsZero() {
		if rate.MinimumThreshold != nil && amount.LessThan(*rate.MinimumThreshold) {
			amount = *rate.MinimumThreshold
		}
	}
	if rate.MaximumAmount != nil && amount.GreaterThan(*rate.MaximumAmount) {
		amount = *rate.MaximumAmount
	}

	return amount.Round(types.TaxLinePrecision), nil
}

// computeTiered walks the marginal tiers: each slice of the base amount
// falling inside a tier is taxed at that tier's rate. Tiers are validated
// sorted and contiguous at rate creation time.
func computeTiered(tiers []taxrate.RateTier, base decimal.Decimal) decimal.Decimal {
	total := decimal.Zero

	for _, tier := range tiers {
		if base.LessThanOrEqual(tier.LowerBound) {
			break
		}

		sliceEnd := base
		if tier.UpperBound != nil && sliceEnd.GreaterThan(*tier.UpperBound) {
			sliceEnd = *tier.UpperBound
		}

		slice := sliceEnd.Sub(tier.LowerBound)
		total = total.Add(slice.Mul(tier.Rate.Div(oneHundred)))
	}

	return total
}

// ApplyExemptionReduction reduces a raw tax amount by the accumulated
// exemption percentages. Reductions are additive across exemptions but the
// result never goes negative.
func (e *taxComputationEngine) ApplyExemptionReduction(raw decimal.Decimal, exemptionPercentages []decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if len(exemptionPercentages) == 0 {
		return raw, decimal.Zero
	}

	reduction := decimal.Zero
	for _, pct := range exemptionPercentages {
		reduction = reduction.Add(raw.Mul(pct.Div(oneHundred)))
	}

	taxAmount := raw.Sub(reduction)
	if taxAmount.IsNegative() {
		taxAmount = decimal.Zero
		reduction = raw
	}

	return taxAmount.Round(types.TaxLinePrecision), reduction.Round(types.TaxLinePrecision)
}
