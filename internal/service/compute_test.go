package service

import (
	"testing"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voxbill/voxbill/internal/domain/taxrate"
	"github.com/voxbill/voxbill/internal/types"
)

func TestComputeLinePercentage(t *testing.T) {
	engine := NewTaxComputationEngine()

	rate := &taxrate.TaxRate{
		RateType:       types.TaxRateTypePercentage,
		PercentageRate: lo.ToPtr(decimal.NewFromFloat(6.25)),
	}

	amount, err := engine.ComputeLine(rate, ComputationInput{BaseAmount: decimal.NewFromInt(100)})
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromFloat(6.25)), "got %s", amount)
}

func TestComputeLinePercentageRounding(t *testing.T) {
	engine := NewTaxComputationEngine()

	// 33.33 * 7.125% = 2.374762..., kept at four decimal places
	rate := &taxrate.TaxRate{
		RateType:       types.TaxRateTypePercentage,
		PercentageRate: lo.ToPtr(decimal.NewFromFloat(7.125)),
	}

	amount, err := engine.ComputeLine(rate, ComputationInput{BaseAmount: decimal.NewFromFloat(33.33)})
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromFloat(2.3748)), "got %s", amount)
}

func TestComputeLineFixed(t *testing.T) {
	engine := NewTaxComputationEngine()

	rate := &taxrate.TaxRate{
		RateType:    types.TaxRateTypeFixed,
		FixedAmount: lo.ToPtr(decimal.NewFromFloat(2.50)),
	}

	amount, err := engine.ComputeLine(rate, ComputationInput{BaseAmount: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromFloat(2.50)), "got %s", amount)
}

func TestComputeLinePerLine(t *testing.T) {
	engine := NewTaxComputationEngine()

	rate := &taxrate.TaxRate{
		RateType:    types.TaxRateTypePerLine,
		FixedAmount: lo.ToPtr(decimal.NewFromFloat(1.50)),
	}

	amount, err := engine.ComputeLine(rate, ComputationInput{
		BaseAmount: decimal.NewFromInt(100),
		LineCount:  3,
	})
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromFloat(4.50)), "got %s", amount)
}

func TestComputeLinePerMinute(t *testing.T) {
	engine := NewTaxComputationEngine()

	rate := &taxrate.TaxRate{
		RateType:    types.TaxRateTypePerMinute,
		FixedAmount: lo.ToPtr(decimal.NewFromFloat(0.01)),
	}

	amount, err := engine.ComputeLine(rate, ComputationInput{
		Minutes: decimal.NewFromInt(250),
	})
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromFloat(2.50)), "got %s", amount)
}

func TestComputeLinePerUnit(t *testing.T) {
	engine := NewTaxComputationEngine()

	rate := &taxrate.TaxRate{
		RateType:    types.TaxRateTypePerUnit,
		FixedAmount: lo.ToPtr(decimal.NewFromFloat(0.05)),
	}

	amount, err := engine.ComputeLine(rate, ComputationInput{
		Units: decimal.NewFromInt(12),
	})
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromFloat(0.60)), "got %s", amount)
}

func TestComputeLineTiered(t *testing.T) {
	engine := NewTaxComputationEngine()

	rate := &taxrate.TaxRate{
		RateType: types.TaxRateTypeTiered,
		Tiers: []taxrate.RateTier{
			{LowerBound: decimal.Zero, UpperBound: lo.ToPtr(decimal.NewFromInt(100)), Rate: decimal.NewFromInt(2)},
			{LowerBound: decimal.NewFromInt(100), UpperBound: lo.ToPtr(decimal.NewFromInt(300)), Rate: decimal.NewFromInt(4)},
			{LowerBound: decimal.NewFromInt(300), Rate: decimal.NewFromInt(6)},
		},
	}

	tests := []struct {
		name     string
		base     decimal.Decimal
		expected decimal.Decimal
	}{
		{
			// all within the first tier
			name:     "first tier only",
			base:     decimal.NewFromInt(50),
			expected: decimal.NewFromInt(1),
		},
		{
			// 100 at 2% plus 150 at 4%
			name:     "spans two tiers",
			base:     decimal.NewFromInt(250),
			expected: decimal.NewFromInt(8),
		},
		{
			// 100 at 2% plus 200 at 4% plus 50 at 6%
			name:     "reaches open-ended tier",
			base:     decimal.NewFromInt(350),
			expected: decimal.NewFromInt(13),
		},
		{
			name:     "zero base",
			base:     decimal.Zero,
			expected: decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := engine.ComputeLine(rate, ComputationInput{BaseAmount: tt.base})
			require.NoError(t, err)
			assert.True(t, amount.Equal(tt.expected), "expected %s got %s", tt.expected, amount)
		})
	}
}

func TestComputeLineMinimumThreshold(t *testing.T) {
	engine := NewTaxComputationEngine()

	rate := &taxrate.TaxRate{
		RateType:         types.TaxRateTypePercentage,
		PercentageRate:   lo.ToPtr(decimal.NewFromInt(1)),
		MinimumThreshold: lo.ToPtr(decimal.NewFromInt(1)),
	}

	// 50 * 1% = 0.50, lifted to the minimum
	amount, err := engine.ComputeLine(rate, ComputationInput{BaseAmount: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(1)), "got %s", amount)

	// a zero computed amount is not lifted
	amount, err = engine.ComputeLine(rate, ComputationInput{BaseAmount: decimal.Zero})
	require.NoError(t, err)
	assert.True(t, amount.IsZero(), "got %s", amount)
}

func TestComputeLineMaximumAmount(t *testing.T) {
	engine := NewTaxComputationEngine()

	rate := &taxrate.TaxRate{
		RateType:       types.TaxRateTypePercentage,
		PercentageRate: lo.ToPtr(decimal.NewFromInt(10)),
		MaximumAmount:  lo.ToPtr(decimal.NewFromInt(5)),
	}

	amount, err := engine.ComputeLine(rate, ComputationInput{BaseAmount: decimal.NewFromInt(1000)})
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(5)), "got %s", amount)
}

func TestComputeLineMisconfiguredRate(t *testing.T) {
	engine := NewTaxComputationEngine()

	rate := &taxrate.TaxRate{
		RateType: types.TaxRateTypePercentage,
	}

	_, err := engine.ComputeLine(rate, ComputationInput{BaseAmount: decimal.NewFromInt(100)})
	assert.Error(t, err)
}

func TestApplyExemptionReduction(t *testing.T) {
	engine := NewTaxComputationEngine()

	raw := decimal.NewFromInt(10)

	taxAmount, exempted := engine.ApplyExemptionReduction(raw, nil)
	assert.True(t, taxAmount.Equal(raw))
	assert.True(t, exempted.IsZero())

	taxAmount, exempted = engine.ApplyExemptionReduction(raw, []decimal.Decimal{decimal.NewFromInt(50)})
	assert.True(t, taxAmount.Equal(decimal.NewFromInt(5)), "got %s", taxAmount)
	assert.True(t, exempted.Equal(decimal.NewFromInt(5)), "got %s", exempted)

	// additive reductions never drive the tax below zero
	taxAmount, exempted = engine.ApplyExemptionReduction(raw, []decimal.Decimal{
		decimal.NewFromInt(60),
		decimal.NewFromInt(60),
	})
	assert.True(t, taxAmount.IsZero(), "got %s", taxAmount)
	assert.True(t, exempted.Equal(raw), "got %s", exempted)
}

func TestValidateTiers(t *testing.T) {
	valid := []taxrate.RateTier{
		{LowerBound: decimal.Zero, UpperBound: lo.ToPtr(decimal.NewFromInt(100)), Rate: decimal.NewFromInt(2)},
		{LowerBound: decimal.NewFromInt(100), Rate: decimal.NewFromInt(4)},
	}
	assert.NoError(t, taxrate.ValidateTiers(valid))

	gap := []taxrate.RateTier{
		{LowerBound: decimal.Zero, UpperBound: lo.ToPtr(decimal.NewFromInt(100)), Rate: decimal.NewFromInt(2)},
		{LowerBound: decimal.NewFromInt(150), Rate: decimal.NewFromInt(4)},
	}
	assert.Error(t, taxrate.ValidateTiers(gap))

	openMiddle := []taxrate.RateTier{
		{LowerBound: decimal.Zero, Rate: decimal.NewFromInt(2)},
		{LowerBound: decimal.NewFromInt(100), UpperBound: lo.ToPtr(decimal.NewFromInt(200)), Rate: decimal.NewFromInt(4)},
	}
	assert.Error(t, taxrate.ValidateTiers(openMiddle))

	assert.Error(t, taxrate.ValidateTiers(nil))
}
