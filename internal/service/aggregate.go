package service

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/voxbill/voxbill/internal/domain/calculation"
	"github.com/voxbill/voxbill/internal/types"
)

// ResultAggregator folds per-line tax results into the final calculation
// breakdown. Lines keep their four-decimal precision; money-level rounding
// to two decimals happens here and only here.
type ResultAggregator interface {
	Aggregate(baseAmount decimal.Decimal, federal, state, local []calculation.TaxLineResult) *calculation.Result
}

type resultAggregator struct{}

// NewResultAggregator creates the aggregation stage
func NewResultAggregator() ResultAggregator {
	return &resultAggregator{}
}

func (a *resultAggregator) Aggregate(baseAmount decimal.Decimal, federal, state, local []calculation.TaxLineResult) *calculation.Result {
	total := decimal.Zero
	for _, lines := range [][]calculation.TaxLineResult{federal, state, local} {
		for _, line := range lines {
			total = total.Add(line.TaxAmount)
		}
	}
	total = total.Round(types.MoneyPrecision)

	return &calculation.Result{
		BaseAmount:     baseAmount,
		FederalTaxes:   federal,
		StateTaxes:     state,
		LocalTaxes:     local,
		TotalTaxAmount: total,
		FinalAmount:    baseAmount.Add(total).Round(types.MoneyPrecision),
		CalculatedAt:   time.Now().UTC(),
	}
}
