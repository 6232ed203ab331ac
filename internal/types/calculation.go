package types

// TaxLevel buckets tax lines into the breakdown sections of a calculation
// result.
type TaxLevel string

const (
	TaxLevelFederal TaxLevel = "federal"
	TaxLevelState   TaxLevel = "state"
	TaxLevelLocal   TaxLevel = "local"
)

func (l TaxLevel) String() string {
	return string(l)
}

// Rounding precision for the compute path. Individual tax lines keep four
// decimal places so sub-cent obligations survive aggregation; money-level
// rounding to two decimals happens only on the final totals.
const (
	TaxLinePrecision int32 = 4
	MoneyPrecision   int32 = 2
)
