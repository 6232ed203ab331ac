package exemption

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/voxbill/voxbill/internal/types"
)

// TaxExemptionUsage is one row of the append-only audit log recording that
// an exemption reduced a specific tax line on a specific billing document.
// Recording is idempotent on (exemption, reference document, line).
type TaxExemptionUsage struct {
	ID            string          `db:"id" json:"id"`
	ExemptionID   string          `db:"exemption_id" json:"exemption_id"`
	ReferenceType string          `db:"reference_type" json:"reference_type"`
	ReferenceID   string          `db:"reference_id" json:"reference_id"`
	LineRef       string          `db:"line_ref" json:"line_ref"`
	TaxType       string          `db:"tax_type" json:"tax_type"`
	TaxBefore     decimal.Decimal `db:"tax_before" json:"tax_before" swaggertype:"string"`
	Reduction     decimal.Decimal `db:"reduction" json:"reduction" swaggertype:"string"`
	AppliedAt     time.Time       `db:"applied_at" json:"applied_at"`
	types.BaseModel
}

// IdempotencyKey uniquely identifies the (exemption, document, line)
// combination a usage row is attributed to.
func (u *TaxExemptionUsage) IdempotencyKey() string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", u.ExemptionID, u.ReferenceType, u.ReferenceID, u.LineRef, u.TaxType)
}
