package taxrate

import (
	"time"

	"github.com/voxbill/voxbill/internal/types"
)

// TaxRateHistory is one row of the append-only change log written with
// every tax rate mutation. Old/new snapshots allow compliance exports to
// reconstruct the catalog as of any point in time.
type TaxRateHistory struct {
	ID         string                  `db:"id" json:"id"`
	TaxRateID  string                  `db:"tax_rate_id" json:"tax_rate_id"`
	ChangeType types.TaxRateChangeType `db:"change_type" json:"change_type"`
	OldValues  *TaxRate                `db:"old_values" json:"old_values,omitempty"`
	NewValues  *TaxRate                `db:"new_values" json:"new_values,omitempty"`
	Reason     string                  `db:"reason" json:"reason,omitempty"`
	ActorID    string                  `db:"actor_id" json:"actor_id"`
	ChangedAt  time.Time               `db:"changed_at" json:"changed_at"`
	types.BaseModel
}
