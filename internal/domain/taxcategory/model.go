package taxcategory

import (
	"github.com/samber/lo"

	"github.com/voxbill/voxbill/internal/types"
)

// TaxCategory classifies a service type for tax purposes. A category with an
// empty ServiceTypes set is a wildcard and matches every service type.
type TaxCategory struct {
	ID           string   `db:"id" json:"id"`
	Name         string   `db:"name" json:"name"`
	Description  string   `db:"description" json:"description,omitempty"`
	ServiceTypes []string `db:"service_types" json:"service_types,omitempty"`
	Taxable      bool     `db:"taxable" json:"taxable"`
	// Priority resolves overlapping categories; lower wins.
	Priority int `db:"priority" json:"priority"`
	types.BaseModel
}

// MatchesServiceType reports whether the category covers the given service
// type.
func (c *TaxCategory) MatchesServiceType(serviceType string) bool {
	if len(c.ServiceTypes) == 0 {
		return true
	}
	return lo.Contains(c.ServiceTypes, serviceType)
}
