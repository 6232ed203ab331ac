package jurisdiction

import (
	"strings"

	"github.com/samber/lo"

	"github.com/voxbill/voxbill/internal/types"
)

// TaxJurisdiction identifies a taxing authority with geographic matching
// rules. Jurisdictions are tenant-scoped configuration; the calculation
// engine only ever reads them.
type TaxJurisdiction struct {
	ID               string                 `db:"id" json:"id"`
	Name             string                 `db:"name" json:"name"`
	AuthorityName    string                 `db:"authority_name" json:"authority_name"`
	JurisdictionType types.JurisdictionType `db:"jurisdiction_type" json:"jurisdiction_type"`
	StateCode        string                 `db:"state_code" json:"state_code,omitempty"`
	CountyName       string                 `db:"county_name" json:"county_name,omitempty"`
	CityName         string                 `db:"city_name" json:"city_name,omitempty"`
	ZipCodes         []string               `db:"zip_codes" json:"zip_codes,omitempty"`
	// Priority breaks ties between jurisdictions of the same type;
	// lower is applied first.
	Priority int `db:"priority" json:"priority"`
	types.BaseModel
}

// Address is the service address a calculation matches jurisdictions
// against. All fields are optional.
type Address struct {
	Line1   string `json:"line1,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zip,omitempty"`
	County  string `json:"county,omitempty"`
	Country string `json:"country,omitempty"`
}

// IsEmpty reports whether the address has no matchable fields
func (a *Address) IsEmpty() bool {
	if a == nil {
		return true
	}
	return a.State == "" && a.County == "" && a.City == "" && a.Zip == ""
}

// Normalized returns a deterministic string form of the address used in
// cache keys.
func (a *Address) Normalized() string {
	if a == nil {
		return "none"
	}
	parts := []string{a.State, a.County, a.City, a.Zip}
	return strings.ToLower(strings.Join(parts, "|"))
}

// Matches reports whether the jurisdiction's geographic matchers cover the
// given address. Federal jurisdictions match everything.
func (j *TaxJurisdiction) Matches(addr *Address) bool {
	if j.JurisdictionType == types.JurisdictionTypeFederal {
		return true
	}
	if addr.IsEmpty() {
		return false
	}

	if j.StateCode != "" && strings.EqualFold(j.StateCode, addr.State) {
		return true
	}
	if j.CountyName != "" && strings.EqualFold(j.CountyName, addr.County) {
		return true
	}
	if j.CityName != "" && strings.EqualFold(j.CityName, addr.City) {
		return true
	}
	if addr.Zip != "" && lo.Contains(j.ZipCodes, addr.Zip) {
		return true
	}

	return false
}
