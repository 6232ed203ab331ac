package types

import (
	"slices"

	ierr "github.com/voxbill/voxbill/internal/errors"
)

// JurisdictionType identifies the level of a taxing authority
type JurisdictionType string

const (
	JurisdictionTypeFederal         JurisdictionType = "federal"
	JurisdictionTypeState           JurisdictionType = "state"
	JurisdictionTypeCounty          JurisdictionType = "county"
	JurisdictionTypeCity            JurisdictionType = "city"
	JurisdictionTypeMunicipality    JurisdictionType = "municipality"
	JurisdictionTypeSpecialDistrict JurisdictionType = "special_district"
	JurisdictionTypeLocal           JurisdictionType = "local"
)

func (t JurisdictionType) String() string {
	return string(t)
}

func (t JurisdictionType) Validate() error {
	allowedValues := []string{
		string(JurisdictionTypeFederal),
		string(JurisdictionTypeState),
		string(JurisdictionTypeCounty),
		string(JurisdictionTypeCity),
		string(JurisdictionTypeMunicipality),
		string(JurisdictionTypeSpecialDistrict),
		string(JurisdictionTypeLocal),
	}
	if !slices.Contains(allowedValues, string(t)) {
		return ierr.NewError("invalid jurisdiction type").
			WithHint("Jurisdiction type must be one of federal, state, county, city, municipality, special_district, local").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// SpecificityRank orders jurisdiction levels broadest-first so resolved
// jurisdictions sort federal, state, county, city/municipality,
// special_district, local.
func (t JurisdictionType) SpecificityRank() int {
	switch t {
	case JurisdictionTypeFederal:
		return 0
	case JurisdictionTypeState:
		return 1
	case JurisdictionTypeCounty:
		return 2
	case JurisdictionTypeCity, JurisdictionTypeMunicipality:
		return 3
	case JurisdictionTypeSpecialDistrict:
		return 4
	case JurisdictionTypeLocal:
		return 5
	default:
		return 6
	}
}

// TaxLevel buckets a jurisdiction into the federal/state/local breakdown
// sections of a calculation result.
func (t JurisdictionType) TaxLevel() TaxLevel {
	switch t {
	case JurisdictionTypeFederal:
		return TaxLevelFederal
	case JurisdictionTypeState:
		return TaxLevelState
	default:
		return TaxLevelLocal
	}
}

// JurisdictionFilter represents filters for jurisdiction queries
type JurisdictionFilter struct {
	*QueryFilter
	JurisdictionIDs   []string         `json:"jurisdiction_ids,omitempty" form:"jurisdiction_ids" validate:"omitempty"`
	JurisdictionType  JurisdictionType `json:"jurisdiction_type,omitempty" form:"jurisdiction_type" validate:"omitempty"`
	StateCode         string           `json:"state_code,omitempty" form:"state_code" validate:"omitempty"`
	CountyName        string           `json:"county_name,omitempty" form:"county_name" validate:"omitempty"`
	CityName          string           `json:"city_name,omitempty" form:"city_name" validate:"omitempty"`
	Zip               string           `json:"zip,omitempty" form:"zip" validate:"omitempty"`
}

// NewDefaultJurisdictionFilter creates a new JurisdictionFilter with default values
func NewDefaultJurisdictionFilter() *JurisdictionFilter {
	return &JurisdictionFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitJurisdictionFilter creates a new JurisdictionFilter with no pagination limits
func NewNoLimitJurisdictionFilter() *JurisdictionFilter {
	return &JurisdictionFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

// Validate validates the JurisdictionFilter
func (f JurisdictionFilter) Validate() error {
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}

	if f.JurisdictionType != "" {
		if err := f.JurisdictionType.Validate(); err != nil {
			return err
		}
	}

	for _, id := range f.JurisdictionIDs {
		if id == "" {
			return ierr.NewError("jurisdiction_ids cannot contain empty strings").
				WithHint("Jurisdiction IDs must be non-empty strings").
				Mark(ierr.ErrValidation)
		}
	}

	return nil
}
