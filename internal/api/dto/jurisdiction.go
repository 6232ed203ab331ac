package dto

import (
	"github.com/voxbill/voxbill/internal/domain/jurisdiction"
	"github.com/voxbill/voxbill/internal/types"
	"github.com/voxbill/voxbill/internal/validator"
)

// CreateJurisdictionRequest represents the request payload for creating a
// tax jurisdiction
type CreateJurisdictionRequest struct {
	Name             string                 `json:"name" binding:"required" example:"Texas"`
	AuthorityName    string                 `json:"authority_name,omitempty" example:"Texas Comptroller"`
	JurisdictionType types.JurisdictionType `json:"jurisdiction_type" binding:"required" example:"state"`
	StateCode        string                 `json:"state_code,omitempty" example:"TX"`
	CountyName       string                 `json:"county_name,omitempty"`
	CityName         string                 `json:"city_name,omitempty"`
	ZipCodes         []string               `json:"zip_codes,omitempty"`
	Priority         int                    `json:"priority,omitempty"`
}

func (r *CreateJurisdictionRequest) Validate() error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	return r.JurisdictionType.Validate()
}

// ToJurisdiction converts the request to a domain TaxJurisdiction
func (r *CreateJurisdictionRequest) ToJurisdiction(baseModel types.BaseModel) *jurisdiction.TaxJurisdiction {
	return &jurisdiction.TaxJurisdiction{
		ID:               types.GenerateUUIDWithPrefix(types.UUID_PREFIX_JURISDICTION),
		Name:             r.Name,
		AuthorityName:    r.AuthorityName,
		JurisdictionType: r.JurisdictionType,
		StateCode:        r.StateCode,
		CountyName:       r.CountyName,
		CityName:         r.CityName,
		ZipCodes:         r.ZipCodes,
		Priority:         r.Priority,
		BaseModel:        baseModel,
	}
}

// UpdateJurisdictionRequest represents the request payload for updating a
// jurisdiction. Nil fields are left unchanged.
type UpdateJurisdictionRequest struct {
	Name          *string  `json:"name,omitempty"`
	AuthorityName *string  `json:"authority_name,omitempty"`
	StateCode     *string  `json:"state_code,omitempty"`
	CountyName    *string  `json:"county_name,omitempty"`
	CityName      *string  `json:"city_name,omitempty"`
	ZipCodes      []string `json:"zip_codes,omitempty"`
	Priority      *int     `json:"priority,omitempty"`
}

// JurisdictionResponse represents the jurisdiction response structure
type JurisdictionResponse struct {
	*jurisdiction.TaxJurisdiction
}

// ToJurisdictionResponse converts a domain jurisdiction to the response form
func ToJurisdictionResponse(j *jurisdiction.TaxJurisdiction) *JurisdictionResponse {
	return &JurisdictionResponse{TaxJurisdiction: j}
}

// ListJurisdictionsResponse represents a paginated list of jurisdictions
type ListJurisdictionsResponse = types.ListResponse[*JurisdictionResponse]
