package types

import (
	"slices"

	ierr "github.com/voxbill/voxbill/internal/errors"
)

// ExemptionStatus defines the verification status of a tax exemption
type ExemptionStatus string

const (
	ExemptionStatusActive              ExemptionStatus = "active"
	ExemptionStatusExpired             ExemptionStatus = "expired"
	ExemptionStatusPendingVerification ExemptionStatus = "pending_verification"
)

func (s ExemptionStatus) String() string {
	return string(s)
}

func (s ExemptionStatus) Validate() error {
	allowedValues := []string{
		string(ExemptionStatusActive),
		string(ExemptionStatusExpired),
		string(ExemptionStatusPendingVerification),
	}
	if !slices.Contains(allowedValues, string(s)) {
		return ierr.NewError("invalid exemption status").
			WithHint("Exemption status must be active, expired or pending_verification").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ExemptionFilter represents filters for exemption queries
type ExemptionFilter struct {
	*QueryFilter
	ExemptionIDs    []string        `json:"exemption_ids,omitempty" form:"exemption_ids" validate:"omitempty"`
	ClientID        string          `json:"client_id,omitempty" form:"client_id" validate:"omitempty"`
	JurisdictionIDs []string        `json:"jurisdiction_ids,omitempty" form:"jurisdiction_ids" validate:"omitempty"`
	ExemptionStatus ExemptionStatus `json:"exemption_status,omitempty" form:"exemption_status" validate:"omitempty"`
}

// NewDefaultExemptionFilter creates a new ExemptionFilter with default values
func NewDefaultExemptionFilter() *ExemptionFilter {
	return &ExemptionFilter{
		QueryFilter: NewDefaultQueryFilter(),
	}
}

// NewNoLimitExemptionFilter creates a new ExemptionFilter with no pagination limits
func NewNoLimitExemptionFilter() *ExemptionFilter {
	return &ExemptionFilter{
		QueryFilter: NewNoLimitQueryFilter(),
	}
}

// Validate validates the ExemptionFilter
func (f ExemptionFilter) Validate() error {
	if f.QueryFilter != nil {
		if err := f.QueryFilter.Validate(); err != nil {
			return err
		}
	}

	if f.ExemptionStatus != "" {
		if err := f.ExemptionStatus.Validate(); err != nil {
			return err
		}
	}

	return nil
}
