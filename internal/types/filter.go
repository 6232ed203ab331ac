package types

import (
	"time"

	"github.com/samber/lo"

	ierr "github.com/voxbill/voxbill/internal/errors"
)

const (
	OrderDesc = "desc"
	OrderAsc  = "asc"
)

// BaseFilter defines common filtering capabilities
type BaseFilter interface {
	GetLimit() int
	GetOffset() int
	GetStatus() Status
	GetSort() string
	GetOrder() string
	Validate() error
	IsUnlimited() bool
}

// QueryFilter represents a generic query filter with optional fields
type QueryFilter struct {
	Limit  *int    `json:"limit,omitempty" form:"limit" validate:"omitempty,min=1,max=1000"`
	Offset *int    `json:"offset,omitempty" form:"offset" validate:"omitempty,min=0"`
	Status *Status `json:"status,omitempty" form:"status"`
	Sort   *string `json:"sort,omitempty" form:"sort"`
	Order  *string `json:"order,omitempty" form:"order" validate:"omitempty,oneof=asc desc"`
}

// NewDefaultQueryFilter defines default values for query filters
func NewDefaultQueryFilter() *QueryFilter {
	return &QueryFilter{
		Limit:  lo.ToPtr(50),
		Offset: lo.ToPtr(0),
		Status: lo.ToPtr(StatusPublished),
		Sort:   lo.ToPtr("created_at"),
		Order:  lo.ToPtr("desc"),
	}
}

// NewNoLimitQueryFilter returns a filter with no pagination limits
func NewNoLimitQueryFilter() *QueryFilter {
	return &QueryFilter{
		Limit:  nil,
		Offset: lo.ToPtr(0),
		Status: lo.ToPtr(StatusPublished),
		Sort:   lo.ToPtr("created_at"),
		Order:  lo.ToPtr("desc"),
	}
}

// IsUnlimited returns true if this is an unlimited query
func (f QueryFilter) IsUnlimited() bool {
	return f.Limit == nil
}

// GetLimit returns the limit value or default if not set
func (f QueryFilter) GetLimit() int {
	if f.IsUnlimited() {
		return 0
	}
	return *f.Limit
}

// GetOffset returns the offset value or default if not set
func (f QueryFilter) GetOffset() int {
	if f.Offset == nil {
		return *NewDefaultQueryFilter().Offset
	}
	return *f.Offset
}

// GetStatus returns the status value or default if not set
func (f QueryFilter) GetStatus() Status {
	if f.Status == nil {
		return *NewDefaultQueryFilter().Status
	}
	return *f.Status
}

// GetSort returns the sort value or default if not set
func (f QueryFilter) GetSort() string {
	if f.Sort == nil {
		return *NewDefaultQueryFilter().Sort
	}
	return *f.Sort
}

// GetOrder returns the order value or default if not set
func (f QueryFilter) GetOrder() string {
	if f.Order == nil {
		return *NewDefaultQueryFilter().Order
	}
	return *f.Order
}

// Validate validates the query filter
func (f QueryFilter) Validate() error {
	return nil
}

// TimeRangeFilter adds time range filtering capabilities
type TimeRangeFilter struct {
	StartTime *time.Time `json:"start_time,omitempty" form:"start_time"`
	EndTime   *time.Time `json:"end_time,omitempty" form:"end_time"`
}

// Validate validates the time range filter
func (f TimeRangeFilter) Validate() error {
	if f.StartTime != nil && f.EndTime != nil && f.StartTime.After(*f.EndTime) {
		return ierr.NewError("start_time must be before end_time").
			WithHint("Start time must be before end time").
			Mark(ierr.ErrValidation)
	}
	return nil
}
