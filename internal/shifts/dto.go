package shifts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/pagination"
)

// CreateShiftInput carries the fields an agency admin supplies when
// publishing a shift.
type CreateShiftInput struct {
	AgencyID     uuid.UUID
	Name         string
	ShiftDate    time.Time
	StartTime    time.Time
	EndTime      time.Time
	EndDate      *time.Time
	IsOvernight  bool
	ShiftType    enums.ShiftType
	RequiredRole string
	Capacity     int
	HourlyRate   decimal.Decimal
	Address      *string
	City         *string
	Postcode     *string
	Latitude     *float64
	Longitude    *float64
	Notes        *string
}

// UpdateShiftInput holds optional field updates; nil means unchanged.
type UpdateShiftInput struct {
	Name         *string
	ShiftDate    *time.Time
	StartTime    *time.Time
	EndTime      *time.Time
	EndDate      *time.Time
	IsOvernight  *bool
	ShiftType    *enums.ShiftType
	RequiredRole *string
	Capacity     *int
	HourlyRate   *decimal.Decimal
	Address      *string
	City         *string
	Postcode     *string
	Latitude     *float64
	Longitude    *float64
	Notes        *string
}

// ShiftFilters narrows shift listings.
type ShiftFilters struct {
	Status     *enums.ShiftStatus
	ShiftType  *enums.ShiftType
	FromDate   *time.Time
	ToDate     *time.Time
	ActiveOnly bool
}

// ShiftList is one page of shifts plus the cursor for the next page.
type ShiftList struct {
	Items  []models.Shift `json:"items"`
	Cursor string         `json:"cursor"`
}

// ShiftDetail augments a shift with its live assignment count.
type ShiftDetail struct {
	Shift             models.Shift `json:"shift"`
	ActiveAssignments int          `json:"active_assignments"`
	RemainingCapacity int          `json:"remaining_capacity"`
}

type listShiftsParams struct {
	AgencyID uuid.UUID
	Limit    int
	Cursor   *pagination.Cursor
	Filters  ShiftFilters
}

type listCursor = pagination.Cursor
