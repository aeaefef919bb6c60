package assignments

import (
	"github.com/google/uuid"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/pagination"
)

// AssignInput carries the admin request that links a worker to a shift.
type AssignInput struct {
	ShiftID  uuid.UUID
	WorkerID uuid.UUID
	Role     string
}

// AssignmentFilters narrows assignment listings.
type AssignmentFilters struct {
	Status  *enums.AssignmentStatus
	ShiftID *uuid.UUID
}

// AssignmentRow is an assignment joined with its shift for listings.
type AssignmentRow struct {
	Assignment models.ShiftAssignment `json:"assignment"`
	Shift      models.Shift           `json:"shift"`
}

// AssignmentList is one page of assignments plus the next-page cursor.
type AssignmentList struct {
	Items  []AssignmentRow `json:"items"`
	Cursor string          `json:"cursor"`
}

// ListQuery is the resolved repository query after actor scoping.
type ListQuery struct {
	AgencyID *uuid.UUID
	WorkerID *uuid.UUID
	Limit    int
	Cursor   *pagination.Cursor
	Filters  AssignmentFilters
}

// ListCursor is the keyset position of the last row in a page.
type ListCursor = pagination.Cursor
