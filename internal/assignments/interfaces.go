package assignments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
)

// Repository defines persistence operations for shift assignments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, assignment *models.ShiftAssignment) (*models.ShiftAssignment, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ShiftAssignment, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ShiftAssignment, error)
	FindShift(ctx context.Context, shiftID uuid.UUID) (*models.Shift, error)
	FindShiftForUpdate(ctx context.Context, shiftID uuid.UUID) (*models.Shift, error)
	FindWorker(ctx context.Context, workerID uuid.UUID) (*models.User, error)
	FindAgencyAdminIDs(ctx context.Context, agencyID uuid.UUID) ([]uuid.UUID, error)
	CountActiveByShift(ctx context.Context, shiftID uuid.UUID) (int64, error)
	FindOverlappingActive(ctx context.Context, workerID uuid.UUID, start, end time.Time) (*models.ShiftAssignment, error)
	UpdateAssignment(ctx context.Context, id uuid.UUID, updates map[string]any) error
	UpdateShift(ctx context.Context, shiftID uuid.UUID, updates map[string]any) error
	List(ctx context.Context, query ListQuery) ([]AssignmentRow, *ListCursor, error)
}
