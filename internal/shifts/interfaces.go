package shifts

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
)

// Repository defines persistence operations for shifts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, shift *models.Shift) (*models.Shift, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Shift, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	List(ctx context.Context, query listShiftsParams) ([]models.Shift, *listCursor, error)
	CountActiveAssignments(ctx context.Context, shiftID uuid.UUID) (int64, error)
	CancelOpenAssignments(ctx context.Context, shiftID uuid.UUID) ([]models.ShiftAssignment, error)
}
