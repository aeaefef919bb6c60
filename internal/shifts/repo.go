package shifts

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a shifts repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, shift *models.Shift) (*models.Shift, error) {
	if err := r.db.WithContext(ctx).Create(shift).Error; err != nil {
		return nil, err
	}
	return shift, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Shift, error) {
	var shift models.Shift
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Shift{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) List(ctx context.Context, query listShiftsParams) ([]models.Shift, *listCursor, error) {
	q := r.db.WithContext(ctx).
		Model(&models.Shift{}).
		Where("agency_id = ?", query.AgencyID)

	if query.Filters.Status != nil {
		q = q.Where("status = ?", *query.Filters.Status)
	}
	if query.Filters.ShiftType != nil {
		q = q.Where("shift_type = ?", *query.Filters.ShiftType)
	}
	if query.Filters.FromDate != nil {
		q = q.Where("shift_date >= ?", query.Filters.FromDate.Format(time.DateOnly))
	}
	if query.Filters.ToDate != nil {
		q = q.Where("shift_date <= ?", query.Filters.ToDate.Format(time.DateOnly))
	}
	if query.Filters.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	if query.Cursor != nil {
		q = q.Where(
			"(created_at, id) < (?, ?)",
			query.Cursor.CreatedAt, query.Cursor.ID,
		)
	}

	var rows []models.Shift
	err := q.Order("created_at DESC, id DESC").
		Limit(query.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, nil, err
	}

	pageSize := query.Limit - 1
	if len(rows) <= pageSize {
		return rows, nil, nil
	}
	rows = rows[:pageSize]
	last := rows[len(rows)-1]
	return rows, &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}, nil
}

func (r *repository) CountActiveAssignments(ctx context.Context, shiftID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ShiftAssignment{}).
		Where("shift_id = ? AND status NOT IN ?", shiftID, []enums.AssignmentStatus{
			enums.AssignmentStatusDeclined,
			enums.AssignmentStatusCancelled,
			enums.AssignmentStatusNoShow,
		}).
		Count(&count).Error
	return count, err
}

// CancelOpenAssignments cancels every pending or accepted assignment on the
// shift and returns the affected rows so callers can notify the workers.
func (r *repository) CancelOpenAssignments(ctx context.Context, shiftID uuid.UUID) ([]models.ShiftAssignment, error) {
	var open []models.ShiftAssignment
	err := r.db.WithContext(ctx).
		Where("shift_id = ? AND status IN ?", shiftID, []enums.AssignmentStatus{
			enums.AssignmentStatusPending,
			enums.AssignmentStatusAccepted,
		}).
		Find(&open).Error
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	ids := make([]uuid.UUID, 0, len(open))
	for _, a := range open {
		ids = append(ids, a.ID)
	}
	err = r.db.WithContext(ctx).
		Model(&models.ShiftAssignment{}).
		Where("id IN ?", ids).
		Updates(map[string]any{
			"status":       enums.AssignmentStatusCancelled,
			"cancelled_at": now,
		}).Error
	if err != nil {
		return nil, err
	}
	return open, nil
}
