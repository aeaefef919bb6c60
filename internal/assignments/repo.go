package assignments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/pagination"
)

// activeStatuses are the states that hold a capacity slot.
var activeStatuses = []enums.AssignmentStatus{
	enums.AssignmentStatusPending,
	enums.AssignmentStatusAccepted,
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an assignments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, assignment *models.ShiftAssignment) (*models.ShiftAssignment, error) {
	if err := r.db.WithContext(ctx).Create(assignment).Error; err != nil {
		return nil, err
	}
	return assignment, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ShiftAssignment, error) {
	var assignment models.ShiftAssignment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// FindByIDForUpdate locks the assignment row for the transaction, serializing
// concurrent transitions on the same assignment.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ShiftAssignment, error) {
	var assignment models.ShiftAssignment
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&assignment).Error
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) FindShift(ctx context.Context, shiftID uuid.UUID) (*models.Shift, error) {
	var shift models.Shift
	err := r.db.WithContext(ctx).Where("id = ?", shiftID).First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

// FindShiftForUpdate locks the shift row for the transaction so capacity
// counting and counter updates serialize across contending writers.
func (r *repository) FindShiftForUpdate(ctx context.Context, shiftID uuid.UUID) (*models.Shift, error) {
	var shift models.Shift
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", shiftID).
		First(&shift).Error
	if err != nil {
		return nil, err
	}
	return &shift, nil
}

func (r *repository) FindWorker(ctx context.Context, workerID uuid.UUID) (*models.User, error) {
	var worker models.User
	err := r.db.WithContext(ctx).Where("id = ?", workerID).First(&worker).Error
	if err != nil {
		return nil, err
	}
	return &worker, nil
}

func (r *repository) FindAgencyAdminIDs(ctx context.Context, agencyID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("agency_id = ? AND is_active = ? AND role IN ?", agencyID, true, []enums.UserRole{
			enums.UserRoleAgencyOwner,
			enums.UserRoleAgencyManager,
		}).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) CountActiveByShift(ctx context.Context, shiftID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ShiftAssignment{}).
		Where("shift_id = ? AND status IN ?", shiftID, activeStatuses).
		Count(&count).Error
	return count, err
}

// FindOverlappingActive returns any pending or accepted assignment of the
// worker whose shift window overlaps [start, end), or nil when none exists.
func (r *repository) FindOverlappingActive(ctx context.Context, workerID uuid.UUID, start, end time.Time) (*models.ShiftAssignment, error) {
	var assignment models.ShiftAssignment
	err := r.db.WithContext(ctx).
		Joins("JOIN shifts ON shifts.id = shift_assignments.shift_id").
		Where("shift_assignments.worker_id = ?", workerID).
		Where("shift_assignments.status IN ?", activeStatuses).
		Where("shifts.start_time < ? AND shifts.end_time > ?", end, start).
		First(&assignment).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *repository) UpdateAssignment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ShiftAssignment{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) UpdateShift(ctx context.Context, shiftID uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Shift{}).
		Where("id = ?", shiftID).
		Updates(updates).Error
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]AssignmentRow, *ListCursor, error) {
	q := r.db.WithContext(ctx).Model(&models.ShiftAssignment{})
	if query.WorkerID != nil {
		q = q.Where("shift_assignments.worker_id = ?", *query.WorkerID)
	}
	if query.AgencyID != nil {
		q = q.Joins("JOIN shifts ON shifts.id = shift_assignments.shift_id").
			Where("shifts.agency_id = ?", *query.AgencyID)
	}
	if query.Filters.Status != nil {
		q = q.Where("shift_assignments.status = ?", *query.Filters.Status)
	}
	if query.Filters.ShiftID != nil {
		q = q.Where("shift_assignments.shift_id = ?", *query.Filters.ShiftID)
	}
	if query.Cursor != nil {
		q = q.Where(
			"(shift_assignments.created_at, shift_assignments.id) < (?, ?)",
			query.Cursor.CreatedAt, query.Cursor.ID,
		)
	}

	var assignments []models.ShiftAssignment
	err := q.Order("shift_assignments.created_at DESC, shift_assignments.id DESC").
		Limit(query.Limit).
		Find(&assignments).Error
	if err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	pageSize := query.Limit - 1
	if len(assignments) > pageSize {
		assignments = assignments[:pageSize]
		last := assignments[len(assignments)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	if len(assignments) == 0 {
		return nil, next, nil
	}

	shiftIDs := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		shiftIDs = append(shiftIDs, a.ShiftID)
	}
	var shifts []models.Shift
	if err := r.db.WithContext(ctx).Where("id IN ?", shiftIDs).Find(&shifts).Error; err != nil {
		return nil, nil, err
	}
	shiftByID := make(map[uuid.UUID]models.Shift, len(shifts))
	for _, s := range shifts {
		shiftByID[s.ID] = s
	}

	rows := make([]AssignmentRow, 0, len(assignments))
	for _, a := range assignments {
		rows = append(rows, AssignmentRow{Assignment: a, Shift: shiftByID[a.ShiftID]})
	}
	return rows, next, nil
}
