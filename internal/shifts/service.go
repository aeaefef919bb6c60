package shifts

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shiftwiseapp/shiftwise-backend/internal/notifications"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/authz"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/pagination"
)

const maxShiftDuration = 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type dispatcher interface {
	Deliver(ctx context.Context, delivery notifications.Delivery)
}

// Service defines shift lifecycle operations.
type Service interface {
	Create(ctx context.Context, actor authz.Actor, input CreateShiftInput) (*models.Shift, error)
	Update(ctx context.Context, actor authz.Actor, shiftID uuid.UUID, input UpdateShiftInput) (*models.Shift, error)
	Deactivate(ctx context.Context, actor authz.Actor, shiftID uuid.UUID) error
	Get(ctx context.Context, actor authz.Actor, shiftID uuid.UUID) (*ShiftDetail, error)
	List(ctx context.Context, actor authz.Actor, params pagination.Params, filters ShiftFilters) (*ShiftList, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	notify dispatcher
	nowFn  func() time.Time
}

// NewService wires shift dependencies.
func NewService(repo Repository, tx txRunner, notify dispatcher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("shifts repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		notify: notify,
		nowFn:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, actor authz.Actor, input CreateShiftInput) (*models.Shift, error) {
	if input.AgencyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agency id required")
	}
	if !authz.Can(actor, authz.ActionCreateShift, authz.Resource{AgencyID: input.AgencyID}) {
		return nil, pkgerrors.New(pkgerrors.CodePermissionDenied, "not allowed to create shifts for this agency")
	}
	if err := validateShiftWindow(input.ShiftDate, input.StartTime, input.EndTime, input.IsOvernight, s.nowFn()); err != nil {
		return nil, err
	}
	if input.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shift name required")
	}
	if input.Capacity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "capacity must be at least 1")
	}
	if input.ShiftType != "" && !input.ShiftType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown shift type")
	}
	if input.HourlyRate.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "hourly rate cannot be negative")
	}

	shiftType := input.ShiftType
	if shiftType == "" {
		shiftType = enums.ShiftTypeRegular
	}
	requiredRole := input.RequiredRole
	if requiredRole == "" {
		requiredRole = "Staff"
	}

	shift := &models.Shift{
		AgencyID:     input.AgencyID,
		Name:         input.Name,
		ShiftDate:    input.ShiftDate,
		StartTime:    input.StartTime,
		EndTime:      input.EndTime,
		EndDate:      input.EndDate,
		IsOvernight:  input.IsOvernight,
		ShiftType:    shiftType,
		Status:       enums.ShiftStatusOpen,
		RequiredRole: requiredRole,
		Capacity:     input.Capacity,
		HourlyRate:   input.HourlyRate,
		Address:      input.Address,
		City:         input.City,
		Postcode:     input.Postcode,
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		Notes:        input.Notes,
		IsActive:     true,
	}

	created, err := s.repo.Create(ctx, shift)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create shift")
	}
	return created, nil
}

func (s *service) Update(ctx context.Context, actor authz.Actor, shiftID uuid.UUID, input UpdateShiftInput) (*models.Shift, error) {
	if shiftID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shift id required")
	}

	var updated *models.Shift
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		shift, err := repo.FindByID(ctx, shiftID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "shift not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shift")
		}
		if !authz.Can(actor, authz.ActionEditShift, authz.Resource{AgencyID: shift.AgencyID}) {
			return pkgerrors.New(pkgerrors.CodePermissionDenied, "not allowed to edit this shift")
		}
		if shift.Status == enums.ShiftStatusCompleted || shift.Status == enums.ShiftStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "shift can no longer be edited")
		}

		updates := buildShiftUpdates(shift, input)
		if err := validateShiftWindow(shift.ShiftDate, shift.StartTime, shift.EndTime, shift.IsOvernight, shift.CreatedAt); err != nil {
			return err
		}
		if shift.Capacity < 1 {
			return pkgerrors.New(pkgerrors.CodeValidation, "capacity must be at least 1")
		}
		if input.Capacity != nil {
			active, err := repo.CountActiveAssignments(ctx, shift.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count assignments")
			}
			if int64(shift.Capacity) < active {
				return pkgerrors.New(pkgerrors.CodeCapacityExceeded, "capacity below current assignment count")
			}
		}

		if len(updates) == 0 {
			updated = shift
			return nil
		}
		if err := repo.Update(ctx, shift.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shift")
		}
		updated = shift
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Deactivate(ctx context.Context, actor authz.Actor, shiftID uuid.UUID) error {
	if shiftID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "shift id required")
	}

	var shift *models.Shift
	var cancelled []models.ShiftAssignment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		loaded, err := repo.FindByID(ctx, shiftID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "shift not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shift")
		}
		shift = loaded
		if !authz.Can(actor, authz.ActionCancelShift, authz.Resource{AgencyID: shift.AgencyID}) {
			return pkgerrors.New(pkgerrors.CodePermissionDenied, "not allowed to cancel this shift")
		}
		if shift.Status == enums.ShiftStatusCancelled {
			return nil
		}
		if shift.Status == enums.ShiftStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "completed shift cannot be cancelled")
		}

		cancelled, err = repo.CancelOpenAssignments(ctx, shift.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel open assignments")
		}
		updates := map[string]any{
			"status":         enums.ShiftStatusCancelled,
			"is_active":      false,
			"assigned_count": 0,
		}
		if err := repo.Update(ctx, shift.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "deactivate shift")
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, assignment := range cancelled {
		s.notify.Deliver(ctx, notifications.Delivery{
			RecipientID: assignment.WorkerID,
			AgencyID:    shift.AgencyID,
			Type:        enums.NotificationTypeShiftCancelled,
			Title:       "Shift cancelled",
			Message:     fmt.Sprintf("The shift %q on %s has been cancelled.", shift.Name, shift.ShiftDate.Format(time.DateOnly)),
			Link:        notifications.ShiftLink(shift.ID),
		})
	}
	return nil
}

func (s *service) Get(ctx context.Context, actor authz.Actor, shiftID uuid.UUID) (*ShiftDetail, error) {
	if shiftID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shift id required")
	}
	shift, err := s.repo.FindByID(ctx, shiftID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "shift not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shift")
	}
	if !authz.Can(actor, authz.ActionViewShift, authz.Resource{AgencyID: shift.AgencyID}) {
		return nil, pkgerrors.New(pkgerrors.CodePermissionDenied, "not allowed to view this shift")
	}

	active, err := s.repo.CountActiveAssignments(ctx, shift.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count assignments")
	}
	remaining := shift.Capacity - int(active)
	if remaining < 0 {
		remaining = 0
	}
	return &ShiftDetail{
		Shift:             *shift,
		ActiveAssignments: int(active),
		RemainingCapacity: remaining,
	}, nil
}

func (s *service) List(ctx context.Context, actor authz.Actor, params pagination.Params, filters ShiftFilters) (*ShiftList, error) {
	if actor.AgencyID == nil && actor.Role != enums.UserRoleSuperuser {
		return nil, pkgerrors.New(pkgerrors.CodePermissionDenied, "agency context required")
	}
	agencyID := uuid.Nil
	if actor.AgencyID != nil {
		agencyID = *actor.AgencyID
	}
	if agencyID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "agency id required")
	}

	query := listShiftsParams{
		AgencyID: agencyID,
		Limit:    pagination.LimitWithBuffer(params.Limit),
		Filters:  filters,
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		query.Cursor = cursor
	}

	rows, next, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list shifts")
	}

	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &ShiftList{Items: rows, Cursor: cursor}, nil
}

// buildShiftUpdates applies the input onto the loaded shift and returns the
// column updates to persist.
func buildShiftUpdates(shift *models.Shift, input UpdateShiftInput) map[string]any {
	updates := map[string]any{}
	if input.Name != nil {
		shift.Name = *input.Name
		updates["name"] = *input.Name
	}
	if input.ShiftDate != nil {
		shift.ShiftDate = *input.ShiftDate
		updates["shift_date"] = *input.ShiftDate
	}
	if input.StartTime != nil {
		shift.StartTime = *input.StartTime
		updates["start_time"] = *input.StartTime
	}
	if input.EndTime != nil {
		shift.EndTime = *input.EndTime
		updates["end_time"] = *input.EndTime
	}
	if input.EndDate != nil {
		shift.EndDate = input.EndDate
		updates["end_date"] = *input.EndDate
	}
	if input.IsOvernight != nil {
		shift.IsOvernight = *input.IsOvernight
		updates["is_overnight"] = *input.IsOvernight
	}
	if input.ShiftType != nil {
		shift.ShiftType = *input.ShiftType
		updates["shift_type"] = *input.ShiftType
	}
	if input.RequiredRole != nil {
		shift.RequiredRole = *input.RequiredRole
		updates["required_role"] = *input.RequiredRole
	}
	if input.Capacity != nil {
		shift.Capacity = *input.Capacity
		updates["capacity"] = *input.Capacity
	}
	if input.HourlyRate != nil {
		shift.HourlyRate = *input.HourlyRate
		updates["hourly_rate"] = *input.HourlyRate
	}
	if input.Address != nil {
		shift.Address = input.Address
		updates["address"] = *input.Address
	}
	if input.City != nil {
		shift.City = input.City
		updates["city"] = *input.City
	}
	if input.Postcode != nil {
		shift.Postcode = input.Postcode
		updates["postcode"] = *input.Postcode
	}
	if input.Latitude != nil {
		shift.Latitude = input.Latitude
		updates["latitude"] = *input.Latitude
	}
	if input.Longitude != nil {
		shift.Longitude = input.Longitude
		updates["longitude"] = *input.Longitude
	}
	if input.Notes != nil {
		shift.Notes = input.Notes
		updates["notes"] = *input.Notes
	}
	return updates
}

// validateShiftWindow enforces the scheduling invariants: shifts may not be
// created in the past, non-overnight shifts end after they start, and no
// shift runs longer than 24 hours.
func validateShiftWindow(shiftDate, start, end time.Time, overnight bool, now time.Time) error {
	if shiftDate.IsZero() || start.IsZero() || end.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shift date, start time, and end time are required")
	}
	today := now.Truncate(24 * time.Hour)
	if shiftDate.Before(today) {
		return pkgerrors.New(pkgerrors.CodeValidation, "shift date cannot be in the past")
	}
	if !overnight && !end.After(start) {
		return pkgerrors.New(pkgerrors.CodeValidation, "end time must be after start time")
	}
	if end.After(start) && end.Sub(start) > maxShiftDuration {
		return pkgerrors.New(pkgerrors.CodeValidation, "shift cannot run longer than 24 hours")
	}
	return nil
}
