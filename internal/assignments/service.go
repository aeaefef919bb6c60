package assignments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shiftwiseapp/shiftwise-backend/internal/notifications"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/authz"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/db"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/metrics"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/pagination"
)

// activeAssignmentIndex is the partial unique index guarding one live
// assignment per (shift, worker).
const activeAssignmentIndex = "shift_assignments_shift_worker_active"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type dispatcher interface {
	Deliver(ctx context.Context, delivery notifications.Delivery)
}

// Service orchestrates the assignment state machine. Every transition runs
// inside a transaction that takes a row lock before re-reading current status
// (and, for Assign, the capacity count) so concurrent writers serialize and
// the loser fails cleanly instead of silently overwriting the winner.
type Service interface {
	Assign(ctx context.Context, actor authz.Actor, input AssignInput) (*models.ShiftAssignment, error)
	Accept(ctx context.Context, actor authz.Actor, assignmentID uuid.UUID) error
	Decline(ctx context.Context, actor authz.Actor, assignmentID uuid.UUID) error
	Cancel(ctx context.Context, actor authz.Actor, assignmentID uuid.UUID) error
	MarkNoShow(ctx context.Context, actor authz.Actor, assignmentID uuid.UUID) error
	List(ctx context.Context, actor authz.Actor, params pagination.Params, filters AssignmentFilters) (*AssignmentList, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	notify  dispatcher
	metrics *metrics.WorkflowMetrics
	nowFn   func() time.Time
}

// NewService wires assignment workflow dependencies. Metrics may be nil.
func NewService(repo Repository, tx txRunner, notify dispatcher, workflow *metrics.WorkflowMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		notify:  notify,
		metrics: workflow,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Assign(ctx context.Context, actor authz.Actor, input AssignInput) (*models.ShiftAssignment, error) {
	if input.ShiftID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shift id required")
	}
	if input.WorkerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "worker id required")
	}

	var assignment *models.ShiftAssignment
	var shift *models.Shift
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Lock the shift row so contending assigns serialize on the
		// capacity count instead of both reading the same value.
		loaded, err := repo.FindShiftForUpdate(ctx, input.ShiftID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "shift not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shift")
		}
		shift = loaded

		if !authz.Can(actor, authz.ActionAssignWorker, authz.Resource{AgencyID: shift.AgencyID}) {
			return pkgerrors.New(pkgerrors.CodePermissionDenied, "not allowed to assign workers for this agency")
		}
		if !shift.IsActive || shift.Status == enums.ShiftStatusCancelled || shift.Status == enums.ShiftStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "shift is not open for assignment")
		}

		worker, err := repo.FindWorker(ctx, input.WorkerID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "worker not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load worker")
		}
		if worker.AgencyID == nil || *worker.AgencyID != shift.AgencyID {
			return pkgerrors.New(pkgerrors.CodePermissionDenied, "worker does not belong to this agency")
		}
		if !worker.IsActive {
			return pkgerrors.New(pkgerrors.CodeValidation, "worker account is inactive")
		}

		active, err := repo.CountActiveByShift(ctx, shift.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active assignments")
		}
		if active >= int64(shift.Capacity) {
			return pkgerrors.New(pkgerrors.CodeCapacityExceeded, "shift has no remaining capacity")
		}

		overlap, err := repo.FindOverlappingActive(ctx, worker.ID, shift.StartTime, shift.EndTime)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check overlapping assignments")
		}
		if overlap != nil {
			return pkgerrors.New(pkgerrors.CodeSchedulingConflict, "worker already has an overlapping assignment")
		}

		role := input.Role
		if role == "" {
			role = shift.RequiredRole
		}
		assignment = &models.ShiftAssignment{
			ShiftID:  shift.ID,
			WorkerID: worker.ID,
			Role:     role,
			Status:   enums.AssignmentStatusPending,
		}
		if _, err := repo.Create(ctx, assignment); err != nil {
			if db.IsUniqueViolation(err, activeAssignmentIndex) {
				return pkgerrors.New(pkgerrors.CodeConflict, "worker is already assigned to this shift")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create assignment")
		}

		shiftUpdates := map[string]any{"assigned_count": active + 1}
		if active+1 >= int64(shift.Capacity) {
			shiftUpdates["status"] = enums.ShiftStatusFilled
		}
		if err := repo.UpdateShift(ctx, shift.ID, shiftUpdates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shift counters")
		}
		return nil
	})
	if err != nil {
		s.metrics.IncTransition("assign", "rejected")
		return nil, err
	}

	s.metrics.IncTransition("assign", "success")
	s.notify.Deliver(ctx, notifications.Delivery{
		RecipientID: input.WorkerID,
		AgencyID:    shift.AgencyID,
		Type:        enums.NotificationTypeShiftAssigned,
		Title:       "New shift assignment",
		Message:     fmt.Sprintf("You have been assigned to %q on %s.", shift.Name, shift.ShiftDate.Format(time.DateOnly)),
		Link:        notifications.AssignmentLink(assignment.ID),
	})
	return assignment, nil
}

func (s *service) Accept(ctx context.Context, actor authz.Actor, assignmentID uuid.UUID) error {
	now := s.nowFn()
	return s.transition(ctx, actor, assignmentID, transitionSpec{
		action:      "accept",
		authzAction: authz.ActionAcceptAssignment,
		from:        []enums.AssignmentStatus{enums.AssignmentStatusPending},
		to:          enums.AssignmentStatusAccepted,
		updates:     map[string]any{"accepted_at": now},
		notify: func(assignment *models.ShiftAssignment, shift *models.Shift) []notifications.Delivery {
			return s.adminDeliveries(ctx, shift, enums.NotificationTypeAssignmentAccepted,
				"Assignment accepted",
				fmt.Sprintf("A worker accepted %q on %s.", shift.Name, shift.ShiftDate.Format(time.DateOnly)),
				notifications.AssignmentLink(assignment.ID))
		},
	})
}

func (s *service) Decline(ctx context.Context, actor authz.Actor, assignmentID uuid.UUID) error {
	return s.transition(ctx, actor, assignmentID, transitionSpec{
		action:       "decline",
		authzAction:  authz.ActionDeclineAssignment,
		from:         []enums.AssignmentStatus{enums.AssignmentStatusPending},
		to:           enums.AssignmentStatusDeclined,
		releasesSlot: true,
		notify: func(assignment *models.ShiftAssignment, shift *models.Shift) []notifications.Delivery {
			return s.adminDeliveries(ctx, shift, enums.NotificationTypeAssignmentDeclined,
				"Assignment declined",
				fmt.Sprintf("A worker declined %q on %s.", shift.Name, shift.ShiftDate.Format(time.DateOnly)),
				notifications.AssignmentLink(assignment.ID))
		},
	})
}

func (s *service) Cancel(ctx context.Context, actor authz.Actor, assignmentID uuid.UUID) error {
	now := s.nowFn()
	return s.transition(ctx, actor, assignmentID, transitionSpec{
		action:      "cancel",
		authzAction: authz.ActionCancelAssignment,
		from: []enums.AssignmentStatus{
			enums.AssignmentStatusPending,
			enums.AssignmentStatusAccepted,
		},
		to:           enums.AssignmentStatusCancelled,
		updates:      map[string]any{"cancelled_at": now},
		releasesSlot: true,
		notify: func(assignment *models.ShiftAssignment, shift *models.Shift) []notifications.Delivery {
			return []notifications.Delivery{{
				RecipientID: assignment.WorkerID,
				AgencyID:    shift.AgencyID,
				Type:        enums.NotificationTypeAssignmentCancelled,
				Title:       "Assignment cancelled",
				Message:     fmt.Sprintf("Your assignment to %q on %s was cancelled.", shift.Name, shift.ShiftDate.Format(time.DateOnly)),
				Link:        notifications.AssignmentLink(assignment.ID),
			}}
		},
	})
}

func (s *service) MarkNoShow(ctx context.Context, actor authz.Actor, assignmentID uuid.UUID) error {
	noShow := enums.AttendanceStatusNoShow
	return s.transition(ctx, actor, assignmentID, transitionSpec{
		action:      "no_show",
		authzAction: authz.ActionMarkNoShow,
		from:        []enums.AssignmentStatus{enums.AssignmentStatusAccepted},
		to:          enums.AssignmentStatusNoShow,
		updates:     map[string]any{"attendance_status": noShow},
		guard: func(assignment *models.ShiftAssignment, shift *models.Shift) error {
			if s.nowFn().Before(shift.EndTime) {
				return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "shift has not ended yet")
			}
			return nil
		},
		notify: func(assignment *models.ShiftAssignment, shift *models.Shift) []notifications.Delivery {
			return []notifications.Delivery{{
				RecipientID: assignment.WorkerID,
				AgencyID:    shift.AgencyID,
				Type:        enums.NotificationTypeNoShowRecorded,
				Title:       "Marked as no-show",
				Message:     fmt.Sprintf("You were marked as a no-show for %q on %s.", shift.Name, shift.ShiftDate.Format(time.DateOnly)),
				Link:        notifications.AssignmentLink(assignment.ID),
			}}
		},
	})
}

func (s *service) List(ctx context.Context, actor authz.Actor, params pagination.Params, filters AssignmentFilters) (*AssignmentList, error) {
	query := ListQuery{
		Limit:   pagination.LimitWithBuffer(params.Limit),
		Filters: filters,
	}
	switch {
	case actor.Role == enums.UserRoleSuperuser:
		// Unscoped.
	case actor.Role.IsAgencyAdmin():
		if actor.AgencyID == nil {
			return nil, pkgerrors.New(pkgerrors.CodePermissionDenied, "agency context required")
		}
		query.AgencyID = actor.AgencyID
	default:
		workerID := actor.UserID
		query.WorkerID = &workerID
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
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list assignments")
	}
	cursor := ""
	if next != nil {
		cursor = pagination.EncodeCursor(*next)
	}
	return &AssignmentList{Items: rows, Cursor: cursor}, nil
}

// transitionSpec describes one edge of the assignment state machine.
type transitionSpec struct {
	action       string
	authzAction  authz.Action
	from         []enums.AssignmentStatus
	to           enums.AssignmentStatus
	updates      map[string]any
	releasesSlot bool
	guard        func(assignment *models.ShiftAssignment, shift *models.Shift) error
	notify       func(assignment *models.ShiftAssignment, shift *models.Shift) []notifications.Delivery
}

func (s *service) transition(ctx context.Context, actor authz.Actor, assignmentID uuid.UUID, spec transitionSpec) error {
	if assignmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}

	var assignment *models.ShiftAssignment
	var shift *models.Shift
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Assignment first, then shift: every transition takes row locks
		// in this order so contending writers queue instead of deadlocking.
		loaded, err := repo.FindByIDForUpdate(ctx, assignmentID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
		}
		assignment = loaded

		shift, err = repo.FindShiftForUpdate(ctx, assignment.ShiftID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shift")
		}

		workerID := assignment.WorkerID
		if !authz.Can(actor, spec.authzAction, authz.Resource{AgencyID: shift.AgencyID, WorkerID: &workerID}) {
			return pkgerrors.New(pkgerrors.CodePermissionDenied, "not allowed to perform this transition")
		}
		if !statusIn(assignment.Status, spec.from) {
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
				fmt.Sprintf("cannot %s an assignment in state %s", spec.action, assignment.Status))
		}
		if spec.guard != nil {
			if err := spec.guard(assignment, shift); err != nil {
				return err
			}
		}

		updates := map[string]any{"status": spec.to}
		for column, value := range spec.updates {
			updates[column] = value
		}
		if err := repo.UpdateAssignment(ctx, assignment.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update assignment")
		}
		assignment.Status = spec.to

		if spec.releasesSlot {
			active, err := repo.CountActiveByShift(ctx, shift.ID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recount active assignments")
			}
			shiftUpdates := map[string]any{"assigned_count": active}
			if shift.Status == enums.ShiftStatusFilled && active < int64(shift.Capacity) {
				shiftUpdates["status"] = enums.ShiftStatusOpen
			}
			if err := repo.UpdateShift(ctx, shift.ID, shiftUpdates); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update shift counters")
			}
		}
		return nil
	})
	if err != nil {
		s.metrics.IncTransition(spec.action, "rejected")
		return err
	}

	s.metrics.IncTransition(spec.action, "success")
	if spec.notify != nil {
		for _, delivery := range spec.notify(assignment, shift) {
			s.notify.Deliver(ctx, delivery)
		}
	}
	return nil
}

// adminDeliveries fans one message out to every active admin of the agency.
func (s *service) adminDeliveries(ctx context.Context, shift *models.Shift, kind enums.NotificationType, title, message string, link *string) []notifications.Delivery {
	adminIDs, err := s.repo.FindAgencyAdminIDs(ctx, shift.AgencyID)
	if err != nil {
		return nil
	}
	deliveries := make([]notifications.Delivery, 0, len(adminIDs))
	for _, id := range adminIDs {
		deliveries = append(deliveries, notifications.Delivery{
			RecipientID: id,
			AgencyID:    shift.AgencyID,
			Type:        kind,
			Title:       title,
			Message:     message,
			Link:        link,
		})
	}
	return deliveries
}

func statusIn(status enums.AssignmentStatus, allowed []enums.AssignmentStatus) bool {
	for _, candidate := range allowed {
		if status == candidate {
			return true
		}
	}
	return false
}
