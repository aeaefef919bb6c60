package completions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shiftwiseapp/shiftwise-backend/internal/assignments"
	"github.com/shiftwiseapp/shiftwise-backend/internal/notifications"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/authz"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/config"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/geo"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/logger"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/metrics"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/signature"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type dispatcher interface {
	Deliver(ctx context.Context, delivery notifications.Delivery)
}

type signatureStore interface {
	Upload(ctx context.Context, objectName, contentType string, data []byte) (string, error)
}

// CompleteInput is a worker's completion submission.
type CompleteInput struct {
	AssignmentID     uuid.UUID
	SignatureDataURL string
	Latitude         float64
	Longitude        float64
	ConfirmedAddress string
}

// Service captures completion evidence and closes out an assignment.
type Service interface {
	Complete(ctx context.Context, actor authz.Actor, input CompleteInput) error
}

type service struct {
	repo    assignments.Repository
	tx      txRunner
	notify  dispatcher
	store   signatureStore
	geoCfg  config.GeoConfig
	sigCfg  config.SignatureConfig
	metrics *metrics.WorkflowMetrics
	logg    *logger.Logger
	nowFn   func() time.Time
}

// NewService wires completion capture dependencies. Metrics may be nil.
func NewService(repo assignments.Repository, tx txRunner, notify dispatcher, store signatureStore, geoCfg config.GeoConfig, sigCfg config.SignatureConfig, workflow *metrics.WorkflowMetrics, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("assignments repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if notify == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	if store == nil {
		return nil, fmt.Errorf("signature store required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:    repo,
		tx:      tx,
		notify:  notify,
		store:   store,
		geoCfg:  geoCfg,
		sigCfg:  sigCfg,
		metrics: workflow,
		logg:    logg,
		nowFn:   func() time.Time { return time.Now().UTC() },
	}, nil
}

// Complete validates the submission, uploads the signature, then transitions
// the assignment to completed. The external upload happens before the
// transaction; the transaction re-reads status so a duplicate submission
// loses with an invalid-transition error instead of a second completion.
func (s *service) Complete(ctx context.Context, actor authz.Actor, input CompleteInput) error {
	if input.AssignmentID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "assignment id required")
	}

	assignment, err := s.repo.FindByID(ctx, input.AssignmentID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "assignment not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load assignment")
	}
	shift, err := s.repo.FindShift(ctx, assignment.ShiftID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shift")
	}

	workerID := assignment.WorkerID
	if !authz.Can(actor, authz.ActionCompleteShift, authz.Resource{AgencyID: shift.AgencyID, WorkerID: &workerID}) {
		return pkgerrors.New(pkgerrors.CodePermissionDenied, "only the assigned worker may complete this shift")
	}
	if assignment.Status != enums.AssignmentStatusAccepted {
		s.metrics.IncTransition("complete", "rejected")
		return pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
			fmt.Sprintf("cannot complete an assignment in state %s", assignment.Status))
	}

	decoded, err := signature.Decode(input.SignatureDataURL, s.sigCfg.MaxBytes)
	if err != nil {
		s.metrics.IncTransition("complete", "rejected")
		return err
	}

	if err := s.checkProximity(ctx, actor, shift, input); err != nil {
		s.metrics.IncTransition("complete", "rejected")
		return err
	}

	objectName := fmt.Sprintf("signatures/%s/%s%s", shift.AgencyID, assignment.ID, extensionFor(decoded.ContentType))
	objectRef, err := s.store.Upload(ctx, objectName, decoded.ContentType, decoded.Data)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store signature")
	}

	now := s.nowFn()
	attended := enums.AttendanceStatusAttended
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByIDForUpdate(ctx, assignment.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload assignment")
		}
		if current.Status != enums.AssignmentStatusAccepted {
			return pkgerrors.New(pkgerrors.CodeInvalidStateTransition,
				fmt.Sprintf("cannot complete an assignment in state %s", current.Status))
		}
		return repo.UpdateAssignment(ctx, assignment.ID, map[string]any{
			"status":               enums.AssignmentStatusCompleted,
			"attendance_status":    attended,
			"completion_latitude":  input.Latitude,
			"completion_longitude": input.Longitude,
			"confirmed_address":    input.ConfirmedAddress,
			"signature_object":     objectRef,
			"completed_at":         now,
		})
	})
	if err != nil {
		s.metrics.IncTransition("complete", "rejected")
		return err
	}

	s.metrics.IncTransition("complete", "success")
	adminIDs, lookupErr := s.repo.FindAgencyAdminIDs(ctx, shift.AgencyID)
	if lookupErr != nil {
		s.logg.Error(ctx, "agency admin lookup failed", lookupErr)
		return nil
	}
	for _, adminID := range adminIDs {
		s.notify.Deliver(ctx, notifications.Delivery{
			RecipientID: adminID,
			AgencyID:    shift.AgencyID,
			Type:        enums.NotificationTypeShiftCompleted,
			Title:       "Shift completed",
			Message:     fmt.Sprintf("A worker completed %q on %s.", shift.Name, shift.ShiftDate.Format(time.DateOnly)),
			Link:        notifications.AssignmentLink(assignment.ID),
		})
	}
	return nil
}

// checkProximity enforces the distance threshold between the reported
// coordinates and the shift location. Shifts without registered coordinates
// skip the check. A superuser bypasses a mismatch only when the override
// policy flag is on.
func (s *service) checkProximity(ctx context.Context, actor authz.Actor, shift *models.Shift, input CompleteInput) error {
	reported := geo.Point{Latitude: input.Latitude, Longitude: input.Longitude}
	if err := reported.Validate(); err != nil {
		return err
	}
	if shift.Latitude == nil || shift.Longitude == nil {
		s.logg.Warn(ctx, "shift has no registered location, skipping proximity check")
		return nil
	}

	registered := geo.Point{Latitude: *shift.Latitude, Longitude: *shift.Longitude}
	distance := geo.DistanceMeters(reported, registered)
	if distance <= s.geoCfg.ProximityThresholdMeters {
		return nil
	}
	if s.geoCfg.AllowAdminOverride && actor.Role == enums.UserRoleSuperuser {
		s.logg.Warn(s.logg.WithField(ctx, "distance_meters", distance), "proximity mismatch overridden")
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeLocationMismatch,
		fmt.Sprintf("reported location is %.0fm from the shift location (limit %.0fm)", distance, s.geoCfg.ProximityThresholdMeters))
}

func extensionFor(contentType string) string {
	if contentType == "image/jpeg" {
		return ".jpg"
	}
	return ".png"
}
