package completions

import (
	"bytes"
	"context"
	"encoding/base64"
	"testing"
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
	"github.com/shiftwiseapp/shiftwise-backend/pkg/logger"
)

type stubCompletionsRepo struct {
	assignment        *models.ShiftAssignment
	shift             *models.Shift
	adminIDs          []uuid.UUID
	assignmentUpdates map[string]any

	// When set, the locked re-read inside the transaction returns this row
	// instead of the stubbed assignment.
	lockedAssignment *models.ShiftAssignment
}

func (s *stubCompletionsRepo) WithTx(tx *gorm.DB) assignments.Repository {
	return s
}

func (s *stubCompletionsRepo) Create(ctx context.Context, assignment *models.ShiftAssignment) (*models.ShiftAssignment, error) {
	panic("not implemented")
}

func (s *stubCompletionsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ShiftAssignment, error) {
	if s.assignment == nil || s.assignment.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *s.assignment
	return &copied, nil
}

func (s *stubCompletionsRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.ShiftAssignment, error) {
	if s.lockedAssignment != nil {
		copied := *s.lockedAssignment
		return &copied, nil
	}
	return s.FindByID(ctx, id)
}

func (s *stubCompletionsRepo) FindShift(ctx context.Context, shiftID uuid.UUID) (*models.Shift, error) {
	if s.shift == nil || s.shift.ID != shiftID {
		return nil, gorm.ErrRecordNotFound
	}
	return s.shift, nil
}

func (s *stubCompletionsRepo) FindShiftForUpdate(ctx context.Context, shiftID uuid.UUID) (*models.Shift, error) {
	return s.FindShift(ctx, shiftID)
}

func (s *stubCompletionsRepo) FindWorker(ctx context.Context, workerID uuid.UUID) (*models.User, error) {
	panic("not implemented")
}

func (s *stubCompletionsRepo) FindAgencyAdminIDs(ctx context.Context, agencyID uuid.UUID) ([]uuid.UUID, error) {
	return s.adminIDs, nil
}

func (s *stubCompletionsRepo) CountActiveByShift(ctx context.Context, shiftID uuid.UUID) (int64, error) {
	return 0, nil
}

func (s *stubCompletionsRepo) FindOverlappingActive(ctx context.Context, workerID uuid.UUID, start, end time.Time) (*models.ShiftAssignment, error) {
	return nil, nil
}

func (s *stubCompletionsRepo) UpdateAssignment(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.assignmentUpdates = updates
	if s.assignment != nil && s.assignment.ID == id {
		if status, ok := updates["status"].(enums.AssignmentStatus); ok {
			s.assignment.Status = status
		}
	}
	return nil
}

func (s *stubCompletionsRepo) UpdateShift(ctx context.Context, shiftID uuid.UUID, updates map[string]any) error {
	return nil
}

func (s *stubCompletionsRepo) List(ctx context.Context, query assignments.ListQuery) ([]assignments.AssignmentRow, *assignments.ListCursor, error) {
	panic("not implemented")
}

type stubSignatureStore struct {
	objectName  string
	contentType string
	err         error
}

func (s *stubSignatureStore) Upload(ctx context.Context, objectName, contentType string, data []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.objectName = objectName
	s.contentType = contentType
	return "gs://bucket/" + objectName, nil
}

type recordingDispatcher struct {
	deliveries []notifications.Delivery
}

func (r *recordingDispatcher) Deliver(ctx context.Context, delivery notifications.Delivery) {
	r.deliveries = append(r.deliveries, delivery)
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func pngSignature() string {
	payload := append([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}, bytes.Repeat([]byte{0x00}, 16)...)
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(payload)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
}

type completionFixture struct {
	repo   *stubCompletionsRepo
	store  *stubSignatureStore
	notify *recordingDispatcher
	svc    Service
	actor  authz.Actor
	input  CompleteInput
}

func newCompletionFixture(t *testing.T, geoCfg config.GeoConfig) *completionFixture {
	t.Helper()
	agencyID := uuid.New()
	workerID := uuid.New()
	lat, lng := 51.5007, -0.1246
	shift := &models.Shift{
		ID:        uuid.New(),
		AgencyID:  agencyID,
		Name:      "Night Shift",
		ShiftDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		StartTime: time.Date(2026, 3, 10, 21, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 3, 11, 7, 0, 0, 0, time.UTC),
		Latitude:  &lat,
		Longitude: &lng,
	}
	repo := &stubCompletionsRepo{
		shift:    shift,
		adminIDs: []uuid.UUID{uuid.New()},
		assignment: &models.ShiftAssignment{
			ID:       uuid.New(),
			ShiftID:  shift.ID,
			WorkerID: workerID,
			Status:   enums.AssignmentStatusAccepted,
		},
	}
	store := &stubSignatureStore{}
	notify := &recordingDispatcher{}
	svc, err := NewService(repo, stubTxRunner{}, notify, store, geoCfg, config.SignatureConfig{MaxBytes: 1 << 20}, nil, testLogger())
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return &completionFixture{
		repo:   repo,
		store:  store,
		notify: notify,
		svc:    svc,
		actor:  authz.Actor{UserID: workerID, Role: enums.UserRoleStaff, AgencyID: &agencyID},
		input: CompleteInput{
			AssignmentID:     repo.assignment.ID,
			SignatureDataURL: pngSignature(),
			Latitude:         lat,
			Longitude:        lng,
			ConfirmedAddress: "Westminster Bridge Rd, London",
		},
	}
}

func errorCode(t *testing.T, err error) pkgerrors.Code {
	t.Helper()
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected coded error, got %v", err)
	}
	return typed.Code()
}

func TestCompleteRecordsEvidence(t *testing.T) {
	fx := newCompletionFixture(t, config.GeoConfig{ProximityThresholdMeters: 500})

	if err := fx.svc.Complete(context.Background(), fx.actor, fx.input); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if fx.repo.assignment.Status != enums.AssignmentStatusCompleted {
		t.Fatalf("expected completed got %s", fx.repo.assignment.Status)
	}
	if fx.store.contentType != "image/png" {
		t.Fatalf("expected png upload got %s", fx.store.contentType)
	}
	if got := fx.repo.assignmentUpdates["signature_object"]; got != "gs://bucket/"+fx.store.objectName {
		t.Fatalf("expected signature object reference got %v", got)
	}
	if got := fx.repo.assignmentUpdates["attendance_status"]; got != enums.AttendanceStatusAttended {
		t.Fatalf("expected attended got %v", got)
	}
	if len(fx.notify.deliveries) != 1 || fx.notify.deliveries[0].Type != enums.NotificationTypeShiftCompleted {
		t.Fatalf("expected shift_completed notification got %+v", fx.notify.deliveries)
	}
}

func TestCompleteRejectsDistantLocation(t *testing.T) {
	fx := newCompletionFixture(t, config.GeoConfig{ProximityThresholdMeters: 500})
	fx.input.Latitude = 53.4808 // Manchester, ~260km away
	fx.input.Longitude = -2.2426

	err := fx.svc.Complete(context.Background(), fx.actor, fx.input)
	if errorCode(t, err) != pkgerrors.CodeLocationMismatch {
		t.Fatalf("expected location mismatch got %v", err)
	}
	if fx.repo.assignment.Status != enums.AssignmentStatusAccepted {
		t.Fatal("rejected completion must leave the assignment accepted")
	}
	if fx.store.objectName != "" {
		t.Fatal("signature must not be uploaded on rejection")
	}
}

func TestCompleteSuperuserOverrideRequiresPolicyFlag(t *testing.T) {
	fx := newCompletionFixture(t, config.GeoConfig{ProximityThresholdMeters: 500})
	fx.actor.Role = enums.UserRoleSuperuser
	fx.input.Latitude = 53.4808
	fx.input.Longitude = -2.2426

	err := fx.svc.Complete(context.Background(), fx.actor, fx.input)
	if errorCode(t, err) != pkgerrors.CodeLocationMismatch {
		t.Fatalf("expected mismatch with override disabled got %v", err)
	}

	fx = newCompletionFixture(t, config.GeoConfig{ProximityThresholdMeters: 500, AllowAdminOverride: true})
	fx.actor.Role = enums.UserRoleSuperuser
	fx.input.Latitude = 53.4808
	fx.input.Longitude = -2.2426
	if err := fx.svc.Complete(context.Background(), fx.actor, fx.input); err != nil {
		t.Fatalf("expected override success got %v", err)
	}
}

func TestCompleteSkipsProximityWithoutShiftLocation(t *testing.T) {
	fx := newCompletionFixture(t, config.GeoConfig{ProximityThresholdMeters: 500})
	fx.repo.shift.Latitude = nil
	fx.repo.shift.Longitude = nil
	fx.input.Latitude = 53.4808
	fx.input.Longitude = -2.2426

	if err := fx.svc.Complete(context.Background(), fx.actor, fx.input); err != nil {
		t.Fatalf("expected success got %v", err)
	}
}

func TestCompleteRejectsOutOfRangeCoordinates(t *testing.T) {
	fx := newCompletionFixture(t, config.GeoConfig{ProximityThresholdMeters: 500})
	fx.input.Latitude = 95

	err := fx.svc.Complete(context.Background(), fx.actor, fx.input)
	if errorCode(t, err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error got %v", err)
	}
	if fx.store.objectName != "" {
		t.Fatal("signature must not be uploaded on rejection")
	}
}

func TestCompleteRejectsInvalidSignature(t *testing.T) {
	fx := newCompletionFixture(t, config.GeoConfig{ProximityThresholdMeters: 500})
	fx.input.SignatureDataURL = "data:image/png;base64," + base64.StdEncoding.EncodeToString([]byte("not a png"))

	err := fx.svc.Complete(context.Background(), fx.actor, fx.input)
	if errorCode(t, err) != pkgerrors.CodeInvalidSignature {
		t.Fatalf("expected invalid signature got %v", err)
	}
}

func TestCompleteRejectsDuplicate(t *testing.T) {
	fx := newCompletionFixture(t, config.GeoConfig{ProximityThresholdMeters: 500})
	fx.repo.assignment.Status = enums.AssignmentStatusCompleted

	err := fx.svc.Complete(context.Background(), fx.actor, fx.input)
	if errorCode(t, err) != pkgerrors.CodeInvalidStateTransition {
		t.Fatalf("expected invalid state transition got %v", err)
	}
}

// A rival completion commits between the unlocked pre-check and the locked
// re-read inside the transaction. The loser must see the committed state and
// back off without writing.
func TestCompleteLosesToConcurrentCompletion(t *testing.T) {
	fx := newCompletionFixture(t, config.GeoConfig{ProximityThresholdMeters: 500})
	rival := *fx.repo.assignment
	rival.Status = enums.AssignmentStatusCompleted
	fx.repo.lockedAssignment = &rival

	err := fx.svc.Complete(context.Background(), fx.actor, fx.input)
	if errorCode(t, err) != pkgerrors.CodeInvalidStateTransition {
		t.Fatalf("expected invalid state transition got %v", err)
	}
	if fx.repo.assignmentUpdates != nil {
		t.Fatal("losing completion must not write evidence")
	}
	if len(fx.notify.deliveries) != 0 {
		t.Fatal("losing completion must not notify")
	}
}

func TestCompleteRejectsOtherWorkers(t *testing.T) {
	fx := newCompletionFixture(t, config.GeoConfig{ProximityThresholdMeters: 500})
	fx.actor.UserID = uuid.New()

	err := fx.svc.Complete(context.Background(), fx.actor, fx.input)
	if errorCode(t, err) != pkgerrors.CodePermissionDenied {
		t.Fatalf("expected permission denied got %v", err)
	}
}
