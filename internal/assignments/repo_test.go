package assignments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
)

func setupAssignmentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	shifts := `
CREATE TABLE IF NOT EXISTS shifts (
  id TEXT PRIMARY KEY,
  agency_id TEXT NOT NULL,
  name TEXT NOT NULL,
  shift_date DATETIME NOT NULL,
  start_time DATETIME NOT NULL,
  end_time DATETIME NOT NULL,
  end_date DATETIME,
  is_overnight INTEGER NOT NULL DEFAULT 0,
  shift_type TEXT NOT NULL DEFAULT 'regular',
  status TEXT NOT NULL DEFAULT 'open',
  required_role TEXT NOT NULL DEFAULT 'Staff',
  capacity INTEGER NOT NULL DEFAULT 1,
  hourly_rate TEXT NOT NULL DEFAULT '0',
  address TEXT,
  city TEXT,
  postcode TEXT,
  latitude REAL,
  longitude REAL,
  notes TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  assigned_count INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	assignments := `
CREATE TABLE IF NOT EXISTS shift_assignments (
  id TEXT PRIMARY KEY,
  shift_id TEXT NOT NULL,
  worker_id TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'Staff',
  status TEXT NOT NULL DEFAULT 'pending',
  attendance_status TEXT,
  completion_latitude REAL,
  completion_longitude REAL,
  confirmed_address TEXT,
  signature_object TEXT,
  assigned_at DATETIME,
  accepted_at DATETIME,
  completed_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	activePair := `
CREATE UNIQUE INDEX IF NOT EXISTS shift_assignments_shift_worker_active
  ON shift_assignments (shift_id, worker_id)
  WHERE status != 'cancelled';`

	for _, stmt := range []string{shifts, assignments, activePair} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedShift(t *testing.T, db *gorm.DB, agencyID uuid.UUID, start, end time.Time) *models.Shift {
	t.Helper()
	shift := &models.Shift{
		ID:        uuid.New(),
		AgencyID:  agencyID,
		Name:      "Ward cover",
		ShiftDate: start.Truncate(24 * time.Hour),
		StartTime: start,
		EndTime:   end,
		Status:    enums.ShiftStatusOpen,
		Capacity:  2,
		IsActive:  true,
	}
	require.NoError(t, db.Create(shift).Error)
	return shift
}

func seedAssignment(t *testing.T, db *gorm.DB, shiftID, workerID uuid.UUID, status enums.AssignmentStatus, createdAt time.Time) *models.ShiftAssignment {
	t.Helper()
	assignment := &models.ShiftAssignment{
		ID:       uuid.New(),
		ShiftID:  shiftID,
		WorkerID: workerID,
		Role:     "Staff",
		Status:   status,
	}
	require.NoError(t, db.Create(assignment).Error)
	require.NoError(t, db.Model(assignment).UpdateColumn("created_at", createdAt).Error)
	return assignment
}

func TestCountActiveByShiftIgnoresReleasedSlots(t *testing.T) {
	db := setupAssignmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	shift := seedShift(t, db, uuid.New(), now.Add(time.Hour), now.Add(9*time.Hour))

	seedAssignment(t, db, shift.ID, uuid.New(), enums.AssignmentStatusPending, now)
	seedAssignment(t, db, shift.ID, uuid.New(), enums.AssignmentStatusAccepted, now)
	seedAssignment(t, db, shift.ID, uuid.New(), enums.AssignmentStatusDeclined, now)
	seedAssignment(t, db, shift.ID, uuid.New(), enums.AssignmentStatusCancelled, now)
	seedAssignment(t, db, shift.ID, uuid.New(), enums.AssignmentStatusCompleted, now)

	count, err := repo.CountActiveByShift(ctx, shift.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestActivePairIndexBlocksDuplicateAssignment(t *testing.T) {
	db := setupAssignmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	shift := seedShift(t, db, uuid.New(), now.Add(time.Hour), now.Add(9*time.Hour))
	workerID := uuid.New()

	first := seedAssignment(t, db, shift.ID, workerID, enums.AssignmentStatusPending, now)

	_, err := repo.Create(ctx, &models.ShiftAssignment{
		ID:       uuid.New(),
		ShiftID:  shift.ID,
		WorkerID: workerID,
		Role:     "Staff",
		Status:   enums.AssignmentStatusPending,
	})
	require.Error(t, err)

	// A cancelled row releases the pair for re-assignment.
	require.NoError(t, db.Model(first).UpdateColumn("status", enums.AssignmentStatusCancelled).Error)
	_, err = repo.Create(ctx, &models.ShiftAssignment{
		ID:       uuid.New(),
		ShiftID:  shift.ID,
		WorkerID: workerID,
		Role:     "Staff",
		Status:   enums.AssignmentStatusPending,
	})
	require.NoError(t, err)
}

func TestFindOverlappingActive(t *testing.T) {
	db := setupAssignmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	agencyID := uuid.New()
	workerID := uuid.New()

	booked := seedShift(t, db, agencyID, now.Add(2*time.Hour), now.Add(10*time.Hour))
	seedAssignment(t, db, booked.ID, workerID, enums.AssignmentStatusAccepted, now)

	overlap, err := repo.FindOverlappingActive(ctx, workerID, now.Add(8*time.Hour), now.Add(16*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, overlap)
	assert.Equal(t, booked.ID, overlap.ShiftID)

	// An adjacent window that starts exactly at the booked end does not clash.
	overlap, err = repo.FindOverlappingActive(ctx, workerID, now.Add(10*time.Hour), now.Add(18*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, overlap)

	// Declined assignments do not hold the window.
	require.NoError(t, db.Model(&models.ShiftAssignment{}).
		Where("worker_id = ?", workerID).
		UpdateColumn("status", enums.AssignmentStatusDeclined).Error)
	overlap, err = repo.FindOverlappingActive(ctx, workerID, now.Add(8*time.Hour), now.Add(16*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, overlap)
}

func TestListPaginatesByWorker(t *testing.T) {
	db := setupAssignmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Now().UTC()
	agencyID := uuid.New()
	workerID := uuid.New()

	for i := 0; i < 3; i++ {
		start := now.Add(time.Duration(24*(i+1)) * time.Hour)
		shift := seedShift(t, db, agencyID, start, start.Add(8*time.Hour))
		seedAssignment(t, db, shift.ID, workerID, enums.AssignmentStatusPending, now.Add(time.Duration(i)*time.Minute))
	}
	other := seedShift(t, db, agencyID, now.Add(time.Hour), now.Add(9*time.Hour))
	seedAssignment(t, db, other.ID, uuid.New(), enums.AssignmentStatusPending, now)

	// Limit is page size + 1; the overflow row signals another page.
	rows, next, err := repo.List(ctx, ListQuery{WorkerID: &workerID, Limit: 3})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotNil(t, next)
	for _, row := range rows {
		assert.Equal(t, workerID, row.Assignment.WorkerID)
		assert.Equal(t, row.Assignment.ShiftID, row.Shift.ID)
	}

	rows, next, err = repo.List(ctx, ListQuery{WorkerID: &workerID, Limit: 3, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, next)
}
