package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
)

// ShiftAssignment associates a worker with a specific shift and tracks the
// worker's progress through it. At most one non-cancelled assignment may
// exist per (shift, worker) pair; completion evidence is populated only once
// the status reaches completed.
type ShiftAssignment struct {
	ID                  uuid.UUID               `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ShiftID             uuid.UUID               `gorm:"column:shift_id;type:uuid;not null;index"`
	WorkerID            uuid.UUID               `gorm:"column:worker_id;type:uuid;not null;index"`
	Role                string                  `gorm:"column:role;not null;default:'Staff'"`
	Status              enums.AssignmentStatus  `gorm:"column:status;type:assignment_status;not null;default:'pending'"`
	AttendanceStatus    *enums.AttendanceStatus `gorm:"column:attendance_status;type:attendance_status"`
	CompletionLatitude  *float64                `gorm:"column:completion_latitude;type:numeric(9,6)"`
	CompletionLongitude *float64                `gorm:"column:completion_longitude;type:numeric(9,6)"`
	ConfirmedAddress    *string                 `gorm:"column:confirmed_address"`
	SignatureObject     *string                 `gorm:"column:signature_object"`
	AssignedAt          time.Time               `gorm:"column:assigned_at;autoCreateTime"`
	AcceptedAt          *time.Time              `gorm:"column:accepted_at"`
	CompletedAt         *time.Time              `gorm:"column:completed_at"`
	CancelledAt         *time.Time              `gorm:"column:cancelled_at"`
	CreatedAt           time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
