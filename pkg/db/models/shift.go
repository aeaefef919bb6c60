package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
)

// Shift represents a work shift managed by an agency.
//
// Overnight shifts carry an EndDate after ShiftDate; otherwise EndTime must
// be after StartTime on the same day.
type Shift struct {
	ID            uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AgencyID      uuid.UUID         `gorm:"column:agency_id;type:uuid;not null;index"`
	Name          string            `gorm:"column:name;not null"`
	ShiftDate     time.Time         `gorm:"column:shift_date;type:date;not null"`
	StartTime     time.Time         `gorm:"column:start_time;not null"`
	EndTime       time.Time         `gorm:"column:end_time;not null"`
	EndDate       *time.Time        `gorm:"column:end_date;type:date"`
	IsOvernight   bool              `gorm:"column:is_overnight;not null;default:false"`
	ShiftType     enums.ShiftType   `gorm:"column:shift_type;type:shift_type;not null;default:'regular'"`
	Status        enums.ShiftStatus `gorm:"column:status;type:shift_status;not null;default:'open'"`
	RequiredRole  string            `gorm:"column:required_role;not null;default:'Staff'"`
	Capacity      int               `gorm:"column:capacity;not null;default:1"`
	HourlyRate    decimal.Decimal   `gorm:"column:hourly_rate;type:numeric(10,2);not null;default:0"`
	Address       *string           `gorm:"column:address"`
	City          *string           `gorm:"column:city"`
	Postcode      *string           `gorm:"column:postcode"`
	Latitude      *float64          `gorm:"column:latitude;type:numeric(9,6)"`
	Longitude     *float64          `gorm:"column:longitude;type:numeric(9,6)"`
	Notes         *string           `gorm:"column:notes"`
	IsActive      bool              `gorm:"column:is_active;not null;default:true"`
	AssignedCount int               `gorm:"column:assigned_count;not null;default:0"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
