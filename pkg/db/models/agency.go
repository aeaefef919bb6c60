package models

import (
	"time"

	"github.com/google/uuid"
)

// Agency represents the canonical tenant model.
type Agency struct {
	ID                 uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name               string     `gorm:"column:name;not null"`
	AgencyCode         string     `gorm:"column:agency_code;not null;uniqueIndex"`
	AgencyType         string     `gorm:"column:agency_type;not null;default:'staffing'"`
	Email              *string    `gorm:"column:email"`
	Phone              *string    `gorm:"column:phone"`
	AddressLine1       *string    `gorm:"column:address_line1"`
	City               *string    `gorm:"column:city"`
	Postcode           *string    `gorm:"column:postcode"`
	Country            *string    `gorm:"column:country"`
	Latitude           *float64   `gorm:"column:latitude;type:numeric(9,6)"`
	Longitude          *float64   `gorm:"column:longitude;type:numeric(9,6)"`
	StripeCustomerID   *string    `gorm:"column:stripe_customer_id;uniqueIndex"`
	OwnerID            *uuid.UUID `gorm:"column:owner_id;type:uuid"`
	IsActive           bool       `gorm:"column:is_active;not null;default:true"`
	SubscriptionActive bool       `gorm:"column:subscription_active;not null;default:false"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
