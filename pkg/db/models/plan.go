package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
)

// Plan captures the local metadata for a subscription plan tier.
type Plan struct {
	ID                   uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Tier                 enums.PlanTier        `gorm:"column:tier;type:plan_tier;not null"`
	Description          string                `gorm:"column:description;not null;default:''"`
	StripeProductID      *string               `gorm:"column:stripe_product_id;uniqueIndex"`
	StripePriceID        *string               `gorm:"column:stripe_price_id;uniqueIndex"`
	BillingInterval      enums.BillingInterval `gorm:"column:billing_interval;type:billing_interval;not null"`
	Price                decimal.Decimal       `gorm:"column:price;type:numeric(10,2);not null;default:0"`
	Features             json.RawMessage       `gorm:"column:features;type:jsonb"`
	MaxStaffMembers      int                   `gorm:"column:max_staff_members;not null;default:10"`
	NotificationsEnabled bool                  `gorm:"column:notifications_enabled;not null;default:false"`
	AdvancedReporting    bool                  `gorm:"column:advanced_reporting;not null;default:false"`
	PrioritySupport      bool                  `gorm:"column:priority_support;not null;default:false"`
	ShiftManagement      bool                  `gorm:"column:shift_management;not null;default:false"`
	IsActive             bool                  `gorm:"column:is_active;not null;default:true"`
	IsRecommended        bool                  `gorm:"column:is_recommended;not null;default:false"`
	CreatedAt            time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
