package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
)

// UserView is the API projection of a user record.
type UserView struct {
	ID          uuid.UUID      `json:"id"`
	Email       string         `json:"email"`
	FirstName   string         `json:"first_name"`
	LastName    string         `json:"last_name"`
	Phone       *string        `json:"phone,omitempty"`
	Role        enums.UserRole `json:"role"`
	AgencyID    *uuid.UUID     `json:"agency_id,omitempty"`
	IsActive    bool           `json:"is_active"`
	LastLoginAt *time.Time     `json:"last_login_at,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// FromModel converts a user model into its API view.
func FromModel(user *models.User) UserView {
	if user == nil {
		return UserView{}
	}
	return UserView{
		ID:          user.ID,
		Email:       user.Email,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Phone:       user.Phone,
		Role:        user.Role,
		AgencyID:    user.AgencyID,
		IsActive:    user.IsActive,
		LastLoginAt: user.LastLoginAt,
		CreatedAt:   user.CreatedAt,
	}
}

// InviteInput carries the fields an admin supplies when inviting a worker.
type InviteInput struct {
	AgencyID  uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Phone     *string
	Role      enums.UserRole
}

// InviteResult returns the created account plus its one-time password.
type InviteResult struct {
	User         UserView `json:"user"`
	TempPassword string   `json:"temp_password"`
}
