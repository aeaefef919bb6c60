package auth

import (
	"time"

	"github.com/shiftwiseapp/shiftwise-backend/internal/users"
)

// LoginRequest carries the credentials presented at sign-in.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the minted access token and the authenticated account.
type LoginResponse struct {
	AccessToken string         `json:"access_token"`
	TokenType   string         `json:"token_type"`
	ExpiresAt   time.Time      `json:"expires_at"`
	User        users.UserView `json:"user"`
}

// ChangePasswordRequest carries a password rotation for the current account.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}
