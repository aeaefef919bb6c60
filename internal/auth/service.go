package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shiftwiseapp/shiftwise-backend/internal/users"
	pkgauth "github.com/shiftwiseapp/shiftwise-backend/pkg/auth"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/config"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/logger"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/security"
)

// Service exposes credential-based authentication.
type Service interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Logout(ctx context.Context, userID uuid.UUID) error
	ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error
}

// sessionStore tracks the active JTI per user so tokens can be revoked.
type sessionStore interface {
	StoreSessionToken(ctx context.Context, userID, token string, ttl time.Duration) error
	RevokeSessionToken(ctx context.Context, userID string) error
}

type service struct {
	repo        users.Repository
	sessions    sessionStore
	jwtCfg      config.JWTConfig
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	nowFn       func() time.Time
}

// NewService builds the auth service.
func NewService(repo users.Repository, sessions sessionStore, jwtCfg config.JWTConfig, passwordCfg config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("auth: users repository is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("auth: session store is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("auth: logger is required")
	}
	return &service{
		repo:        repo,
		sessions:    sessions,
		jwtCfg:      jwtCfg,
		passwordCfg: passwordCfg,
		logg:        logg,
		nowFn:       time.Now,
	}, nil
}

// Login authenticates the credentials and mints a JWT bound to a fresh JTI.
// Unknown email, wrong password, and deactivated accounts all return the same
// error so the response does not leak which accounts exist.
func (s *service) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	user, err := s.authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	now := s.nowFn().UTC()
	jti := uuid.NewString()

	token, err := pkgauth.MintAccessToken(s.jwtCfg, now, pkgauth.AccessTokenPayload{
		UserID:   user.ID,
		AgencyID: user.AgencyID,
		Role:     user.Role,
		JTI:      jti,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to mint access token")
	}

	ttl := time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute
	if err := s.sessions.StoreSessionToken(ctx, user.ID.String(), jti, ttl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to persist session")
	}

	s.recordLogin(ctx, user.ID, now)

	return &LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   now.Add(ttl),
		User:        users.FromModel(user),
	}, nil
}

// Logout revokes the active session so outstanding tokens stop validating.
func (s *service) Logout(ctx context.Context, userID uuid.UUID) error {
	if err := s.sessions.RevokeSessionToken(ctx, userID.String()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to revoke session")
	}
	return nil
}

// ChangePassword rotates the account password after verifying the current one,
// then revokes the active session so existing tokens must be re-issued.
func (s *service) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load user")
	}

	ok, err := security.VerifyPassword(req.CurrentPassword, user.PasswordHash)
	if err != nil || !ok {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "current password is incorrect")
	}
	if len(req.NewPassword) < 8 {
		return pkgerrors.New(pkgerrors.CodeValidation, "new password must be at least 8 characters")
	}

	hash, err := security.HashPassword(req.NewPassword, s.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to hash password")
	}
	if err := s.repo.Update(ctx, userID, map[string]any{"password_hash": hash}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to update password")
	}

	if err := s.sessions.RevokeSessionToken(ctx, userID.String()); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, userID.String()), "failed to revoke session after password change", err)
	}
	return nil
}

func (s *service) authenticate(ctx context.Context, email, password string) (*models.User, error) {
	invalid := pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid credentials")

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, invalid
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to look up user")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, invalid
	}
	if !user.IsActive {
		return nil, invalid
	}
	return user, nil
}

// recordLogin is best effort; a failed timestamp update must not fail sign-in.
func (s *service) recordLogin(ctx context.Context, userID uuid.UUID, at time.Time) {
	if err := s.repo.UpdateLastLogin(ctx, userID, at); err != nil {
		s.logg.Error(s.logg.WithUserID(ctx, userID.String()), "failed to record login timestamp", err)
	}
}
