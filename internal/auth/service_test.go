package auth

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shiftwiseapp/shiftwise-backend/internal/users"
	pkgauth "github.com/shiftwiseapp/shiftwise-backend/pkg/auth"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/config"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/logger"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/security"
)

type stubUsersRepo struct {
	user       *models.User
	updates    map[string]any
	lastLogin  *time.Time
	createdVia []string
}

func (s *stubUsersRepo) Create(ctx context.Context, user *models.User) error {
	s.createdVia = append(s.createdVia, user.Email)
	return nil
}

func (s *stubUsersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUsersRepo) FindEmailByUserID(ctx context.Context, userID uuid.UUID) (string, error) {
	if s.user == nil || s.user.ID != userID {
		return "", gorm.ErrRecordNotFound
	}
	return s.user.Email, nil
}

func (s *stubUsersRepo) ListByAgency(ctx context.Context, agencyID uuid.UUID) ([]models.User, error) {
	return nil, nil
}

func (s *stubUsersRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	s.updates = updates
	return nil
}

func (s *stubUsersRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLogin = &at
	return nil
}

type stubSessions struct {
	stored  map[string]string
	revoked []string
}

func (s *stubSessions) StoreSessionToken(ctx context.Context, userID, token string, ttl time.Duration) error {
	if s.stored == nil {
		s.stored = map[string]string{}
	}
	s.stored[userID] = token
	return nil
}

func (s *stubSessions) RevokeSessionToken(ctx context.Context, userID string) error {
	s.revoked = append(s.revoked, userID)
	return nil
}

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "test-secret", Issuer: "shiftwise", ExpirationMinutes: 30}
}

func testPasswordConfig() config.PasswordConfig {
	return config.PasswordConfig{
		ArgonMemoryKB:    32768,
		ArgonTime:        1,
		ArgonParallelism: 1,
		ArgonSaltLen:     16,
		ArgonKeyLen:      32,
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: &bytes.Buffer{}})
}

func seededUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password, testPasswordConfig())
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	agencyID := uuid.New()
	return &models.User{
		ID:           uuid.New(),
		Email:        "worker@example.com",
		PasswordHash: hash,
		FirstName:    "Ada",
		LastName:     "Nguyen",
		Role:         enums.UserRoleStaff,
		AgencyID:     &agencyID,
		IsActive:     true,
	}
}

func newAuthService(t *testing.T, repo users.Repository, sessions sessionStore) Service {
	t.Helper()
	svc, err := NewService(repo, sessions, testJWTConfig(), testPasswordConfig(), testLogger())
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func TestLoginIssuesToken(t *testing.T) {
	user := seededUser(t, "opensesame99")
	repo := &stubUsersRepo{user: user}
	sessions := &stubSessions{}
	svc := newAuthService(t, repo, sessions)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " Worker@Example.com ", Password: "opensesame99"})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if resp.TokenType != "Bearer" {
		t.Fatalf("unexpected token type %s", resp.TokenType)
	}

	claims, err := pkgauth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("minted token does not parse: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id %s got %s", user.ID, claims.UserID)
	}
	if claims.AgencyID == nil || *claims.AgencyID != *user.AgencyID {
		t.Fatal("agency id not carried in claims")
	}
	if claims.Role != enums.UserRoleStaff {
		t.Fatalf("unexpected role %s", claims.Role)
	}

	if sessions.stored[user.ID.String()] != claims.ID {
		t.Fatal("session store must hold the token jti")
	}
	if repo.lastLogin == nil {
		t.Fatal("expected last login timestamp")
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	user := seededUser(t, "opensesame99")
	repo := &stubUsersRepo{user: user}
	svc := newAuthService(t, repo, &stubSessions{})

	cases := []struct {
		name     string
		email    string
		password string
		prepare  func()
	}{
		{"wrong password", user.Email, "nope", nil},
		{"unknown email", "ghost@example.com", "opensesame99", nil},
		{"empty password", user.Email, "", nil},
		{"inactive account", user.Email, "opensesame99", func() { user.IsActive = false }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.prepare != nil {
				tc.prepare()
			}
			_, err := svc.Login(context.Background(), LoginRequest{Email: tc.email, Password: tc.password})
			typed := pkgerrors.As(err)
			if typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
				t.Fatalf("expected unauthorized got %v", err)
			}
			if typed.Message() != "invalid credentials" {
				t.Fatalf("credential failures must not leak detail, got %q", typed.Message())
			}
		})
	}
}

func TestLogoutRevokesSession(t *testing.T) {
	sessions := &stubSessions{}
	svc := newAuthService(t, &stubUsersRepo{}, sessions)

	userID := uuid.New()
	if err := svc.Logout(context.Background(), userID); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(sessions.revoked) != 1 || sessions.revoked[0] != userID.String() {
		t.Fatalf("expected revoked session got %v", sessions.revoked)
	}
}

func TestChangePassword(t *testing.T) {
	user := seededUser(t, "opensesame99")
	repo := &stubUsersRepo{user: user}
	sessions := &stubSessions{}
	svc := newAuthService(t, repo, sessions)

	err := svc.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
		CurrentPassword: "wrong",
		NewPassword:     "new-password-1",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("expected unauthorized for wrong current password got %v", err)
	}

	err = svc.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
		CurrentPassword: "opensesame99",
		NewPassword:     "short",
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation for short password got %v", err)
	}

	err = svc.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
		CurrentPassword: "opensesame99",
		NewPassword:     "new-password-1",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	newHash, ok := repo.updates["password_hash"].(string)
	if !ok {
		t.Fatal("expected password hash update")
	}
	match, err := security.VerifyPassword("new-password-1", newHash)
	if err != nil || !match {
		t.Fatal("stored hash must verify the new password")
	}
	if len(sessions.revoked) == 0 {
		t.Fatal("password change must revoke the active session")
	}
}
