package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shiftwiseapp/shiftwise-backend/pkg/authz"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/config"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/db"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/db/models"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/enums"
	pkgerrors "github.com/shiftwiseapp/shiftwise-backend/pkg/errors"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/logger"
	"github.com/shiftwiseapp/shiftwise-backend/pkg/security"
)

const tempPasswordLength = 12

// Service exposes agency staff management.
type Service interface {
	Invite(ctx context.Context, actor authz.Actor, input InviteInput) (*InviteResult, error)
	Deactivate(ctx context.Context, actor authz.Actor, userID uuid.UUID) error
	List(ctx context.Context, actor authz.Actor, agencyID uuid.UUID) ([]UserView, error)
	Get(ctx context.Context, actor authz.Actor, userID uuid.UUID) (*UserView, error)
}

type service struct {
	repo        Repository
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
}

// NewService builds the users service.
func NewService(repo Repository, passwordCfg config.PasswordConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users: repository is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("users: logger is required")
	}
	return &service{repo: repo, passwordCfg: passwordCfg, logg: logg}, nil
}

// Invite creates an agency account with a generated one-time password. The
// password is returned exactly once; only the Argon2id hash is stored.
func (s *service) Invite(ctx context.Context, actor authz.Actor, input InviteInput) (*InviteResult, error) {
	if !authz.Can(actor, authz.ActionManageAgency, authz.Resource{AgencyID: input.AgencyID}) {
		return nil, pkgerrors.New(pkgerrors.CodePermissionDenied, "only agency admins can invite staff")
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "a valid email address is required")
	}
	if strings.TrimSpace(input.FirstName) == "" || strings.TrimSpace(input.LastName) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "first and last name are required")
	}

	role := input.Role
	if role == "" {
		role = enums.UserRoleStaff
	}
	switch role {
	case enums.UserRoleStaff, enums.UserRoleAgencyManager:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("role %q cannot be granted through an invite", role))
	}

	tempPassword, err := security.GenerateTempPassword(tempPasswordLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to generate temporary password")
	}
	hash, err := security.HashPassword(tempPassword, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "failed to hash temporary password")
	}

	agencyID := input.AgencyID
	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Phone:        input.Phone,
		Role:         role,
		AgencyID:     &agencyID,
		IsActive:     true,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "an account with this email already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to create user")
	}

	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "invited agency user")

	return &InviteResult{User: FromModel(user), TempPassword: tempPassword}, nil
}

// Deactivate disables an account so it can no longer sign in or be assigned.
func (s *service) Deactivate(ctx context.Context, actor authz.Actor, userID uuid.UUID) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.AgencyID == nil {
		return pkgerrors.New(pkgerrors.CodePermissionDenied, "this account is not managed by an agency")
	}
	if !authz.Can(actor, authz.ActionManageAgency, authz.Resource{AgencyID: *user.AgencyID}) {
		return pkgerrors.New(pkgerrors.CodePermissionDenied, "only agency admins can deactivate staff")
	}
	if !user.IsActive {
		return nil
	}
	if err := s.repo.Update(ctx, userID, map[string]any{"is_active": false}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to deactivate user")
	}
	return nil
}

// List returns every account belonging to the agency.
func (s *service) List(ctx context.Context, actor authz.Actor, agencyID uuid.UUID) ([]UserView, error) {
	if !authz.Can(actor, authz.ActionManageAgency, authz.Resource{AgencyID: agencyID}) {
		return nil, pkgerrors.New(pkgerrors.CodePermissionDenied, "only agency admins can list staff")
	}
	rows, err := s.repo.ListByAgency(ctx, agencyID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to list users")
	}
	views := make([]UserView, 0, len(rows))
	for i := range rows {
		views = append(views, FromModel(&rows[i]))
	}
	return views, nil
}

// Get returns one account. Workers may read their own record; admins may read
// anyone in their agency.
func (s *service) Get(ctx context.Context, actor authz.Actor, userID uuid.UUID) (*UserView, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if actor.UserID != user.ID {
		if user.AgencyID == nil || !authz.Can(actor, authz.ActionManageAgency, authz.Resource{AgencyID: *user.AgencyID}) {
			return nil, pkgerrors.New(pkgerrors.CodePermissionDenied, "you cannot view this account")
		}
	}
	view := FromModel(user)
	return &view, nil
}

func (s *service) findUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "failed to load user")
	}
	return user, nil
}
