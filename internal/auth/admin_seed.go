package auth

import (
	"context"
	"strings"

	"github.com/garageworks/garage-backend/internal/users"
	"github.com/garageworks/garage-backend/pkg/config"
	"github.com/garageworks/garage-backend/pkg/enums"
	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
	"github.com/garageworks/garage-backend/pkg/security"
)

type adminUserRepository interface {
	signupUserRepository
	CountByRole(ctx context.Context, role enums.UserRole) (int64, error)
}

// AdminSeedService bootstraps the first admin account.
type AdminSeedService interface {
	// Seed creates the admin unless one already exists; created reports which happened.
	Seed(ctx context.Context, req SeedAdminRequest) (user *users.UserDTO, created bool, err error)
}

// AdminSeedServiceParams names the dependencies for the admin seed flow.
type AdminSeedServiceParams struct {
	UserRepo       adminUserRepository
	PasswordConfig config.PasswordConfig
}

type adminSeedService struct {
	users       adminUserRepository
	passwordCfg config.PasswordConfig
}

// NewAdminSeedService builds the admin bootstrap service.
func NewAdminSeedService(params AdminSeedServiceParams) (AdminSeedService, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository required")
	}
	return &adminSeedService{
		users:       params.UserRepo,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *adminSeedService) Seed(ctx context.Context, req SeedAdminRequest) (*users.UserDTO, bool, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "full_name is required")
	}
	if err := security.ValidatePolicy(req.Password); err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	admins, err := s.users.CountByRole(ctx, enums.UserRoleAdmin)
	if err != nil {
		return nil, false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "count admins")
	}
	if admins > 0 {
		return nil, false, nil
	}

	created, err := createUser(ctx, s.users, s.passwordCfg, users.CreateUserDTO{
		Email:    email,
		FullName: fullName,
		Role:     enums.UserRoleAdmin,
		IsActive: boolRef(true),
	}, req.Password)
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func boolRef(v bool) *bool {
	return &v
}
