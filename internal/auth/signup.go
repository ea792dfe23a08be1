package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/garageworks/garage-backend/internal/users"
	"github.com/garageworks/garage-backend/pkg/config"
	"github.com/garageworks/garage-backend/pkg/db"
	"github.com/garageworks/garage-backend/pkg/db/models"
	"github.com/garageworks/garage-backend/pkg/enums"
	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
	"github.com/garageworks/garage-backend/pkg/security"
	"gorm.io/gorm"
)

type signupUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

// SignupInput pairs the request with the caller's role, when the caller is authenticated.
type SignupInput struct {
	Request   SignupRequest
	ActorRole *enums.UserRole
}

// SignupService creates staff accounts.
type SignupService interface {
	Signup(ctx context.Context, input SignupInput) (*users.UserDTO, error)
}

// SignupServiceParams packages the dependencies for the signup flow.
type SignupServiceParams struct {
	UserRepo       signupUserRepository
	PasswordConfig config.PasswordConfig
}

type signupService struct {
	users       signupUserRepository
	passwordCfg config.PasswordConfig
}

// NewSignupService builds a signup service with the provided dependencies.
func NewSignupService(params SignupServiceParams) (SignupService, error) {
	if params.UserRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository required")
	}
	return &signupService{
		users:       params.UserRepo,
		passwordCfg: params.PasswordConfig,
	}, nil
}

func (s *signupService) Signup(ctx context.Context, input SignupInput) (*users.UserDTO, error) {
	req := input.Request
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "full_name is required")
	}

	role := enums.UserRoleReceptionist
	if req.Role != nil {
		if !req.Role.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid role").
				WithDetails(map[string]any{"role": *req.Role})
		}
		role = *req.Role
	}
	// only admins may hand out roles other than receptionist
	if role != enums.UserRoleReceptionist && (input.ActorRole == nil || *input.ActorRole != enums.UserRoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins can assign this role")
	}

	if err := security.ValidatePolicy(req.Password); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, err.Error())
	}

	return createUser(ctx, s.users, s.passwordCfg, users.CreateUserDTO{
		Email:    email,
		FullName: fullName,
		Role:     role,
	}, req.Password)
}

func createUser(ctx context.Context, repo signupUserRepository, cfg config.PasswordConfig, dto users.CreateUserDTO, password string) (*users.UserDTO, error) {
	if _, err := repo.FindByEmail(ctx, dto.Email); err == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
	}

	hash, err := security.HashPassword(password, cfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	dto.PasswordHash = hash

	user, err := repo.Create(ctx, dto)
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
	}
	return users.FromModel(user), nil
}
