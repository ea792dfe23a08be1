package auth

import (
	"context"
	"errors"
	"time"

	pkgAuth "github.com/garageworks/garage-backend/pkg/auth"
	"github.com/garageworks/garage-backend/pkg/auth/session"
	"github.com/garageworks/garage-backend/pkg/config"
	"github.com/garageworks/garage-backend/pkg/db/models"
	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type refreshUserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type sessionRotator interface {
	Rotate(ctx context.Context, oldAccessID, provided string) (uuid.UUID, session.Issued, error)
	Revoke(ctx context.Context, accessID string) error
}

// RefreshServiceParams bundles dependencies for the refresh flow.
type RefreshServiceParams struct {
	UserRepo       refreshUserRepository
	SessionManager sessionRotator
	JWTConfig      config.JWTConfig
}

// RefreshService exchanges a refresh token for a new token pair.
type RefreshService interface {
	Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error)
}

type refreshService struct {
	users   refreshUserRepository
	session sessionRotator
	jwtCfg  config.JWTConfig
	now     func() time.Time
}

// NewRefreshService constructs the service.
func NewRefreshService(params RefreshServiceParams) (RefreshService, error) {
	if params.UserRepo == nil {
		return nil, errors.New("user repository required")
	}
	if params.SessionManager == nil {
		return nil, errors.New("session manager required")
	}
	return &refreshService{
		users:   params.UserRepo,
		session: params.SessionManager,
		jwtCfg:  params.JWTConfig,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *refreshService) Refresh(ctx context.Context, req RefreshRequest) (*TokenResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwtCfg, req.AccessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}

	userID, issued, err := s.session.Rotate(ctx, claims.ID, req.RefreshToken)
	if err != nil {
		if errors.Is(err, session.ErrInvalidRefreshToken) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}
	if userID != claims.UserID {
		_ = s.session.Revoke(ctx, issued.AccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}

	// role and is_active may have changed since the old token was minted
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		_ = s.session.Revoke(ctx, issued.AccessID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid session")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "lookup user")
	}
	if !user.IsActive {
		_ = s.session.Revoke(ctx, issued.AccessID)
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid session")
	}

	return issueTokens(s.jwtCfg, s.now(), user, issued)
}
