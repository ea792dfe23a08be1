package middleware

import (
	"net/http"

	"github.com/garageworks/garage-backend/api/responses"
	"github.com/garageworks/garage-backend/pkg/enums"
	pkgerrors "github.com/garageworks/garage-backend/pkg/errors"
	"github.com/garageworks/garage-backend/pkg/logger"
)

// PolicyChecker decides whether a role may call method on path.
type PolicyChecker interface {
	Allowed(role enums.UserRole, path, method string) (bool, error)
}

// Authorize gates requests through the route policy table. It must run after Auth.
func Authorize(policy PolicyChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if policy == nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "authorization policy unavailable"))
				return
			}
			role := RoleFromContext(ctx)
			if role == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
				return
			}

			ok, err := policy.Allowed(role, r.URL.Path, r.Method)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "evaluate policy"))
				return
			}
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "insufficient role").
					WithDetails(map[string]any{"role": role}))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
