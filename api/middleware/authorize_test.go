package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/garageworks/garage-backend/internal/authz"
	"github.com/garageworks/garage-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAuthorizeUsesPolicyTable(t *testing.T) {
	enforcer, err := authz.NewDefaultEnforcer()
	require.NoError(t, err)
	handler := Authorize(enforcer, nil)(okHandler())

	call := func(role enums.UserRole, method, path string) int {
		req := httptest.NewRequest(method, path, nil)
		if role != "" {
			req = req.WithContext(WithIdentity(req.Context(), uuid.New(), role, "a"))
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, call(enums.UserRoleMechanic, http.MethodPatch, "/api/parts/"+uuid.NewString()+"/stock"))
	require.Equal(t, http.StatusForbidden, call(enums.UserRoleReceptionist, http.MethodPatch, "/api/parts/"+uuid.NewString()+"/stock"))
	require.Equal(t, http.StatusForbidden, call(enums.UserRoleMechanic, http.MethodDelete, "/api/clients/"+uuid.NewString()))
	require.Equal(t, http.StatusOK, call(enums.UserRoleAdmin, http.MethodDelete, "/api/clients/"+uuid.NewString()))
	require.Equal(t, http.StatusUnauthorized, call("", http.MethodGet, "/api/clients"))
}

type recordingObserver struct {
	route  string
	status int
}

func (r *recordingObserver) Observe(method, route string, status int, elapsed time.Duration) {
	r.route = route
	r.status = status
}

func TestMetricsFallsBackToUnmatched(t *testing.T) {
	obs := &recordingObserver{}
	handler := Metrics(obs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.Equal(t, "unmatched", obs.route)
	require.Equal(t, http.StatusTeapot, obs.status)
}
