package authz

import (
	"testing"

	"github.com/garageworks/garage-backend/pkg/enums"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	e, err := NewDefaultEnforcer()
	require.NoError(t, err)

	cases := []struct {
		role   enums.UserRole
		method string
		path   string
		want   bool
	}{
		{enums.UserRoleMechanic, "GET", "/api/clients", true},
		{enums.UserRoleMechanic, "GET", "/api/clients/7b1c/vehicles", true},
		{enums.UserRoleMechanic, "POST", "/api/clients", false},
		{enums.UserRoleReceptionist, "POST", "/api/clients/with-vehicles", true},
		{enums.UserRoleReceptionist, "PUT", "/api/vehicles/abc", true},
		{enums.UserRoleReceptionist, "DELETE", "/api/vehicles/abc", false},
		{enums.UserRoleAdmin, "DELETE", "/api/vehicles/abc", true},

		{enums.UserRoleMechanic, "POST", "/api/parts", true},
		{enums.UserRoleMechanic, "PATCH", "/api/parts/abc/stock", true},
		{enums.UserRoleReceptionist, "PATCH", "/api/parts/abc/stock", false},
		{enums.UserRoleMechanic, "GET", "/api/parts/low-stock", true},
		{enums.UserRoleMechanic, "GET", "/api/parts/abc/movements", false},
		{enums.UserRoleAdmin, "GET", "/api/parts/abc/movements", true},

		{enums.UserRoleReceptionist, "POST", "/api/services", true},
		{enums.UserRoleReceptionist, "PUT", "/api/services/abc", false},
		{enums.UserRoleMechanic, "POST", "/api/services/abc/parts", true},
		{enums.UserRoleReceptionist, "POST", "/api/services/abc/parts", false},

		{enums.UserRoleReceptionist, "POST", "/api/invoices", true},
		{enums.UserRoleMechanic, "POST", "/api/invoices", false},
		{enums.UserRoleReceptionist, "PATCH", "/api/invoices/abc/pay", true},
		{enums.UserRoleMechanic, "GET", "/api/invoices/abc/pdf", true},
		{enums.UserRoleReceptionist, "GET", "/api/invoices/stats/revenue", false},
		{enums.UserRoleAdmin, "GET", "/api/invoices/stats/revenue", true},

		{enums.UserRoleMechanic, "GET", "/api/clients/", true},
		{enums.UserRole("owner"), "GET", "/api/clients", false},
	}
	for _, tc := range cases {
		got, err := e.Allowed(tc.role, tc.path, tc.method)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "%s %s %s", tc.role, tc.method, tc.path)
	}
}

func TestEmptyPolicyDeniesEverything(t *testing.T) {
	e, err := NewEnforcer(nil)
	require.NoError(t, err)
	ok, err := e.Allowed(enums.UserRoleAdmin, "/api/clients", "GET")
	require.NoError(t, err)
	require.False(t, ok)
}
