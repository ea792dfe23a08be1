package authz

import (
	"github.com/garageworks/garage-backend/pkg/enums"
)

// Rule grants Roles the methods matching Methods (an anchored regexp) on Path.
// Path uses keyMatch2 syntax: ":id" matches one segment, "*" matches the rest.
type Rule struct {
	Roles   []enums.UserRole
	Path    string
	Methods string
}

const (
	read   = "^(GET|HEAD)$"
	create = "^POST$"
	update = "^PUT$"
	patch  = "^PATCH$"
	all    = ".*"
)

var (
	everyone   = []enums.UserRole{enums.UserRoleAdmin, enums.UserRoleMechanic, enums.UserRoleReceptionist}
	frontDesk  = []enums.UserRole{enums.UserRoleAdmin, enums.UserRoleReceptionist}
	workshop   = []enums.UserRole{enums.UserRoleAdmin, enums.UserRoleMechanic}
	adminsOnly = []enums.UserRole{enums.UserRoleAdmin}
)

// Policy is the route table enforced by the Authorize middleware.
var Policy = []Rule{
	{Roles: adminsOnly, Path: "/api/*", Methods: all},

	{Roles: everyone, Path: "/api/clients", Methods: read},
	{Roles: everyone, Path: "/api/clients/:id", Methods: read},
	{Roles: everyone, Path: "/api/clients/:id/vehicles", Methods: read},
	{Roles: everyone, Path: "/api/clients/:id/services", Methods: read},
	{Roles: frontDesk, Path: "/api/clients", Methods: create},
	{Roles: frontDesk, Path: "/api/clients/with-vehicles", Methods: create},
	{Roles: frontDesk, Path: "/api/clients/:id", Methods: update},

	{Roles: everyone, Path: "/api/organizations", Methods: read},
	{Roles: everyone, Path: "/api/organizations/:id", Methods: read},
	{Roles: everyone, Path: "/api/organizations/:id/vehicles", Methods: read},
	{Roles: everyone, Path: "/api/organizations/:id/services", Methods: read},
	{Roles: frontDesk, Path: "/api/organizations", Methods: create},
	{Roles: frontDesk, Path: "/api/organizations/:id", Methods: update},

	{Roles: everyone, Path: "/api/vehicles", Methods: read},
	{Roles: everyone, Path: "/api/vehicles/:id", Methods: read},
	{Roles: everyone, Path: "/api/vehicles/:id/services", Methods: read},
	{Roles: frontDesk, Path: "/api/vehicles", Methods: create},
	{Roles: frontDesk, Path: "/api/vehicles/:id", Methods: update},

	{Roles: everyone, Path: "/api/parts", Methods: read},
	{Roles: everyone, Path: "/api/parts/:id", Methods: read},
	{Roles: workshop, Path: "/api/parts", Methods: create},
	{Roles: workshop, Path: "/api/parts/:id", Methods: update},
	{Roles: workshop, Path: "/api/parts/:id/stock", Methods: patch},

	{Roles: everyone, Path: "/api/services", Methods: read},
	{Roles: everyone, Path: "/api/services/:id", Methods: read},
	{Roles: everyone, Path: "/api/services", Methods: create},
	{Roles: workshop, Path: "/api/services/:id", Methods: update},
	{Roles: workshop, Path: "/api/services/:id/parts", Methods: create},

	{Roles: everyone, Path: "/api/invoices", Methods: read},
	{Roles: everyone, Path: "/api/invoices/:id", Methods: read},
	{Roles: everyone, Path: "/api/invoices/:id/pdf", Methods: read},
	{Roles: frontDesk, Path: "/api/invoices", Methods: create},
	{Roles: frontDesk, Path: "/api/invoices/:id", Methods: update},
	{Roles: frontDesk, Path: "/api/invoices/:id/pay", Methods: patch},
}
