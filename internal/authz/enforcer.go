package authz

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/garageworks/garage-backend/pkg/enums"
)

//go:embed model.conf
var modelText string

// Enforcer answers whether a role may call a method on a path.
type Enforcer struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer loads rules into an in-memory casbin enforcer.
func NewEnforcer(rules []Rule) (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("load authz model: %w", err)
	}
	e, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("create enforcer: %w", err)
	}

	policies := make([][]string, 0, len(rules)*2)
	for _, rule := range rules {
		for _, role := range rule.Roles {
			policies = append(policies, []string{string(role), rule.Path, rule.Methods})
		}
	}
	if len(policies) > 0 {
		if _, err := e.AddPolicies(policies); err != nil {
			return nil, fmt.Errorf("load authz policy: %w", err)
		}
	}
	return &Enforcer{enforcer: e}, nil
}

// NewDefaultEnforcer loads Policy.
func NewDefaultEnforcer() (*Enforcer, error) {
	return NewEnforcer(Policy)
}

// Allowed reports whether role may issue method against path.
func (e *Enforcer) Allowed(role enums.UserRole, path, method string) (bool, error) {
	if !role.IsValid() {
		return false, nil
	}
	path = strings.TrimSuffix(path, "/")
	if path == "" {
		path = "/"
	}
	return e.enforcer.Enforce(string(role), path, strings.ToUpper(method))
}
