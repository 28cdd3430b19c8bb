package rbac

import (
	"context"
	"strings"
)

// Checker answers permission questions against a role policy.
type Checker struct {
	policy map[string][]string
}

// NewChecker builds a checker over policy, or RolePermissions when nil.
func NewChecker(policy map[string][]string) *Checker {
	if policy == nil {
		policy = RolePermissions
	}
	return &Checker{policy: policy}
}

var defaultChecker = NewChecker(nil)

// Has reports whether role is granted perm, directly or through a
// trailing-wildcard grant such as "session:*".
func (c *Checker) Has(role, perm string) bool {
	for _, grant := range c.policy[role] {
		if matchPerm(grant, perm) {
			return true
		}
	}
	return false
}

// Any reports whether role holds at least one of perms.
func (c *Checker) Any(role string, perms ...string) bool {
	for _, p := range perms {
		if c.Has(role, p) {
			return true
		}
	}
	return false
}

// Can checks perm for the role carried in ctx.
func Can(ctx context.Context, perm string) bool {
	role := RoleFromContext(ctx)
	return role != "" && defaultChecker.Has(role, perm)
}

func matchPerm(grant, perm string) bool {
	if grant == "*" || grant == perm {
		return true
	}
	if prefix, ok := strings.CutSuffix(grant, "*"); ok {
		return strings.HasPrefix(perm, prefix)
	}
	return false
}
