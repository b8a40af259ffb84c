package rbac

import (
	"context"
	"strings"
)

// Policy maps a role to the permission patterns it holds. A pattern is an
// exact permission, a "scope:*" prefix or "*".
type Policy map[string][]string

type Checker struct {
	policy Policy
}

// NewChecker uses DefaultPolicy when p is nil.
func NewChecker(p Policy) *Checker {
	if p == nil {
		p = DefaultPolicy
	}
	return &Checker{policy: p}
}

// Has reports whether role holds perm. Unknown and empty roles hold nothing.
func (c *Checker) Has(role, perm string) bool {
	for _, pattern := range c.policy[role] {
		if grants(pattern, perm) {
			return true
		}
	}
	return false
}

func grants(pattern, perm string) bool {
	if scope, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(perm, scope)
	}
	return pattern == perm
}

type roleKey struct{}

func WithRole(ctx context.Context, role string) context.Context {
	return context.WithValue(ctx, roleKey{}, role)
}

func RoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(roleKey{}).(string)
	return role
}
