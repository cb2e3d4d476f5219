package auth

import (
	"context"
	"strings"
)

// RolePrefix is prepended to bare role names when checking authorities.
const RolePrefix = "ROLE_"

// Principal is the authenticated identity attached to a request.
type Principal struct {
	UserID   uint     `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"` // Authority names such as "ROLE_ADMIN"
}

// HasAnyRole reports whether p holds one of roles. Bare names ("ADMIN")
// are compared with RolePrefix added.
func (p *Principal) HasAnyRole(roles ...string) bool {
	if p == nil {
		return false
	}
	for _, want := range roles {
		want = authority(want)
		for _, have := range p.Roles {
			if have == want {
				return true
			}
		}
	}
	return false
}

func authority(role string) string {
	if strings.HasPrefix(role, RolePrefix) {
		return role
	}
	return RolePrefix + role
}

type principalKey struct{}

// WithPrincipal stores p in the context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal, or nil for anonymous requests.
func PrincipalFromContext(ctx context.Context) *Principal {
	if p, ok := ctx.Value(principalKey{}).(*Principal); ok {
		return p
	}
	return nil
}
