// Package principal carries the authenticated identity through a request.
package principal

import (
	"context"
	"slices"

	"authgate/cmd/identity"
)

// Principal is the resolved identity attached to an authenticated request.
// Roles come from the user store at request time, not from the bearer token.
type Principal struct {
	UserID   string
	Username string
	Email    string
	Roles    []identity.Role
}

// FromUser builds a Principal from a user record.
func FromUser(u identity.User) *Principal {
	return &Principal{
		UserID:   u.ID,
		Username: u.Username,
		Email:    u.Email,
		Roles:    slices.Clone(u.Roles),
	}
}

// HasRole reports whether p carries r. A nil principal has no roles.
func (p *Principal) HasRole(r identity.Role) bool {
	if p == nil {
		return false
	}
	return slices.Contains(p.Roles, r)
}

// HasAnyRole reports whether p carries at least one of rs.
func (p *Principal) HasAnyRole(rs ...identity.Role) bool {
	for _, r := range rs {
		if p.HasRole(r) {
			return true
		}
	}
	return false
}

// Authorities returns the client-facing role names ("ROLE_USER", ...).
func (p *Principal) Authorities() []string {
	if p == nil {
		return nil
	}
	return identity.Authorities(p.Roles)
}

type contextKey struct{ name string }

var principalKey = &contextKey{"principal"}

// WithContext returns a copy of ctx carrying p.
func WithContext(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext returns the principal attached to ctx, if any.
func FromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey).(*Principal)
	return p, ok && p != nil
}
