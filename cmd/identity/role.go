package identity

import (
	"slices"
	"strings"
)

// Role is a coarse permission tag stored on the user record.
type Role string

const (
	RoleUser    Role = "USER"
	RoleManager Role = "MANAGER"
	RoleAdmin   Role = "ADMIN"
)

// AuthorityPrefix is prepended to a role when it is exposed to clients.
const AuthorityPrefix = "ROLE_"

// Authority returns the client-facing name, e.g. "ROLE_USER".
func (r Role) Authority() string { return AuthorityPrefix + string(r) }

// ParseRole accepts "ADMIN", "admin" or "ROLE_ADMIN".
func ParseRole(s string) (Role, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimPrefix(s, AuthorityPrefix)
	switch r := Role(s); r {
	case RoleUser, RoleManager, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}

// Authorities maps roles to their client-facing names, preserving order.
func Authorities(roles []Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.Authority())
	}
	return out
}

// normalizeRoles parses, de-duplicates and sorts raw role names.
// An empty input yields [USER].
func normalizeRoles(raw []string) ([]Role, bool) {
	if len(raw) == 0 {
		return []Role{RoleUser}, true
	}
	out := make([]Role, 0, len(raw))
	for _, s := range raw {
		r, ok := ParseRole(s)
		if !ok {
			return nil, false
		}
		if !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	slices.Sort(out)
	return out, true
}

func rolesToStrings(roles []Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}

func rolesFromStrings(raw []string) []Role {
	out := make([]Role, 0, len(raw))
	for _, s := range raw {
		if r, ok := ParseRole(s); ok {
			out = append(out, r)
		}
	}
	return out
}
