// Package authz decides whether a principal may reach a route.
//
// A Policy is an ordered list of rules. Each rule pairs a path pattern (and
// optionally a method) with a predicate over the principal. The first rule
// whose pattern matches decides; when none matches the Default predicate
// applies.
package authz

import (
	"net/http"
	"strings"

	"authgate/cmd/identity"
	"authgate/cmd/internal/auth/principal"
)

// Decision is the outcome of Policy.Decide.
type Decision int

const (
	Allow Decision = iota
	// Unauthenticated means the route needs a principal and there is none.
	Unauthenticated
	// Forbidden means the principal is present but lacks the required role.
	Forbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Predicate evaluates a possibly nil principal.
type Predicate func(p *principal.Principal) Decision

// PermitAll allows anonymous and authenticated callers.
func PermitAll() Predicate {
	return func(*principal.Principal) Decision { return Allow }
}

// Authenticated requires any principal.
func Authenticated() Predicate {
	return func(p *principal.Principal) Decision {
		if p == nil {
			return Unauthenticated
		}
		return Allow
	}
}

// HasRole requires a principal carrying r.
func HasRole(r identity.Role) Predicate {
	return HasAnyRole(r)
}

// HasAnyRole requires a principal carrying at least one of rs.
func HasAnyRole(rs ...identity.Role) Predicate {
	return func(p *principal.Principal) Decision {
		if p == nil {
			return Unauthenticated
		}
		if p.HasAnyRole(rs...) {
			return Allow
		}
		return Forbidden
	}
}

// Rule gates requests whose path matches Pattern.
//
// Pattern syntax: an exact path, "*" for exactly one segment, and a trailing
// "/**" for any (possibly empty) suffix. Method is optional; empty matches all.
type Rule struct {
	Pattern string
	Method  string
	Require Predicate
}

// Policy is an ordered rule list.
type Policy struct {
	Rules []Rule
	// Default applies when no rule matches. Nil means Authenticated.
	Default Predicate
}

// Decide evaluates the first matching rule for method and path.
func (pol Policy) Decide(p *principal.Principal, method, path string) Decision {
	for _, r := range pol.Rules {
		if r.Method != "" && !strings.EqualFold(r.Method, method) {
			continue
		}
		if !Match(r.Pattern, path) {
			continue
		}
		if r.Require == nil {
			return Authenticated()(p)
		}
		return r.Require(p)
	}
	if pol.Default == nil {
		return Authenticated()(p)
	}
	return pol.Default(p)
}

// Match reports whether path matches pattern.
func Match(pattern, path string) bool {
	pat := splitPath(pattern)
	segs := splitPath(path)

	for i, p := range pat {
		if p == "**" && i == len(pat)-1 {
			return true
		}
		if i >= len(segs) {
			return false
		}
		if p != "*" && p != segs[i] {
			return false
		}
	}
	return len(pat) == len(segs)
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

// DefaultPolicy is the route table served by authgate.
func DefaultPolicy() Policy {
	return Policy{
		Rules: []Rule{
			{Pattern: "/api/v1/auth/signin", Require: PermitAll()},
			{Pattern: "/api/v1/auth/register", Require: PermitAll()},
			{Pattern: "/api/v1/auth/refresh-token", Require: PermitAll()},
			{Pattern: "/api/v1/auth/logout", Require: Authenticated()},
			{Pattern: "/api/v1/app/all", Method: http.MethodGet, Require: PermitAll()},
			{Pattern: "/api/v1/app/admin", Require: HasRole(identity.RoleAdmin)},
			{Pattern: "/api/v1/app/manager", Require: HasRole(identity.RoleManager)},
			{Pattern: "/api/v1/app/user", Require: HasAnyRole(identity.RoleUser, identity.RoleManager, identity.RoleAdmin)},
			{Pattern: "/healthz", Require: PermitAll()},
			{Pattern: "/readyz", Require: PermitAll()},
			{Pattern: "/metrics", Require: PermitAll()},
		},
		Default: Authenticated(),
	}
}
