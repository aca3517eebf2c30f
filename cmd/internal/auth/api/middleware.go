package authapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"authgate/cmd/identity"
	"authgate/cmd/internal/auth/authz"
	"authgate/cmd/internal/auth/credential"
	"authgate/cmd/internal/auth/principal"
)

// CredentialVerifier returns the subject of a valid access credential.
// *credential.Signer satisfies it.
type CredentialVerifier interface {
	Verify(text string) (string, error)
}

// UserFinder resolves the credential subject. identity.Store satisfies it.
type UserFinder interface {
	GetUserByUsername(ctx context.Context, username string) (identity.User, error)
}

// Authenticator turns a bearer credential into a request principal.
type Authenticator struct {
	verifier CredentialVerifier
	users    UserFinder
	log      *slog.Logger
	metrics  *Metrics
}

// NewAuthenticator builds an Authenticator. log and m may be nil.
func NewAuthenticator(verifier CredentialVerifier, users UserFinder, log *slog.Logger, m *Metrics) *Authenticator {
	if log == nil {
		log = slog.Default()
	}
	return &Authenticator{verifier: verifier, users: users, log: log, metrics: m}
}

// Middleware attaches a principal to the request context when the request
// carries a valid bearer credential whose subject still exists. Any failure
// leaves the request unauthenticated; it is never rejected here.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok := bearerToken(r)
		if tok == "" {
			next.ServeHTTP(w, r)
			return
		}

		sub, err := a.verifier.Verify(tok)
		if err != nil {
			kind := credential.KindOf(err).String()
			a.metrics.bearerRejected(kind)
			a.log.Debug("auth.bearer.reject", "kind", kind, "err", err)
			next.ServeHTTP(w, r)
			return
		}

		u, err := a.users.GetUserByUsername(r.Context(), sub)
		if err != nil {
			a.metrics.bearerRejected("user_lookup")
			if identity.IsNotFound(err) {
				a.log.Debug("auth.bearer.user_missing", "username", sub)
			} else {
				a.log.Warn("auth.bearer.user_lookup.fail", "username", sub, "err", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := principal.WithContext(r.Context(), principal.FromUser(u))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Guard enforces pol using the principal attached by Authenticator.Middleware.
func Guard(pol authz.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, _ := principal.FromContext(r.Context())
			switch pol.Decide(p, r.Method, r.URL.Path) {
			case authz.Allow:
				next.ServeHTTP(w, r)
			case authz.Forbidden:
				WriteForbidden(w, r, "Access Denied")
			default:
				WriteUnauthorized(w, r, "Full authentication is required to access this resource")
			}
		})
	}
}

// Protect wraps next with authentication followed by the route guard.
func Protect(next http.Handler, a *Authenticator, pol authz.Policy) http.Handler {
	return a.Middleware(Guard(pol)(next))
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
