package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"authgate/cmd/identity"
	"authgate/cmd/internal/auth/credential"
	"authgate/cmd/internal/auth/principal"
	"authgate/cmd/internal/auth/refresh"
)

// Authenticator verifies a username/password pair.
// *identity.Service satisfies it.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (identity.User, error)
}

// UserLookup loads users by id. identity.Store satisfies it.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (identity.User, error)
}

// LoginResult is returned by a successful Login.
type LoginResult struct {
	ID           string
	AccessToken  string
	RefreshToken string
	Username     string
	Email        string
	// Roles are client-facing authority names, e.g. "ROLE_USER".
	Roles []string
}

// RefreshResult is returned by a successful Refresh.
type RefreshResult struct {
	AccessToken  string
	RefreshToken string
}

// Orchestrator runs the login, refresh and logout flows.
type Orchestrator struct {
	auth    Authenticator
	users   UserLookup
	signer  *credential.Signer
	store   *refresh.Store
	log     *slog.Logger
	metrics *Metrics

	singleUse bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithSingleUseRefresh deletes a redeemed handle after its replacement is created.
func WithSingleUseRefresh(on bool) Option {
	return func(o *Orchestrator) { o.singleUse = on }
}

// WithLogger sets the orchestrator logger.
func WithLogger(log *slog.Logger) Option {
	return func(o *Orchestrator) {
		if log != nil {
			o.log = log
		}
	}
}

// WithMetrics records flow outcomes.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// NewOrchestrator wires the collaborators. All of them are required.
func NewOrchestrator(auth Authenticator, users UserLookup, signer *credential.Signer, store *refresh.Store, opts ...Option) (*Orchestrator, error) {
	if auth == nil || users == nil || signer == nil || store == nil {
		return nil, fmt.Errorf("%w: orchestrator collaborators must not be nil", ErrConfig)
	}
	o := &Orchestrator{
		auth:   auth,
		users:  users,
		signer: signer,
		store:  store,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

// Login authenticates username/password and issues a credential plus a refresh handle.
func (o *Orchestrator) Login(ctx context.Context, username, password string) (LoginResult, error) {
	u, err := o.auth.Authenticate(ctx, username, password)
	if err != nil {
		if identity.IsBadCredentials(err) || identity.IsInvalidInput(err) {
			o.metrics.login("bad_credentials")
			return LoginResult{}, ErrBadCredentials
		}
		o.metrics.login("error")
		return LoginResult{}, fmt.Errorf("session: login: %w", err)
	}

	cred, err := o.signer.Issue(u.Username, nil)
	if err != nil {
		o.metrics.login("error")
		return LoginResult{}, fmt.Errorf("session: issue credential: %w", err)
	}

	h, err := o.store.Create(ctx, u.ID)
	if err != nil {
		o.metrics.login("error")
		return LoginResult{}, err
	}

	o.metrics.login("ok")
	return LoginResult{
		ID:           u.ID,
		AccessToken:  cred.Token,
		RefreshToken: h.Token,
		Username:     u.Username,
		Email:        u.Email,
		Roles:        identity.Authorities(u.Roles),
	}, nil
}

// Refresh exchanges a live refresh token for a new credential and a new handle.
//
// The presented handle stays valid until it expires or its owner logs out,
// unless single-use refresh is enabled.
func (o *Orchestrator) Refresh(ctx context.Context, tok string) (RefreshResult, error) {
	h, found, err := o.store.FindByToken(ctx, tok)
	if err != nil {
		o.metrics.refresh("error")
		return RefreshResult{}, err
	}
	if !found {
		o.metrics.refresh("not_found")
		return RefreshResult{}, ErrTokenNotFound
	}

	h, err = o.store.CheckValid(ctx, h)
	if err != nil {
		if errors.Is(err, refresh.ErrExpired) {
			o.metrics.refresh("expired")
			return RefreshResult{}, fmt.Errorf("%w: %w", ErrExpired, err)
		}
		o.metrics.refresh("error")
		return RefreshResult{}, err
	}

	u, err := o.users.GetUserByID(ctx, h.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			o.metrics.refresh("owner_missing")
			return RefreshResult{}, &UserLookupError{UserID: h.UserID, Err: err}
		}
		o.metrics.refresh("error")
		return RefreshResult{}, fmt.Errorf("session: load user: %w", err)
	}

	cred, err := o.signer.Issue(u.Username, nil)
	if err != nil {
		o.metrics.refresh("error")
		return RefreshResult{}, fmt.Errorf("session: issue credential: %w", err)
	}

	next, err := o.store.Create(ctx, u.ID)
	if err != nil {
		o.metrics.refresh("error")
		return RefreshResult{}, err
	}

	if o.singleUse {
		if err := o.store.Delete(ctx, h); err != nil {
			o.log.Warn("session.refresh.revoke_old.fail", "user_id", u.ID, "handle_id", h.ID, "err", err)
		}
	}

	o.metrics.refresh("ok")
	return RefreshResult{AccessToken: cred.Token, RefreshToken: next.Token}, nil
}

// Logout deletes every refresh handle owned by p. A nil principal is a no-op.
func (o *Orchestrator) Logout(ctx context.Context, p *principal.Principal) error {
	if p == nil {
		return nil
	}
	return o.store.DeleteForUser(ctx, p.UserID)
}
