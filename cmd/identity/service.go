package identity

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"authgate/cmd/identity/ids"
	"authgate/cmd/security/password"
)

// RegisterInput describes a registration request.
// Roles are only honoured when the Service allows self-assignment.
type RegisterInput struct {
	Username string
	Email    string
	Password string
	Roles    []string
	Now      time.Time
}

// Service registers users and verifies passwords against a Store.
type Service struct {
	store Store
	pw    password.Config
	log   *slog.Logger

	allowRoleSelfAssign bool

	// dummyHash is verified when the username is unknown so that timing
	// does not reveal which usernames exist.
	dummyHash string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithRoleSelfAssign lets registrants choose their own roles.
func WithRoleSelfAssign(allow bool) ServiceOption {
	return func(s *Service) { s.allowRoleSelfAssign = allow }
}

// WithLogger sets the logger used for best-effort rehash failures.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService builds a Service. pw controls hashing cost and password policy.
func NewService(store Store, pw password.Config, opts ...ServiceOption) *Service {
	s := &Service{store: store, pw: pw, log: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	if h, err := pw.Hash(strings.Repeat("x", max(pw.Policy.MinLength, 8))); err == nil {
		s.dummyHash = h
	}
	return s
}

// Store exposes the underlying user store.
func (s *Service) Store() Store { return s.store }

// Register validates input, hashes the password and persists the user.
func (s *Service) Register(ctx context.Context, in RegisterInput) (User, error) {
	const op = "identity.Register"

	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(in.Email)

	if !validUsername(username) {
		return User{}, invalid(op, "username must be 3-64 letters, digits, '.', '_' or '-'")
	}
	if !validEmail(email) {
		return User{}, invalid(op, "email is not a valid address")
	}

	roles := []Role{RoleUser}
	if s.allowRoleSelfAssign {
		var ok bool
		if roles, ok = normalizeRoles(in.Roles); !ok {
			return User{}, invalid(op, "unknown role")
		}
	}

	hash, err := s.pw.Hash(in.Password)
	if err != nil {
		return User{}, invalid(op, err.Error())
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return User{}, err
	}

	return s.store.CreateUser(ctx, NewUser{
		ID:           id,
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    now,
	})
}

// Authenticate checks username/password and returns the user on success.
// Unknown users and wrong passwords both yield ErrBadCredentials.
func (s *Service) Authenticate(ctx context.Context, username, plain string) (User, error) {
	const op = "identity.Authenticate"
	bad := OpError{Op: op, Kind: ErrBadCredentials}

	u, err := s.store.GetUserByUsername(ctx, username)
	if err != nil {
		if IsNotFound(err) {
			if s.dummyHash != "" {
				_, _ = s.pw.Verify(s.dummyHash, plain)
			}
			return User{}, bad
		}
		return User{}, err
	}

	ok, err := s.pw.Verify(u.PasswordHash, plain)
	if err != nil {
		s.log.Warn("identity.authenticate.hash_invalid", "user_id", u.ID, "err", err)
		return User{}, bad
	}
	if !ok {
		return User{}, bad
	}

	if s.pw.NeedsRehash(u.PasswordHash) {
		if h, err := s.pw.Hash(plain); err == nil {
			if err := s.store.UpdatePasswordHash(ctx, u.ID, h); err != nil {
				s.log.Warn("identity.authenticate.rehash.fail", "user_id", u.ID, "err", err)
			} else {
				u.PasswordHash = h
			}
		}
	}

	return u, nil
}
