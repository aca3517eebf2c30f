package refresh

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"authgate/cmd/identity/ids"
	"authgate/cmd/security/token"
)

const (
	// DefaultTokenBytes yields 256-bit tokens.
	DefaultTokenBytes = 32
	// MinTokenBytes keeps tokens at 256 bits of entropy or more.
	MinTokenBytes = 32
	MaxTokenBytes = 64

	DefaultTimeout = 2 * time.Second

	// maxTokenLen bounds presented tokens before hashing.
	maxTokenLen = 4096
)

// Config configures a Store.
type Config struct {
	// TTL is the refresh lifetime and the backend expiry. Required.
	TTL time.Duration
	// Timeout bounds each backend call. Zero means DefaultTimeout.
	Timeout time.Duration
	// TokenBytes is the random length of new tokens. Zero means DefaultTokenBytes.
	TokenBytes int
	// Hasher digests tokens before they reach the backend.
	Hasher token.Hasher
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
	// Metrics is optional.
	Metrics *Metrics
}

// Store is the refresh handle store used by the session layer.
type Store struct {
	backend    Backend
	ttl        time.Duration
	timeout    time.Duration
	tokenBytes int
	hasher     token.Hasher
	now        func() time.Time
	metrics    *Metrics
}

// NewStore validates cfg and wraps backend.
func NewStore(backend Backend, cfg Config) (*Store, error) {
	if backend == nil {
		return nil, fmt.Errorf("%w: nil backend", ErrConfig)
	}
	if cfg.TTL < time.Second {
		return nil, fmt.Errorf("%w: ttl must be at least 1s", ErrConfig)
	}
	if cfg.Timeout < 0 {
		return nil, fmt.Errorf("%w: negative timeout", ErrConfig)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TokenBytes == 0 {
		cfg.TokenBytes = DefaultTokenBytes
	}
	if cfg.TokenBytes < MinTokenBytes || cfg.TokenBytes > MaxTokenBytes {
		return nil, fmt.Errorf("%w: token bytes must be in [%d,%d]", ErrConfig, MinTokenBytes, MaxTokenBytes)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Store{
		backend:    backend,
		ttl:        cfg.TTL,
		timeout:    cfg.Timeout,
		tokenBytes: cfg.TokenBytes,
		hasher:     cfg.Hasher,
		now:        cfg.Now,
		metrics:    cfg.Metrics,
	}, nil
}

// TTL returns the refresh lifetime.
func (s *Store) TTL() time.Duration { return s.ttl }

// Create issues a new handle for userID expiring at now + TTL.
func (s *Store) Create(ctx context.Context, userID string) (Handle, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Handle{}, ErrInvalidUserID
	}

	now := s.now().UTC().Truncate(time.Second)

	plain, err := s.newToken()
	if err != nil {
		return Handle{}, fmt.Errorf("refresh: generate token: %w", err)
	}
	id, err := ids.NewULID(now)
	if err != nil {
		return Handle{}, fmt.Errorf("refresh: generate id: %w", err)
	}

	rec := Record{
		ID:        id,
		UserID:    userID,
		TokenHash: s.hasher.Hex(plain),
		ExpiresAt: now.Add(s.ttl),
	}

	err = s.call(ctx, "create", func(ctx context.Context) error {
		return s.backend.Put(ctx, rec, s.ttl)
	})
	if err != nil {
		return Handle{}, fmt.Errorf("refresh: create: %w", err)
	}

	return Handle{ID: rec.ID, UserID: rec.UserID, Token: plain, ExpiresAt: rec.ExpiresAt}, nil
}

// FindByToken looks up a handle by its plaintext token.
// An unknown token is reported as (Handle{}, false, nil).
func (s *Store) FindByToken(ctx context.Context, tok string) (Handle, bool, error) {
	tok = strings.TrimSpace(tok)
	if tok == "" || len(tok) > maxTokenLen {
		return Handle{}, false, nil
	}

	var (
		rec   Record
		found bool
	)
	err := s.call(ctx, "find", func(ctx context.Context) error {
		var err error
		rec, found, err = s.backend.GetByTokenHash(ctx, s.hasher.Hex(tok))
		return err
	})
	if err != nil {
		return Handle{}, false, fmt.Errorf("refresh: find: %w", err)
	}
	if !found {
		return Handle{}, false, nil
	}

	return Handle{ID: rec.ID, UserID: rec.UserID, Token: tok, ExpiresAt: rec.ExpiresAt}, true, nil
}

// CheckValid returns h unchanged while it is live. Once h.ExpiresAt <= now the
// handle is deleted and ErrExpired is returned.
func (s *Store) CheckValid(ctx context.Context, h Handle) (Handle, error) {
	if h.ExpiresAt.After(s.now()) {
		return h, nil
	}
	if err := s.Delete(ctx, h); err != nil {
		return Handle{}, errors.Join(ErrExpired, err)
	}
	return Handle{}, ErrExpired
}

// Delete removes a single handle. Deleting an absent handle is not an error.
func (s *Store) Delete(ctx context.Context, h Handle) error {
	rec := Record{ID: h.ID, UserID: h.UserID, ExpiresAt: h.ExpiresAt}
	if h.Token != "" {
		rec.TokenHash = s.hasher.Hex(h.Token)
	}
	err := s.call(ctx, "delete", func(ctx context.Context) error {
		return s.backend.Delete(ctx, rec)
	})
	if err != nil {
		return fmt.Errorf("refresh: delete: %w", err)
	}
	return nil
}

// DeleteForUser removes every handle owned by userID. It is idempotent.
func (s *Store) DeleteForUser(ctx context.Context, userID string) error {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return ErrInvalidUserID
	}

	err := s.call(ctx, "delete_user", func(ctx context.Context) error {
		n, err := s.backend.DeleteByUser(ctx, userID)
		s.metrics.revoked(n)
		return err
	})
	if err != nil {
		return fmt.Errorf("refresh: delete for user: %w", err)
	}
	return nil
}

func (s *Store) call(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	s.metrics.observe(op, time.Since(start), err)
	return err
}

func (s *Store) newToken() (string, error) {
	b := make([]byte, s.tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
