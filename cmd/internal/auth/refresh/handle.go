package refresh

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrExpired is returned by CheckValid for a handle whose expiry has passed.
	// The handle has already been deleted when this is returned.
	ErrExpired = errors.New("refresh: handle expired")

	// ErrDuplicateToken is returned by a backend when the token digest is already stored.
	ErrDuplicateToken = errors.New("refresh: duplicate token")

	// ErrInvalidUserID is returned for an empty owner id.
	ErrInvalidUserID = errors.New("refresh: empty user id")

	// ErrConfig is returned by NewStore for unusable settings.
	ErrConfig = errors.New("refresh: invalid config")
)

// Handle is a refresh handle as seen by callers. Token is the plaintext value
// handed to the client; it is never persisted.
type Handle struct {
	ID        string
	UserID    string
	Token     string
	ExpiresAt time.Time
}

// Record is the persisted form of a handle.
type Record struct {
	ID        string
	UserID    string
	TokenHash string
	ExpiresAt time.Time
}

// Backend is an expiring keyed store for records.
//
// Put stores rec and arranges for it to disappear after ttl where the backend
// supports passive expiry. GetByTokenHash reports absence as (Record{}, false, nil).
// Delete and DeleteByUser are idempotent.
type Backend interface {
	Put(ctx context.Context, rec Record, ttl time.Duration) error
	GetByTokenHash(ctx context.Context, tokenHash string) (Record, bool, error)
	Delete(ctx context.Context, rec Record) error
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

// Sweeper is implemented by backends without passive expiry.
type Sweeper interface {
	Sweep(ctx context.Context, now time.Time) (int64, error)
}
