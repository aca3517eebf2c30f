package identity

import (
	"context"
	"time"
)

// User is the persisted account record.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
}

// HasRole reports whether u carries r.
func (u User) HasRole(r Role) bool {
	for _, have := range u.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// NewUser is a validated insert; PasswordHash is already encoded.
type NewUser struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
}

// Store is the user persistence boundary.
type Store interface {
	// CreateUser inserts u. Username and email are unique case-insensitively;
	// a clash returns ConflictError.
	CreateUser(ctx context.Context, u NewUser) (User, error)

	// GetUserByID returns NotFoundError when no such user exists.
	GetUserByID(ctx context.Context, id string) (User, error)

	// GetUserByUsername looks up by normalized username.
	GetUserByUsername(ctx context.Context, username string) (User, error)

	// UpdatePasswordHash replaces the stored hash (used for transparent rehash).
	UpdatePasswordHash(ctx context.Context, id, hash string) error

	// DeleteUser removes the user. Refresh handles owned by the user are left in place.
	DeleteUser(ctx context.Context, id string) error
}
