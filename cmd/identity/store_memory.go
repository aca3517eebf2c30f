package identity

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore is an in-process Store for development and tests.
type MemoryStore struct {
	mu         sync.RWMutex
	byID       map[string]User
	byUsername map[string]string
	byEmail    map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:       make(map[string]User),
		byUsername: make(map[string]string),
		byEmail:    make(map[string]string),
	}
}

func cloneUser(u User) User {
	u.Roles = slices.Clone(u.Roles)
	return u
}

func (s *MemoryStore) CreateUser(ctx context.Context, in NewUser) (User, error) {
	const op = "identity.CreateUser"
	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	un := NormalizeUsername(in.Username)
	em := NormalizeEmail(in.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byUsername[un]; ok {
		return User{}, ConflictError{Op: op, Field: "username", Value: in.Username}
	}
	if _, ok := s.byEmail[em]; ok {
		return User{}, ConflictError{Op: op, Field: "email", Value: in.Email}
	}

	u := User(in)
	u = cloneUser(u)
	s.byID[u.ID] = u
	s.byUsername[un] = u.ID
	s.byEmail[em] = u.ID
	return cloneUser(u), nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, id string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return User{}, NotFoundError{Op: "identity.GetUserByID", Resource: "user"}
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	if err := ctx.Err(); err != nil {
		return User{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byUsername[NormalizeUsername(username)]
	if !ok {
		return User{}, NotFoundError{Op: "identity.GetUserByUsername", Resource: "user"}
	}
	return cloneUser(s.byID[id]), nil
}

func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return NotFoundError{Op: "identity.UpdatePasswordHash", Resource: "user"}
	}
	u.PasswordHash = hash
	s.byID[id] = u
	return nil
}

func (s *MemoryStore) DeleteUser(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.byID[id]
	if !ok {
		return NotFoundError{Op: "identity.DeleteUser", Resource: "user"}
	}
	delete(s.byID, id)
	delete(s.byUsername, NormalizeUsername(u.Username))
	delete(s.byEmail, NormalizeEmail(u.Email))
	return nil
}
