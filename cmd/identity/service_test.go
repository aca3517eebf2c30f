package identity

import (
	"context"
	"testing"
	"time"

	"authgate/cmd/security/password"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testPasswordConfig() password.Config {
	cfg := password.DefaultConfig()
	cfg.Params.MemoryKiB = 8 * 1024
	cfg.Params.Iterations = 1
	cfg.Params.Parallelism = 1
	return cfg
}

func TestService_RegisterAndAuthenticate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewService(NewMemoryStore(), testPasswordConfig())

	u, err := svc.Register(ctx, RegisterInput{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "correct-pw",
		Roles:    []string{"ADMIN"},
	})
	require.NoError(t, err)
	assert.Len(t, u.ID, 26)
	assert.Equal(t, []Role{RoleUser}, u.Roles, "self-assigned roles must be ignored by default")

	got, err := svc.Authenticate(ctx, "ALICE", "correct-pw")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = svc.Authenticate(ctx, "alice", "wrong-pw")
	assert.True(t, IsBadCredentials(err), "got %v", err)

	_, err = svc.Authenticate(ctx, "nobody", "correct-pw")
	assert.True(t, IsBadCredentials(err), "got %v", err)
}

func TestService_RegisterRoleSelfAssign(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewService(NewMemoryStore(), testPasswordConfig(), WithRoleSelfAssign(true))

	u, err := svc.Register(ctx, RegisterInput{
		Username: "boss",
		Email:    "boss@example.com",
		Password: "correct-pw",
		Roles:    []string{"ROLE_MANAGER", "admin", "MANAGER"},
	})
	require.NoError(t, err)
	assert.Equal(t, []Role{RoleAdmin, RoleManager}, u.Roles)
	assert.Equal(t, []string{"ROLE_ADMIN", "ROLE_MANAGER"}, Authorities(u.Roles))

	_, err = svc.Register(ctx, RegisterInput{
		Username: "bad",
		Email:    "bad@example.com",
		Password: "correct-pw",
		Roles:    []string{"ROOT"},
	})
	assert.True(t, IsInvalidInput(err), "got %v", err)
}

func TestService_RegisterConflicts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewService(NewMemoryStore(), testPasswordConfig())

	_, err := svc.Register(ctx, RegisterInput{Username: "carol", Email: "carol@example.com", Password: "correct-pw"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "Carol", Email: "other@example.com", Password: "correct-pw"})
	var ce ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "username", ce.Field)
	assert.Equal(t, "Carol", ce.Value)

	_, err = svc.Register(ctx, RegisterInput{Username: "carol2", Email: "CAROL@example.com", Password: "correct-pw"})
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "email", ce.Field)
}

func TestService_RegisterValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := NewService(NewMemoryStore(), testPasswordConfig())

	cases := []struct {
		name string
		in   RegisterInput
	}{
		{name: "short username", in: RegisterInput{Username: "ab", Email: "ab@example.com", Password: "correct-pw"}},
		{name: "bad username chars", in: RegisterInput{Username: "a b c", Email: "abc@example.com", Password: "correct-pw"}},
		{name: "bad email", in: RegisterInput{Username: "dave", Email: "not-an-email", Password: "correct-pw"}},
		{name: "short password", in: RegisterInput{Username: "dave", Email: "dave@example.com", Password: "short"}},
	}
	for _, tc := range cases {
		_, err := svc.Register(ctx, tc.in)
		assert.True(t, IsInvalidInput(err), "%s: got %v", tc.name, err)
	}
}

func TestService_AuthenticateRehashesLegacyBcrypt(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemoryStore()
	svc := NewService(store, testPasswordConfig())

	legacy, err := bcrypt.GenerateFromPassword([]byte("imported-pw"), bcrypt.MinCost)
	require.NoError(t, err)

	_, err = store.CreateUser(ctx, NewUser{
		ID:           "01J00000000000000000000000",
		Username:     "legacy",
		Email:        "legacy@example.com",
		PasswordHash: string(legacy),
		Roles:        []Role{RoleUser},
		CreatedAt:    time.Now().UTC(),
	})
	require.NoError(t, err)

	u, err := svc.Authenticate(ctx, "legacy", "imported-pw")
	require.NoError(t, err)
	assert.Contains(t, u.PasswordHash, "$argon2id$")

	stored, err := store.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.PasswordHash, stored.PasswordHash)
}
