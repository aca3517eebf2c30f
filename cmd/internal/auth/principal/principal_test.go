package principal

import (
	"context"
	"testing"

	"authgate/cmd/identity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	p := FromUser(identity.User{ID: "u1", Username: "alice", Roles: []identity.Role{identity.RoleUser}})
	ctx := WithContext(context.Background(), p)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, p, got)

	_, ok = FromContext(WithContext(context.Background(), nil))
	assert.False(t, ok, "nil principal must read as absent")
}

func TestRoles(t *testing.T) {
	t.Parallel()

	p := &Principal{Roles: []identity.Role{identity.RoleManager}}
	assert.True(t, p.HasRole(identity.RoleManager))
	assert.False(t, p.HasRole(identity.RoleAdmin))
	assert.True(t, p.HasAnyRole(identity.RoleAdmin, identity.RoleManager))
	assert.Equal(t, []string{"ROLE_MANAGER"}, p.Authorities())

	var none *Principal
	assert.False(t, none.HasAnyRole(identity.RoleUser))
	assert.Nil(t, none.Authorities())
}
