package refresh

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/cmd/internal/migrations"
)

// Integration tests are opt-in and require AUTHGATE_DATABASE_URL.

func TestPostgresBackend_Lifecycle(t *testing.T) {
	pool := mustOpenTestPool(t)

	b, err := NewPostgresBackend(pool, "")
	require.NoError(t, err)

	clk := &testClock{t: time.Now().UTC().Truncate(time.Second)}
	s, err := NewStore(b, Config{TTL: 30 * time.Minute, Now: clk.Now})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	userID := "it-" + clk.t.Format("150405.000000000")
	t.Cleanup(func() { _ = s.DeleteForUser(context.Background(), userID) })

	h, err := s.Create(ctx, userID)
	require.NoError(t, err)

	got, ok, err := s.FindByToken(ctx, h.Token)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, h.ID, got.ID)
	assert.True(t, h.ExpiresAt.Equal(got.ExpiresAt))

	clk.Advance(30 * time.Minute)
	_, err = s.CheckValid(ctx, got)
	require.ErrorIs(t, err, ErrExpired)

	_, ok, err = s.FindByToken(ctx, h.Token)
	require.NoError(t, err)
	assert.False(t, ok)

	h2, err := s.Create(ctx, userID)
	require.NoError(t, err)
	n, err := b.Sweep(ctx, h2.ExpiresAt)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	_, ok, err = s.FindByToken(ctx, h2.Token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func mustOpenTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	raw := strings.TrimSpace(os.Getenv("AUTHGATE_DATABASE_URL"))
	if raw == "" {
		t.Skip("integration test skipped: AUTHGATE_DATABASE_URL is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, raw)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, pool.Ping(ctx))
	require.NoError(t, migrations.Up(ctx, pool))
	return pool
}
