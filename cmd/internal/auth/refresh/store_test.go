package refresh

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"authgate/cmd/security/token"
)

type testClock struct{ t time.Time }

func (c *testClock) Now() time.Time { return c.t }

func (c *testClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type harness struct {
	store *Store
	clock *testClock
}

type backendFactory func(t *testing.T, clk *testClock) Backend

func backends() map[string]backendFactory {
	return map[string]backendFactory{
		"memory": func(_ *testing.T, clk *testClock) Backend {
			return NewMemoryBackend(clk.Now)
		},
		"redis": func(t *testing.T, _ *testClock) Backend {
			mr := miniredis.RunT(t)
			rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = rdb.Close() })
			b, err := NewRedisBackend(rdb, "")
			require.NoError(t, err)
			return b
		},
	}
}

func newHarness(t *testing.T, newBackend backendFactory, ttl time.Duration) harness {
	t.Helper()
	clk := &testClock{t: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
	s, err := NewStore(newBackend(t, clk), Config{
		TTL:    ttl,
		Hasher: token.NewHasher([]byte("0123456789abcdef0123456789abcdef")),
		Now:    clk.Now,
	})
	require.NoError(t, err)
	return harness{store: s, clock: clk}
}

func TestStore_CreateThenFind(t *testing.T) {
	t.Parallel()

	for name, nb := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, nb, 30*time.Minute)
			ctx := context.Background()

			created, err := h.store.Create(ctx, "user-1")
			require.NoError(t, err)
			assert.NotEmpty(t, created.ID)
			assert.Equal(t, "user-1", created.UserID)
			assert.Equal(t, h.clock.t.Add(30*time.Minute), created.ExpiresAt)

			raw, err := base64.RawURLEncoding.DecodeString(created.Token)
			require.NoError(t, err)
			assert.Len(t, raw, DefaultTokenBytes)

			got, ok, err := h.store.FindByToken(ctx, created.Token)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, created, got)
		})
	}
}

func TestStore_FindUnknownIsAbsent(t *testing.T) {
	t.Parallel()

	for name, nb := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, nb, time.Hour)
			ctx := context.Background()

			for _, tok := range []string{"", "   ", "does-not-exist"} {
				_, ok, err := h.store.FindByToken(ctx, tok)
				require.NoError(t, err)
				assert.False(t, ok, "%q", tok)
			}
		})
	}
}

func TestStore_CheckValidDeletesExpired(t *testing.T) {
	t.Parallel()

	for name, nb := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, nb, 30*time.Minute)
			ctx := context.Background()

			created, err := h.store.Create(ctx, "user-1")
			require.NoError(t, err)

			h.clock.Advance(30*time.Minute - time.Second)
			got, err := h.store.CheckValid(ctx, created)
			require.NoError(t, err)
			assert.Equal(t, created, got)

			h.clock.Advance(time.Second)
			_, err = h.store.CheckValid(ctx, created)
			assert.ErrorIs(t, err, ErrExpired)

			_, ok, err := h.store.FindByToken(ctx, created.Token)
			require.NoError(t, err)
			assert.False(t, ok, "expired handle must be purged")
		})
	}
}

func TestStore_CheckValidPurgesBeforeBackendExpiry(t *testing.T) {
	t.Parallel()

	h := newHarness(t, backends()["redis"], time.Hour)
	ctx := context.Background()

	created, err := h.store.Create(ctx, "user-1")
	require.NoError(t, err)

	// The store clock passes expiry while the Redis keys are still live.
	h.clock.Advance(2 * time.Hour)
	_, err = h.store.CheckValid(ctx, created)
	require.ErrorIs(t, err, ErrExpired)

	_, ok, err := h.store.FindByToken(ctx, created.Token)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_DeleteForUser(t *testing.T) {
	t.Parallel()

	for name, nb := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, nb, time.Hour)
			ctx := context.Background()

			a1, err := h.store.Create(ctx, "alice")
			require.NoError(t, err)
			a2, err := h.store.Create(ctx, "alice")
			require.NoError(t, err)
			b1, err := h.store.Create(ctx, "bob")
			require.NoError(t, err)

			require.NoError(t, h.store.DeleteForUser(ctx, "alice"))
			require.NoError(t, h.store.DeleteForUser(ctx, "alice"))
			require.NoError(t, h.store.DeleteForUser(ctx, "nobody"))

			for _, gone := range []Handle{a1, a2} {
				_, ok, err := h.store.FindByToken(ctx, gone.Token)
				require.NoError(t, err)
				assert.False(t, ok)
			}
			_, ok, err := h.store.FindByToken(ctx, b1.Token)
			require.NoError(t, err)
			assert.True(t, ok, "other users keep their handles")

			assert.ErrorIs(t, h.store.DeleteForUser(ctx, " "), ErrInvalidUserID)
		})
	}
}

func TestStore_DeleteSingle(t *testing.T) {
	t.Parallel()

	for name, nb := range backends() {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			h := newHarness(t, nb, time.Hour)
			ctx := context.Background()

			old, err := h.store.Create(ctx, "alice")
			require.NoError(t, err)
			keep, err := h.store.Create(ctx, "alice")
			require.NoError(t, err)

			require.NoError(t, h.store.Delete(ctx, old))
			require.NoError(t, h.store.Delete(ctx, old))

			_, ok, err := h.store.FindByToken(ctx, old.Token)
			require.NoError(t, err)
			assert.False(t, ok)
			_, ok, err = h.store.FindByToken(ctx, keep.Token)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestStore_TokensAreUnique(t *testing.T) {
	t.Parallel()

	h := newHarness(t, backends()["memory"], time.Hour)
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 500; i++ {
		created, err := h.store.Create(ctx, "alice")
		require.NoError(t, err)
		_, dup := seen[created.Token]
		require.False(t, dup)
		seen[created.Token] = struct{}{}
	}
}

func TestStore_CreateRejectsEmptyUser(t *testing.T) {
	t.Parallel()

	h := newHarness(t, backends()["memory"], time.Hour)
	_, err := h.store.Create(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidUserID)
}

func TestNewStore_Config(t *testing.T) {
	t.Parallel()

	b := NewMemoryBackend(nil)
	cases := []struct {
		name string
		cfg  Config
	}{
		{"zero ttl", Config{}},
		{"sub-second ttl", Config{TTL: 500 * time.Millisecond}},
		{"negative timeout", Config{TTL: time.Hour, Timeout: -time.Second}},
		{"short tokens", Config{TTL: time.Hour, TokenBytes: 8}},
		{"below 256 bits", Config{TTL: time.Hour, TokenBytes: 16}},
		{"long tokens", Config{TTL: time.Hour, TokenBytes: 128}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewStore(b, tc.cfg)
			assert.ErrorIs(t, err, ErrConfig)
		})
	}

	_, err := NewStore(nil, Config{TTL: time.Hour})
	assert.ErrorIs(t, err, ErrConfig)

	s, err := NewStore(b, Config{TTL: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, time.Hour, s.TTL())
}

type blockingBackend struct{ Backend }

func (blockingBackend) GetByTokenHash(ctx context.Context, _ string) (Record, bool, error) {
	<-ctx.Done()
	return Record{}, false, ctx.Err()
}

func TestStore_CallsAreBounded(t *testing.T) {
	t.Parallel()

	s, err := NewStore(blockingBackend{NewMemoryBackend(nil)}, Config{TTL: time.Hour, Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, _, err = s.FindByToken(context.Background(), "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}
