package session

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/portfolio-portal/internal/domain"
)

func TestMemoryKVExpiry(t *testing.T) {
	kv := NewMemoryKV()
	now := time.Now()
	kv.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, kv.Set(ctx, "a", "1", time.Minute))
	require.NoError(t, kv.Set(ctx, "b", "2", 0))

	val, ok, err := kv.Get(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1", val)

	now = now.Add(2 * time.Minute)
	_, ok, _ = kv.Get(ctx, "a")
	assert.False(t, ok)

	_, ok, _ = kv.Get(ctx, "b")
	assert.True(t, ok, "entries without ttl never expire")
}

func TestCredentialsRoundTripAndClear(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(NewMemoryKV(), "secret", time.Hour)
	creds := mgr.Credentials("s1")

	token, err := creds.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
	user, err := creds.User(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)

	require.NoError(t, creds.SaveToken(ctx, "tok"))
	require.NoError(t, creds.SaveUser(ctx, &domain.User{ID: 3, TypeID: domain.RoleAdmin, PDPAConsent: true}))

	token, _ = creds.Token(ctx)
	assert.Equal(t, "tok", token)
	user, _ = creds.User(ctx)
	require.NotNil(t, user)
	assert.Equal(t, int64(3), user.ID)
	assert.Equal(t, domain.RoleAdmin, user.TypeID)

	require.NoError(t, creds.Clear(ctx))
	token, _ = creds.Token(ctx)
	assert.Empty(t, token)
	user, _ = creds.User(ctx)
	assert.Nil(t, user)
}

func TestSessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(NewMemoryKV(), "secret", time.Hour)

	a := mgr.Credentials("a")
	b := mgr.Credentials("b")
	require.NoError(t, a.SaveToken(ctx, "tok-a"))

	token, _ := b.Token(ctx)
	assert.Empty(t, token)
}

func TestManagerStartAndOpen(t *testing.T) {
	mgr := NewManager(NewMemoryKV(), "secret", time.Hour)

	creds, cookie, expiresAt, err := mgr.Start()
	require.NoError(t, err)
	assert.NotEmpty(t, creds.ID())
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	opened, err := mgr.Open(cookie)
	require.NoError(t, err)
	assert.Equal(t, creds.ID(), opened.ID())
}

func TestOpenRejectsForeignCookie(t *testing.T) {
	other := NewManager(NewMemoryKV(), "other-secret", time.Hour)
	_, cookie, _, err := other.Start()
	require.NoError(t, err)

	mgr := NewManager(NewMemoryKV(), "secret", time.Hour)
	_, err = mgr.Open(cookie)
	assert.Error(t, err)

	_, err = mgr.Open("not-a-jwt")
	assert.Error(t, err)
}

func TestRedisKV(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	kv := NewRedisKV(client, "portal-test:")
	require.NoError(t, kv.Set(ctx, "k", "v", time.Minute))

	val, ok, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", val)

	require.NoError(t, kv.Del(ctx, "k"))
	_, ok, err = kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}
