package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronicle-cms/chronicle/internal/permission"
)

func newTestCache(t *testing.T) (*PrincipalCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPrincipalCache(client, time.Minute), mr
}

func TestPrincipalCacheRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	u := &permission.User{
		ID:    12,
		Email: "editor@chronicle.test",
		Role: permission.Role{
			ID:          2,
			Name:        "Editor",
			Permissions: []string{"article.ALL", "journalissue.READ"},
		},
		DirectPermissions: []string{"media.CREATE"},
	}
	require.NoError(t, c.Set(ctx, u))

	got, ok := c.Get(ctx, 12)
	require.True(t, ok)
	assert.Equal(t, u.Email, got.Email)
	assert.Equal(t, u.Role.Permissions, got.Role.Permissions)
	assert.Equal(t, u.DirectPermissions, got.DirectPermissions)
}

func TestPrincipalCacheMiss(t *testing.T) {
	c, _ := newTestCache(t)
	_, ok := c.Get(context.Background(), 999)
	assert.False(t, ok)
}

func TestPrincipalCacheInvalidate(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	u := &permission.User{ID: 5, Role: permission.Role{Name: "Author"}}
	require.NoError(t, c.Set(ctx, u))
	require.NoError(t, c.Invalidate(ctx, 5))

	_, ok := c.Get(ctx, 5)
	assert.False(t, ok)

	// Invalidating an absent key is not an error.
	assert.NoError(t, c.Invalidate(ctx, 5))
}

func TestPrincipalCacheExpiry(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, &permission.User{ID: 7}))
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, 7)
	assert.False(t, ok)
}
