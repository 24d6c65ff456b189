package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chronicle-cms/chronicle/internal/permission"
)

// PrincipalCache keeps hydrated principals (user + role + permission
// strings) in Redis so permission checks skip the join on hot paths.
// Writers that touch roles or direct grants must invalidate.
type PrincipalCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPrincipalCache constructs a PrincipalCache.
func NewPrincipalCache(client *redis.Client, ttl time.Duration) *PrincipalCache {
	return &PrincipalCache{client: client, ttl: ttl}
}

// Get returns the cached principal, or ok=false on miss.
func (c *PrincipalCache) Get(ctx context.Context, userID int64) (*permission.User, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if err != nil {
		return nil, false
	}
	var u permission.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, false
	}
	return &u, true
}

// Set stores the principal with the configured TTL.
func (c *PrincipalCache) Set(ctx context.Context, u *permission.User) error {
	if c == nil || c.client == nil || u == nil {
		return nil
	}
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("platform/cache: marshal principal: %w", err)
	}
	return c.client.Set(ctx, c.key(u.ID), data, c.ttl).Err()
}

// Invalidate drops the cached principal for a user.
func (c *PrincipalCache) Invalidate(ctx context.Context, userID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

func (c *PrincipalCache) key(userID int64) string {
	return fmt.Sprintf("chronicle:principal:%d", userID)
}
