package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/GTDGit/cms_api/internal/models"
)

// RoleCache caches resolved roles so user management does not hit the roles
// table for every lookup. Writers must call Invalidate after changing a role.
type RoleCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewRoleCache creates a RoleCache. A zero ttl disables caching.
func NewRoleCache(redis *RedisClient, ttl time.Duration) *RoleCache {
	return &RoleCache{redis: redis, ttl: ttl}
}

func (c *RoleCache) key(roleID string) string {
	return fmt.Sprintf("role:resolved:%s", roleID)
}

// Get returns the cached role, or (nil, nil) on a miss.
func (c *RoleCache) Get(ctx context.Context, roleID string) (*models.ResolvedRole, error) {
	if c.ttl <= 0 {
		return nil, nil
	}
	raw, err := c.redis.Get(ctx, c.key(roleID))
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var role models.ResolvedRole
	if err := json.Unmarshal([]byte(raw), &role); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached role: %w", err)
	}
	return &role, nil
}

// Set stores a resolved role.
func (c *RoleCache) Set(ctx context.Context, role *models.ResolvedRole) error {
	if c.ttl <= 0 {
		return nil
	}
	data, err := json.Marshal(role)
	if err != nil {
		return fmt.Errorf("failed to marshal role: %w", err)
	}
	return c.redis.Set(ctx, c.key(role.RoleID), string(data), c.ttl)
}

// Invalidate drops a cached role.
func (c *RoleCache) Invalidate(ctx context.Context, roleID string) error {
	return c.redis.Delete(ctx, c.key(roleID))
}
