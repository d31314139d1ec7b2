package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/cms_api/internal/config"
	"github.com/GTDGit/cms_api/internal/models"
)

func setupRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := WrapRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { client.Close() })
	return client, mr
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(&config.RedisConfig{Host: mr.Host(), Port: mr.Port()})
	require.NoError(t, err)
	defer client.Close()
	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewRedisClient_ConnectionFailure(t *testing.T) {
	_, err := NewRedisClient(&config.RedisConfig{Host: "127.0.0.1", Port: "1"})
	assert.Error(t, err)
}

func TestRoleCache_SetGetInvalidate(t *testing.T) {
	client, mr := setupRedis(t)
	rc := NewRoleCache(client, time.Minute)
	ctx := context.Background()

	got, err := rc.Get(ctx, "editor")
	require.NoError(t, err)
	assert.Nil(t, got)

	role := &models.ResolvedRole{
		RoleID:      "editor",
		DisplayName: "Editor",
		Permissions: models.PermissionSet{models.PermBlogs},
	}
	require.NoError(t, rc.Set(ctx, role))
	assert.True(t, mr.Exists("role:resolved:editor"))

	got, err = rc.Get(ctx, "editor")
	require.NoError(t, err)
	assert.Equal(t, role, got)

	mr.FastForward(2 * time.Minute)
	got, err = rc.Get(ctx, "editor")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, rc.Set(ctx, role))
	require.NoError(t, rc.Invalidate(ctx, "editor"))
	got, err = rc.Get(ctx, "editor")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRoleCache_Disabled(t *testing.T) {
	client, mr := setupRedis(t)
	rc := NewRoleCache(client, 0)
	ctx := context.Background()

	require.NoError(t, rc.Set(ctx, &models.ResolvedRole{RoleID: "editor"}))
	assert.False(t, mr.Exists("role:resolved:editor"))
}

func TestRoleCache_CorruptEntry(t *testing.T) {
	client, mr := setupRedis(t)
	rc := NewRoleCache(client, time.Minute)
	require.NoError(t, mr.Set("role:resolved:editor", "{not json"))

	_, err := rc.Get(context.Background(), "editor")
	assert.Error(t, err)
}

func TestLoginAttempts_Window(t *testing.T) {
	client, mr := setupRedis(t)
	la := NewLoginAttempts(client, time.Minute)
	ctx := context.Background()

	n, err := la.Failures(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Zero(t, n)

	for i := 1; i <= 3; i++ {
		n, err = la.RecordFailure(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
	}
	n, err = la.Failures(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = la.Failures(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.Zero(t, n)

	mr.FastForward(61 * time.Second)
	n, err = la.Failures(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.Zero(t, n)
}
