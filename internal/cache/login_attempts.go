package cache

import (
	"context"
	"fmt"
	"time"
)

// LoginAttempts counts failed logins per client IP inside a fixed window.
type LoginAttempts struct {
	redis  *RedisClient
	window time.Duration
}

// NewLoginAttempts creates a LoginAttempts counter.
func NewLoginAttempts(redis *RedisClient, window time.Duration) *LoginAttempts {
	return &LoginAttempts{redis: redis, window: window}
}

// Window returns the counting window.
func (l *LoginAttempts) Window() time.Duration {
	return l.window
}

func (l *LoginAttempts) key(ip string) string {
	return fmt.Sprintf("login:failures:%s", ip)
}

// Failures returns the failures recorded for ip in the current window.
func (l *LoginAttempts) Failures(ctx context.Context, ip string) (int64, error) {
	return l.redis.GetInt(ctx, l.key(ip))
}

// RecordFailure increments the counter for ip and returns the new count.
func (l *LoginAttempts) RecordFailure(ctx context.Context, ip string) (int64, error) {
	return l.redis.IncrWithTTL(ctx, l.key(ip), l.window)
}
