package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/cms_api/internal/cache"
	"github.com/GTDGit/cms_api/internal/utils"
)

// LoginRateLimiter throttles failed logins per client IP using Redis counters.
// Redis errors never block a login.
type LoginRateLimiter struct {
	attempts    *cache.LoginAttempts
	maxFailures int64
}

// NewLoginRateLimiter creates a limiter allowing maxFailures failed attempts
// per window. A nil attempts counter or maxFailures <= 0 disables it.
func NewLoginRateLimiter(attempts *cache.LoginAttempts, maxFailures int) *LoginRateLimiter {
	return &LoginRateLimiter{attempts: attempts, maxFailures: int64(maxFailures)}
}

// Handle returns the Gin middleware for the login route.
func (l *LoginRateLimiter) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.attempts == nil || l.maxFailures <= 0 {
			c.Next()
			return
		}

		ip := c.ClientIP()
		ctx := c.Request.Context()

		n, err := l.attempts.Failures(ctx, ip)
		if err != nil {
			log.Warn().Err(err).Str("ip", ip).Msg("Login limiter unavailable")
		} else if n >= l.maxFailures {
			c.Header("Retry-After", strconv.Itoa(int(l.attempts.Window().Seconds())))
			utils.Error(c, http.StatusTooManyRequests, utils.CodeTooManyRequests, "Too many failed login attempts. Please try again later.")
			c.Abort()
			return
		}

		c.Next()

		switch c.Writer.Status() {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			if _, err := l.attempts.RecordFailure(ctx, ip); err != nil {
				log.Warn().Err(err).Str("ip", ip).Msg("Failed to record login failure")
			}
		}
	}
}
