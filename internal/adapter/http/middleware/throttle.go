package middleware

import (
	"fmt"
	"strconv"
	"time"

	"payme-wallet/internal/core/ports"
	"payme-wallet/pkg/apperror"
	"payme-wallet/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ThrottleRule defines the fixed-window limit for an endpoint group.
type ThrottleRule struct {
	Limit  int64
	Window time.Duration
}

// DefaultThrottleRules returns the per-group limits. The otp_request
// group is overridden at router setup from config so operators can
// tighten SMS spend without a rebuild.
func DefaultThrottleRules() map[string]ThrottleRule {
	return map[string]ThrottleRule{
		"auth_login":    {Limit: 10, Window: time.Minute},
		"auth_register": {Limit: 5, Window: time.Hour},
		"otp_request":   {Limit: 3, Window: 10 * time.Minute},
		"money":         {Limit: 60, Window: time.Minute},
		"read":          {Limit: 120, Window: time.Minute},
	}
}

// Throttle creates a throttling middleware for an endpoint group. On
// store failure the request is allowed: availability over strictness.
func Throttle(store ports.ThrottleStore, group string, rule ThrottleRule, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("%s:%s", extractIdentifier(c), group)

		result, err := store.Allow(c.Request.Context(), key, rule.Limit, rule.Window)
		if err != nil {
			log.Warn().Err(err).Str("group", group).Msg("throttle check failed, allowing request (degraded mode)")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(result.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(result.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt, 10))

		if !result.Allowed {
			retryAfter := result.ResetAt - time.Now().Unix()
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			response.Error(c, apperror.ErrRateLimitExceeded())
			c.Abort()
			return
		}

		c.Next()
	}
}

// extractIdentifier scopes throttle counters to the authenticated
// account when there is one, otherwise to the client IP.
func extractIdentifier(c *gin.Context) string {
	if id, exists := c.Get(CtxAccountID); exists {
		if accountID, ok := id.(uuid.UUID); ok {
			return accountID.String()
		}
	}
	return c.ClientIP()
}
