package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
	"github.com/noah-isme/biblioteca-api/pkg/ratelimit"
	"github.com/noah-isme/biblioteca-api/pkg/response"
)

type rateLimitObserver interface {
	ObserveRateLimited(path string)
}

// RateLimit rejects callers over quota with 429. A nil limiter disables it.
func RateLimit(limiter ratelimit.Limiter, window time.Duration, observer rateLimitObserver) gin.HandlerFunc {
	retryAfter := strconv.Itoa(int(window.Seconds()))
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		key := c.FullPath() + "|" + c.ClientIP()
		if !limiter.Allow(c.Request.Context(), key) {
			if observer != nil {
				observer.ObserveRateLimited(c.FullPath())
			}
			c.Header("Retry-After", retryAfter)
			response.Error(c, appErrors.ErrRateLimited)
			c.Abort()
			return
		}
		c.Next()
	}
}
