package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
)

// NewMemoryLimiter builds an in-process limiter allowing limit requests per period
func NewMemoryLimiter(limit int64, period time.Duration) *limiter.Limiter {
	return limiter.New(memory.NewStore(), limiter.Rate{Period: period, Limit: limit})
}

// RateLimit rejects clients that exceed the limiter's rate, keyed by client IP
func RateLimit(limiterInstance *limiter.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		lctx, err := limiterInstance.Get(c.Request.Context(), ip)
		if err != nil {
			logrus.WithError(err).WithField("ip", ip).Error("Failed to get rate limit context")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_error",
				"message": "Rate limit check failed",
			})
			return
		}

		c.Header("X-RateLimit-Limit", itoa(lctx.Limit))
		c.Header("X-RateLimit-Remaining", itoa(lctx.Remaining))

		if lctx.Reached {
			logrus.WithFields(logrus.Fields{
				"ip":    ip,
				"limit": lctx.Limit,
				"path":  c.Request.URL.Path,
			}).Warn("Rate limit exceeded")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "Too many requests. Please try again later.",
				"code":    "RATE_LIMITED",
			})
			return
		}

		c.Next()
	}
}
