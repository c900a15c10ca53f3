package middleware

import (
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/eventhall/booking-wizard/internal/services"
	"github.com/eventhall/booking-wizard/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RateLimitMiddleware limits requests per client IP address
func RateLimitMiddleware(limiter *services.RateLimitService, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := utils.GetRealIP(c)

		err := limiter.AllowRequest(ip)
		if err == nil {
			c.Next()
			return
		}

		var rateLimitErr *services.RateLimitError
		if !errors.As(err, &rateLimitErr) {
			c.Next()
			return
		}

		logger.WithFields(logrus.Fields{
			"ip":   ip,
			"path": c.Request.URL.Path,
		}).Warn("Rate limit exceeded")

		seconds := int(math.Ceil(time.Until(rateLimitErr.RetryAfter).Seconds()))
		if seconds < 1 {
			seconds = 1
		}
		c.Header("Retry-After", strconv.Itoa(seconds))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate_limit_exceeded",
			"message":     rateLimitErr.Message,
			"retry_after": rateLimitErr.RetryAfter,
			"type":        rateLimitErr.Type,
		})
	}
}
