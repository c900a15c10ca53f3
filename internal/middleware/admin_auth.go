package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AdminKeyHeader carries the admin API key
const AdminKeyHeader = "X-Admin-Key"

// AdminKeyAuth checks the X-Admin-Key header against a bcrypt hash. With an
// empty hash the admin API is disabled.
func AdminKeyAuth(keyHash string, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			c.JSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Admin API is disabled",
				"code":    "ADMIN_DISABLED",
			})
			c.Abort()
			return
		}

		key := c.GetHeader(AdminKeyHeader)
		if key == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Admin key is required",
				"code":    "MISSING_ADMIN_KEY",
			})
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			logger.WithFields(logrus.Fields{
				"path": c.Request.URL.Path,
				"ip":   c.ClientIP(),
			}).Warn("ADMIN AUTH FAILED: Invalid admin key")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Invalid admin key",
				"code":    "INVALID_ADMIN_KEY",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
