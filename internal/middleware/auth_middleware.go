package middleware

import (
	"net/http"
	"strings"

	"github.com/eventhall/booking-wizard/pkg/jwt"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// UserContextKey is the key used to store user information in Gin context
const UserContextKey = "user"

// UserContext represents the authenticated user's information
type UserContext struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Phone  string `json:"phone"`
}

// AuthMiddleware creates a middleware that requires a valid JWT
func AuthMiddleware(jwtService *jwt.Service, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			logger.WithFields(logrus.Fields{
				"path": c.Request.URL.Path,
				"ip":   c.ClientIP(),
			}).Warn("AUTH FAILED: Missing authorization header")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthorized",
				"message": "Authorization header is required",
				"code":    "MISSING_AUTH_HEADER",
			})
			c.Abort()
			return
		}

		if authenticate(c, jwtService, logger) {
			c.Next()
		}
	}
}

// OptionalAuth sets the user context when a bearer token is sent and lets
// guests through otherwise. A token that is sent but invalid is rejected.
func OptionalAuth(jwtService *jwt.Service, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}

		if authenticate(c, jwtService, logger) {
			c.Next()
		}
	}
}

// authenticate validates the bearer token and stores the user context. It
// writes the error response and aborts when the token is not acceptable.
func authenticate(c *gin.Context, jwtService *jwt.Service, logger logrus.FieldLogger) bool {
	log := logger.WithFields(logrus.Fields{
		"path": c.Request.URL.Path,
		"ip":   c.ClientIP(),
	})

	// Check Bearer token format
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		log.Warn("AUTH FAILED: Invalid auth format")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Invalid authorization header format. Expected: Bearer <token>",
			"code":    "INVALID_AUTH_FORMAT",
		})
		c.Abort()
		return false
	}

	tokenString := strings.TrimSpace(parts[1])
	if tokenString == "" {
		log.Warn("AUTH FAILED: Empty token")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "unauthorized",
			"message": "Token cannot be empty",
			"code":    "INVALID_AUTH_FORMAT",
		})
		c.Abort()
		return false
	}

	claims, err := jwtService.ValidateAccessToken(tokenString)
	if err != nil {
		if jwtService.IsTokenExpired(tokenString) {
			log.WithError(err).Info("AUTH FAILED: Token expired")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "token_expired",
				"message": "Access token has expired. Please log in again.",
				"code":    "TOKEN_EXPIRED",
			})
		} else {
			log.WithError(err).Warn("AUTH FAILED: Invalid token")
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "invalid_token",
				"message": "Invalid access token",
				"code":    "INVALID_TOKEN",
			})
		}
		c.Abort()
		return false
	}

	c.Set(UserContextKey, UserContext{
		UserID: claims.UserID,
		Name:   claims.Name,
		Email:  claims.Email,
		Phone:  claims.Phone,
	})
	return true
}

// GetUserContext retrieves the user context from Gin context
func GetUserContext(c *gin.Context) (UserContext, bool) {
	value, exists := c.Get(UserContextKey)
	if !exists {
		return UserContext{}, false
	}

	userCtx, ok := value.(UserContext)
	if !ok {
		return UserContext{}, false
	}

	return userCtx, true
}

// MustGetUserContext retrieves the user context or panics (use only after AuthMiddleware)
func MustGetUserContext(c *gin.Context) UserContext {
	userCtx, exists := GetUserContext(c)
	if !exists {
		panic("user context not found - ensure AuthMiddleware is applied")
	}
	return userCtx
}
