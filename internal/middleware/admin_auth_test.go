package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/eventhall/booking-wizard/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAdminKeyAuth(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-secret"), bcrypt.MinCost)
	require.NoError(t, err)
	logger, _ := test.NewNullLogger()

	router := setupTestRouter()
	router.GET("/admin/stats", AdminKeyAuth(string(hash), logger), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})

	tests := []struct {
		name       string
		key        string
		wantStatus int
		wantCode   string
	}{
		{"Valid key", "admin-secret", http.StatusOK, ""},
		{"Missing key", "", http.StatusUnauthorized, "MISSING_ADMIN_KEY"},
		{"Wrong key", "guess", http.StatusUnauthorized, "INVALID_ADMIN_KEY"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/admin/stats", nil)
			if tt.key != "" {
				req.Header.Set(AdminKeyHeader, tt.key)
			}
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantCode != "" {
				assert.Contains(t, w.Body.String(), tt.wantCode)
			}
		})
	}
}

func TestAdminKeyAuth_Disabled(t *testing.T) {
	logger, _ := test.NewNullLogger()
	router := setupTestRouter()
	router.GET("/admin/stats", AdminKeyAuth("", logger), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	req := httptest.NewRequest("GET", "/admin/stats", nil)
	req.Header.Set(AdminKeyHeader, "anything")
	w := httptest.NewRecorder()

	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "ADMIN_DISABLED")
}

func TestRateLimitMiddleware(t *testing.T) {
	config := services.DefaultRateLimitConfig()
	config.MaxAPIRequests = 2
	config.APIWindow = time.Minute
	limiter := services.NewRateLimitService(config)
	logger, hook := test.NewNullLogger()

	router := setupTestRouter()
	router.GET("/ping", RateLimitMiddleware(limiter, logger), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/ping", nil)
		req.Header.Set("X-Real-IP", ip)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusOK, send("203.0.113.7").Code)
	assert.Equal(t, http.StatusOK, send("203.0.113.7").Code)

	w := send("203.0.113.7")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "rate_limit_exceeded")
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "203.0.113.7", hook.LastEntry().Data["ip"])

	assert.Equal(t, http.StatusOK, send("198.51.100.4").Code)
}
