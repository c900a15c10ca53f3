package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "test-access-secret-key-for-testing-purposes"
	testIssuer = "venue-booking"
)

func signClaims(t *testing.T, claims Claims, secret string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestNewService(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)

	assert.NotNil(t, service)
	assert.Equal(t, testSecret, service.secret)
	assert.Equal(t, testIssuer, service.issuer)
	assert.Equal(t, time.Hour, service.accessTokenExpiry)
}

func TestGenerateAccessToken(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)
	userID := uuid.NewString()

	token, err := service.GenerateAccessToken(userID, "Nimal Perera", "nimal@example.com", "0771234567")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "Nimal Perera", claims.Name)
	assert.Equal(t, "nimal@example.com", claims.Email)
	assert.Equal(t, "0771234567", claims.Phone)
	assert.Equal(t, AccessToken, claims.TokenType)
}

func TestGenerateAccessToken_RequiresUserID(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)

	_, err := service.GenerateAccessToken("", "Nimal", "", "")
	assert.Error(t, err)
}

func TestValidateAccessToken(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)

	token, err := service.GenerateAccessToken("user-1", "", "nimal@example.com", "")
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)

	// Test invalid token
	_, err = service.ValidateAccessToken("invalid.token.here")
	assert.Error(t, err)

	// Test token with wrong secret
	wrongService := NewService("wrong-secret", testIssuer, time.Hour)
	_, err = wrongService.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateAccessToken_Issuer(t *testing.T) {
	issued := NewService(testSecret, "someone-else", time.Hour)
	token, err := issued.GenerateAccessToken("user-1", "", "", "")
	require.NoError(t, err)

	_, err = NewService(testSecret, testIssuer, time.Hour).ValidateAccessToken(token)
	assert.Error(t, err)

	claims, err := NewService(testSecret, "", time.Hour).ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "someone-else", claims.Issuer)
}

func TestValidateAccessToken_RejectsRefreshToken(t *testing.T) {
	service := NewService(testSecret, "", time.Hour)
	token := signClaims(t, Claims{
		UserID:    "user-1",
		TokenType: RefreshToken,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	_, err := service.ValidateAccessToken(token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid token type")
}

func TestValidateAccessToken_SubjectFallback(t *testing.T) {
	service := NewService(testSecret, "", time.Hour)
	token := signClaims(t, Claims{
		Email: "nimal@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-from-subject",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-from-subject", claims.UserID)
}

func TestValidateAccessToken_NoUserID(t *testing.T) {
	service := NewService(testSecret, "", time.Hour)
	token := signClaims(t, Claims{
		Email: "nimal@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}, testSecret)

	_, err := service.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestValidateAccessToken_RejectsOtherAlgorithms(t *testing.T) {
	service := NewService(testSecret, "", time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, Claims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = service.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestExpiredToken(t *testing.T) {
	// Create service with very short expiry
	service := NewService(testSecret, testIssuer, time.Millisecond)

	token, err := service.GenerateAccessToken("user-1", "", "", "0771234567")
	require.NoError(t, err)

	// Wait for token to expire
	time.Sleep(10 * time.Millisecond)

	_, err = service.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestExtractClaims(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)

	token, err := service.GenerateAccessToken("user-1", "Nimal Perera", "", "0771234567")
	require.NoError(t, err)

	claims, err := service.ExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "Nimal Perera", claims.Name)
	assert.Equal(t, "0771234567", claims.Phone)
}

func TestIsTokenExpired(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)

	token, err := service.GenerateAccessToken("user-1", "", "", "")
	require.NoError(t, err)
	assert.False(t, service.IsTokenExpired(token))

	// Test expired token
	expiredService := NewService(testSecret, testIssuer, -time.Hour)
	expiredToken, err := expiredService.GenerateAccessToken("user-1", "", "", "")
	require.NoError(t, err)
	assert.True(t, service.IsTokenExpired(expiredToken))

	// Test invalid token
	assert.True(t, service.IsTokenExpired("invalid.token.here"))
}

func TestGetTokenExpiry(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)

	token, err := service.GenerateAccessToken("user-1", "", "", "")
	require.NoError(t, err)

	expiry, err := service.GetTokenExpiry(token)
	require.NoError(t, err)

	// Check expiry is approximately 1 hour from now
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiry, 5*time.Second)

	// Test invalid token
	_, err = service.GetTokenExpiry("invalid.token.here")
	assert.Error(t, err)
}

func TestTokenIssuerAndSubject(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)
	userID := uuid.NewString()

	token, err := service.GenerateAccessToken(userID, "", "", "")
	require.NoError(t, err)

	claims, err := service.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, testIssuer, claims.Issuer)
	assert.Equal(t, userID, claims.Subject)
}

func TestConcurrentTokenGeneration(t *testing.T) {
	service := NewService(testSecret, testIssuer, time.Hour)

	done := make(chan bool)
	errs := make(chan error, 100)

	// Generate 100 tokens concurrently
	for i := 0; i < 100; i++ {
		go func() {
			token, err := service.GenerateAccessToken(uuid.NewString(), "", "", "0771234567")
			if err != nil {
				errs <- err
				done <- true
				return
			}

			if _, err := service.ValidateAccessToken(token); err != nil {
				errs <- err
			}
			done <- true
		}()
	}

	// Wait for all goroutines
	for i := 0; i < 100; i++ {
		<-done
	}

	close(errs)
	assert.Empty(t, errs)
}
