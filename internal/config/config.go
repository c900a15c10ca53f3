package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Venue booking API configuration
	VenueAPI VenueAPIConfig

	// JWT configuration
	JWT JWTConfig

	// Database configuration (audit log)
	Database DatabaseConfig

	// Redis configuration (reference data cache)
	Redis RedisConfig

	// Wizard session configuration
	Wizard WizardConfig

	// OTP configuration
	OTP OTPConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// VenueAPIConfig holds the remote venue booking API settings
type VenueAPIConfig struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
	Issuer            string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string // Optional: audit events are only logged when empty
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// RedisConfig holds the reference data cache settings
type RedisConfig struct {
	URL      string // Optional: an in-process cache is used when empty
	CacheTTL time.Duration
}

// WizardConfig holds wizard session settings
type WizardConfig struct {
	SessionTTL        time.Duration
	SweepInterval     time.Duration
	MaxSessions       int
	NotificationLimit int
}

// OTPConfig holds OTP send throttling configuration
type OTPConfig struct {
	PhoneRequests int
	PhoneWindow   time.Duration
	IPRequests    int
	IPWindow      time.Duration
}

// RateLimitConfig holds the general per-IP request limit
type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	AdminKeyHash       string // bcrypt hash of the admin API key
	BcryptCost         int
	EnableRequestLog   bool
	EnableAuditLog     bool
	AuditRetentionDays int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		VenueAPI: VenueAPIConfig{
			BaseURL:  getEnv("VENUE_API_URL", ""),
			APIToken: getEnv("VENUE_API_TOKEN", ""),
			Timeout:  time.Duration(getEnvAsInt("VENUE_API_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			Issuer:            getEnv("JWT_ISSUER", "venue-booking"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", ""),
			CacheTTL: time.Duration(getEnvAsInt("REFERENCE_CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Wizard: WizardConfig{
			SessionTTL:        time.Duration(getEnvAsInt("WIZARD_SESSION_TTL_MINUTES", 60)) * time.Minute,
			SweepInterval:     time.Duration(getEnvAsInt("WIZARD_SWEEP_INTERVAL_SECONDS", 60)) * time.Second,
			MaxSessions:       getEnvAsInt("WIZARD_MAX_SESSIONS", 10000),
			NotificationLimit: getEnvAsInt("WIZARD_NOTIFICATION_LIMIT", 20),
		},
		OTP: OTPConfig{
			PhoneRequests: getEnvAsInt("OTP_RATE_LIMIT", 3),
			PhoneWindow:   time.Duration(getEnvAsInt("OTP_RATE_WINDOW_MINUTES", 10)) * time.Minute,
			IPRequests:    getEnvAsInt("OTP_IP_RATE_LIMIT", 10),
			IPWindow:      time.Duration(getEnvAsInt("OTP_IP_RATE_WINDOW_MINUTES", 60)) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Requests:      getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
			WindowSeconds: getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization", "X-Admin-Key"}),
		},
		Security: SecurityConfig{
			AdminKeyHash:       getEnv("ADMIN_API_KEY_HASH", ""),
			BcryptCost:         getEnvAsInt("BCRYPT_COST", 12),
			EnableRequestLog:   getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
			EnableAuditLog:     getEnvAsBool("ENABLE_AUDIT_LOGGING", true),
			AuditRetentionDays: getEnvAsInt("AUDIT_RETENTION_DAYS", 90),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.VenueAPI.BaseURL == "" {
		return fmt.Errorf("VENUE_API_URL is required")
	}

	u, err := url.Parse(c.VenueAPI.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("VENUE_API_URL must be an absolute URL, got %q", c.VenueAPI.BaseURL)
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Wizard.SessionTTL <= 0 {
		return fmt.Errorf("WIZARD_SESSION_TTL_MINUTES must be positive")
	}

	if c.Wizard.SweepInterval <= 0 {
		return fmt.Errorf("WIZARD_SWEEP_INTERVAL_SECONDS must be positive")
	}

	if c.OTP.PhoneRequests <= 0 || c.OTP.IPRequests <= 0 {
		return fmt.Errorf("OTP rate limits must be positive")
	}

	if c.Server.Environment == "production" && c.Security.AdminKeyHash == "" {
		return fmt.Errorf("ADMIN_API_KEY_HASH is required in production")
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
