package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eventhall/booking-wizard/internal/config"
	"github.com/eventhall/booking-wizard/internal/database"
	"github.com/eventhall/booking-wizard/internal/handlers"
	"github.com/eventhall/booking-wizard/internal/middleware"
	"github.com/eventhall/booking-wizard/internal/services"
	"github.com/eventhall/booking-wizard/internal/utils"
	"github.com/eventhall/booking-wizard/pkg/jwt"
	"github.com/eventhall/booking-wizard/pkg/validator"
	"github.com/eventhall/booking-wizard/pkg/venueapi"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting venue booking wizard backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Audit database is optional; without it audit events only go to the log
	var db database.DB
	if cfg.Database.URL != "" && cfg.Security.EnableAuditLog {
		logger.Info("Connecting to database...")
		db, err = database.NewConnection(cfg.Database)
		if err != nil {
			logger.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := database.EnsureAuditSchema(db); err != nil {
			logger.Fatalf("Failed to prepare audit schema: %v", err)
		}
		logger.Info("Database connection established")
	} else {
		logger.Warn("DATABASE_URL not set, audit events are written to the log only")
	}

	// Reference data cache: Redis when configured, in-process otherwise
	var cache services.Cache
	var redisCache *services.RedisCache
	if cfg.Redis.URL != "" {
		redisCache, err = services.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			logger.Fatalf("Failed to configure Redis: %v", err)
		}
		defer redisCache.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := redisCache.Ping(pingCtx); err != nil {
			logger.WithError(err).Warn("Redis is not reachable, reference data will be fetched on every cache miss")
		}
		cancel()
		cache = redisCache
		logger.Info("Reference data cache: Redis")
	} else {
		cache = services.NewMemoryCache()
		logger.Info("Reference data cache: in-process")
	}

	// Initialize services
	logger.Info("Initializing services...")
	venueClient := venueapi.NewClient(venueapi.Config{
		BaseURL:  cfg.VenueAPI.BaseURL,
		APIToken: cfg.VenueAPI.APIToken,
		Timeout:  cfg.VenueAPI.Timeout,
	})
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTokenExpiry)
	contactValidator := validator.NewContactValidator()
	auditService := services.NewAuditService(db, logger)
	rateLimitService := services.NewRateLimitService(services.RateLimitConfig{
		MaxPhoneRequests: cfg.OTP.PhoneRequests,
		PhoneWindow:      cfg.OTP.PhoneWindow,
		MaxIPRequests:    cfg.OTP.IPRequests,
		IPWindow:         cfg.OTP.IPWindow,
		MaxAPIRequests:   cfg.RateLimit.Requests,
		APIWindow:        time.Duration(cfg.RateLimit.WindowSeconds) * time.Second,
	})
	referenceService := services.NewReferenceService(venueClient, cache, cfg.Redis.CacheTTL, logger)
	sessionService := services.NewWizardSessionService(venueClient, services.WizardSessionConfig{
		TTL:               cfg.Wizard.SessionTTL,
		MaxSessions:       cfg.Wizard.MaxSessions,
		NotificationLimit: cfg.Wizard.NotificationLimit,
	}, auditService, logger)

	// Background workers
	sweeper := services.NewSessionSweeper(sessionService, rateLimitService, cfg.Wizard.SweepInterval, logger)
	sweeper.Start()

	auditRetention := time.Duration(cfg.Security.AuditRetentionDays) * 24 * time.Hour
	cronService := services.NewCronService(auditService, referenceService, auditRetention, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	logger.Info("Services initialized")

	// Initialize handlers
	wizardHandler := handlers.NewWizardHandler(sessionService, rateLimitService, auditService, contactValidator, logger)
	referenceHandler := handlers.NewReferenceHandler(referenceService, logger)
	adminHandler := handlers.NewAdminHandler(sessionService, referenceService, auditService, cronService, logger)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}

	// CORS middleware
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 1 && cfg.CORS.AllowedOrigins[0] == "*" {
		corsConfig.AllowOrigins = nil
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db, redisCache, sessionService))

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.RateLimitMiddleware(rateLimitService, logger))
	{
		// Reference data used to populate the wizard steps
		reference := v1.Group("/reference")
		{
			reference.GET("/events", referenceHandler.ListEvents)
			reference.GET("/venues", referenceHandler.ListVenues)
			reference.GET("/shifts", referenceHandler.ListShifts)
			reference.GET("/packages", referenceHandler.ListPackages)
			reference.GET("/menus", referenceHandler.ListMenus)
		}

		// Booking wizard (guests may browse; submission requires a login)
		wizard := v1.Group("/wizard/sessions")
		wizard.Use(middleware.OptionalAuth(jwtService, logger))
		{
			wizard.POST("", wizardHandler.CreateSession)
			wizard.GET("/:id", wizardHandler.GetSession)
			wizard.DELETE("/:id", wizardHandler.LeaveSession)
			wizard.PATCH("/:id/draft", wizardHandler.UpdateDraft)
			wizard.POST("/:id/menus/:menu_id", wizardHandler.SelectMenu)
			wizard.POST("/:id/menus/:menu_id/items", wizardHandler.ToggleMenuItem)
			wizard.POST("/:id/availability", wizardHandler.CheckAvailability)
			wizard.POST("/:id/fare", wizardHandler.CalculateFare)
			wizard.POST("/:id/next", wizardHandler.Next)
			wizard.POST("/:id/back", wizardHandler.Back)
			wizard.POST("/:id/otp/send", wizardHandler.SendOTP)
			wizard.POST("/:id/otp/verify", wizardHandler.VerifyOTP)
		}

		// Operator endpoints
		admin := v1.Group("/admin")
		admin.Use(middleware.AdminKeyAuth(cfg.Security.AdminKeyHash, logger))
		{
			admin.GET("/wizard/stats", adminHandler.GetWizardStats)
			admin.GET("/audit", adminHandler.GetAuditLogs)
			admin.POST("/reference/refresh", adminHandler.RefreshReference)
			admin.GET("/cron", adminHandler.GetCronStatus)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.VenueAPI.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cronService.Stop()
	sweeper.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         utils.GetRealIP(c),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
			"has_auth":   c.GetHeader("Authorization") != "",
		}

		// Add user context if available
		if userCtx, ok := middleware.GetUserContext(c); ok {
			fields["user_id"] = userCtx.UserID
		}

		entry := logger.WithFields(fields)

		// Log errors with more details
		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		// Log based on status code
		status := c.Writer.Status()
		if status >= 500 {
			entry.Error("Request completed with server error")
		} else if status >= 400 {
			entry.Warn("Request completed with client error")
		} else {
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler reports the state of the audit database and the cache.
// Both are optional; only a configured dependency that fails makes the
// service unhealthy.
func healthCheckHandler(db database.DB, redisCache *services.RedisCache, sessions *services.WizardSessionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		dbStatus := "disabled"
		cacheStatus := "memory"

		if db != nil {
			dbStatus = "healthy"
			if err := db.Ping(); err != nil {
				dbStatus = "unhealthy"
				status = http.StatusServiceUnavailable
			}
		}

		if redisCache != nil {
			cacheStatus = "healthy"
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := redisCache.Ping(ctx); err != nil {
				cacheStatus = "unhealthy"
			}
		}

		overall := "healthy"
		if status != http.StatusOK {
			overall = "unhealthy"
		}

		c.JSON(status, gin.H{
			"status":          overall,
			"database":        dbStatus,
			"cache":           cacheStatus,
			"active_sessions": sessions.Count(),
			"version":         version,
			"timestamp":       time.Now().Unix(),
		})
	}
}
