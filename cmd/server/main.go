package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hotelbridge/liteapi-booking/internal/cache"
	"github.com/hotelbridge/liteapi-booking/internal/clock"
	"github.com/hotelbridge/liteapi-booking/internal/config"
	"github.com/hotelbridge/liteapi-booking/internal/database"
	"github.com/hotelbridge/liteapi-booking/internal/events"
	"github.com/hotelbridge/liteapi-booking/internal/handlers"
	"github.com/hotelbridge/liteapi-booking/internal/metrics"
	"github.com/hotelbridge/liteapi-booking/internal/middleware"
	"github.com/hotelbridge/liteapi-booking/internal/services"
	"github.com/hotelbridge/liteapi-booking/pkg/jwt"
	"github.com/hotelbridge/liteapi-booking/pkg/liteapi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
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

	logger.Info("Starting LiteAPI booking backend")
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

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	appMetrics := metrics.NewMetrics(registry)

	clk := clock.NewSystemClock()

	// Repositories
	adminRepo := database.NewAdminUserRepository(db)
	auditRepo := database.NewAuditLogRepository(db, logger)
	bookingRepo := database.NewBookingRepository(db)
	cityRepo := database.NewCityRepository(db)
	customerRepo := database.NewCustomerRepository(db)
	hotelRepo := database.NewHotelRepository(db)
	refundRepo := database.NewRefundRepository(db)
	reportRepo := database.NewReportRepository(db)
	searchLogRepo := database.NewSearchLogRepository(db)
	settingRepo := database.NewSystemSettingRepository(db)
	walletRepo := database.NewWalletRepository(db)

	// Search cache backend
	var (
		cacheStore  services.SearchCacheStore
		redisClient *redis.Client
	)
	switch cfg.Search.CacheBackend {
	case "redis":
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
		cacheStore = cache.NewRedisSearchStore(redisClient, cfg.Search.CacheStaleRetention)
		logger.WithField("addr", cfg.Redis.Addr).Info("Search cache backed by Redis")
	default:
		cacheStore = database.NewSearchCacheRepository(db)
		logger.Info("Search cache backed by Postgres")
	}

	// Booking events
	var publisher interface {
		services.EventPublisher
		Close() error
	} = events.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.BookingTopic, logger)
		logger.WithField("topic", cfg.Kafka.BookingTopic).Info("Booking events published to Kafka")
	}
	defer publisher.Close()

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	auditService := services.NewAuditService(auditRepo)
	settingsService := services.NewSettingsService(settingRepo, cfg.LiteAPI.BaseURL, cfg.LiteAPI.APIKey, logger)

	client := liteapi.NewClient(liteapi.Config{
		Timeout:            cfg.LiteAPI.Timeout,
		InsecureSkipVerify: cfg.LiteAPI.InsecureSkipVerify,
		UserAgent:          cfg.LiteAPI.UserAgent,
		AllowedEndpoints:   cfg.LiteAPI.AllowedEndpoints,
	}, settingsService, auditService, logger, liteapi.WithObserver(appMetrics))
	if cfg.LiteAPI.InsecureSkipVerify {
		logger.Warn("LiteAPI TLS certificate verification is disabled (LITEAPI_INSECURE_SKIP_VERIFY=true)")
	}

	cacheService := services.NewSearchCacheService(cacheStore, clk, cfg.Search.CacheTTL, logger)
	searchService := services.NewSearchService(client, cacheService, hotelRepo, cityRepo, searchLogRepo, appMetrics, cfg.Search, clk, logger)
	prebookService := services.NewPrebookService(client, searchService, appMetrics, cfg.Prebook, cfg.LiteAPI.BookingBaseURL, cfg.Search.Currency, logger)
	bookingService := services.NewBookingService(client, bookingRepo, publisher, appMetrics, cfg.LiteAPI.BookingBaseURL, cfg.Search.Currency, clk, logger)
	adminAuthService := services.NewAdminAuthService(adminRepo, jwtService, cfg.Security.BcryptCost, logger)
	walletService := services.NewWalletService(walletRepo, customerRepo, refundRepo, cfg.Search.Currency, logger)
	reportService := services.NewReportService(reportRepo, clk)
	maintenanceService := services.NewMaintenanceService(cacheService, auditService, cfg.Audit.RetentionDays, clk, logger)
	logger.Info("Services initialized")

	// Handlers
	hotelHandler := handlers.NewHotelHandler(searchService, logger)
	bookingHandler := handlers.NewBookingHandler(prebookService, bookingService, logger)
	adminAuthHandler := handlers.NewAdminAuthHandler(adminAuthService, logger)
	adminHandler := handlers.NewAdminHandler(reportService, walletService, settingsService, maintenanceService, auditService, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}
	if cfg.Server.MetricsEnabled {
		router.Use(appMetrics.Middleware())
	}

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db, redisClient))
	if cfg.Server.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(appMetrics.Handler()))
	}

	v1 := router.Group("/api/v1")
	{
		public := v1.Group("", middleware.ActorMiddleware())
		public.POST("/hotels/search", hotelHandler.SearchHotels)
		public.GET("/hotels/:hotel_id", hotelHandler.GetHotel)
		public.GET("/cities", hotelHandler.ListCities)
		public.GET("/cities/:city_id/min-rates", hotelHandler.CityMinRates)
		public.POST("/bookings/prebook", bookingHandler.Prebook)
		public.POST("/bookings/confirm", bookingHandler.Confirm)
		public.GET("/bookings/:reference", bookingHandler.GetBooking)

		v1.POST("/admin/auth/login", adminAuthHandler.Login)

		admin := v1.Group("/admin",
			middleware.AuthMiddleware(jwtService),
			middleware.RequireRole("admin", "super_admin"),
			middleware.ActorMiddleware(),
		)
		admin.GET("/dashboard", adminHandler.Dashboard)
		admin.GET("/abuse-report", adminHandler.AbuseReport)
		admin.GET("/audit-logs", adminHandler.AuditLogs)
		admin.POST("/bookings/:id/refund", adminHandler.RefundBooking)
		admin.GET("/wallets/:customer_id", adminHandler.GetWallet)
		admin.POST("/wallets/:customer_id/topup", adminHandler.TopUpWallet)
		admin.GET("/settings/liteapi", adminHandler.GetLiteAPISettings)
		admin.PUT("/settings/liteapi", adminHandler.UpdateLiteAPISettings)
		admin.POST("/maintenance/purge", adminHandler.Purge)
	}

	// Create HTTP server. Prebook can take up to four sequential upstream calls.
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 3 * cfg.LiteAPI.Timeout,
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

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      c.Request.URL.RawQuery,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"has_auth":   c.GetHeader("Authorization") != "",
		}
		if adminCtx, ok := middleware.GetAdminContext(c); ok {
			fields["admin_email"] = adminCtx.Email
		}

		entry := logger.WithFields(fields)
		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

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

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		body := gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		}
		status := http.StatusOK

		if err := db.PingContext(ctx); err != nil {
			body["status"] = "unhealthy"
			body["database"] = "unhealthy"
			body["error"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if rdb != nil {
			body["redis"] = "healthy"
			if err := rdb.Ping(ctx).Err(); err != nil {
				body["status"] = "unhealthy"
				body["redis"] = "unhealthy"
				status = http.StatusServiceUnavailable
			}
		}

		c.JSON(status, body)
	}
}
