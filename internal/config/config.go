package config

import (
	"fmt"
	"log"
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

	// Database configuration
	Database DatabaseConfig

	// JWT configuration (back-office admins)
	JWT JWTConfig

	// LiteAPI upstream configuration
	LiteAPI LiteAPIConfig

	// Search and cache configuration
	Search SearchConfig

	// Prebook refresh configuration
	Prebook PrebookConfig

	// Redis configuration (optional cache backend)
	Redis RedisConfig

	// Kafka configuration (optional booking events)
	Kafka KafkaConfig

	// Audit retention configuration
	Audit AuditConfig

	// CORS configuration
	CORS CORSConfig

	// Security configuration
	Security SecurityConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string
	Environment    string // development, staging, production
	LogLevel       string // debug, info, warn, error
	MetricsEnabled bool
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret            string
	AccessTokenExpiry time.Duration
}

// LiteAPIConfig holds the upstream connection settings. BaseURL and APIKey are
// fallbacks; values stored in system_settings take precedence at call time.
type LiteAPIConfig struct {
	BaseURL            string
	BookingBaseURL     string // prebook/book live on a separate host
	APIKey             string
	Timeout            time.Duration
	InsecureSkipVerify bool
	UserAgent          string
	AllowedEndpoints   []string
}

// SearchConfig holds search orchestration settings
type SearchConfig struct {
	CacheBackend        string // "postgres" or "redis"
	CacheTTL            time.Duration
	CacheStaleRetention time.Duration
	Currency            string
	GuestNationality    string
	DefaultLanguage     string
	MaxHotelIDs         int
	PlaceholderImageURL string
}

// PrebookConfig holds offer refresh settings
type PrebookConfig struct {
	PriceTolerance     float64
	DefaultTargetPrice float64
	TimeoutSeconds     int
}

// RedisConfig holds redis connection settings
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds booking event publisher settings
type KafkaConfig struct {
	Brokers      []string
	BookingTopic string
}

// AuditConfig holds audit retention settings
type AuditConfig struct {
	RetentionDays int
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int
	EnableRequestLog bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:            getEnv("JWT_SECRET", ""),
			AccessTokenExpiry: time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
		},
		LiteAPI: LiteAPIConfig{
			BaseURL:            getEnv("LITEAPI_BASE_URL", "https://api.liteapi.travel/v3.0"),
			BookingBaseURL:     getEnv("LITEAPI_BOOKING_BASE_URL", "https://book.liteapi.travel/v3.0"),
			APIKey:             getEnv("LITEAPI_API_KEY", ""),
			Timeout:            getEnvAsDuration("LITEAPI_TIMEOUT", 45*time.Second),
			InsecureSkipVerify: getEnvAsBool("LITEAPI_INSECURE_SKIP_VERIFY", true),
			UserAgent:          getEnv("LITEAPI_USER_AGENT", "liteapi-booking/1.0"),
			AllowedEndpoints:   getEnvAsSlice("LITEAPI_ALLOWED_ENDPOINTS", nil),
		},
		Search: SearchConfig{
			CacheBackend:        getEnv("SEARCH_CACHE_BACKEND", "postgres"),
			CacheTTL:            getEnvAsDuration("SEARCH_CACHE_TTL", 90*time.Second),
			CacheStaleRetention: getEnvAsDuration("SEARCH_CACHE_STALE_RETENTION", 24*time.Hour),
			Currency:            getEnv("SEARCH_CURRENCY", "SAR"),
			GuestNationality:    getEnv("SEARCH_GUEST_NATIONALITY", "SA"),
			DefaultLanguage:     getEnv("SEARCH_DEFAULT_LANGUAGE", "en"),
			MaxHotelIDs:         getEnvAsInt("SEARCH_MAX_HOTEL_IDS", 100),
			PlaceholderImageURL: getEnv("SEARCH_PLACEHOLDER_IMAGE_URL", "/static/img/hotel-placeholder.jpg"),
		},
		Prebook: PrebookConfig{
			PriceTolerance:     getEnvAsFloat("PREBOOK_PRICE_TOLERANCE", 10),
			DefaultTargetPrice: getEnvAsFloat("PREBOOK_DEFAULT_TARGET_PRICE", 1000),
			TimeoutSeconds:     getEnvAsInt("PREBOOK_TIMEOUT_SECONDS", 30),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Kafka: KafkaConfig{
			Brokers:      getEnvAsSlice("KAFKA_BROKERS", nil),
			BookingTopic: getEnv("KAFKA_BOOKING_TOPIC", "booking.confirmed"),
		},
		Audit: AuditConfig{
			RetentionDays: getEnvAsInt("AUDIT_RETENTION_DAYS", 30),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
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
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	switch c.Search.CacheBackend {
	case "postgres":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("REDIS_ADDR is required when SEARCH_CACHE_BACKEND=redis")
		}
	default:
		return fmt.Errorf("invalid SEARCH_CACHE_BACKEND: %s (must be 'postgres' or 'redis')", c.Search.CacheBackend)
	}

	if c.Search.CacheTTL <= 0 {
		return fmt.Errorf("SEARCH_CACHE_TTL must be positive")
	}

	if c.Search.MaxHotelIDs <= 0 {
		return fmt.Errorf("SEARCH_MAX_HOTEL_IDS must be positive")
	}

	if c.Prebook.PriceTolerance < 0 {
		return fmt.Errorf("PREBOOK_PRICE_TOLERANCE must not be negative")
	}

	if c.LiteAPI.Timeout <= 0 {
		return fmt.Errorf("LITEAPI_TIMEOUT must be positive")
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid float value for %s, using default: %g", key, defaultValue)
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

// getEnvAsDuration accepts Go duration strings ("90s", "15m") or a bare number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	if seconds, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(seconds) * time.Second
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Invalid duration value for %s, using default: %s", key, defaultValue)
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
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
