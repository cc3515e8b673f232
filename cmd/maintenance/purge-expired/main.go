package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/hotelbridge/liteapi-booking/internal/clock"
	"github.com/hotelbridge/liteapi-booking/internal/config"
	"github.com/hotelbridge/liteapi-booking/internal/database"
	"github.com/hotelbridge/liteapi-booking/internal/services"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	var (
		dbURLFlag     string
		retentionDays int
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.IntVar(&retentionDays, "retention-days", 90, "delete audit logs older than this many days")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	// Build minimal database config without loading full app config
	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	clk := clock.NewSystemClock()
	cacheService := services.NewSearchCacheService(database.NewSearchCacheRepository(db), clk, 0, logger)
	auditService := services.NewAuditService(database.NewAuditLogRepository(db, logger))
	maintenance := services.NewMaintenanceService(cacheService, auditService, retentionDays, clk, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := maintenance.Purge(ctx)
	if err != nil {
		log.Fatalf("purge failed: %v", err)
	}

	fmt.Printf("Purged %d expired search cache entries and %d audit logs older than %d days\n",
		report.CacheEntries, report.AuditLogs, retentionDays)
}
