package main

import (
	"context"
	"flag"
	"os"
	"strings"
	"time"

	"github.com/hotelbridge/liteapi-booking/internal/config"
	"github.com/hotelbridge/liteapi-booking/internal/database"
	"github.com/hotelbridge/liteapi-booking/internal/services"
	"github.com/hotelbridge/liteapi-booking/pkg/liteapi"
	"github.com/sirupsen/logrus"
)

// sync-catalog imports LiteAPI reference data (countries, cities, hotels)
// into the local tables. Imported cities stay inactive until enabled by ops.
func main() {
	var (
		country    string
		withCities bool
		hotels     bool
		pageSize   int
	)
	flag.StringVar(&country, "country", "", "ISO country code to import cities/hotels for")
	flag.BoolVar(&withCities, "cities", false, "import the cities of -country")
	flag.BoolVar(&hotels, "hotels", false, "import hotels for the active cities of -country")
	flag.IntVar(&pageSize, "page-size", 200, "hotel catalog page size")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	cityRepo := database.NewCityRepository(db)
	settingsService := services.NewSettingsService(database.NewSystemSettingRepository(db), cfg.LiteAPI.BaseURL, cfg.LiteAPI.APIKey, logger)
	auditService := services.NewAuditService(database.NewAuditLogRepository(db, logger))

	client := liteapi.NewClient(liteapi.Config{
		Timeout:            cfg.LiteAPI.Timeout,
		InsecureSkipVerify: cfg.LiteAPI.InsecureSkipVerify,
		UserAgent:          cfg.LiteAPI.UserAgent,
		AllowedEndpoints:   cfg.LiteAPI.AllowedEndpoints,
	}, settingsService, auditService, logger)

	catalog := services.NewCatalogService(client, cityRepo, database.NewHotelRepository(db), logger)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = liteapi.WithActor(ctx, liteapi.Actor{Name: "sync-catalog", IPAddress: "127.0.0.1"})

	// 1. Countries are always refreshed
	report, err := catalog.SyncCountries(ctx)
	if err != nil {
		logger.Fatalf("Country sync failed: %v", err)
	}
	logger.WithFields(logrus.Fields{"imported": report.Imported, "failed": report.Failed}).Info("Countries synced")

	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		if withCities || hotels {
			logger.Fatal("-country is required with -cities or -hotels")
		}
		return
	}

	// 2. Cities
	if withCities {
		report, err := catalog.SyncCities(ctx, country)
		if err != nil {
			logger.Fatalf("City sync failed: %v", err)
		}
		logger.WithFields(logrus.Fields{
			"country":  country,
			"imported": report.Imported,
			"failed":   report.Failed,
		}).Info("Cities synced")
	}

	// 3. Hotels, only for cities ops has enabled
	if hotels {
		cities, err := cityRepo.ListActive(ctx)
		if err != nil {
			logger.Fatalf("Failed to list active cities: %v", err)
		}
		for i := range cities {
			if cities[i].CountryCode != country {
				continue
			}
			if _, err := catalog.SyncHotels(ctx, country, &cities[i], pageSize); err != nil {
				logger.WithError(err).WithField("city", cities[i].Name).Error("Hotel sync failed")
			}
		}
	}
}
