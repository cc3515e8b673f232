package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/hotelbridge/liteapi-booking/pkg/liteapi"
	"github.com/sirupsen/logrus"
)

// CatalogClient is the part of the LiteAPI client that reads static data
type CatalogClient interface {
	Countries(ctx context.Context) ([]liteapi.Country, error)
	Cities(ctx context.Context, countryCode string) ([]liteapi.City, error)
	Hotels(ctx context.Context, q liteapi.HotelListQuery) ([]liteapi.CatalogHotel, error)
}

// CatalogCityStore writes reference countries and cities
type CatalogCityStore interface {
	UpsertCountry(ctx context.Context, country models.Country) error
	Upsert(ctx context.Context, city *models.City) error
}

// CatalogHotelStore writes hotels from the upstream catalog
type CatalogHotelStore interface {
	UpsertFromCatalog(ctx context.Context, hotel *models.Hotel) error
}

// SyncReport summarizes one catalog import
type SyncReport struct {
	Imported int `json:"imported"`
	Failed   int `json:"failed"`
}

// CatalogService imports LiteAPI reference data into the local tables
type CatalogService struct {
	client CatalogClient
	cities CatalogCityStore
	hotels CatalogHotelStore
	logger *logrus.Logger
}

// NewCatalogService creates a new catalog service
func NewCatalogService(client CatalogClient, cities CatalogCityStore, hotels CatalogHotelStore, logger *logrus.Logger) *CatalogService {
	return &CatalogService{
		client: client,
		cities: cities,
		hotels: hotels,
		logger: logger,
	}
}

// SyncCountries imports every country
func (s *CatalogService) SyncCountries(ctx context.Context) (SyncReport, error) {
	var report SyncReport

	countries, err := s.client.Countries(ctx)
	if err != nil {
		return report, fmt.Errorf("failed to fetch countries: %w", err)
	}

	for _, c := range countries {
		if c.Code == "" {
			continue
		}
		country := models.Country{Code: strings.ToUpper(c.Code), Name: c.Name}
		if err := s.cities.UpsertCountry(ctx, country); err != nil {
			report.Failed++
			s.logger.WithError(err).WithField("country", country.Code).Warn("Failed to import country")
			continue
		}
		report.Imported++
	}
	return report, nil
}

// SyncCities imports the cities of one country. Imported cities start inactive.
func (s *CatalogService) SyncCities(ctx context.Context, countryCode string) (SyncReport, error) {
	var report SyncReport
	countryCode = strings.ToUpper(strings.TrimSpace(countryCode))

	cities, err := s.client.Cities(ctx, countryCode)
	if err != nil {
		return report, fmt.Errorf("failed to fetch cities for %s: %w", countryCode, err)
	}

	for _, c := range cities {
		name := strings.TrimSpace(c.City)
		if name == "" {
			continue
		}
		city := &models.City{Name: name, CountryCode: countryCode}
		if err := s.cities.Upsert(ctx, city); err != nil {
			report.Failed++
			s.logger.WithError(err).WithField("city", name).Warn("Failed to import city")
			continue
		}
		report.Imported++
	}
	return report, nil
}

// SyncHotels imports the hotels of one city, paging through the catalog.
// Locally curated values are kept.
func (s *CatalogService) SyncHotels(ctx context.Context, countryCode string, city *models.City, pageSize int) (SyncReport, error) {
	var report SyncReport
	if pageSize <= 0 {
		pageSize = 200
	}

	for offset := 0; ; offset += pageSize {
		page, err := s.client.Hotels(ctx, liteapi.HotelListQuery{
			CountryCode: strings.ToUpper(countryCode),
			CityName:    city.Name,
			Limit:       pageSize,
			Offset:      offset,
		})
		if err != nil {
			return report, fmt.Errorf("failed to fetch hotels for %s: %w", city.Name, err)
		}

		for _, h := range page {
			hotel := catalogHotel(h, city.ID)
			if err := s.hotels.UpsertFromCatalog(ctx, hotel); err != nil {
				report.Failed++
				s.logger.WithError(err).WithField("liteapi_hotel_id", h.ID).Warn("Failed to import hotel")
				continue
			}
			report.Imported++
		}

		if len(page) < pageSize {
			break
		}
	}

	s.logger.WithFields(logrus.Fields{
		"city":     city.Name,
		"imported": report.Imported,
		"failed":   report.Failed,
	}).Info("Hotel catalog synced")
	return report, nil
}

func catalogHotel(h liteapi.CatalogHotel, cityID int64) *models.Hotel {
	hotel := &models.Hotel{
		Name:           h.Name,
		LiteAPIHotelID: h.ID,
		CityID:         &cityID,
		Latitude:       h.Latitude,
		Longitude:      h.Longitude,
	}
	if h.Address != "" {
		hotel.Address = &h.Address
	}
	if h.MainPhoto != "" {
		hotel.ImageURL = &h.MainPhoto
	}
	if h.HotelDescription != "" {
		hotel.Description = &h.HotelDescription
	}
	if h.Stars != nil && *h.Stars > 0 {
		stars := int(*h.Stars)
		hotel.StarRating = &stars
	}
	return hotel
}
