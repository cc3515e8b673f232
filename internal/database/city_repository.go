package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hotelbridge/liteapi-booking/internal/models"
)

// CityRepository handles reference countries and cities
type CityRepository struct {
	db DB
}

// NewCityRepository creates a new city repository
func NewCityRepository(db DB) *CityRepository {
	return &CityRepository{db: db}
}

const cityColumns = `id, name, liteapi_city_id, country_code, is_active, created_at`

// GetByID returns a city by local id, or nil when it does not exist
func (r *CityRepository) GetByID(ctx context.Context, id int64) (*models.City, error) {
	var city models.City
	query := `SELECT ` + cityColumns + ` FROM cities WHERE id = $1`
	if err := r.db.GetContext(ctx, &city, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get city: %w", err)
	}
	return &city, nil
}

// GetByLiteAPICityID returns a city by its upstream code, or nil when unknown
func (r *CityRepository) GetByLiteAPICityID(ctx context.Context, code string) (*models.City, error) {
	var city models.City
	query := `SELECT ` + cityColumns + ` FROM cities WHERE liteapi_city_id = $1 LIMIT 1`
	if err := r.db.GetContext(ctx, &city, query, code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get city by code: %w", err)
	}
	return &city, nil
}

// ListActive returns all active cities ordered by name
func (r *CityRepository) ListActive(ctx context.Context) ([]models.City, error) {
	cities := []models.City{}
	query := `SELECT ` + cityColumns + ` FROM cities WHERE is_active = true ORDER BY name`
	if err := r.db.SelectContext(ctx, &cities, query); err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}
	return cities, nil
}

// UpsertCountry inserts or renames a country
func (r *CityRepository) UpsertCountry(ctx context.Context, country models.Country) error {
	query := `
		INSERT INTO countries (code, name) VALUES ($1, $2)
		ON CONFLICT (code) DO UPDATE SET name = EXCLUDED.name
	`
	if _, err := r.db.ExecContext(ctx, query, country.Code, country.Name); err != nil {
		return fmt.Errorf("failed to upsert country %s: %w", country.Code, err)
	}
	return nil
}

// Upsert inserts a city keyed by (country_code, name) and returns its id.
// The activation flag of an existing city is left alone.
func (r *CityRepository) Upsert(ctx context.Context, city *models.City) error {
	query := `
		INSERT INTO cities (name, liteapi_city_id, country_code, is_active, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (country_code, name) DO UPDATE SET
			liteapi_city_id = COALESCE(cities.liteapi_city_id, EXCLUDED.liteapi_city_id)
		RETURNING id
	`
	if err := r.db.GetContext(ctx, &city.ID, query, city.Name, city.LiteAPICityID, city.CountryCode, city.IsActive); err != nil {
		return fmt.Errorf("failed to upsert city %s: %w", city.Name, err)
	}
	return nil
}
