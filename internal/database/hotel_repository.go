package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/lib/pq"
)

// HotelRepository handles locally cached hotel metadata
type HotelRepository struct {
	db DB
}

// NewHotelRepository creates a new hotel repository
func NewHotelRepository(db DB) *HotelRepository {
	return &HotelRepository{db: db}
}

const hotelColumns = `
	id, name, liteapi_hotel_id, city_id, address, latitude, longitude,
	image_url, star_rating, description, amenities, created_at, updated_at`

// GetByLiteAPIIDs returns local hotels matching any of the given upstream ids
func (r *HotelRepository) GetByLiteAPIIDs(ctx context.Context, ids []string) ([]models.Hotel, error) {
	hotels := []models.Hotel{}
	if len(ids) == 0 {
		return hotels, nil
	}

	query := `SELECT ` + hotelColumns + ` FROM hotels WHERE liteapi_hotel_id = ANY($1)`
	if err := r.db.SelectContext(ctx, &hotels, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get hotels by liteapi ids: %w", err)
	}
	return hotels, nil
}

// GetByLiteAPIID returns one hotel, or nil when it is not known locally
func (r *HotelRepository) GetByLiteAPIID(ctx context.Context, liteID string) (*models.Hotel, error) {
	query := `SELECT ` + hotelColumns + ` FROM hotels WHERE liteapi_hotel_id = $1`

	var hotel models.Hotel
	if err := r.db.GetContext(ctx, &hotel, query, liteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get hotel: %w", err)
	}
	return &hotel, nil
}

// ListLiteAPIIDsByCity returns up to limit upstream ids of the city's hotels
func (r *HotelRepository) ListLiteAPIIDsByCity(ctx context.Context, cityID int64, limit int) ([]string, error) {
	query := `
		SELECT liteapi_hotel_id
		FROM hotels
		WHERE city_id = $1 AND liteapi_hotel_id <> ''
		ORDER BY id
		LIMIT $2
	`

	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, cityID, limit); err != nil {
		return nil, fmt.Errorf("failed to list city hotels: %w", err)
	}
	return ids, nil
}

// BackfillMetadata fills image, star rating and description from upstream data,
// but only where the local value is empty. Locally curated values are never
// overwritten. Reports whether a row changed.
func (r *HotelRepository) BackfillMetadata(ctx context.Context, liteID string, patch models.HotelMetadataPatch) (bool, error) {
	if patch.IsEmpty() {
		return false, nil
	}

	query := `
		UPDATE hotels SET
			image_url   = COALESCE(NULLIF(image_url, ''), NULLIF($2, '')),
			star_rating = COALESCE(NULLIF(star_rating, 0), NULLIF($3, 0)),
			description = COALESCE(NULLIF(description, ''), NULLIF($4, '')),
			updated_at  = NOW()
		WHERE liteapi_hotel_id = $1
		  AND (
			(COALESCE(image_url, '') = '' AND $2 <> '') OR
			(COALESCE(star_rating, 0) = 0 AND $3 > 0) OR
			(COALESCE(description, '') = '' AND $4 <> '')
		  )
	`

	result, err := r.db.ExecContext(ctx, query, liteID, patch.ImageURL, patch.StarRating, patch.Description)
	if err != nil {
		return false, fmt.Errorf("failed to backfill hotel metadata: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

// UpsertFromCatalog inserts a hotel from the upstream catalog. Existing rows keep
// their local values; upstream only fills what is missing.
func (r *HotelRepository) UpsertFromCatalog(ctx context.Context, hotel *models.Hotel) error {
	query := `
		INSERT INTO hotels (
			name, liteapi_hotel_id, city_id, address, latitude, longitude,
			image_url, star_rating, description, amenities, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW(), NOW())
		ON CONFLICT (liteapi_hotel_id) DO UPDATE SET
			city_id     = COALESCE(hotels.city_id, EXCLUDED.city_id),
			address     = COALESCE(NULLIF(hotels.address, ''), EXCLUDED.address),
			latitude    = COALESCE(hotels.latitude, EXCLUDED.latitude),
			longitude   = COALESCE(hotels.longitude, EXCLUDED.longitude),
			image_url   = COALESCE(NULLIF(hotels.image_url, ''), EXCLUDED.image_url),
			star_rating = COALESCE(NULLIF(hotels.star_rating, 0), EXCLUDED.star_rating),
			description = COALESCE(NULLIF(hotels.description, ''), EXCLUDED.description),
			updated_at  = NOW()
		RETURNING id, created_at, updated_at
	`

	row := struct {
		ID        int64        `db:"id"`
		CreatedAt sql.NullTime `db:"created_at"`
		UpdatedAt sql.NullTime `db:"updated_at"`
	}{}
	err := r.db.GetContext(ctx, &row, query,
		hotel.Name, hotel.LiteAPIHotelID, hotel.CityID, hotel.Address, hotel.Latitude, hotel.Longitude,
		hotel.ImageURL, hotel.StarRating, hotel.Description, hotel.Amenities,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert hotel %s: %w", hotel.LiteAPIHotelID, err)
	}

	hotel.ID = row.ID
	hotel.CreatedAt = row.CreatedAt.Time
	hotel.UpdatedAt = row.UpdatedAt.Time
	return nil
}
