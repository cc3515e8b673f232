package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/models"
)

// SearchCacheRepository stores memoized search results in the search_cache table
type SearchCacheRepository struct {
	db DB
}

// NewSearchCacheRepository creates a new search cache repository
func NewSearchCacheRepository(db DB) *SearchCacheRepository {
	return &SearchCacheRepository{db: db}
}

const searchCacheColumns = `id, cache_key, result, created_at, expires_at`

// Insert appends a cache entry. Entries for the same key are never updated in place.
func (r *SearchCacheRepository) Insert(ctx context.Context, entry *models.CacheEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	query := `
		INSERT INTO search_cache (id, cache_key, result, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	// JSONB is sent as text for compatibility with simple protocol mode
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.CacheKey, string(entry.Result), entry.CreatedAt, entry.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert search cache entry: %w", err)
	}
	return nil
}

// LatestFresh returns the newest entry for key that has not expired at now.
// Returns nil when there is none.
func (r *SearchCacheRepository) LatestFresh(ctx context.Context, key string, now time.Time) (*models.CacheEntry, error) {
	query := `
		SELECT ` + searchCacheColumns + `
		FROM search_cache
		WHERE cache_key = $1 AND expires_at > $2
		ORDER BY created_at DESC
		LIMIT 1
	`

	var entry models.CacheEntry
	if err := r.db.GetContext(ctx, &entry, query, key, now); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read fresh search cache: %w", err)
	}
	return &entry, nil
}

// Latest returns the newest entry for key regardless of expiry.
// Returns nil when there is none.
func (r *SearchCacheRepository) Latest(ctx context.Context, key string) (*models.CacheEntry, error) {
	query := `
		SELECT ` + searchCacheColumns + `
		FROM search_cache
		WHERE cache_key = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var entry models.CacheEntry
	if err := r.db.GetContext(ctx, &entry, query, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read search cache: %w", err)
	}
	return &entry, nil
}

// DeleteExpired removes entries that expired before the cutoff
func (r *SearchCacheRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM search_cache WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to purge search cache: %w", err)
	}
	return result.RowsAffected()
}
