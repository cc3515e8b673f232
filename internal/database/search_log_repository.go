package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/models"
)

// SearchLogRepository records hotel searches for analytics
type SearchLogRepository struct {
	db DB
}

// NewSearchLogRepository creates a new search log repository
func NewSearchLogRepository(db DB) *SearchLogRepository {
	return &SearchLogRepository{db: db}
}

// PopularSearch is a frequently searched value
type PopularSearch struct {
	Mode        string `json:"mode" db:"mode"`
	SearchValue string `json:"search_value" db:"search_value"`
	SearchCount int    `json:"search_count" db:"search_count"`
}

// LogSearch records a search query for analytics
func (r *SearchLogRepository) LogSearch(ctx context.Context, log *models.SearchLog) error {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}

	query := `
		INSERT INTO search_logs (
			id,
			mode,
			search_value,
			cache_result,
			results_count,
			response_time_ms,
			actor,
			ip_address
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx,
		query,
		log.ID,
		log.Mode,
		log.SearchValue,
		log.CacheResult,
		log.ResultsCount,
		log.ResponseTimeMs,
		log.Actor,
		log.IPAddress,
	)
	if err != nil {
		return fmt.Errorf("error logging search: %w", err)
	}

	return nil
}

// GetPopularSearches returns frequently searched values of the last 30 days
func (r *SearchLogRepository) GetPopularSearches(ctx context.Context, limit int) ([]PopularSearch, error) {
	query := `
		SELECT
			mode,
			search_value,
			COUNT(*) as search_count
		FROM search_logs
		WHERE created_at > NOW() - INTERVAL '30 days'
		GROUP BY mode, search_value
		ORDER BY search_count DESC
		LIMIT $1
	`

	searches := []PopularSearch{}
	if err := r.db.SelectContext(ctx, &searches, query, limit); err != nil {
		return nil, fmt.Errorf("error getting popular searches: %w", err)
	}

	return searches, nil
}
