package database

import (
	"context"
	"fmt"
	"time"

	"github.com/hotelbridge/liteapi-booking/internal/models"
)

// ReportRepository runs the back-office aggregate queries
type ReportRepository struct {
	db DB
}

// NewReportRepository creates a new report repository
func NewReportRepository(db DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Dashboard returns the KPIs for the period starting at since
func (r *ReportRepository) Dashboard(ctx context.Context, since time.Time) (*models.DashboardKPIs, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM search_logs WHERE created_at >= $1) AS today_searches,
			(SELECT COUNT(*) FROM bookings WHERE status = 'confirmed' AND created_at >= $1) AS today_bookings,
			(SELECT COUNT(*) FROM liteapi_audit_logs WHERE result <> 'success' AND created_at >= $1) AS today_errors,
			(SELECT COALESCE(SUM(amount), 0) FROM wallet_transactions) AS wallet_liability,
			(SELECT COALESCE(
				100.0 * COUNT(CASE WHEN cache_result = 'hit' THEN 1 END) / NULLIF(COUNT(*), 0),
				0
			) FROM search_logs WHERE created_at >= $1) AS cache_hit_ratio
	`

	var kpis models.DashboardKPIs
	if err := r.db.GetContext(ctx, &kpis, query, since); err != nil {
		return nil, fmt.Errorf("failed to load dashboard: %w", err)
	}
	return &kpis, nil
}

// AbuseReport compares searches with confirmed bookings per actor since the
// given time. Actors that only search float to the top.
func (r *ReportRepository) AbuseReport(ctx context.Context, since time.Time, limit int) ([]models.AbuseReportRow, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		WITH searches AS (
			SELECT actor, COUNT(*) AS search_count
			FROM search_logs
			WHERE created_at >= $1
			GROUP BY actor
		),
		booked AS (
			SELECT l.actor, COUNT(*) AS booking_count
			FROM liteapi_audit_logs l
			WHERE l.endpoint = '/rates/book' AND l.result = 'success' AND l.created_at >= $1
			GROUP BY l.actor
		)
		SELECT
			s.actor,
			s.search_count,
			COALESCE(b.booking_count, 0) AS booking_count,
			ROUND(s.search_count::numeric / GREATEST(COALESCE(b.booking_count, 0), 1), 2) AS ratio
		FROM searches s
		LEFT JOIN booked b ON b.actor = s.actor
		ORDER BY ratio DESC, s.search_count DESC
		LIMIT $2
	`

	rows := []models.AbuseReportRow{}
	if err := r.db.SelectContext(ctx, &rows, query, since, limit); err != nil {
		return nil, fmt.Errorf("failed to load abuse report: %w", err)
	}
	return rows, nil
}
