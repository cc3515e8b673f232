package services

import (
	"context"
	"time"

	"github.com/hotelbridge/liteapi-booking/internal/clock"
	"github.com/hotelbridge/liteapi-booking/internal/models"
)

// abuseSearchThreshold is the search count above which an actor that never
// books is flagged
const abuseSearchThreshold = 20

// ReportStore runs the back-office aggregate queries
type ReportStore interface {
	Dashboard(ctx context.Context, since time.Time) (*models.DashboardKPIs, error)
	AbuseReport(ctx context.Context, since time.Time, limit int) ([]models.AbuseReportRow, error)
}

// ReportService builds the back-office dashboard and abuse report
type ReportService struct {
	store ReportStore
	clock clock.Clock
}

// NewReportService creates a new report service
func NewReportService(store ReportStore, clk clock.Clock) *ReportService {
	return &ReportService{store: store, clock: clk}
}

// Dashboard returns today's KPIs
func (s *ReportService) Dashboard(ctx context.Context) (*models.DashboardKPIs, error) {
	return s.store.Dashboard(ctx, startOfDay(s.clock.Now()))
}

// AbuseReport returns per-actor search and booking counts over the last window
func (s *ReportService) AbuseReport(ctx context.Context, window time.Duration, limit int) ([]models.AbuseReportRow, error) {
	if window <= 0 {
		window = 24 * time.Hour
	}

	rows, err := s.store.AbuseReport(ctx, s.clock.Now().Add(-window), limit)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].RiskLevel = RiskLevel(rows[i].SearchCount, rows[i].BookingCount)
	}
	return rows, nil
}

// RiskLevel flags actors that search a lot without ever booking
func RiskLevel(searches, bookings int) string {
	if searches > abuseSearchThreshold && bookings == 0 {
		return models.RiskHigh
	}
	return models.RiskLow
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
