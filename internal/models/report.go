package models

// DashboardKPIs are today's operational figures for the back office
type DashboardKPIs struct {
	TodaySearches   int     `json:"today_searches" db:"today_searches"`
	TodayBookings   int     `json:"today_bookings" db:"today_bookings"`
	TodayErrors     int     `json:"today_errors" db:"today_errors"`
	WalletLiability float64 `json:"wallet_liability" db:"wallet_liability"`
	CacheHitRatio   float64 `json:"cache_hit_ratio" db:"cache_hit_ratio"`
}

// Risk levels of the abuse report
const (
	RiskLow  = "low"
	RiskHigh = "high"
)

// AbuseReportRow compares how often an actor searches with how often they book
type AbuseReportRow struct {
	Actor        string  `json:"actor" db:"actor"`
	SearchCount  int     `json:"search_count" db:"search_count"`
	BookingCount int     `json:"booking_count" db:"booking_count"`
	Ratio        float64 `json:"ratio" db:"ratio"`
	RiskLevel    string  `json:"risk_level" db:"risk_level"`
}
