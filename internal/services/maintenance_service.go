package services

import (
	"context"
	"fmt"
	"time"

	"github.com/hotelbridge/liteapi-booking/internal/clock"
	"github.com/sirupsen/logrus"
)

// PurgeReport counts the rows removed by one maintenance run
type PurgeReport struct {
	CacheEntries int64 `json:"cache_entries"`
	AuditLogs    int64 `json:"audit_logs"`
}

// MaintenanceService reclaims expired cache entries and old audit logs
type MaintenanceService struct {
	cache          *SearchCacheService
	audit          *AuditService
	auditRetention time.Duration
	clock          clock.Clock
	logger         *logrus.Logger
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(cache *SearchCacheService, audit *AuditService, retentionDays int, clk clock.Clock, logger *logrus.Logger) *MaintenanceService {
	if retentionDays <= 0 {
		retentionDays = 30
	}
	return &MaintenanceService{
		cache:          cache,
		audit:          audit,
		auditRetention: time.Duration(retentionDays) * 24 * time.Hour,
		clock:          clk,
		logger:         logger,
	}
}

// Purge deletes cache entries that have expired and audit logs past retention
func (s *MaintenanceService) Purge(ctx context.Context) (*PurgeReport, error) {
	report := &PurgeReport{}

	removed, err := s.cache.PurgeExpired(ctx, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to purge search cache: %w", err)
	}
	report.CacheEntries = removed

	removed, err = s.audit.CleanupOldAuditLogs(ctx, s.auditRetention)
	if err != nil {
		return report, err
	}
	report.AuditLogs = removed

	s.logger.WithFields(logrus.Fields{
		"cache_entries": report.CacheEntries,
		"audit_logs":    report.AuditLogs,
	}).Info("Maintenance purge completed")

	return report, nil
}
