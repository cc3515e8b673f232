package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/hotelbridge/liteapi-booking/internal/utils"
	"github.com/hotelbridge/liteapi-booking/pkg/liteapi"
)

// AuditStore persists upstream call audit records
type AuditStore interface {
	Insert(ctx context.Context, entry *models.AuditLog) error
	ListRecent(ctx context.Context, result string, limit int) ([]models.AuditLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditService records every LiteAPI call, allowed or blocked
type AuditService struct {
	store AuditStore
}

// NewAuditService creates a new audit service
func NewAuditService(store AuditStore) *AuditService {
	return &AuditService{
		store: store,
	}
}

// RecordCall implements liteapi.AuditSink
func (s *AuditService) RecordCall(ctx context.Context, entry liteapi.AuditEntry) error {
	deviceInfo := utils.ParseUserAgent(entry.Actor.UserAgent)

	log := &models.AuditLog{
		Endpoint:   entry.Endpoint,
		Method:     entry.Method,
		Result:     models.AuditResult(entry.Result),
		Details:    auditDetails(entry),
		Actor:      entry.Actor.Name,
		DurationMs: entry.Duration.Milliseconds(),
	}
	if log.Actor == "" {
		log.Actor = liteapi.SystemActor.Name
	}
	if entry.URL != "" {
		log.URL = &entry.URL
	}
	if entry.StatusCode != 0 {
		code := entry.StatusCode
		log.StatusCode = &code
	}
	if entry.RequestBody != "" {
		log.RequestPayload = &entry.RequestBody
	}
	if entry.ResponseBody != "" {
		log.ResponsePayload = &entry.ResponseBody
	}
	if entry.Actor.IPAddress != "" {
		log.IPAddress = &entry.Actor.IPAddress
	}
	if entry.Actor.UserAgent != "" {
		log.UserAgent = &entry.Actor.UserAgent
		device := entry.Actor.Device
		if device == "" {
			device = deviceInfo.Label()
		}
		log.DeviceType = &device
	}

	if err := s.store.Insert(ctx, log); err != nil {
		return fmt.Errorf("failed to record audit entry: %w", err)
	}
	return nil
}

// auditDetails is the short human-readable summary stored with each row
func auditDetails(entry liteapi.AuditEntry) string {
	var b strings.Builder
	switch entry.Result {
	case liteapi.ResultBlocked:
		fmt.Fprintf(&b, "blocked: %s %s is not allow-listed", entry.Method, entry.Endpoint)
	case liteapi.ResultError:
		fmt.Fprintf(&b, "%s %s failed", entry.Method, entry.Endpoint)
		if entry.StatusCode != 0 {
			fmt.Fprintf(&b, " with status %d", entry.StatusCode)
		}
		if entry.Error != "" {
			b.WriteString(": ")
			b.WriteString(entry.Error)
		}
	default:
		fmt.Fprintf(&b, "%s %s ok", entry.Method, entry.Endpoint)
		if entry.StatusCode != 0 {
			fmt.Fprintf(&b, " (%d)", entry.StatusCode)
		}
	}

	return liteapi.Truncate(b.String(), models.MaxAuditDetailsLength)
}

// ListRecent returns the newest audit records. result filters by outcome when set.
func (s *AuditService) ListRecent(ctx context.Context, result string, limit int) ([]models.AuditLog, error) {
	return s.store.ListRecent(ctx, result, limit)
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoffTime := time.Now().Add(-olderThan)

	rowsAffected, err := s.store.DeleteOlderThan(ctx, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	return rowsAffected, nil
}
