package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hotelbridge/liteapi-booking/internal/models"
	"github.com/sirupsen/logrus"
)

// AuditLogRepository handles upstream call audit records
type AuditLogRepository struct {
	db     DB
	logger *logrus.Logger
}

// NewAuditLogRepository creates a new audit log repository
func NewAuditLogRepository(db DB, logger *logrus.Logger) *AuditLogRepository {
	return &AuditLogRepository{
		db:     db,
		logger: logger,
	}
}

// Insert writes one audit record. Audit rows are never updated.
func (r *AuditLogRepository) Insert(ctx context.Context, entry *models.AuditLog) error {
	if entry == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}

	// Ensure ID and timestamp are set
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO liteapi_audit_logs (
			id, endpoint, method, url, result, status_code,
			request_payload, response_payload, details,
			actor, ip_address, user_agent, device_type,
			duration_ms, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6,
			$7, $8, $9,
			$10, $11, $12, $13,
			$14, $15
		)`

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.Endpoint, entry.Method, entry.URL, entry.Result, entry.StatusCode,
		entry.RequestPayload, entry.ResponsePayload, entry.Details,
		entry.Actor, entry.IPAddress, entry.UserAgent, entry.DeviceType,
		entry.DurationMs, entry.CreatedAt,
	)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"endpoint": entry.Endpoint,
			"result":   entry.Result,
			"error":    err.Error(),
		}).Error("Failed to write audit log")
		return fmt.Errorf("failed to insert audit log: %w", err)
	}

	return nil
}

// ListRecent returns the newest audit records, optionally filtered by result
func (r *AuditLogRepository) ListRecent(ctx context.Context, result string, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	query := `
		SELECT id, endpoint, method, url, result, status_code,
		       request_payload, response_payload, details,
		       actor, ip_address, user_agent, device_type,
		       duration_ms, created_at
		FROM liteapi_audit_logs
		WHERE ($1 = '' OR result = $1)
		ORDER BY created_at DESC
		LIMIT $2
	`

	logs := []models.AuditLog{}
	if err := r.db.SelectContext(ctx, &logs, query, result, limit); err != nil {
		return nil, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, nil
}

// DeleteOlderThan removes audit records created before the cutoff
func (r *AuditLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM liteapi_audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old audit logs: %w", err)
	}
	return result.RowsAffected()
}
