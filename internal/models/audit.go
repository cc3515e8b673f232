package models

import (
	"time"

	"github.com/google/uuid"
)

// AuditResult is the outcome of one upstream call
type AuditResult string

const (
	AuditResultSuccess AuditResult = "success"
	AuditResultBlocked AuditResult = "blocked"
	AuditResultError   AuditResult = "error"
)

// MaxAuditDetailsLength bounds the human-readable details column
const MaxAuditDetailsLength = 1000

// AuditLog is an immutable record of one upstream call
type AuditLog struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	Endpoint        string      `json:"endpoint" db:"endpoint"`
	Method          string      `json:"method" db:"method"`
	URL             *string     `json:"url,omitempty" db:"url"`
	Result          AuditResult `json:"result" db:"result"`
	StatusCode      *int        `json:"status_code,omitempty" db:"status_code"`
	RequestPayload  *string     `json:"request_payload,omitempty" db:"request_payload"`
	ResponsePayload *string     `json:"response_payload,omitempty" db:"response_payload"`
	Details         string      `json:"details" db:"details"`
	Actor           string      `json:"actor" db:"actor"`
	IPAddress       *string     `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent       *string     `json:"user_agent,omitempty" db:"user_agent"`
	DeviceType      *string     `json:"device_type,omitempty" db:"device_type"`
	DurationMs      int64       `json:"duration_ms" db:"duration_ms"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
}
