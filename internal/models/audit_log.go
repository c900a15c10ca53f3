package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Audit actions recorded for wizard sessions
const (
	AuditSessionCreated     = "wizard_session_created"
	AuditSessionLeft        = "wizard_session_left"
	AuditSessionExpired     = "wizard_session_expired"
	AuditAvailabilityFailed = "availability_check_failed"
	AuditOTPRequest         = "otp_request"
	AuditRateLimitViolation = "rate_limit_violation"
	AuditBookingSubmitted   = "booking_submitted"
	AuditBookingFailed      = "booking_submission_failed"
)

// AuditDetails is a JSONB column of free-form event details
type AuditDetails map[string]interface{}

// Value implements driver.Valuer
func (d AuditDetails) Value() (driver.Value, error) {
	if d == nil {
		return nil, nil
	}
	return json.Marshal(d)
}

// Scan implements sql.Scanner
func (d *AuditDetails) Scan(value interface{}) error {
	if value == nil {
		*d = nil
		return nil
	}

	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return errors.New("audit details: unsupported type")
	}

	return json.Unmarshal(data, d)
}

// AuditLog is a row of the audit_logs table
type AuditLog struct {
	ID         int64        `db:"id" json:"id"`
	UserID     *string      `db:"user_id" json:"user_id,omitempty"`
	SessionID  *string      `db:"session_id" json:"session_id,omitempty"`
	Action     string       `db:"action" json:"action"`
	EntityType string       `db:"entity_type" json:"entity_type"`
	EntityID   *string      `db:"entity_id" json:"entity_id,omitempty"`
	IPAddress  *string      `db:"ip_address" json:"ip_address,omitempty"`
	UserAgent  *string      `db:"user_agent" json:"user_agent,omitempty"`
	Details    AuditDetails `db:"details" json:"details,omitempty"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}
