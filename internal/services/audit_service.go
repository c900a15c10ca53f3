package services

import (
	"fmt"
	"time"

	"github.com/eventhall/booking-wizard/internal/database"
	"github.com/eventhall/booking-wizard/internal/models"
	"github.com/eventhall/booking-wizard/internal/utils"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// AuditService records security and booking events. Without a database the
// events are written to the logger only.
type AuditService struct {
	db     database.DB
	logger *logrus.Logger
}

// NewAuditService creates a new audit service. db may be nil.
func NewAuditService(db database.DB, logger *logrus.Logger) *AuditService {
	return &AuditService{
		db:     db,
		logger: logger,
	}
}

// AuditEvent represents an event to be logged
type AuditEvent struct {
	UserID     string    // Empty for guests
	SessionID  uuid.UUID // Zero when the event is not tied to a wizard session
	Action     string
	EntityType string // "wizard_session", "otp", "booking", "rate_limit"
	EntityID   string
	IPAddress  string
	UserAgent  string
	Details    models.AuditDetails
}

// Persistent reports whether events are stored in the database
func (s *AuditService) Persistent() bool {
	return s.db != nil
}

// LogSessionEvent logs a wizard session lifecycle event (created, left, expired)
func (s *AuditService) LogSessionEvent(action string, sessionID uuid.UUID, userID, ipAddress, userAgent string) error {
	details := models.AuditDetails{}
	if userAgent != "" {
		details["device_info"] = utils.ParseUserAgent(userAgent)
	}

	return s.logEvent(AuditEvent{
		UserID:     userID,
		SessionID:  sessionID,
		Action:     action,
		EntityType: "wizard_session",
		EntityID:   sessionID.String(),
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogOTPRequest logs an OTP send request
func (s *AuditService) LogOTPRequest(sessionID uuid.UUID, userID, phone, ipAddress, userAgent string, success bool, reason string) error {
	details := models.AuditDetails{
		"phone":       phone,
		"success":     success,
		"device_info": utils.ParseUserAgent(userAgent),
	}
	if reason != "" {
		details["reason"] = reason
	}

	return s.logEvent(AuditEvent{
		UserID:     userID,
		SessionID:  sessionID,
		Action:     models.AuditOTPRequest,
		EntityType: "otp",
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// LogRateLimitViolation logs a rate limit violation event
func (s *AuditService) LogRateLimitViolation(sessionID uuid.UUID, phone, ipAddress, userAgent, limitType string, retryAfter time.Time) error {
	return s.logEvent(AuditEvent{
		SessionID:  sessionID,
		Action:     models.AuditRateLimitViolation,
		EntityType: "rate_limit",
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details: models.AuditDetails{
			"phone":       phone,
			"limit_type":  limitType,
			"retry_after": retryAfter,
			"device_info": utils.ParseUserAgent(userAgent),
		},
	})
}

// LogAvailabilityFailure logs a failed availability check
func (s *AuditService) LogAvailabilityFailure(sessionID uuid.UUID, userID string, venueID, shiftID int64, eventDate, reason, ipAddress, userAgent string) error {
	return s.logEvent(AuditEvent{
		UserID:     userID,
		SessionID:  sessionID,
		Action:     models.AuditAvailabilityFailed,
		EntityType: "wizard_session",
		EntityID:   sessionID.String(),
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details: models.AuditDetails{
			"venue_id":   venueID,
			"shift_id":   shiftID,
			"event_date": eventDate,
			"reason":     reason,
		},
	})
}

// LogBookingSubmission logs the outcome of a booking submission
func (s *AuditService) LogBookingSubmission(sessionID uuid.UUID, userID, bookingID string, totalFare float64, ipAddress, userAgent string, success bool, reason string) error {
	action := models.AuditBookingSubmitted
	if !success {
		action = models.AuditBookingFailed
	}

	details := models.AuditDetails{
		"success":     success,
		"total_fare":  totalFare,
		"device_info": utils.ParseUserAgent(userAgent),
	}
	if reason != "" {
		details["reason"] = reason
	}

	return s.logEvent(AuditEvent{
		UserID:     userID,
		SessionID:  sessionID,
		Action:     action,
		EntityType: "booking",
		EntityID:   bookingID,
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Details:    details,
	})
}

// logEvent writes to the audit_logs table, or only to the logger without a database
func (s *AuditService) logEvent(event AuditEvent) error {
	s.logger.WithFields(logrus.Fields{
		"audit":       true,
		"action":      event.Action,
		"entity_type": event.EntityType,
		"entity_id":   event.EntityID,
		"user_id":     event.UserID,
		"session_id":  sessionString(event.SessionID),
		"ip":          event.IPAddress,
	}).Info("Audit event")

	if s.db == nil {
		return nil
	}

	query := `
		INSERT INTO audit_logs (user_id, session_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
	`

	_, err := s.db.Exec(
		query,
		nullable(event.UserID),
		nullable(sessionString(event.SessionID)),
		event.Action,
		event.EntityType,
		nullable(event.EntityID),
		nullable(event.IPAddress),
		nullable(event.UserAgent),
		event.Details,
	)
	if err != nil {
		return fmt.Errorf("failed to log audit event: %w", err)
	}

	return nil
}

// GetRecentEvents returns the most recent audit events, newest first
func (s *AuditService) GetRecentEvents(limit int) ([]models.AuditLog, error) {
	if s.db == nil {
		return []models.AuditLog{}, nil
	}

	query := `
		SELECT id, user_id, session_id, action, entity_type, entity_id, ip_address, user_agent, details, created_at
		FROM audit_logs
		ORDER BY created_at DESC
		LIMIT $1
	`

	events := []models.AuditLog{}
	if err := s.db.Select(&events, query, limit); err != nil {
		return nil, fmt.Errorf("failed to get recent events: %w", err)
	}

	return events, nil
}

// CleanupOldAuditLogs removes audit logs older than the specified duration
func (s *AuditService) CleanupOldAuditLogs(olderThan time.Duration) (int64, error) {
	if s.db == nil {
		return 0, nil
	}

	cutoffTime := time.Now().Add(-olderThan)

	query := `
		DELETE FROM audit_logs
		WHERE created_at < $1
	`

	result, err := s.db.Exec(query, cutoffTime)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup old audit logs: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

func sessionString(id uuid.UUID) string {
	if id == uuid.Nil {
		return ""
	}
	return id.String()
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
