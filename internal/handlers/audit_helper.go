package handlers

import (
	"github.com/eventhall/booking-wizard/internal/models"
	"github.com/eventhall/booking-wizard/internal/services"
	"github.com/eventhall/booking-wizard/internal/utils"
	"github.com/eventhall/booking-wizard/internal/wizard"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	auditSessionCreated = models.AuditSessionCreated
	auditSessionLeft    = models.AuditSessionLeft
)

// logAuditError logs audit service errors without failing the request
func (h *WizardHandler) logAuditError(operation string, err error) {
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"operation": operation,
			"error":     err.Error(),
		}).Error("AUDIT ERROR")
	}
}

// Helper functions to log audit events with error handling. A nil audit
// service disables auditing.

func (h *WizardHandler) safeLogSessionEvent(c *gin.Context, action string, sessionID uuid.UUID, userID string) {
	if h.auditService == nil {
		return
	}
	err := h.auditService.LogSessionEvent(action, sessionID, userID, utils.GetRealIP(c), utils.GetUserAgent(c))
	h.logAuditError("LogSessionEvent", err)
}

func (h *WizardHandler) safeLogOTPRequest(sessionID uuid.UUID, userID, phone, ipAddress, userAgent string, success bool, reason string) {
	if h.auditService == nil {
		return
	}
	err := h.auditService.LogOTPRequest(sessionID, userID, phone, ipAddress, userAgent, success, reason)
	h.logAuditError("LogOTPRequest", err)
}

func (h *WizardHandler) safeLogRateLimitViolation(sessionID uuid.UUID, phone, ipAddress, userAgent string, rateLimitErr *services.RateLimitError) {
	if h.auditService == nil {
		return
	}
	err := h.auditService.LogRateLimitViolation(sessionID, phone, ipAddress, userAgent, rateLimitErr.Type, rateLimitErr.RetryAfter)
	h.logAuditError("LogRateLimitViolation", err)
}

func (h *WizardHandler) safeLogAvailabilityFailure(c *gin.Context, session *services.WizardSession, draft wizard.Draft, reason error) {
	if h.auditService == nil {
		return
	}
	err := h.auditService.LogAvailabilityFailure(
		session.ID,
		h.sessions.OwnerID(session),
		draft.VenueID,
		draft.ShiftID,
		draft.Date,
		reason.Error(),
		utils.GetRealIP(c),
		utils.GetUserAgent(c),
	)
	h.logAuditError("LogAvailabilityFailure", err)
}

func (h *WizardHandler) safeLogBookingSubmission(c *gin.Context, sessionID uuid.UUID, userID string, snapshot wizard.Snapshot, success bool, reason string) {
	if h.auditService == nil {
		return
	}
	err := h.auditService.LogBookingSubmission(
		sessionID,
		userID,
		snapshot.State.BookingID,
		snapshot.Draft.TotalFare,
		utils.GetRealIP(c),
		utils.GetUserAgent(c),
		success,
		reason,
	)
	h.logAuditError("LogBookingSubmission", err)
}
