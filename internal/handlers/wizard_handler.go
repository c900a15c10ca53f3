package handlers

import (
	"errors"
	"net/http"

	"github.com/eventhall/booking-wizard/internal/middleware"
	"github.com/eventhall/booking-wizard/internal/services"
	"github.com/eventhall/booking-wizard/internal/utils"
	"github.com/eventhall/booking-wizard/internal/wizard"
	"github.com/eventhall/booking-wizard/pkg/validator"
	"github.com/eventhall/booking-wizard/pkg/venueapi"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// WizardHandler handles booking wizard HTTP requests
type WizardHandler struct {
	sessions         *services.WizardSessionService
	rateLimitService *services.RateLimitService
	auditService     *services.AuditService
	contactValidator *validator.ContactValidator
	logger           *logrus.Logger
}

// NewWizardHandler creates a new wizard handler
func NewWizardHandler(
	sessions *services.WizardSessionService,
	rateLimitService *services.RateLimitService,
	auditService *services.AuditService,
	contactValidator *validator.ContactValidator,
	logger *logrus.Logger,
) *WizardHandler {
	return &WizardHandler{
		sessions:         sessions,
		rateLimitService: rateLimitService,
		auditService:     auditService,
		contactValidator: contactValidator,
		logger:           logger,
	}
}

// WizardResponse is the wizard as rendered by a client, plus the
// notifications raised since the previous response
type WizardResponse struct {
	SessionID string `json:"session_id"`
	wizard.Snapshot
	Notifications []wizard.Notification `json:"notifications"`
}

// WizardErrorResponse is an error body carrying the pending notifications
type WizardErrorResponse struct {
	ErrorResponse
	Notifications []wizard.Notification `json:"notifications,omitempty"`
}

// UpdateDraftRequest represents the request body for PATCH .../draft
type UpdateDraftRequest struct {
	Field string      `json:"field" binding:"required"`
	Value interface{} `json:"value"`
}

// ToggleMenuItemRequest represents the request body for POST .../menus/:menu_id/items
type ToggleMenuItemRequest struct {
	Item string `json:"item" binding:"required"`
}

// VerifyOTPRequest represents the request body for POST .../otp/verify
type VerifyOTPRequest struct {
	OTP string `json:"otp"`
}

// CreateSession handles POST /api/v1/wizard/sessions
func (h *WizardHandler) CreateSession(c *gin.Context) {
	identity := requestIdentity(c)

	session, err := h.sessions.Create(identity)
	if err != nil {
		respondError(c, err, "Failed to start booking")
		return
	}

	h.safeLogSessionEvent(c, auditSessionCreated, session.ID, identityID(identity))
	c.JSON(http.StatusCreated, h.view(session))
}

// GetSession handles GET /api/v1/wizard/sessions/:id
func (h *WizardHandler) GetSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.view(session))
}

// LeaveSession handles DELETE /api/v1/wizard/sessions/:id
func (h *WizardHandler) LeaveSession(c *gin.Context) {
	id, ok := sessionID(c)
	if !ok {
		return
	}

	identity := requestIdentity(c)
	if err := h.sessions.Delete(id, identity); err != nil {
		respondError(c, err, "Failed to leave booking")
		return
	}

	h.safeLogSessionEvent(c, auditSessionLeft, id, identityID(identity))
	c.JSON(http.StatusOK, gin.H{
		"left":    true,
		"message": "Booking wizard closed",
	})
}

// UpdateDraft handles PATCH /api/v1/wizard/sessions/:id/draft
func (h *WizardHandler) UpdateDraft(c *gin.Context) {
	var req UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	field, err := wizard.ParseField(req.Field)
	if err != nil {
		respondError(c, err, "")
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.Controller.UpdateDraft(field, req.Value); err != nil {
		h.fail(c, session, err, "")
		return
	}
	c.JSON(http.StatusOK, h.view(session))
}

// SelectMenu handles POST /api/v1/wizard/sessions/:id/menus/:menu_id
func (h *WizardHandler) SelectMenu(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.Controller.SelectMenu(c.Param("menu_id")); err != nil {
		h.fail(c, session, err, "")
		return
	}
	c.JSON(http.StatusOK, h.view(session))
}

// ToggleMenuItem handles POST /api/v1/wizard/sessions/:id/menus/:menu_id/items
func (h *WizardHandler) ToggleMenuItem(c *gin.Context) {
	var req ToggleMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Menu item is required",
		})
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.Controller.ToggleMenuItem(c.Param("menu_id"), req.Item); err != nil {
		h.fail(c, session, err, "")
		return
	}
	c.JSON(http.StatusOK, h.view(session))
}

// CheckAvailability handles POST /api/v1/wizard/sessions/:id/availability
func (h *WizardHandler) CheckAvailability(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.Controller.CheckAvailability(c.Request.Context()); err != nil {
		if isRemoteFailure(err) {
			draft := session.Controller.Snapshot().Draft
			h.safeLogAvailabilityFailure(c, session, draft, err)
		}
		h.fail(c, session, err, venueapi.FallbackAvailability)
		return
	}
	c.JSON(http.StatusOK, h.view(session))
}

// CalculateFare handles POST /api/v1/wizard/sessions/:id/fare
func (h *WizardHandler) CalculateFare(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if err := session.Controller.CalculateFare(c.Request.Context()); err != nil {
		h.fail(c, session, err, venueapi.FallbackFare)
		return
	}
	c.JSON(http.StatusOK, h.view(session))
}

// Next handles POST /api/v1/wizard/sessions/:id/next
func (h *WizardHandler) Next(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	if _, err := h.sessions.Next(c.Request.Context(), session); err != nil {
		h.fail(c, session, err, "")
		return
	}
	c.JSON(http.StatusOK, h.view(session))
}

// Back handles POST /api/v1/wizard/sessions/:id/back
func (h *WizardHandler) Back(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	left, err := h.sessions.Back(session)
	if err != nil {
		h.fail(c, session, err, "")
		return
	}

	if left {
		h.safeLogSessionEvent(c, auditSessionLeft, session.ID, h.sessions.OwnerID(session))
		c.JSON(http.StatusOK, gin.H{
			"left":    true,
			"message": "Booking wizard closed",
		})
		return
	}
	c.JSON(http.StatusOK, h.view(session))
}

// SendOTP handles POST /api/v1/wizard/sessions/:id/otp/send
func (h *WizardHandler) SendOTP(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	draft := session.Controller.Snapshot().Draft
	if err := h.contactValidator.Validate(draft.Email, draft.Phone); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_contact",
			Message: err.Error(),
		})
		return
	}

	phone, _ := h.contactValidator.ValidatePhone(draft.Phone)
	clientIP := utils.GetRealIP(c)
	userAgent := utils.GetUserAgent(c)
	userID := h.sessions.OwnerID(session)

	// Check rate limiting
	if err := h.rateLimitService.CheckOTPRateLimit(phone, clientIP); err != nil {
		var rateLimitErr *services.RateLimitError
		if errors.As(err, &rateLimitErr) {
			h.safeLogRateLimitViolation(session.ID, phone, clientIP, userAgent, rateLimitErr)

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate_limit_exceeded",
				"message":     rateLimitErr.Message,
				"retry_after": rateLimitErr.RetryAfter,
				"type":        rateLimitErr.Type,
			})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "rate_limit_check_failed",
			Message: "Failed to check rate limit",
		})
		return
	}

	if err := session.Controller.SendOtp(c.Request.Context()); err != nil {
		h.safeLogOTPRequest(session.ID, userID, phone, clientIP, userAgent, false, err.Error())
		h.fail(c, session, err, venueapi.FallbackSendOTP)
		return
	}

	h.safeLogOTPRequest(session.ID, userID, phone, clientIP, userAgent, true, "")
	c.JSON(http.StatusOK, h.view(session))
}

// VerifyOTP handles POST /api/v1/wizard/sessions/:id/otp/verify.
// It verifies the OTP and submits the booking.
func (h *WizardHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid request body",
		})
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	err := session.Controller.HandleVerifyOtp(c.Request.Context(), req.OTP)
	snapshot := session.Controller.Snapshot()
	userID := h.sessions.OwnerID(session)

	if err != nil {
		if !errors.Is(err, wizard.ErrWizardComplete) && !errors.Is(err, wizard.ErrOperationInProgress) {
			h.safeLogBookingSubmission(c, session.ID, userID, snapshot, false, err.Error())
		}
		h.fail(c, session, err, venueapi.FallbackBooking)
		return
	}

	h.safeLogBookingSubmission(c, session.ID, userID, snapshot, true, "")
	c.JSON(http.StatusOK, h.view(session))
}

// session resolves the :id session for the requesting user, writing the
// error response when it cannot be used
func (h *WizardHandler) session(c *gin.Context) (*services.WizardSession, bool) {
	id, ok := sessionID(c)
	if !ok {
		return nil, false
	}

	session, err := h.sessions.Get(id, requestIdentity(c))
	if err != nil {
		respondError(c, err, "")
		return nil, false
	}
	return session, true
}

func (h *WizardHandler) view(session *services.WizardSession) WizardResponse {
	return WizardResponse{
		SessionID:     session.ID.String(),
		Snapshot:      session.Controller.Snapshot(),
		Notifications: session.Notifications.Drain(),
	}
}

// fail writes the error response for a wizard operation along with the
// notifications it raised
func (h *WizardHandler) fail(c *gin.Context, session *services.WizardSession, err error, fallback string) {
	status, body := errorStatus(err, fallback)
	if status >= http.StatusInternalServerError && status != http.StatusBadGateway {
		h.logger.WithFields(logrus.Fields{
			"session_id": session.ID.String(),
			"path":       c.FullPath(),
			"error":      err.Error(),
		}).Error("Wizard operation failed")
	}

	c.JSON(status, WizardErrorResponse{
		ErrorResponse: body,
		Notifications: session.Notifications.Drain(),
	})
}

func sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_session_id",
			Message: "Invalid wizard session ID",
		})
		return uuid.Nil, false
	}
	return id, true
}

// requestIdentity returns the logged-in user of the request, nil for guests
func requestIdentity(c *gin.Context) *wizard.Identity {
	userCtx, ok := middleware.GetUserContext(c)
	if !ok || userCtx.UserID == "" {
		return nil
	}
	return &wizard.Identity{
		ID:    userCtx.UserID,
		Name:  userCtx.Name,
		Email: userCtx.Email,
		Phone: userCtx.Phone,
	}
}

func identityID(identity *wizard.Identity) string {
	if identity == nil {
		return ""
	}
	return identity.ID
}

// isRemoteFailure reports whether err came back from the venue API
func isRemoteFailure(err error) bool {
	var apiErr *venueapi.APIError
	var transportErr *venueapi.TransportError
	return errors.Is(err, venueapi.ErrSlotUnavailable) || errors.As(err, &apiErr) || errors.As(err, &transportErr)
}
