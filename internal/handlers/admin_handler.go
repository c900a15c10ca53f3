package handlers

import (
	"net/http"
	"strconv"

	"github.com/eventhall/booking-wizard/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// AdminHandler handles operator endpoints
type AdminHandler struct {
	sessions     *services.WizardSessionService
	references   *services.ReferenceService
	auditService *services.AuditService
	cronService  *services.CronService
	logger       *logrus.Logger
}

// NewAdminHandler creates a new admin handler. cronService may be nil when
// scheduled jobs are disabled.
func NewAdminHandler(
	sessions *services.WizardSessionService,
	references *services.ReferenceService,
	auditService *services.AuditService,
	cronService *services.CronService,
	logger *logrus.Logger,
) *AdminHandler {
	return &AdminHandler{
		sessions:     sessions,
		references:   references,
		auditService: auditService,
		cronService:  cronService,
		logger:       logger,
	}
}

// RefreshReferenceRequest represents the request body for POST /admin/reference/refresh
type RefreshReferenceRequest struct {
	PackageIDs []int64 `json:"package_ids"`
}

// GetWizardStats handles GET /api/v1/admin/wizard/stats
func (h *AdminHandler) GetWizardStats(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessions.Stats())
}

// GetAuditLogs handles GET /api/v1/admin/audit?limit=
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = lo.Min([]int{parsed, maxAuditLimit})
	}

	events, err := h.auditService.GetRecentEvents(limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load audit logs")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to load audit logs",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"persistent": h.auditService.Persistent(),
		"count":      len(events),
		"events":     events,
	})
}

// RefreshReference handles POST /api/v1/admin/reference/refresh
func (h *AdminHandler) RefreshReference(c *gin.Context) {
	var req RefreshReferenceRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: "Invalid request body",
			})
			return
		}
	}

	packageIDs := lo.Uniq(lo.Filter(req.PackageIDs, func(id int64, _ int) bool {
		return id > 0
	}))

	if err := h.references.Invalidate(c.Request.Context(), packageIDs...); err != nil {
		h.logger.WithError(err).Error("Failed to invalidate reference cache")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to refresh reference data",
		})
		return
	}

	h.logger.WithField("package_ids", packageIDs).Info("Reference cache invalidated")
	c.JSON(http.StatusOK, gin.H{
		"message":     "Reference data will be reloaded on next request",
		"package_ids": packageIDs,
	})
}

// GetCronStatus handles GET /api/v1/admin/cron
func (h *AdminHandler) GetCronStatus(c *gin.Context) {
	if h.cronService == nil {
		c.JSON(http.StatusOK, gin.H{
			"running":   false,
			"job_count": 0,
			"jobs":      []interface{}{},
		})
		return
	}
	c.JSON(http.StatusOK, h.cronService.GetJobStatus())
}
