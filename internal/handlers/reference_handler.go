package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/eventhall/booking-wizard/internal/services"
	"github.com/eventhall/booking-wizard/pkg/venueapi"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ReferenceHandler serves the option lists the wizard steps are built from
type ReferenceHandler struct {
	references *services.ReferenceService
	logger     *logrus.Logger
}

// NewReferenceHandler creates a new reference data handler
func NewReferenceHandler(references *services.ReferenceService, logger *logrus.Logger) *ReferenceHandler {
	return &ReferenceHandler{
		references: references,
		logger:     logger,
	}
}

// ListEvents handles GET /api/v1/reference/events
func (h *ReferenceHandler) ListEvents(c *gin.Context) {
	h.list(c, "events", func(ctx context.Context) (interface{}, error) {
		return h.references.Events(ctx)
	})
}

// ListVenues handles GET /api/v1/reference/venues
func (h *ReferenceHandler) ListVenues(c *gin.Context) {
	h.list(c, "venues", func(ctx context.Context) (interface{}, error) {
		return h.references.Venues(ctx)
	})
}

// ListShifts handles GET /api/v1/reference/shifts
func (h *ReferenceHandler) ListShifts(c *gin.Context) {
	h.list(c, "shifts", func(ctx context.Context) (interface{}, error) {
		return h.references.Shifts(ctx)
	})
}

// ListPackages handles GET /api/v1/reference/packages
func (h *ReferenceHandler) ListPackages(c *gin.Context) {
	h.list(c, "packages", func(ctx context.Context) (interface{}, error) {
		return h.references.Packages(ctx)
	})
}

// ListMenus handles GET /api/v1/reference/menus?package_id=
func (h *ReferenceHandler) ListMenus(c *gin.Context) {
	packageID, err := strconv.ParseInt(c.Query("package_id"), 10, 64)
	if err != nil || packageID <= 0 {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "package_id must be a positive integer",
		})
		return
	}

	h.list(c, "menus", func(ctx context.Context) (interface{}, error) {
		return h.references.Menus(ctx, packageID)
	})
}

func (h *ReferenceHandler) list(c *gin.Context, name string, load func(ctx context.Context) (interface{}, error)) {
	items, err := load(c.Request.Context())
	if err != nil {
		h.logger.WithFields(logrus.Fields{
			"list":  name,
			"error": err.Error(),
		}).Warn("Failed to load reference data")
		respondError(c, err, venueapi.FallbackReference)
		return
	}

	c.JSON(http.StatusOK, gin.H{name: items})
}
