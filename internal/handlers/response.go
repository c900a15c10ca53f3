package handlers

import (
	"errors"
	"net/http"

	"github.com/eventhall/booking-wizard/internal/services"
	"github.com/eventhall/booking-wizard/internal/wizard"
	"github.com/eventhall/booking-wizard/pkg/venueapi"
	"github.com/gin-gonic/gin"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// errorStatus maps an error from the wizard, the session store or the venue
// API to an HTTP status and error body
func errorStatus(err error, fallback string) (int, ErrorResponse) {
	var (
		stepErr       *wizard.StepIncompleteError
		missingErr    *wizard.MissingFieldsError
		validationErr *wizard.ValidationError
		apiErr        *venueapi.APIError
		transportErr  *venueapi.TransportError
	)

	switch {
	case errors.Is(err, services.ErrSessionNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "session_not_found", Message: err.Error(), Code: "SESSION_NOT_FOUND"}
	case errors.Is(err, services.ErrSessionForbidden):
		return http.StatusForbidden, ErrorResponse{Error: "forbidden", Message: err.Error(), Code: "SESSION_FORBIDDEN"}
	case errors.Is(err, services.ErrTooManySessions):
		return http.StatusServiceUnavailable, ErrorResponse{Error: "too_many_sessions", Message: err.Error()}
	case errors.Is(err, wizard.ErrWizardComplete):
		return http.StatusConflict, ErrorResponse{Error: "wizard_complete", Message: err.Error(), Code: "WIZARD_COMPLETE"}
	case errors.Is(err, wizard.ErrOperationInProgress):
		return http.StatusConflict, ErrorResponse{Error: "operation_in_progress", Message: err.Error(), Code: "OPERATION_IN_PROGRESS"}
	case errors.Is(err, wizard.ErrBookingCreated):
		return http.StatusConflict, ErrorResponse{Error: "booking_created", Message: err.Error(), Code: "BOOKING_CREATED"}
	case errors.Is(err, wizard.ErrSelectionChanged):
		return http.StatusConflict, ErrorResponse{Error: "selection_changed", Message: err.Error(), Code: "SELECTION_CHANGED"}
	case errors.Is(err, wizard.ErrUnknownField), errors.Is(err, wizard.ErrReadOnlyField), errors.Is(err, wizard.ErrInvalidFieldValue):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid_field", Message: err.Error()}
	case errors.As(err, &stepErr):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "step_incomplete", Message: stepErr.Message, Code: "STEP_INCOMPLETE"}
	case errors.As(err, &missingErr):
		return http.StatusBadRequest, ErrorResponse{Error: "missing_fields", Message: missingErr.Error(), Code: "MISSING_FIELDS"}
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: validationErr.Message}
	case errors.Is(err, wizard.ErrIdentityRequired):
		return http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error(), Code: "LOGIN_REQUIRED"}
	case errors.Is(err, venueapi.ErrSlotUnavailable):
		return http.StatusConflict, ErrorResponse{Error: "slot_unavailable", Message: err.Error(), Code: "SLOT_UNAVAILABLE"}
	case errors.As(err, &apiErr):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "venue_api_rejected", Message: venueapi.UserMessage(err, fallback)}
	case errors.As(err, &transportErr):
		return http.StatusBadGateway, ErrorResponse{Error: "venue_api_unavailable", Message: venueapi.UserMessage(err, fallback)}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: fallback}
	}
}

// respondError writes the error body for err
func respondError(c *gin.Context, err error, fallback string) {
	status, body := errorStatus(err, fallback)
	c.JSON(status, body)
}
