package wizard

import (
	"context"
	"strings"

	"github.com/eventhall/booking-wizard/pkg/venueapi"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// requiredFields are the draft fields a booking cannot be created without, in reporting order
var requiredFields = []Field{
	FieldDate,
	FieldEventID,
	FieldVenueID,
	FieldShiftID,
	FieldPackageID,
	FieldGuestCount,
	FieldName,
	FieldEmail,
	FieldPhone,
}

func (d Draft) isSet(f Field) bool {
	switch f {
	case FieldDate:
		return d.Date != ""
	case FieldEventID:
		return d.EventID != 0
	case FieldVenueID:
		return d.VenueID != 0
	case FieldShiftID:
		return d.ShiftID != 0
	case FieldPackageID:
		return d.PackageID != 0
	case FieldGuestCount:
		return d.GuestCount > 0
	case FieldName:
		return strings.TrimSpace(d.Name) != ""
	case FieldEmail:
		return strings.TrimSpace(d.Email) != ""
	case FieldPhone:
		return strings.TrimSpace(d.Phone) != ""
	case FieldSelectedMenus:
		return len(d.SelectedMenus) > 0
	}
	return false
}

// MissingFields returns the required submission fields that are not set
func (d Draft) MissingFields() []Field {
	return lo.Filter(requiredFields, func(f Field, _ int) bool {
		return !d.isSet(f)
	})
}

// HandleVerifyOtp verifies the OTP and submits the booking: the booking is
// created, its confirmation is sent and the wizard completes. If the booking
// was already created by an earlier attempt whose confirmation failed, only
// the confirmation is retried.
func (c *Controller) HandleVerifyOtp(ctx context.Context, otp string) error {
	c.mu.Lock()
	if c.state.IsComplete {
		c.mu.Unlock()
		return ErrWizardComplete
	}
	if c.state.Submitting {
		c.mu.Unlock()
		return ErrOperationInProgress
	}
	if stepErr := c.submissionBlockedLocked(); stepErr != nil {
		c.notifier.Error(stepErr.Message)
		c.mu.Unlock()
		return stepErr
	}

	otp = strings.TrimSpace(otp)
	bookingID := c.state.BookingID
	if otp == "" && bookingID == "" {
		c.notifier.Error(msgOTPRequired)
		c.mu.Unlock()
		return &ValidationError{Message: msgOTPRequired}
	}

	c.state.Submitting = true
	d := c.draft.Clone()
	var identity *Identity
	if c.identity != nil {
		id := *c.identity
		identity = &id
	}
	c.mu.Unlock()

	log := c.logger.WithField("step", StepVerificationConfirmation.String())

	if bookingID == "" {
		if err := c.gateway.VerifyOTP(ctx, otp, d.Email, d.Phone); err != nil {
			return c.failSubmission(log, err, venueapi.FallbackVerifyOTP)
		}

		if missing := d.MissingFields(); len(missing) > 0 {
			return c.failSubmission(log, &MissingFieldsError{Fields: missing}, "")
		}

		if identity == nil || identity.ID == "" {
			return c.failSubmission(log, ErrIdentityRequired, "")
		}

		resp, err := c.gateway.CreateBooking(ctx, venueapi.BookingRequest{
			UserID:        identity.ID,
			EventID:       d.EventID,
			VenueID:       d.VenueID,
			ShiftID:       d.ShiftID,
			PackageID:     d.PackageID,
			EventDate:     d.Date,
			GuestCount:    d.GuestCount,
			SelectedMenus: d.SelectedMenus,
			BaseFare:      d.BaseFare,
			ExtraCharges:  d.ExtraCharges,
			TotalFare:     d.TotalFare,
			Name:          strings.TrimSpace(d.Name),
			Email:         strings.TrimSpace(d.Email),
			Phone:         strings.TrimSpace(d.Phone),
		})
		if err != nil {
			return c.failSubmission(log, err, venueapi.FallbackBooking)
		}

		bookingID = resp.BookingID
		c.mu.Lock()
		c.state.BookingID = bookingID
		c.mu.Unlock()

		log = log.WithField("booking_id", bookingID)
		log.WithField("user_id", identity.ID).Info("Booking created")
	} else {
		log = log.WithField("booking_id", bookingID)
		log.Info("Retrying confirmation for existing booking")
	}

	if err := c.gateway.SendConfirmation(ctx, bookingID, strings.TrimSpace(d.Email)); err != nil {
		return c.failSubmission(log, err, venueapi.FallbackConfirmation)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Submitting = false
	c.state.IsComplete = true
	c.notifier.Success(msgBookingConfirmed)
	log.Info("Booking confirmed")
	return nil
}

// submissionBlockedLocked returns the step that has to be completed before
// the booking can be submitted, or nil. A booking is only submitted from the
// last step with a confirmed availability and a calculated fare.
func (c *Controller) submissionBlockedLocked() *StepIncompleteError {
	switch {
	case c.state.CurrentStep != StepVerificationConfirmation:
		return &StepIncompleteError{Step: c.state.CurrentStep, Message: msgNotAtVerification}
	case !c.state.IsAvailable:
		return &StepIncompleteError{Step: StepEventDetails, Message: stepIncompleteMessages[StepEventDetails]}
	case c.draft.TotalFare <= 0:
		return &StepIncompleteError{Step: StepFare, Message: stepIncompleteMessages[StepFare]}
	}
	return nil
}

// failSubmission clears the submitting flag, surfaces the most specific
// message for err and returns it unchanged
func (c *Controller) failSubmission(log logrus.FieldLogger, err error, fallback string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.Submitting = false

	msg := err.Error()
	if !isValidation(err) {
		msg = venueapi.UserMessage(err, fallback)
		log.WithField("error", err.Error()).Warn("Booking submission failed")
	} else {
		log.WithField("reason", msg).Info("Booking submission rejected")
	}

	c.notifier.Error(msg)
	return err
}
