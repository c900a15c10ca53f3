package wizard

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/eventhall/booking-wizard/pkg/venueapi"
	"github.com/sirupsen/logrus"
)

// Gateway is the part of the venue API the wizard depends on
type Gateway interface {
	CheckAvailability(ctx context.Context, req venueapi.AvailabilityRequest) error
	CalculateFare(ctx context.Context, req venueapi.FareRequest) (*venueapi.Fare, error)
	CreateBooking(ctx context.Context, req venueapi.BookingRequest) (*venueapi.BookingResponse, error)
	SendOTP(ctx context.Context, email, phone string) error
	VerifyOTP(ctx context.Context, otp, email, phone string) error
	SendConfirmation(ctx context.Context, bookingID, email string) error
}

// Identity is the logged-in user a wizard session belongs to
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// State holds the orchestration flags of a wizard
type State struct {
	CurrentStep            Step   `json:"current_step"`
	IsAvailable            bool   `json:"is_available"`
	IsCheckingAvailability bool   `json:"is_checking_availability"`
	IsCalculating          bool   `json:"is_calculating"`
	BookingID              string `json:"booking_id,omitempty"`
	IsComplete             bool   `json:"is_complete"`
	Submitting             bool   `json:"submitting"`
}

// Snapshot is a read-only copy of a wizard for rendering
type Snapshot struct {
	Draft            Draft `json:"draft"`
	State            State `json:"state"`
	StepIndex        int   `json:"step_index"`
	StepComplete     bool  `json:"step_complete"`
	ShowConfirmation bool  `json:"show_confirmation"`
}

const (
	msgAvailabilityInput = "Please select a date, event type, guest count, venue and shift before checking availability."
	msgAvailable         = "Venue is available for the selected date and shift."
	msgFareInput         = "Please select a package and guest count before calculating the fare."
	msgOTPRequired       = "Please enter the OTP sent to your phone."
	msgContactRequired   = "Please provide an email address and phone number to receive the OTP."
	msgOTPSent           = "OTP sent successfully."
	msgBookingConfirmed  = "Booking confirmed! A confirmation email has been sent."
	msgNotAtVerification = "Please complete the previous steps before verifying the OTP."
)

var stepIncompleteMessages = [StepCount]string{
	"Please select a date, event type, guest count, venue and shift, and confirm availability.",
	"Please select a package and at least one menu.",
	"Please wait for the fare to be calculated.",
	"Please verify the OTP to complete your booking.",
}

// Controller owns a booking draft and its wizard state. All mutation goes
// through its methods; it is safe for concurrent use.
//
// The mutex is not held while the venue API is called. A generation counter
// per remote check detects selection changes made during the call so that a
// stale availability or fare result is discarded.
type Controller struct {
	mu       sync.Mutex
	gateway  Gateway
	notifier Notifier
	logger   logrus.FieldLogger

	identity *Identity
	draft    Draft
	state    State

	availabilityGen uint64
	fareGen         uint64

	// menu categories created by toggling an item rather than selected
	implicitMenus map[string]bool
}

// New creates a wizard at the first step with a draft seeded from identity.
// identity may be nil for a guest.
func New(gateway Gateway, notifier Notifier, identity *Identity, logger logrus.FieldLogger) *Controller {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	c := &Controller{
		gateway:  gateway,
		notifier: notifier,
		logger:   logger,
		draft:    NewDraft(identity),
		state:    State{CurrentStep: StepEventDetails},
	}
	if identity != nil {
		id := *identity
		c.identity = &id
	}
	return c
}

// SetIdentity attaches a logged-in identity to the wizard and fills any
// contact fields that are still empty
func (c *Controller) SetIdentity(identity Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.identity = &identity
	if c.editableLocked() != nil {
		return
	}
	if strings.TrimSpace(c.draft.Name) == "" {
		c.draft.Name = identity.Name
	}
	if strings.TrimSpace(c.draft.Email) == "" {
		c.draft.Email = identity.Email
	}
	if strings.TrimSpace(c.draft.Phone) == "" {
		c.draft.Phone = identity.Phone
	}
}

// Identity returns the identity attached to the wizard, if any
func (c *Controller) Identity() (Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.identity == nil {
		return Identity{}, false
	}
	return *c.identity, true
}

// UpdateDraft sets a single draft field. Changing the venue or shift clears a
// confirmed availability; changing the package, menus or guest count clears
// the computed fare. Values are not validated beyond their type.
//
// The draft is frozen while a submission runs and once the booking exists.
func (c *Controller) UpdateDraft(field Field, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.updateLocked(field, value); err != nil {
		return err
	}
	if field == FieldSelectedMenus {
		c.implicitMenus = nil
	}
	return nil
}

// editableLocked returns the reason the draft can no longer change, or nil
func (c *Controller) editableLocked() error {
	switch {
	case c.state.IsComplete:
		return ErrWizardComplete
	case c.state.Submitting:
		return ErrOperationInProgress
	case c.state.BookingID != "":
		return ErrBookingCreated
	}
	return nil
}

func (c *Controller) updateLocked(field Field, value interface{}) error {
	if err := c.editableLocked(); err != nil {
		return err
	}

	if err := c.draft.set(field, value); err != nil {
		return err
	}

	if field.availabilityInput() {
		c.availabilityGen++
	}
	if field.resetsAvailability() {
		c.state.IsAvailable = false
	}
	if field.resetsFare() {
		c.draft.resetFare()
		c.fareGen++
	}
	return nil
}

// IsStepComplete evaluates the completeness predicate of the current step
func (c *Controller) IsStepComplete() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.stepCompleteLocked()
}

func (c *Controller) stepCompleteLocked() bool {
	d := c.draft
	switch c.state.CurrentStep {
	case StepEventDetails:
		return d.Date != "" && d.EventID != 0 && d.GuestCount > 0 &&
			d.ShiftID != 0 && d.VenueID != 0 && c.state.IsAvailable
	case StepPackageMenu:
		return d.PackageID != 0 && len(d.SelectedMenus) > 0
	case StepFare:
		return d.TotalFare > 0
	case StepVerificationConfirmation:
		return c.state.IsComplete
	}
	return false
}

// CheckAvailability asks the venue API whether the selected venue and shift
// are free on the selected date for the event and guest count
func (c *Controller) CheckAvailability(ctx context.Context) error {
	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.state.IsCheckingAvailability {
		c.mu.Unlock()
		return ErrOperationInProgress
	}

	d := c.draft
	if d.Date == "" || d.VenueID == 0 || d.ShiftID == 0 || d.EventID == 0 || d.GuestCount <= 0 {
		c.notifier.Error(msgAvailabilityInput)
		c.mu.Unlock()
		return &ValidationError{Message: msgAvailabilityInput}
	}

	req := venueapi.AvailabilityRequest{
		EventID:    d.EventID,
		VenueID:    d.VenueID,
		ShiftID:    d.ShiftID,
		EventDate:  d.Date,
		GuestCount: d.GuestCount,
	}
	gen := c.availabilityGen
	c.state.IsCheckingAvailability = true
	c.mu.Unlock()

	err := c.gateway.CheckAvailability(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.IsCheckingAvailability = false

	if gen != c.availabilityGen {
		c.logger.WithFields(logrus.Fields{
			"venue_id": req.VenueID,
			"shift_id": req.ShiftID,
		}).Info("Discarding availability result for a previous selection")
		c.notifier.Error(ErrSelectionChanged.Error())
		return ErrSelectionChanged
	}

	if err != nil {
		c.state.IsAvailable = false
		c.logger.WithFields(logrus.Fields{
			"venue_id":   req.VenueID,
			"shift_id":   req.ShiftID,
			"event_date": req.EventDate,
			"error":      err.Error(),
		}).Warn("Availability check failed")
		c.notifier.Error(venueapi.UserMessage(err, venueapi.FallbackAvailability))
		return err
	}

	c.state.IsAvailable = true
	c.notifier.Success(msgAvailable)
	return nil
}

// CalculateFare asks the venue API for the fare of the selected package,
// menus and guest count and stores it in the draft
func (c *Controller) CalculateFare(ctx context.Context) error {
	c.mu.Lock()
	if err := c.editableLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.state.IsCalculating {
		c.mu.Unlock()
		return ErrOperationInProgress
	}

	d := c.draft
	if d.PackageID == 0 || d.GuestCount <= 0 {
		c.notifier.Error(msgFareInput)
		c.mu.Unlock()
		return &ValidationError{Message: msgFareInput}
	}

	req := venueapi.FareRequest{
		PackageID:     d.PackageID,
		SelectedMenus: cloneMenus(d.SelectedMenus),
		GuestCount:    d.GuestCount,
	}
	gen := c.fareGen
	c.state.IsCalculating = true
	c.mu.Unlock()

	fare, err := c.gateway.CalculateFare(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.IsCalculating = false

	if gen != c.fareGen {
		c.logger.WithField("package_id", req.PackageID).Info("Discarding fare for a previous selection")
		c.notifier.Error(ErrSelectionChanged.Error())
		return ErrSelectionChanged
	}

	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"package_id":  req.PackageID,
			"guest_count": req.GuestCount,
			"error":       err.Error(),
		}).Warn("Fare calculation failed")
		c.notifier.Error(venueapi.UserMessage(err, venueapi.FallbackFare))
		return err
	}

	c.draft.BaseFare = fare.BaseFare
	c.draft.ExtraCharges = fare.ExtraCharges
	c.draft.TotalFare = fare.TotalFare
	return nil
}

// EnsureFare calculates the fare unless one is already known for the current
// selection or a calculation is running
func (c *Controller) EnsureFare(ctx context.Context) error {
	c.mu.Lock()
	skip := c.draft.TotalFare > 0 || c.state.IsCalculating || c.state.IsComplete
	c.mu.Unlock()

	if skip {
		return nil
	}
	return c.CalculateFare(ctx)
}

// SendOtp asks the venue API to send an OTP to the draft's email and phone
func (c *Controller) SendOtp(ctx context.Context) error {
	c.mu.Lock()
	if c.state.IsComplete {
		c.mu.Unlock()
		return ErrWizardComplete
	}
	email := strings.TrimSpace(c.draft.Email)
	phone := strings.TrimSpace(c.draft.Phone)
	if email == "" || phone == "" {
		c.notifier.Error(msgContactRequired)
		c.mu.Unlock()
		return &ValidationError{Message: msgContactRequired}
	}
	c.mu.Unlock()

	if err := c.gateway.SendOTP(ctx, email, phone); err != nil {
		c.logger.WithFields(logrus.Fields{
			"phone": phone,
			"error": err.Error(),
		}).Warn("Failed to send OTP")
		c.notifier.Error(venueapi.UserMessage(err, venueapi.FallbackSendOTP))
		return err
	}

	c.notifier.Success(msgOTPSent)
	return nil
}

// HandleNext advances to the next step if the current step is complete.
// It returns the step the wizard is on afterwards.
func (c *Controller) HandleNext() (Step, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current := c.state.CurrentStep
	if c.state.IsComplete {
		return current, ErrWizardComplete
	}

	if !c.stepCompleteLocked() {
		msg := stepIncompleteMessages[current]
		c.notifier.Error(msg)
		return current, &StepIncompleteError{Step: current, Message: msg}
	}

	if next, ok := current.Next(); ok {
		c.state.CurrentStep = next
		c.logger.WithFields(logrus.Fields{
			"from": current.String(),
			"to":   next.String(),
		}).Debug("Wizard advanced")
	}
	return c.state.CurrentStep, nil
}

// HandleBack moves to the previous step. At the first step it reports that
// the user left the wizard instead.
func (c *Controller) HandleBack() (left bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.editableLocked(); err != nil {
		return false, err
	}

	prev, ok := c.state.CurrentStep.Prev()
	if !ok {
		return true, nil
	}
	c.state.CurrentStep = prev
	return false, nil
}

// Snapshot returns a copy of the wizard for rendering
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		Draft:            c.draft.Clone(),
		State:            c.state,
		StepIndex:        int(c.state.CurrentStep),
		StepComplete:     c.stepCompleteLocked(),
		ShowConfirmation: c.state.CurrentStep == StepVerificationConfirmation && c.state.IsComplete,
	}
}

// isValidation reports whether err is a local precondition failure
func isValidation(err error) bool {
	var v *ValidationError
	var m *MissingFieldsError
	return errors.As(err, &v) || errors.As(err, &m) || errors.Is(err, ErrIdentityRequired)
}
