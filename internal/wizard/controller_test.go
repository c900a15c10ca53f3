package wizard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eventhall/booking-wizard/pkg/venueapi"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testIdentity = &Identity{
	ID:    "3f1c7c9e-5d1a-4c1b-9d43-2a6f0b1e8f10",
	Name:  "Nimal Perera",
	Email: "nimal@example.com",
	Phone: "0771234567",
}

func newTestController(identity *Identity) (*Controller, *venueapi.ClientMock, *NotificationQueue) {
	gateway := &venueapi.ClientMock{
		Fare: venueapi.Fare{BaseFare: 40000, ExtraCharges: 1500, TotalFare: 41500},
	}
	notifications := NewNotificationQueue(0)
	logger, _ := test.NewNullLogger()
	return New(gateway, notifications, identity, logger), gateway, notifications
}

func completeDraft() Draft {
	d := NewDraft(testIdentity)
	d.Date = "2025-06-01"
	d.EventID = 3
	d.GuestCount = 80
	d.VenueID = 2
	d.ShiftID = 1
	d.PackageID = 5
	d.SelectedMenus = map[string][]string{"10": {"Salad", "Soda"}}
	return d
}

func fillEventDetails(t *testing.T, c *Controller) {
	t.Helper()
	require.NoError(t, c.UpdateDraft(FieldDate, "2025-06-01"))
	require.NoError(t, c.UpdateDraft(FieldEventID, 3))
	require.NoError(t, c.UpdateDraft(FieldGuestCount, 80))
	require.NoError(t, c.UpdateDraft(FieldVenueID, 2))
	require.NoError(t, c.UpdateDraft(FieldShiftID, 1))
}

func fillPackageMenu(t *testing.T, c *Controller) {
	t.Helper()
	require.NoError(t, c.UpdateDraft(FieldPackageID, 5))
	require.NoError(t, c.ToggleMenuItem("10", "Salad"))
	require.NoError(t, c.ToggleMenuItem("10", "Soda"))
}

// advanceToFare walks a controller through the first two steps
func advanceToFare(t *testing.T, c *Controller) {
	t.Helper()
	fillEventDetails(t, c)
	require.NoError(t, c.CheckAvailability(context.Background()))
	_, err := c.HandleNext()
	require.NoError(t, err)
	fillPackageMenu(t, c)
	step, err := c.HandleNext()
	require.NoError(t, err)
	require.Equal(t, StepFare, step)
}

func TestNew_SeedsDraftFromIdentity(t *testing.T) {
	c, _, _ := newTestController(testIdentity)
	snap := c.Snapshot()

	assert.Equal(t, StepEventDetails, snap.State.CurrentStep)
	assert.Equal(t, 0, snap.StepIndex)
	assert.Equal(t, 50, snap.Draft.GuestCount)
	assert.Equal(t, testIdentity.Name, snap.Draft.Name)
	assert.Equal(t, testIdentity.Email, snap.Draft.Email)
	assert.Equal(t, testIdentity.Phone, snap.Draft.Phone)
	assert.False(t, snap.StepComplete)

	identity, ok := c.Identity()
	assert.True(t, ok)
	assert.Equal(t, testIdentity.ID, identity.ID)
}

func TestSetIdentity_FillsOnlyEmptyContactFields(t *testing.T) {
	c, _, _ := newTestController(nil)
	require.NoError(t, c.UpdateDraft(FieldName, "Guest Name"))

	c.SetIdentity(*testIdentity)
	snap := c.Snapshot()

	assert.Equal(t, "Guest Name", snap.Draft.Name)
	assert.Equal(t, testIdentity.Email, snap.Draft.Email)
	assert.Equal(t, testIdentity.Phone, snap.Draft.Phone)
}

func TestUpdateDraft_AvailabilityReset(t *testing.T) {
	for _, field := range []Field{FieldVenueID, FieldShiftID} {
		t.Run(string(field), func(t *testing.T) {
			c, _, _ := newTestController(testIdentity)
			fillEventDetails(t, c)
			require.NoError(t, c.CheckAvailability(context.Background()))
			require.True(t, c.Snapshot().State.IsAvailable)

			require.NoError(t, c.UpdateDraft(field, 9))

			assert.False(t, c.Snapshot().State.IsAvailable)
		})
	}
}

func TestUpdateDraft_AvailabilityKeptForOtherFields(t *testing.T) {
	c, _, _ := newTestController(testIdentity)
	fillEventDetails(t, c)
	require.NoError(t, c.CheckAvailability(context.Background()))

	require.NoError(t, c.UpdateDraft(FieldName, "Someone Else"))
	require.NoError(t, c.UpdateDraft(FieldPackageID, 5))

	assert.True(t, c.Snapshot().State.IsAvailable)
}

func TestUpdateDraft_FareReset(t *testing.T) {
	tests := []struct {
		field Field
		value interface{}
	}{
		{FieldPackageID, 6},
		{FieldSelectedMenus, map[string][]string{"11": {"Cake"}}},
		{FieldGuestCount, 120},
	}

	for _, tt := range tests {
		t.Run(string(tt.field), func(t *testing.T) {
			c, _, _ := newTestController(testIdentity)
			advanceToFare(t, c)
			require.NoError(t, c.CalculateFare(context.Background()))
			require.Equal(t, 41500.0, c.Snapshot().Draft.TotalFare)

			require.NoError(t, c.UpdateDraft(tt.field, tt.value))

			d := c.Snapshot().Draft
			assert.Zero(t, d.BaseFare)
			assert.Zero(t, d.ExtraCharges)
			assert.Zero(t, d.TotalFare)
			assert.False(t, c.IsStepComplete())
		})
	}
}

func TestUpdateDraft_Errors(t *testing.T) {
	c, _, _ := newTestController(nil)

	err := c.UpdateDraft(FieldTotalFare, 100)
	assert.True(t, errors.Is(err, ErrReadOnlyField))

	err = c.UpdateDraft(Field("discount"), 1)
	assert.True(t, errors.Is(err, ErrUnknownField))

	err = c.UpdateDraft(FieldVenueID, "main hall")
	assert.True(t, errors.Is(err, ErrInvalidFieldValue))
}

func TestIsStepComplete_EventDetails(t *testing.T) {
	tests := []struct {
		name  string
		field Field
		value interface{}
	}{
		{"date cleared", FieldDate, ""},
		{"event cleared", FieldEventID, nil},
		{"guest count cleared", FieldGuestCount, 0},
		{"venue cleared", FieldVenueID, nil},
		{"shift cleared", FieldShiftID, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _, _ := newTestController(testIdentity)
			fillEventDetails(t, c)
			assert.False(t, c.IsStepComplete(), "incomplete until availability is confirmed")

			require.NoError(t, c.CheckAvailability(context.Background()))
			require.True(t, c.IsStepComplete())

			c.mu.Lock()
			require.NoError(t, c.draft.set(tt.field, tt.value))
			c.mu.Unlock()

			assert.False(t, c.IsStepComplete())
		})
	}
}

func TestHandleNext_ForwardGuard(t *testing.T) {
	c, _, notifications := newTestController(testIdentity)
	fillEventDetails(t, c)

	step, err := c.HandleNext()

	var incomplete *StepIncompleteError
	require.True(t, errors.As(err, &incomplete))
	assert.True(t, errors.Is(err, ErrStepIncomplete))
	assert.Equal(t, StepEventDetails, incomplete.Step)
	assert.Equal(t, StepEventDetails, step)
	assert.Equal(t, StepEventDetails, c.Snapshot().State.CurrentStep)

	drained := notifications.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, LevelError, drained[0].Level)
}

func TestHandleNext_PackageMenuGuard(t *testing.T) {
	c, _, _ := newTestController(testIdentity)
	fillEventDetails(t, c)
	require.NoError(t, c.CheckAvailability(context.Background()))
	_, err := c.HandleNext()
	require.NoError(t, err)

	require.NoError(t, c.UpdateDraft(FieldPackageID, 5))
	_, err = c.HandleNext()
	assert.True(t, errors.Is(err, ErrStepIncomplete))

	require.NoError(t, c.SelectMenu("10"))
	step, err := c.HandleNext()
	require.NoError(t, err)
	assert.Equal(t, StepFare, step)
}

func TestHandleBack(t *testing.T) {
	c, _, _ := newTestController(testIdentity)
	advanceToFare(t, c)

	left, err := c.HandleBack()
	require.NoError(t, err)
	assert.False(t, left)
	assert.Equal(t, StepPackageMenu, c.Snapshot().State.CurrentStep)

	left, err = c.HandleBack()
	require.NoError(t, err)
	assert.False(t, left)

	left, err = c.HandleBack()
	require.NoError(t, err)
	assert.True(t, left)
	assert.Equal(t, StepEventDetails, c.Snapshot().State.CurrentStep)
}

func TestCheckAvailability_MarksAvailable(t *testing.T) {
	c, gateway, notifications := newTestController(testIdentity)
	fillEventDetails(t, c)

	err := c.CheckAvailability(context.Background())

	require.NoError(t, err)
	snap := c.Snapshot()
	assert.True(t, snap.State.IsAvailable)
	assert.False(t, snap.State.IsCheckingAvailability)
	assert.True(t, snap.StepComplete)

	require.Len(t, gateway.AvailabilityRequests, 1)
	assert.Equal(t, venueapi.AvailabilityRequest{
		EventID:    3,
		VenueID:    2,
		ShiftID:    1,
		EventDate:  "2025-06-01",
		GuestCount: 80,
	}, gateway.AvailabilityRequests[0])

	drained := notifications.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, LevelSuccess, drained[0].Level)
}

func TestCheckAvailability_LocalValidation(t *testing.T) {
	c, gateway, notifications := newTestController(testIdentity)
	require.NoError(t, c.UpdateDraft(FieldDate, "2025-06-01"))

	err := c.CheckAvailability(context.Background())

	var validation *ValidationError
	require.True(t, errors.As(err, &validation))
	assert.Equal(t, 0, gateway.Calls("availability"))
	assert.False(t, c.Snapshot().State.IsAvailable)
	assert.Len(t, notifications.Drain(), 1)
}

func TestCheckAvailability_Rejected(t *testing.T) {
	c, gateway, notifications := newTestController(testIdentity)
	gateway.AvailabilityErr = &venueapi.UnavailableError{Message: "Venue already booked for this shift"}
	fillEventDetails(t, c)

	err := c.CheckAvailability(context.Background())

	assert.True(t, errors.Is(err, venueapi.ErrSlotUnavailable))
	snap := c.Snapshot()
	assert.False(t, snap.State.IsAvailable)
	assert.False(t, snap.State.IsCheckingAvailability)

	drained := notifications.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, LevelError, drained[0].Level)
	assert.Equal(t, "Venue already booked for this shift", drained[0].Message)
}

func TestCheckAvailability_FallbackMessage(t *testing.T) {
	c, gateway, notifications := newTestController(testIdentity)
	gateway.AvailabilityErr = &venueapi.APIError{StatusCode: 500}
	fillEventDetails(t, c)

	require.Error(t, c.CheckAvailability(context.Background()))

	drained := notifications.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, venueapi.FallbackAvailability, drained[0].Message)
}

func TestCheckAvailability_InFlightGuardAndStaleResult(t *testing.T) {
	c, gateway, _ := newTestController(testIdentity)
	fillEventDetails(t, c)

	entered := make(chan struct{})
	release := make(chan struct{})
	gateway.AvailabilityHook = func(venueapi.AvailabilityRequest) {
		close(entered)
		<-release
	}

	result := make(chan error, 1)
	go func() {
		result <- c.CheckAvailability(context.Background())
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("availability check never reached the gateway")
	}

	assert.True(t, c.Snapshot().State.IsCheckingAvailability)
	assert.ErrorIs(t, c.CheckAvailability(context.Background()), ErrOperationInProgress)

	// the user picks another venue while the first check is running
	require.NoError(t, c.UpdateDraft(FieldVenueID, 7))
	close(release)

	select {
	case err := <-result:
		assert.ErrorIs(t, err, ErrSelectionChanged)
	case <-time.After(2 * time.Second):
		t.Fatal("availability check did not return")
	}

	snap := c.Snapshot()
	assert.False(t, snap.State.IsAvailable)
	assert.False(t, snap.State.IsCheckingAvailability)
	assert.Equal(t, 1, gateway.Calls("availability"))
}

func TestCalculateFare_StoresFareAmounts(t *testing.T) {
	c, gateway, _ := newTestController(testIdentity)
	advanceToFare(t, c)

	err := c.CalculateFare(context.Background())

	require.NoError(t, err)
	snap := c.Snapshot()
	assert.Equal(t, 40000.0, snap.Draft.BaseFare)
	assert.Equal(t, 1500.0, snap.Draft.ExtraCharges)
	assert.Equal(t, 41500.0, snap.Draft.TotalFare)
	assert.True(t, snap.StepComplete)

	require.Len(t, gateway.FareRequests, 1)
	req := gateway.FareRequests[0]
	assert.Equal(t, int64(5), req.PackageID)
	assert.Equal(t, 80, req.GuestCount)
	assert.ElementsMatch(t, []string{"Salad", "Soda"}, req.SelectedMenus["10"])
}

func TestCalculateFare_LocalValidation(t *testing.T) {
	c, gateway, _ := newTestController(testIdentity)

	err := c.CalculateFare(context.Background())

	var validation *ValidationError
	assert.True(t, errors.As(err, &validation))
	assert.Equal(t, 0, gateway.Calls("fare"))
}

func TestCalculateFare_Failure(t *testing.T) {
	c, gateway, notifications := newTestController(testIdentity)
	gateway.FareErr = &venueapi.APIError{StatusCode: 422, Message: "Package not available for 80 guests"}
	advanceToFare(t, c)
	notifications.Drain()

	err := c.CalculateFare(context.Background())

	require.Error(t, err)
	snap := c.Snapshot()
	assert.Zero(t, snap.Draft.TotalFare)
	assert.False(t, snap.State.IsCalculating)

	drained := notifications.Drain()
	require.Len(t, drained, 1)
	assert.Equal(t, "Package not available for 80 guests", drained[0].Message)
}

func TestCalculateFare_StaleResultDiscarded(t *testing.T) {
	c, gateway, _ := newTestController(testIdentity)
	advanceToFare(t, c)

	entered := make(chan struct{})
	release := make(chan struct{})
	gateway.FareHook = func(venueapi.FareRequest) {
		close(entered)
		<-release
	}

	result := make(chan error, 1)
	go func() {
		result <- c.CalculateFare(context.Background())
	}()

	<-entered
	assert.ErrorIs(t, c.CalculateFare(context.Background()), ErrOperationInProgress)
	require.NoError(t, c.UpdateDraft(FieldGuestCount, 150))
	close(release)

	assert.ErrorIs(t, <-result, ErrSelectionChanged)
	assert.Zero(t, c.Snapshot().Draft.TotalFare)
}

func TestEnsureFare(t *testing.T) {
	c, gateway, _ := newTestController(testIdentity)
	advanceToFare(t, c)

	require.NoError(t, c.EnsureFare(context.Background()))
	require.NoError(t, c.EnsureFare(context.Background()))

	assert.Equal(t, 1, gateway.Calls("fare"))
	assert.Equal(t, 41500.0, c.Snapshot().Draft.TotalFare)
}

func TestSendOtp(t *testing.T) {
	c, gateway, notifications := newTestController(testIdentity)

	require.NoError(t, c.SendOtp(context.Background()))

	require.Len(t, gateway.SentOTPs, 1)
	assert.Equal(t, testIdentity.Email, gateway.SentOTPs[0].Email)
	assert.Equal(t, testIdentity.Phone, gateway.SentOTPs[0].Phone)
	assert.Equal(t, LevelSuccess, notifications.Drain()[0].Level)
}

func TestSendOtp_MissingContact(t *testing.T) {
	c, gateway, _ := newTestController(nil)

	err := c.SendOtp(context.Background())

	var validation *ValidationError
	assert.True(t, errors.As(err, &validation))
	assert.Equal(t, 0, gateway.Calls("send_otp"))
}

func TestSnapshot_IsACopy(t *testing.T) {
	c, _, _ := newTestController(testIdentity)
	require.NoError(t, c.ToggleMenuItem("10", "Salad"))

	snap := c.Snapshot()
	snap.Draft.SelectedMenus["10"][0] = "Changed"
	snap.Draft.Name = "Changed"

	again := c.Snapshot()
	assert.Equal(t, []string{"Salad"}, again.Draft.SelectedMenus["10"])
	assert.Equal(t, testIdentity.Name, again.Draft.Name)
}
