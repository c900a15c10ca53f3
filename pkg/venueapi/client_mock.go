package venueapi

import (
	"context"
	"sync"
)

// ClientMock is an in-memory stand-in for Client that records calls.
// Set the *Err fields to make the matching call fail. Hooks, when set,
// run before the call returns and may block to simulate a slow API.
type ClientMock struct {
	mock sync.Mutex

	AvailabilityErr error
	Fare            Fare
	FareErr         error
	BookingID       string
	BookingErr      error
	SendOTPErr      error
	VerifyOTPErr    error
	ConfirmationErr error

	Events   []EventType
	Venues   []Venue
	Shifts   []Shift
	Packages []Package
	Menus    []Menu
	ListErr  error

	AvailabilityHook func(AvailabilityRequest)
	FareHook         func(FareRequest)
	VerifyOTPHook    func(VerifyOTPRequest)

	AvailabilityRequests []AvailabilityRequest
	FareRequests         []FareRequest
	Bookings             []BookingRequest
	SentOTPs             []SendOTPRequest
	VerifiedOTPs         []VerifyOTPRequest
	Confirmations        map[string]string
	ListCalls            map[string]int
}

func (m *ClientMock) CheckAvailability(ctx context.Context, req AvailabilityRequest) error {
	m.mock.Lock()
	m.AvailabilityRequests = append(m.AvailabilityRequests, req)
	hook, err := m.AvailabilityHook, m.AvailabilityErr
	m.mock.Unlock()

	if hook != nil {
		hook(req)
	}
	return err
}

func (m *ClientMock) CalculateFare(ctx context.Context, req FareRequest) (*Fare, error) {
	m.mock.Lock()
	m.FareRequests = append(m.FareRequests, req)
	hook, fare, err := m.FareHook, m.Fare, m.FareErr
	m.mock.Unlock()

	if hook != nil {
		hook(req)
	}
	if err != nil {
		return nil, err
	}
	return &fare, nil
}

func (m *ClientMock) CreateBooking(ctx context.Context, req BookingRequest) (*BookingResponse, error) {
	m.mock.Lock()
	defer m.mock.Unlock()

	m.Bookings = append(m.Bookings, req)
	if m.BookingErr != nil {
		return nil, m.BookingErr
	}

	id := m.BookingID
	if id == "" {
		id = "mocked-booking-id"
	}
	return &BookingResponse{BookingID: id}, nil
}

func (m *ClientMock) SendOTP(ctx context.Context, email, phone string) error {
	m.mock.Lock()
	defer m.mock.Unlock()

	m.SentOTPs = append(m.SentOTPs, SendOTPRequest{Email: email, Phone: phone})
	return m.SendOTPErr
}

func (m *ClientMock) VerifyOTP(ctx context.Context, otp, email, phone string) error {
	req := VerifyOTPRequest{OTP: otp, Email: email, Phone: phone}
	m.mock.Lock()
	m.VerifiedOTPs = append(m.VerifiedOTPs, req)
	hook, err := m.VerifyOTPHook, m.VerifyOTPErr
	m.mock.Unlock()

	if hook != nil {
		hook(req)
	}
	return err
}

func (m *ClientMock) SendConfirmation(ctx context.Context, bookingID, email string) error {
	m.mock.Lock()
	defer m.mock.Unlock()

	if m.ConfirmationErr != nil {
		return m.ConfirmationErr
	}
	if m.Confirmations == nil {
		m.Confirmations = make(map[string]string)
	}
	m.Confirmations[bookingID] = email
	return nil
}

func (m *ClientMock) ListEvents(ctx context.Context) ([]EventType, error) {
	m.recordList("events")
	return m.Events, m.listErr()
}

func (m *ClientMock) ListVenues(ctx context.Context) ([]Venue, error) {
	m.recordList("venues")
	return m.Venues, m.listErr()
}

func (m *ClientMock) ListShifts(ctx context.Context) ([]Shift, error) {
	m.recordList("shifts")
	return m.Shifts, m.listErr()
}

func (m *ClientMock) ListPackages(ctx context.Context) ([]Package, error) {
	m.recordList("packages")
	return m.Packages, m.listErr()
}

func (m *ClientMock) ListMenus(ctx context.Context, packageID int64) ([]Menu, error) {
	m.recordList("menus")
	if packageID == 0 {
		return m.Menus, m.listErr()
	}

	var menus []Menu
	for _, menu := range m.Menus {
		if menu.PackageID == packageID {
			menus = append(menus, menu)
		}
	}
	return menus, m.listErr()
}

func (m *ClientMock) recordList(name string) {
	m.mock.Lock()
	defer m.mock.Unlock()

	if m.ListCalls == nil {
		m.ListCalls = make(map[string]int)
	}
	m.ListCalls[name]++
}

func (m *ClientMock) listErr() error {
	m.mock.Lock()
	defer m.mock.Unlock()
	return m.ListErr
}

// Calls returns the number of calls made to a recorded operation
func (m *ClientMock) Calls(op string) int {
	m.mock.Lock()
	defer m.mock.Unlock()

	switch op {
	case "availability":
		return len(m.AvailabilityRequests)
	case "fare":
		return len(m.FareRequests)
	case "booking":
		return len(m.Bookings)
	case "send_otp":
		return len(m.SentOTPs)
	case "verify_otp":
		return len(m.VerifiedOTPs)
	case "confirmation":
		return len(m.Confirmations)
	default:
		return m.ListCalls[op]
	}
}
