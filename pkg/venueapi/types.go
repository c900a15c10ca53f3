package venueapi

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DateLayout is the ISO-8601 calendar date format the venue API expects for event dates
const DateLayout = "2006-01-02"

// AvailabilityRequest represents a slot availability check
type AvailabilityRequest struct {
	EventID    int64  `json:"event_id"`
	VenueID    int64  `json:"venue_id"`
	ShiftID    int64  `json:"shift_id"`
	EventDate  string `json:"event_date"`
	GuestCount int    `json:"guest_count"`
}

// AvailabilityResponse represents the availability check result.
// Available is a pointer because some deployments only answer with a message on success.
type AvailabilityResponse struct {
	Available *bool  `json:"available,omitempty"`
	Message   string `json:"message"`
}

// FareRequest represents a fare calculation request
type FareRequest struct {
	PackageID     int64               `json:"package_id"`
	SelectedMenus map[string][]string `json:"selected_menus"`
	GuestCount    int                 `json:"guest_count"`
}

// Fare represents a computed fare breakdown
type Fare struct {
	BaseFare     float64 `json:"base_fare"`
	ExtraCharges float64 `json:"extra_charges"`
	TotalFare    float64 `json:"total_fare"`
}

// BookingRequest is the submission payload persisted by the venue API
type BookingRequest struct {
	UserID        string              `json:"user_id"`
	EventID       int64               `json:"event_id"`
	VenueID       int64               `json:"venue_id"`
	ShiftID       int64               `json:"shift_id"`
	PackageID     int64               `json:"package_id"`
	EventDate     string              `json:"event_date"`
	GuestCount    int                 `json:"guest_count"`
	SelectedMenus map[string][]string `json:"selected_menus"`
	BaseFare      float64             `json:"base_fare"`
	ExtraCharges  float64             `json:"extra_charges"`
	TotalFare     float64             `json:"total_fare"`
	Name          string              `json:"name"`
	Email         string              `json:"email"`
	Phone         string              `json:"phone"`
}

// BookingResponse carries the identifier assigned to a created booking
type BookingResponse struct {
	BookingID string `json:"bookingId"`
}

// UnmarshalJSON accepts the booking id as a JSON string or number
func (r *BookingResponse) UnmarshalJSON(data []byte) error {
	var raw struct {
		BookingID json.RawMessage `json:"bookingId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	id := bytes.TrimSpace(raw.BookingID)
	switch {
	case len(id) == 0 || bytes.Equal(id, []byte("null")):
		r.BookingID = ""
		return nil
	case id[0] == '"':
		return json.Unmarshal(id, &r.BookingID)
	}

	var n json.Number
	if err := json.Unmarshal(id, &n); err != nil {
		return fmt.Errorf("bookingId must be a string or a number: %w", err)
	}
	r.BookingID = n.String()
	return nil
}

// SendOTPRequest asks the venue API to issue an OTP challenge
type SendOTPRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// VerifyOTPRequest submits an OTP for verification
type VerifyOTPRequest struct {
	OTP   string `json:"otp"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// ConfirmationRequest asks the venue API to email a booking confirmation
type ConfirmationRequest struct {
	Email string `json:"email"`
}

// Ack is the opaque acknowledgement returned by OTP and confirmation endpoints
type Ack struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// EventType is a kind of event that can be booked (wedding, reception, ...)
type EventType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Venue is a bookable hall
type Venue struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
	ImageURL string `json:"image_url,omitempty"`
}

// Shift is a bookable time slot within a day
type Shift struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// Package is a priced catering package
type Package struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	BasePrice   float64 `json:"base_price"`
	MinGuests   int     `json:"min_guests"`
	Description string  `json:"description,omitempty"`
}

// MenuItem is a selectable dish within a menu category
type MenuItem struct {
	Name        string  `json:"name"`
	Price       float64 `json:"price,omitempty"`
	Description string  `json:"description,omitempty"`
}

// Menu is a menu category offered with a package
type Menu struct {
	ID         int64      `json:"id"`
	PackageID  int64      `json:"package_id"`
	Name       string     `json:"name"`
	FreeLimit  int        `json:"free_limit"`
	ExtraPrice float64    `json:"extra_price"`
	Items      []MenuItem `json:"items"`
}
