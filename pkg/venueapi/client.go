package venueapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is the typed facade over the venue-booking REST API.
// It owns no state and never retries: a failure is reported once, immediately.
type Client struct {
	baseURL  string
	apiToken string
	client   *http.Client
}

// Config holds configuration for the venue API client
type Config struct {
	BaseURL  string
	APIToken string        // Optional: sent as a Bearer token on every request
	Timeout  time.Duration // Zero means 30 seconds
}

// NewClient creates a new venue API client
func NewClient(config Config) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL:  strings.TrimRight(config.BaseURL, "/"),
		apiToken: config.APIToken,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// CheckAvailability asks whether the venue/shift can host the event on the given date
func (c *Client) CheckAvailability(ctx context.Context, req AvailabilityRequest) error {
	var resp AvailabilityResponse
	if err := c.do(ctx, http.MethodPost, "/bookings/check-availability", req, &resp, FallbackAvailability); err != nil {
		return err
	}

	if resp.Available != nil && !*resp.Available {
		return &UnavailableError{Message: resp.Message}
	}

	return nil
}

// CalculateFare computes the fare for a package, menu selection and guest count
func (c *Client) CalculateFare(ctx context.Context, req FareRequest) (*Fare, error) {
	var fare Fare
	if err := c.do(ctx, http.MethodPost, "/bookings/calculate-fare", req, &fare, FallbackFare); err != nil {
		return nil, err
	}
	return &fare, nil
}

// CreateBooking persists a booking and returns its identifier
func (c *Client) CreateBooking(ctx context.Context, req BookingRequest) (*BookingResponse, error) {
	var resp BookingResponse
	if err := c.do(ctx, http.MethodPost, "/bookings", req, &resp, FallbackBooking); err != nil {
		return nil, err
	}

	if resp.BookingID == "" {
		return nil, &TransportError{
			Op:       "create booking",
			Fallback: FallbackBooking,
			Err:      fmt.Errorf("response did not contain a booking id"),
		}
	}

	return &resp, nil
}

// SendOTP issues an OTP challenge to the given contact
func (c *Client) SendOTP(ctx context.Context, email, phone string) error {
	req := SendOTPRequest{Email: email, Phone: phone}
	return c.do(ctx, http.MethodPost, "/otp/send", req, &Ack{}, FallbackSendOTP)
}

// VerifyOTP verifies an OTP previously issued to the given contact
func (c *Client) VerifyOTP(ctx context.Context, otp, email, phone string) error {
	req := VerifyOTPRequest{OTP: otp, Email: email, Phone: phone}
	return c.do(ctx, http.MethodPost, "/otp/verify", req, &Ack{}, FallbackVerifyOTP)
}

// SendConfirmation emails the booking confirmation
func (c *Client) SendConfirmation(ctx context.Context, bookingID, email string) error {
	path := fmt.Sprintf("/bookings/%s/send-confirmation", url.PathEscape(bookingID))
	return c.do(ctx, http.MethodPost, path, ConfirmationRequest{Email: email}, &Ack{}, FallbackConfirmation)
}

// ListEvents returns the bookable event types
func (c *Client) ListEvents(ctx context.Context) ([]EventType, error) {
	var events []EventType
	if err := c.getList(ctx, "/events", &events); err != nil {
		return nil, err
	}
	return events, nil
}

// ListVenues returns the bookable venues
func (c *Client) ListVenues(ctx context.Context) ([]Venue, error) {
	var venues []Venue
	if err := c.getList(ctx, "/venues", &venues); err != nil {
		return nil, err
	}
	return venues, nil
}

// ListShifts returns the bookable shifts
func (c *Client) ListShifts(ctx context.Context) ([]Shift, error) {
	var shifts []Shift
	if err := c.getList(ctx, "/shifts", &shifts); err != nil {
		return nil, err
	}
	return shifts, nil
}

// ListPackages returns the catering packages
func (c *Client) ListPackages(ctx context.Context) ([]Package, error) {
	var packages []Package
	if err := c.getList(ctx, "/packages", &packages); err != nil {
		return nil, err
	}
	return packages, nil
}

// ListMenus returns the menu categories, optionally restricted to a package
func (c *Client) ListMenus(ctx context.Context, packageID int64) ([]Menu, error) {
	path := "/menus"
	if packageID > 0 {
		path += "?package_id=" + strconv.FormatInt(packageID, 10)
	}

	var menus []Menu
	if err := c.getList(ctx, path, &menus); err != nil {
		return nil, err
	}
	return menus, nil
}

// getList decodes either a bare JSON array or a {"data": [...]} envelope
func (c *Client) getList(ctx context.Context, path string, dest interface{}) error {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &raw, FallbackReference); err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return &TransportError{Op: "GET " + path, Fallback: FallbackReference, Err: err}
		}
		trimmed = envelope.Data
	}

	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil
	}

	if err := json.Unmarshal(trimmed, dest); err != nil {
		return &TransportError{Op: "GET " + path, Fallback: FallbackReference, Err: err}
	}
	return nil
}

// do sends a JSON request and decodes a JSON response.
// Non-2xx responses are translated into *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, dest interface{}, fallback string) error {
	op := method + " " + path

	var reader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return &TransportError{Op: op, Fallback: fallback, Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		reader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &TransportError{Op: op, Fallback: fallback, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return &TransportError{Op: op, Fallback: fallback, Err: fmt.Errorf("failed to send request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: op, Fallback: fallback, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, respBody, fallback)
	}

	if dest == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}

	if err := json.Unmarshal(respBody, dest); err != nil {
		return &TransportError{Op: op, Fallback: fallback, Err: fmt.Errorf("failed to parse response: %w", err)}
	}

	return nil
}
