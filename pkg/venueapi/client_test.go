package venueapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(Config{
		BaseURL:  server.URL + "/",
		APIToken: "test-token",
		Timeout:  5 * time.Second,
	})
}

func TestNewClient(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://localhost:8000/api/"})

	assert.NotNil(t, client)
	assert.Equal(t, "http://localhost:8000/api", client.baseURL)
	assert.Empty(t, client.apiToken)
	assert.Equal(t, 30*time.Second, client.client.Timeout)
}

func TestCheckAvailability_Success(t *testing.T) {
	var got AvailabilityRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/bookings/check-availability", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"available": true}`))
	})

	err := client.CheckAvailability(context.Background(), AvailabilityRequest{
		EventID:    3,
		VenueID:    2,
		ShiftID:    1,
		EventDate:  "2025-06-01",
		GuestCount: 80,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(3), got.EventID)
	assert.Equal(t, int64(2), got.VenueID)
	assert.Equal(t, int64(1), got.ShiftID)
	assert.Equal(t, "2025-06-01", got.EventDate)
	assert.Equal(t, 80, got.GuestCount)
}

func TestCheckAvailability_NotAvailable(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"available": false, "message": "Venue already booked for this shift"}`))
	})

	err := client.CheckAvailability(context.Background(), AvailabilityRequest{})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSlotUnavailable))
	assert.Equal(t, "Venue already booked for this shift", UserMessage(err, FallbackAvailability))
}

func TestCheckAvailability_ServerMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message": "Shift is closed on holidays"}`))
	})

	err := client.CheckAvailability(context.Background(), AvailabilityRequest{})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.StatusCode)
	assert.Equal(t, "Shift is closed on holidays", UserMessage(err, FallbackAvailability))
}

func TestCalculateFare_Success(t *testing.T) {
	var got FareRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bookings/calculate-fare", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"base_fare": 40000, "extra_charges": 1500, "total_fare": 41500}`))
	})

	fare, err := client.CalculateFare(context.Background(), FareRequest{
		PackageID:     5,
		SelectedMenus: map[string][]string{"10": {"Salad", "Soda"}},
		GuestCount:    80,
	})

	require.NoError(t, err)
	assert.Equal(t, 40000.0, fare.BaseFare)
	assert.Equal(t, 1500.0, fare.ExtraCharges)
	assert.Equal(t, 41500.0, fare.TotalFare)
	assert.Equal(t, int64(5), got.PackageID)
	assert.Equal(t, []string{"Salad", "Soda"}, got.SelectedMenus["10"])
}

func TestCreateBooking_FieldErrorsJoined(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{
			"message": "The given data was invalid.",
			"errors": {
				"phone": ["The phone format is invalid."],
				"email": "The email has already been taken."
			}
		}`))
	})

	_, err := client.CreateBooking(context.Background(), BookingRequest{})

	require.Error(t, err)
	assert.Equal(t,
		"The email has already been taken. The phone format is invalid.",
		UserMessage(err, FallbackBooking))
}

func TestCreateBooking_Fallback(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})

	_, err := client.CreateBooking(context.Background(), BookingRequest{})

	require.Error(t, err)
	assert.Equal(t, FallbackBooking, UserMessage(err, FallbackBooking))
}

func TestCreateBooking_MissingID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	resp, err := client.CreateBooking(context.Background(), BookingRequest{})

	assert.Nil(t, resp)
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, FallbackBooking, UserMessage(err, "other"))
}

func TestCreateBooking_Success(t *testing.T) {
	var got BookingRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bookings", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"bookingId": "BK-1001"}`))
	})

	resp, err := client.CreateBooking(context.Background(), BookingRequest{
		UserID:    "user-1",
		EventID:   3,
		TotalFare: 41500,
		Phone:     "0771234567",
	})

	require.NoError(t, err)
	assert.Equal(t, "BK-1001", resp.BookingID)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, 41500.0, got.TotalFare)
	assert.Equal(t, "0771234567", got.Phone)
}

func TestCreateBooking_IDFormats(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string", `{"bookingId": "BK-1001"}`, "BK-1001"},
		{"integer", `{"bookingId": 42}`, "42"},
		{"large integer", `{"bookingId": 9007199254740993}`, "9007199254740993"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(tt.body))
			})

			resp, err := client.CreateBooking(context.Background(), BookingRequest{})

			require.NoError(t, err)
			assert.Equal(t, tt.want, resp.BookingID)
		})
	}
}

func TestCreateBooking_NullAndInvalidID(t *testing.T) {
	for _, body := range []string{`{"bookingId": null}`, `{"bookingId": true}`} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(body))
		})

		resp, err := client.CreateBooking(context.Background(), BookingRequest{})

		assert.Nil(t, resp, body)
		assert.Error(t, err, body)
	}
}

func TestOTPEndpoints(t *testing.T) {
	paths := make(chan string, 2)
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths <- r.URL.Path
		_, _ = w.Write([]byte(`{"success": true}`))
	})

	require.NoError(t, client.SendOTP(context.Background(), "a@example.com", "0771234567"))
	require.NoError(t, client.VerifyOTP(context.Background(), "123456", "a@example.com", "0771234567"))

	assert.Equal(t, "/otp/send", <-paths)
	assert.Equal(t, "/otp/verify", <-paths)
}

func TestVerifyOTP_Rejected(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "Invalid or expired OTP"}`))
	})

	err := client.VerifyOTP(context.Background(), "000000", "", "0771234567")

	require.Error(t, err)
	assert.Equal(t, "Invalid or expired OTP", UserMessage(err, FallbackVerifyOTP))
}

func TestSendConfirmation(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/bookings/BK-1001/send-confirmation", r.URL.Path)
		var body ConfirmationRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "a@example.com", body.Email)
		w.WriteHeader(http.StatusNoContent)
	})

	err := client.SendConfirmation(context.Background(), "BK-1001", "a@example.com")
	assert.NoError(t, err)
}

func TestListMenus_Envelope(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/menus", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("package_id"))
		_, _ = w.Write([]byte(`{"data": [{"id": 10, "package_id": 5, "name": "Starters", "items": [{"name": "Salad"}]}]}`))
	})

	menus, err := client.ListMenus(context.Background(), 5)

	require.NoError(t, err)
	require.Len(t, menus, 1)
	assert.Equal(t, int64(10), menus[0].ID)
	assert.Equal(t, "Starters", menus[0].Name)
	require.Len(t, menus[0].Items, 1)
	assert.Equal(t, "Salad", menus[0].Items[0].Name)
}

func TestListVenues_BareArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/venues", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id": 2, "name": "Grand Hall", "capacity": 300}]`))
	})

	venues, err := client.ListVenues(context.Background())

	require.NoError(t, err)
	require.Len(t, venues, 1)
	assert.Equal(t, "Grand Hall", venues[0].Name)
	assert.Equal(t, 300, venues[0].Capacity)
}

func TestTransportError(t *testing.T) {
	client := NewClient(Config{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

	_, err := client.CalculateFare(context.Background(), FareRequest{})

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, FallbackFare, UserMessage(err, "unused"))
}

func TestUserMessage_Nil(t *testing.T) {
	assert.Empty(t, UserMessage(nil, FallbackFare))
	assert.Equal(t, FallbackFare, UserMessage(errors.New("boom"), FallbackFare))
}
