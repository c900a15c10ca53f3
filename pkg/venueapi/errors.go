package venueapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Fallback messages used when the venue API gives nothing more specific
const (
	FallbackAvailability = "Failed to check availability. Please try again."
	FallbackFare         = "Failed to calculate fare. Please try again."
	FallbackBooking      = "Failed to create booking. Please try again."
	FallbackSendOTP      = "Failed to send OTP. Please try again."
	FallbackVerifyOTP    = "OTP verification failed. Please try again."
	FallbackConfirmation = "Failed to send booking confirmation."
	FallbackReference    = "Failed to load data. Please reload and try again."
)

// ErrSlotUnavailable indicates the venue API answered an availability check with available=false
var ErrSlotUnavailable = errors.New("selected venue and shift are not available on this date")

// APIError represents a rejection returned by the venue API
type APIError struct {
	StatusCode  int
	Message     string
	FieldErrors map[string][]string
	Fallback    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("venue api: status %d: %s", e.StatusCode, e.UserMessage())
}

// UserMessage returns the most specific message available: joined field errors,
// then the server message, then the operation fallback
func (e *APIError) UserMessage() string {
	if len(e.FieldErrors) > 0 {
		keys := make([]string, 0, len(e.FieldErrors))
		for k := range e.FieldErrors {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var msgs []string
		for _, k := range keys {
			msgs = append(msgs, e.FieldErrors[k]...)
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, " ")
		}
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Fallback
}

// UnavailableError wraps ErrSlotUnavailable with the server's explanation, if any
type UnavailableError struct {
	Message string
}

func (e *UnavailableError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrSlotUnavailable.Error()
}

func (e *UnavailableError) Unwrap() error {
	return ErrSlotUnavailable
}

// TransportError wraps a failure to reach or decode the venue API
type TransportError struct {
	Op       string
	Fallback string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("venue api: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// UserMessage extracts the message a user should see for err
func UserMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if msg := apiErr.UserMessage(); msg != "" {
			return msg
		}
		return fallback
	}

	var unavailable *UnavailableError
	if errors.As(err, &unavailable) {
		return unavailable.Error()
	}

	var transportErr *TransportError
	if errors.As(err, &transportErr) && transportErr.Fallback != "" {
		return transportErr.Fallback
	}

	return fallback
}

// errorBody is the error envelope the venue API uses. Field errors may be
// a single string or a list of strings per field.
type errorBody struct {
	Message string                     `json:"message"`
	Error   string                     `json:"error"`
	Errors  map[string]json.RawMessage `json:"errors"`
}

func parseAPIError(status int, body []byte, fallback string) *APIError {
	apiErr := &APIError{
		StatusCode: status,
		Fallback:   fallback,
	}

	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil {
		return apiErr
	}

	apiErr.Message = eb.Message
	if apiErr.Message == "" {
		apiErr.Message = eb.Error
	}

	if len(eb.Errors) > 0 {
		apiErr.FieldErrors = make(map[string][]string, len(eb.Errors))
		for field, raw := range eb.Errors {
			var list []string
			if err := json.Unmarshal(raw, &list); err == nil {
				apiErr.FieldErrors[field] = list
				continue
			}
			var single string
			if err := json.Unmarshal(raw, &single); err == nil && single != "" {
				apiErr.FieldErrors[field] = []string{single}
			}
		}
	}

	return apiErr
}
