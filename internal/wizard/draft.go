package wizard

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// DefaultGuestCount is the guest count a new draft starts with
const DefaultGuestCount = 50

// Draft is the booking being built up over a wizard session
type Draft struct {
	Date          string              `json:"date"` // YYYY-MM-DD, empty until chosen
	EventID       int64               `json:"eventId"`
	GuestCount    int                 `json:"guestCount"`
	VenueID       int64               `json:"venueId"`
	ShiftID       int64               `json:"shiftId"`
	PackageID     int64               `json:"packageId"`
	SelectedMenus map[string][]string `json:"selectedMenus"`
	BaseFare      float64             `json:"baseFare"`
	ExtraCharges  float64             `json:"extraCharges"`
	TotalFare     float64             `json:"totalFare"`
	Name          string              `json:"name"`
	Email         string              `json:"email"`
	Phone         string              `json:"phone"`
}

// NewDraft creates a draft pre-filled with the contact details of identity
func NewDraft(identity *Identity) Draft {
	d := Draft{
		GuestCount:    DefaultGuestCount,
		SelectedMenus: map[string][]string{},
	}
	if identity != nil {
		d.Name = identity.Name
		d.Email = identity.Email
		d.Phone = identity.Phone
	}
	return d
}

// Clone returns a deep copy of the draft
func (d Draft) Clone() Draft {
	d.SelectedMenus = cloneMenus(d.SelectedMenus)
	return d
}

func (d *Draft) resetFare() {
	d.BaseFare = 0
	d.ExtraCharges = 0
	d.TotalFare = 0
}

func cloneMenus(menus map[string][]string) map[string][]string {
	out := make(map[string][]string, len(menus))
	for id, items := range menus {
		out[id] = append([]string{}, items...)
	}
	return out
}

// Field names a draft field accepted by UpdateDraft
type Field string

const (
	FieldDate          Field = "date"
	FieldEventID       Field = "eventId"
	FieldGuestCount    Field = "guestCount"
	FieldVenueID       Field = "venueId"
	FieldShiftID       Field = "shiftId"
	FieldPackageID     Field = "packageId"
	FieldSelectedMenus Field = "selectedMenus"
	FieldName          Field = "name"
	FieldEmail         Field = "email"
	FieldPhone         Field = "phone"

	// Fare fields are written only by CalculateFare
	FieldBaseFare     Field = "baseFare"
	FieldExtraCharges Field = "extraCharges"
	FieldTotalFare    Field = "totalFare"
)

// ParseField validates a field name received from a client
func ParseField(name string) (Field, error) {
	f := Field(strings.TrimSpace(name))
	switch f {
	case FieldDate, FieldEventID, FieldGuestCount, FieldVenueID, FieldShiftID,
		FieldPackageID, FieldSelectedMenus, FieldName, FieldEmail, FieldPhone:
		return f, nil
	case FieldBaseFare, FieldExtraCharges, FieldTotalFare:
		return "", fmt.Errorf("%w: %s", ErrReadOnlyField, f)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
}

// resetsAvailability reports whether changing f invalidates a confirmed availability
func (f Field) resetsAvailability() bool {
	return f == FieldVenueID || f == FieldShiftID
}

// resetsFare reports whether changing f invalidates a computed fare
func (f Field) resetsFare() bool {
	return f == FieldPackageID || f == FieldSelectedMenus || f == FieldGuestCount
}

// availabilityInput reports whether f is part of an availability request
func (f Field) availabilityInput() bool {
	switch f {
	case FieldDate, FieldEventID, FieldGuestCount, FieldVenueID, FieldShiftID:
		return true
	}
	return false
}

// set assigns value to field f. Values arrive either as Go types or as
// generic JSON (float64 numbers, map[string]interface{} objects); nil clears the field.
func (d *Draft) set(f Field, value interface{}) error {
	switch f {
	case FieldDate:
		s, err := toDate(value)
		if err != nil {
			return invalidValue(f, err)
		}
		d.Date = s
	case FieldEventID, FieldVenueID, FieldShiftID, FieldPackageID:
		id, err := toInt64(value)
		if err != nil {
			return invalidValue(f, err)
		}
		switch f {
		case FieldEventID:
			d.EventID = id
		case FieldVenueID:
			d.VenueID = id
		case FieldShiftID:
			d.ShiftID = id
		case FieldPackageID:
			d.PackageID = id
		}
	case FieldGuestCount:
		n, err := toInt64(value)
		if err != nil {
			return invalidValue(f, err)
		}
		if n > math.MaxInt32 {
			return invalidValue(f, fmt.Errorf("too large"))
		}
		d.GuestCount = int(n)
	case FieldSelectedMenus:
		menus, err := toMenus(value)
		if err != nil {
			return invalidValue(f, err)
		}
		d.SelectedMenus = menus
	case FieldName, FieldEmail, FieldPhone:
		s, err := toString(value)
		if err != nil {
			return invalidValue(f, err)
		}
		switch f {
		case FieldName:
			d.Name = s
		case FieldEmail:
			d.Email = s
		case FieldPhone:
			d.Phone = s
		}
	default:
		if _, err := ParseField(string(f)); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrUnknownField, f)
	}
	return nil
}

func invalidValue(f Field, err error) error {
	return fmt.Errorf("%w for %s: %v", ErrInvalidFieldValue, f, err)
}

func toString(value interface{}) (string, error) {
	switch v := value.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	default:
		return "", fmt.Errorf("expected a string, got %T", value)
	}
}

func toDate(value interface{}) (string, error) {
	switch v := value.(type) {
	case time.Time:
		if v.IsZero() {
			return "", nil
		}
		return v.Format("2006-01-02"), nil
	case *time.Time:
		if v == nil || v.IsZero() {
			return "", nil
		}
		return v.Format("2006-01-02"), nil
	default:
		s, err := toString(value)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(s), nil
	}
}

func toInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, fmt.Errorf("expected a whole number, got %v", v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("expected a whole number, got %q", v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", value)
	}
}

func toMenus(value interface{}) (map[string][]string, error) {
	switch v := value.(type) {
	case nil:
		return map[string][]string{}, nil
	case map[string][]string:
		return cloneMenus(v), nil
	case map[string]interface{}:
		out := make(map[string][]string, len(v))
		for id, raw := range v {
			items, err := toItems(raw)
			if err != nil {
				return nil, fmt.Errorf("menu %s: %w", id, err)
			}
			out[id] = items
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an object of menu id to item names, got %T", value)
	}
}

func toItems(raw interface{}) ([]string, error) {
	switch v := raw.(type) {
	case nil:
		return []string{}, nil
	case []string:
		return append([]string{}, v...), nil
	case []interface{}:
		items := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected item names, got %T", item)
			}
			items = append(items, s)
		}
		return items, nil
	default:
		return nil, fmt.Errorf("expected a list of item names, got %T", raw)
	}
}
