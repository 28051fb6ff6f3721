// Package models provides data models for the portfolio dashboard.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateFormat is the wire format of calendar dates
const DateFormat = "2006-01-02"

const readDateFormat = "2006-1-2" // also accepts single-digit month/day

// Date is a calendar date with day-level granularity.
// The zero value is the zero date.
type Date struct {
	t time.Time // midnight UTC
}

// NewDate returns a normalized Date for the given year, month, and day
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, m, d)
}

// ParseDate parses a YYYY-MM-DD string. A full RFC3339 timestamp is also
// accepted and truncated to its date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(readDateFormat, s); err == nil {
		return Date{t: t}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("invalid date %q: expected %s", s, DateFormat)
}

// MustParseDate is ParseDate for literals known to be valid
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time returns the date as midnight UTC
func (d Date) Time() time.Time { return d.t }

// IsZero reports whether d is the zero date
func (d Date) IsZero() bool { return d.t.IsZero() }

// Before reports whether d is before x
func (d Date) Before(x Date) bool { return d.t.Before(x.t) }

// After reports whether d is after x
func (d Date) After(x Date) bool { return d.t.After(x.t) }

// Equal reports whether d and x are the same day
func (d Date) Equal(x Date) bool { return d.t.Equal(x.t) }

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after x
func (d Date) Compare(x Date) int { return d.t.Compare(x.t) }

// String formats the date as YYYY-MM-DD
func (d Date) String() string { return d.t.Format(DateFormat) }

// MarshalJSON implements json.Marshaler
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
