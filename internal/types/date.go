package types

import (
	"strings"
	"time"

	ierr "github.com/flexprice/installments/internal/errors"
)

// DateFormat is the wire format for calendar dates
const DateFormat = "2006-01-02"

// StartOfDay returns midnight UTC of the calendar day t falls on in its own location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the number of calendar days from a to b (negative when b is before a)
func DaysBetween(a, b time.Time) int {
	return int(StartOfDay(b).Sub(StartOfDay(a)).Hours() / 24)
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 and returns the calendar day at midnight UTC
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(DateFormat, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return StartOfDay(t), nil
	}
	return time.Time{}, ierr.NewErrorf("invalid date %q", s).
		WithHint("Dates must be formatted as YYYY-MM-DD").
		Mark(ierr.ErrValidation)
}

// Today returns the current calendar day in the given IANA timezone (or abbreviation)
func Today(timezone string) time.Time {
	loc, err := time.LoadLocation(ResolveTimezone(timezone))
	if err != nil {
		loc = time.UTC
	}
	return StartOfDay(time.Now().In(loc))
}

// Date is a calendar day serialized as YYYY-MM-DD. RFC 3339 input is accepted and truncated.
type Date struct {
	time.Time
}

func NewDate(t time.Time) Date {
	return Date{Time: StartOfDay(t)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Time.Format(DateFormat) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		d.Time = time.Time{}
		return nil
	}
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func (d Date) String() string {
	return d.Time.Format(DateFormat)
}
