package core

import (
	"fmt"
	"time"
)

// Timestamp represents a point in time with timezone awareness
type Timestamp time.Time

// NewTimestamp creates a new timestamp from time.Time
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp(t)
}

// Now returns the current timestamp
func Now() Timestamp {
	return Timestamp(time.Now())
}

// Time returns the underlying time.Time
func (t Timestamp) Time() time.Time {
	return time.Time(t)
}

// IsZero checks if the timestamp is zero
func (t Timestamp) IsZero() bool {
	return time.Time(t).IsZero()
}

// Before returns true if t is before u
func (t Timestamp) Before(u Timestamp) bool {
	return time.Time(t).Before(time.Time(u))
}

// After returns true if t is after u
func (t Timestamp) After(u Timestamp) bool {
	return time.Time(t).After(time.Time(u))
}

// JSON marshaling for Timestamp
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return time.Time(t).MarshalJSON()
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var tm time.Time
	if err := tm.UnmarshalJSON(data); err != nil {
		return err
	}
	*t = Timestamp(tm)
	return nil
}

// CivilDate is a calendar day without a time component. Oracle output and
// ground truth are civil dates: the day boundary is fixed by the calendar
// system's pinned zone, never by the caller's locale.
type CivilDate struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
	Day   int        `json:"day"`
}

// NewCivilDate creates a civil date
func NewCivilDate(year int, month time.Month, day int) CivilDate {
	return CivilDate{Year: year, Month: month, Day: day}
}

// CivilDateOf truncates a time.Time to its civil date in that time's location
func CivilDateOf(t time.Time) CivilDate {
	y, m, d := t.Date()
	return CivilDate{Year: y, Month: m, Day: d}
}

// Time returns midnight of the civil date in UTC
func (d CivilDate) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the civil date n days later (negative n moves backward)
func (d CivilDate) AddDays(n int) CivilDate {
	return CivilDateOf(d.Time().AddDate(0, 0, n))
}

// DaysBetween returns other - d in whole days
func (d CivilDate) DaysBetween(other CivilDate) int {
	return int(other.Time().Sub(d.Time()).Hours() / 24)
}

// Before returns true if d is earlier than other
func (d CivilDate) Before(other CivilDate) bool {
	return d.Time().Before(other.Time())
}

// IsValid reports whether the date exists on the Gregorian calendar.
// Impossible-date negatives (February 30th) fail this check on purpose.
func (d CivilDate) IsValid() bool {
	t := d.Time()
	y, m, day := t.Date()
	return y == d.Year && m == d.Month && day == d.Day
}

// Weekday returns the day of week
func (d CivilDate) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// String returns the ISO-8601 date form. Formatting is literal, not via
// time.Time, so an impossible date like February 30th renders as written
// instead of being normalized into March.
func (d CivilDate) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}
