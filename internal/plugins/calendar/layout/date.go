// Package layout is the calendar event layout engine. It turns a list of
// events and a month or week window into a plain-data layout model: day
// cells, multi-day bars with stack slots, per-cell single-day events,
// vertical positions for timed events, and drag-drop date translations.
//
// Every function in this package is pure. All date arithmetic happens in
// naive calendar-date space: a Date has no time zone, and time.Time is only
// used internally as a calculator pinned to UTC midnight so that no offset
// or DST transition can shift a day.
package layout

import (
	"fmt"
	"time"
)

// dateLayout is the ISO-8601 calendar date format used on the wire.
const dateLayout = "2006-01-02"

// Date is a timezone-less calendar date.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate builds a Date, normalizing out-of-range values the same way
// time.Date does (e.g. January 32 becomes February 1).
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the wall-clock calendar date of t in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a strict YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return DateOf(t), nil
}

// String returns the date as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// MarshalText implements encoding.TextMarshaler so dates can be JSON map keys.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) utc() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// Weekday returns the day of the week, Sunday=0.
func (d Date) Weekday() time.Weekday {
	return d.utc().Weekday()
}

// AddDays returns d shifted by n days (n may be negative).
func (d Date) AddDays(n int) Date {
	return DateOf(d.utc().AddDate(0, 0, n))
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	return d.Compare(other) < 0
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return d.Compare(other) > 0
}

// Compare returns -1, 0 or +1.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return sign(d.Year - other.Year)
	case d.Month != other.Month:
		return sign(int(d.Month) - int(other.Month))
	default:
		return sign(d.Day - other.Day)
	}
}

// Between reports whether lo <= d <= hi.
func (d Date) Between(lo, hi Date) bool {
	return !d.Before(lo) && !d.After(hi)
}

const secondsPerDay = 24 * 60 * 60

// DaysBetween returns the whole number of days from b to a (a - b).
func DaysBetween(a, b Date) int {
	return int((a.utc().Unix() - b.utc().Unix()) / secondsPerDay)
}

// SundayOnOrBefore aligns d to the start of its Sunday-first week.
func SundayOnOrBefore(d Date) Date {
	return d.AddDays(-int(d.Weekday()))
}

// DaysInMonth returns the number of days in the given month.
func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func minDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

func maxDate(a, b Date) Date {
	if a.After(b) {
		return a
	}
	return b
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}
