package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Date is a pure calendar date. It has no time-of-day and no timezone;
// equality and ordering are by (year, month, day) only.
type Date struct {
	Year  int
	Month int
	Day   int
}

// ParseDate parses a strict "YYYY-MM-DD" date string.
//
// It rejects strings that do not split into exactly three numeric parts,
// months outside 1-12, days outside 1-31, and combinations that do not
// round-trip through the calendar (e.g. "2024-02-30", which a naive
// constructor would silently roll over into March).
func ParseDate(s string) (Date, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("invalid date %q: expected 3 parts", s)
	}

	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return Date{}, fmt.Errorf("invalid year in %q: %w", s, err)
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return Date{}, fmt.Errorf("invalid month in %q: %w", s, err)
	}
	day, err := strconv.Atoi(parts[2])
	if err != nil {
		return Date{}, fmt.Errorf("invalid day in %q: %w", s, err)
	}

	if month < 1 || month > 12 {
		return Date{}, fmt.Errorf("invalid date %q: month out of range", s)
	}
	if day < 1 || day > 31 {
		return Date{}, fmt.Errorf("invalid date %q: day out of range", s)
	}

	// Round-trip check: time.Date normalizes out-of-range days instead of
	// failing, so compare the constructed components with the input.
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return Date{}, fmt.Errorf("invalid date %q: no such calendar day", s)
	}

	return Date{Year: year, Month: month, Day: day}, nil
}

// MustParseDate is a ParseDate that panics on error, for literals in tests
// and wiring code.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func (d Date) time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// String formats the date as "YYYY-MM-DD".
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool {
	return other.Before(d)
}

// Equal reports whether d and other are the same calendar day.
func (d Date) Equal(other Date) bool {
	return d == other
}

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	t := d.time().AddDate(0, 0, n)
	return Date{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}
}

// DaysUntil returns the number of days from d to other. Negative if other
// is earlier than d.
func (d Date) DaysUntil(other Date) int {
	return int(other.time().Sub(d.time()).Hours() / 24)
}

// Weekday returns the day of the week (Sunday = 0).
func (d Date) Weekday() int {
	return int(d.time().Weekday())
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
