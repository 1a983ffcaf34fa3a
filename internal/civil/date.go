// Package civil models calendar dates pinned to Indian Standard Time.
//
// A Date carries no time-of-day and no zone. Instants are converted into IST
// exactly once (FromTime); after that all arithmetic happens on a UTC-midnight
// representation, which has no daylight-saving transitions, so adding N days
// is exact on any host.
package civil

import (
	"errors"
	"fmt"
	"time"
)

// ZoneName is the IANA name written into exported calendar data.
const ZoneName = "Asia/Kolkata"

// IST is the fixed UTC+5:30 civil timezone. It does not depend on the host's
// tzdata or local zone setting.
var IST = time.FixedZone("IST", 5*60*60+30*60)

// Layout is the wire format for dates in query strings, YAML and JSON.
const Layout = "2006-01-02"

// ErrInvalidDate wraps every Parse failure.
var ErrInvalidDate = errors.New("civil: invalid date")

// Date is a calendar date in IST. The zero value is not a valid date.
type Date struct {
	year  int
	month time.Month
	day   int
}

// New returns the date for y-m-d, normalizing overflow the way time.Date does
// (e.g. 2026-02-30 becomes 2026-03-02).
func New(year int, month time.Month, day int) Date {
	return fromUTC(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// FromTime returns the IST calendar date of instant t.
func FromTime(t time.Time) Date {
	y, m, d := t.In(IST).Date()
	return Date{year: y, month: m, day: d}
}

// Parse parses a YYYY-MM-DD date. Out-of-range components are rejected
// rather than normalized.
func Parse(s string) (Date, error) {
	t, err := time.Parse(Layout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return fromUTC(t), nil
}

func fromUTC(t time.Time) Date {
	y, m, d := t.Date()
	return Date{year: y, month: m, day: d}
}

// Year returns the year of d.
func (d Date) Year() int { return d.year }

// Month returns the month of d.
func (d Date) Month() time.Month { return d.month }

// Day returns the day of the month of d.
func (d Date) Day() int { return d.day }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d == Date{} }

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday { return d.utc().Weekday() }

// utc is the timezone-naive representation used for arithmetic.
func (d Date) utc() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

// Days returns the number of days since 1970-01-01.
func (d Date) Days() int {
	return int(d.utc().Unix() / 86400)
}

// AddDays returns d shifted by n days (n may be negative).
func (d Date) AddDays(n int) Date {
	return fromUTC(time.Date(d.year, d.month, d.day+n, 0, 0, 0, 0, time.UTC))
}

// Sub returns the number of days from o to d.
func (d Date) Sub(o Date) int {
	return d.Days() - o.Days()
}

// Before reports whether d is earlier than o.
func (d Date) Before(o Date) bool { return d.Days() < o.Days() }

// After reports whether d is later than o.
func (d Date) After(o Date) bool { return d.Days() > o.Days() }

// Compare returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch a, b := d.Days(), o.Days(); {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// FirstOfMonth returns the first day of d's month.
func (d Date) FirstOfMonth() Date {
	return Date{year: d.year, month: d.month, day: 1}
}

// At returns the IST instant at hour:minute on d.
func (d Date) At(hour, minute int) time.Time {
	return time.Date(d.year, d.month, d.day, hour, minute, 0, 0, IST)
}

// Format formats d with a time layout (e.g. "Monday, 2 January 2006").
func (d Date) Format(layout string) string {
	return d.utc().Format(layout)
}

func (d Date) String() string {
	return d.Format(Layout)
}

// MarshalText encodes d as YYYY-MM-DD.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a YYYY-MM-DD date.
func (d *Date) UnmarshalText(b []byte) error {
	p, err := Parse(string(b))
	if err != nil {
		return err
	}
	*d = p
	return nil
}
