// Package period implements billing-period labels and the month arithmetic
// behind fee rollover.
//
// A period is identified by a "YYYY-MM" label. Labels sort lexically in
// chronological order, which the stores rely on when listing fees.
package period

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidFormat is returned when a period label is not a valid "YYYY-MM"
// string naming a real month.
var ErrInvalidFormat = errors.New("period: invalid format, want YYYY-MM")

// Label identifies a billing period as "YYYY-MM".
type Label string

// layout is the time.Parse layout for period labels.
const layout = "2006-01"

// Parse validates s as a period label.
func Parse(s string) (Label, error) {
	t, err := time.Parse(layout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	// time.Parse normalizes out-of-range components ("2025-13" would roll
	// over); reject anything that does not round-trip.
	if t.Format(layout) != s {
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}

	return Label(s), nil
}

// MustParse is like Parse but panics on error. Use for hardcoded labels.
func MustParse(s string) Label {
	l, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return l
}

// FromTime returns the label of the period containing t, in UTC.
func FromTime(t time.Time) Label {
	return Label(t.UTC().Format(layout))
}

// Current returns the label of the period containing now, in UTC.
func Current(now time.Time) Label {
	return FromTime(now)
}

// String returns the label as a string.
func (l Label) String() string { return string(l) }

// Year returns the label's year component. Zero for an invalid label.
func (l Label) Year() int {
	t, err := time.Parse(layout, string(l))
	if err != nil {
		return 0
	}
	return t.Year()
}

// Month returns the label's month component. Zero for an invalid label.
func (l Label) Month() time.Month {
	t, err := time.Parse(layout, string(l))
	if err != nil {
		return 0
	}
	return t.Month()
}

// Start returns the first instant of the period in UTC.
func (l Label) Start() (time.Time, error) {
	t, err := time.Parse(layout, string(l))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidFormat, l)
	}
	return t.UTC(), nil
}

// Next advances one period past label and derives the next due date from
// refDue. The successor of December rolls the year. The due date keeps
// refDue's day-of-month, clamped to the last day of the target month when
// the target month is shorter (a due day of 31 becomes 28 or 29 in
// February), and keeps refDue's time-of-day. All results are UTC.
func Next(label Label, refDue time.Time) (Label, time.Time, error) {
	start, err := label.Start()
	if err != nil {
		return "", time.Time{}, err
	}

	year, month := start.Year(), start.Month()
	if month == time.December {
		year++
		month = time.January
	} else {
		month++
	}

	next := Label(fmt.Sprintf("%04d-%02d", year, int(month)))

	ref := refDue.UTC()
	day := ref.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}

	due := time.Date(year, month, day,
		ref.Hour(), ref.Minute(), ref.Second(), ref.Nanosecond(), time.UTC)

	return next, due, nil
}

// daysIn returns the number of days in the given month.
func daysIn(year int, month time.Month) int {
	// Day 0 of the next month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
