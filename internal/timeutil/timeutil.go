// Package timeutil holds the pure date/time helpers shared by the
// scheduling engine: parsing the wire formats, interval arithmetic, and the
// day-of-week convention (0=Sunday .. 6=Saturday). Stored day_of_week values
// use the same convention; nothing else in the codebase computes it.
package timeutil

import (
	"errors"
	"regexp"
	"time"
)

var ErrInvalidTimeFormat = errors.New("invalid date or time format")

var (
	dateRe  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	clockRe = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// ToInstant combines a YYYY-MM-DD date and a HH:MM wall-clock time into a
// single UTC instant at minute precision.
func ToInstant(date, clock string) (time.Time, error) {
	if !dateRe.MatchString(date) || !clockRe.MatchString(clock) {
		return time.Time{}, ErrInvalidTimeFormat
	}
	t, err := time.Parse(DateLayout+" "+ClockLayout, date+" "+normalizeClock(clock))
	if err != nil {
		return time.Time{}, ErrInvalidTimeFormat
	}
	return t, nil
}

// IntervalsOverlap reports whether two half-open intervals [aStart, aEnd)
// and [bStart, bEnd) intersect. Touching intervals do not overlap.
func IntervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func AddMinutes(t time.Time, minutes int) time.Time {
	return t.Add(time.Duration(minutes) * time.Minute)
}

// DayOfWeek returns the day of week for a YYYY-MM-DD date, 0=Sunday.
func DayOfWeek(date string) (int, error) {
	if !dateRe.MatchString(date) {
		return 0, ErrInvalidTimeFormat
	}
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return 0, ErrInvalidTimeFormat
	}
	return int(d.Weekday()), nil
}

// ParseClock converts a HH:MM string into minutes since midnight so that
// wall-clock times can be compared without attaching a date.
func ParseClock(clock string) (int, error) {
	if !clockRe.MatchString(clock) {
		return 0, ErrInvalidTimeFormat
	}
	t, err := time.Parse(ClockLayout, normalizeClock(clock))
	if err != nil {
		return 0, ErrInvalidTimeFormat
	}
	return t.Hour()*60 + t.Minute(), nil
}

// normalizeClock pads "9:30" to "09:30"; the wire format tolerates a
// single-digit hour.
func normalizeClock(clock string) string {
	if len(clock) == 4 {
		return "0" + clock
	}
	return clock
}

func ValidDate(date string) bool {
	if !dateRe.MatchString(date) {
		return false
	}
	_, err := time.Parse(DateLayout, date)
	return err == nil
}

func ValidClock(clock string) bool {
	return clockRe.MatchString(clock)
}
