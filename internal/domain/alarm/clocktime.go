package alarm

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidClockTime is returned when hour or minute is out of range.
var ErrInvalidClockTime = errors.New("clock time out of range")

// ClockTime is a local wall-clock hour:minute pair with no date or zone.
type ClockTime struct {
	// Hour is in 0..23.
	Hour int
	// Minute is in 0..59.
	Minute int
}

// ParseClockTime parses "HH:MM" into a ClockTime. Both fields must be plain
// decimal digits; signs, extra separators and trailing text are rejected.
func ParseClockTime(s string) (ClockTime, error) {
	hh, mm, found := strings.Cut(s, ":")

	hour, hourErr := parseClockField(hh)
	minute, minuteErr := parseClockField(mm)

	if !found || hourErr != nil || minuteErr != nil {
		return ClockTime{}, fmt.Errorf("parse clock time %q: %w", s, ErrInvalidClockTime)
	}

	ct := ClockTime{Hour: hour, Minute: minute}
	if err := ct.Validate(); err != nil {
		return ClockTime{}, fmt.Errorf("parse clock time %q: %w", s, err)
	}

	return ct, nil
}

// parseClockField parses a digits-only clock field.
func parseClockField(s string) (int, error) {
	if s == "" || strings.TrimLeft(s, "0123456789") != "" {
		return 0, ErrInvalidClockTime
	}

	return strconv.Atoi(s)
}

// String renders the time as zero-padded "HH:MM".
func (ct ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", ct.Hour, ct.Minute)
}

// Minutes returns the offset from midnight in minutes.
func (ct ClockTime) Minutes() int {
	return ct.Hour*60 + ct.Minute
}

// Validate checks that hour and minute are within range.
func (ct ClockTime) Validate() error {
	if ct.Hour < 0 || ct.Hour > 23 || ct.Minute < 0 || ct.Minute > 59 {
		return ErrInvalidClockTime
	}

	return nil
}

// OnDay applies the wall-clock fields verbatim to the calendar day of the
// given reference instant, in that instant's location.
func (ct ClockTime) OnDay(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), ct.Hour, ct.Minute, 0, 0, day.Location())
}
