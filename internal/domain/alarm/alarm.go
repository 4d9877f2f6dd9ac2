package alarm

import (
	"errors"
	"fmt"
	"time"
)

// minutesPerDay is the number of wall-clock minutes in one calendar day.
const minutesPerDay = 24 * 60

var (
	// ErrMissingID is returned when an alarm has no identifier.
	ErrMissingID = errors.New("alarm id is required")
	// ErrEndNotAfterStart is returned when the end time, wrapped to the next
	// day if needed, does not land strictly after the start time.
	ErrEndNotAfterStart = errors.New("end time must be after start time")
)

// Alarm is a user-owned alarm definition. The scheduling core treats it as
// read-mostly: the only mutation it ever performs is flipping Enabled off
// when a one-shot alarm completes.
type Alarm struct {
	// ID uniquely and stably identifies the alarm.
	ID string
	// Name is a user-facing label.
	Name string
	// Time is the local wall-clock moment the alarm starts ringing.
	Time ClockTime
	// EndTime is the local wall-clock moment the ringing window closes.
	// It is interpreted as same-day-or-next-day relative to Time.
	EndTime ClockTime
	// Enabled reports whether the alarm participates in scheduling.
	Enabled bool
	// RepeatDays is the set of weekdays the alarm repeats on.
	// An empty set means a one-shot alarm.
	RepeatDays Weekdays
	// Puzzle is the dismissal challenge kind.
	Puzzle PuzzleType
	// SoundID selects the alarm tone.
	SoundID string
	// VibrationEnabled toggles the vibration pulse alongside audio.
	VibrationEnabled bool
	// CreatedAt is when the alarm was created.
	CreatedAt time.Time
	// UpdatedAt is when the alarm was last modified.
	UpdatedAt time.Time
}

// Clone returns a copy of the alarm to avoid leaking internal references.
func (a *Alarm) Clone() *Alarm {
	if a == nil {
		return nil
	}

	cloned := *a

	return &cloned
}

// IsOneShot reports whether the alarm fires once and is then spent.
func (a *Alarm) IsOneShot() bool {
	return a.RepeatDays.IsEmpty()
}

// RingDuration is the length of the ringing window: the wall-clock distance
// from Time to EndTime, wrapping over midnight when EndTime is numerically
// earlier.
func (a *Alarm) RingDuration() time.Duration {
	delta := a.EndTime.Minutes() - a.Time.Minutes()
	if delta <= 0 {
		delta += minutesPerDay
	}

	return time.Duration(delta) * time.Minute
}

// EndFor resolves the absolute end instant for a ringing window that starts
// at the given instant.
func (a *Alarm) EndFor(start time.Time) time.Time {
	return start.Add(a.RingDuration())
}

// WindowEndAt applies EndTime to the calendar day of startedAt, rolling to
// the next day when the raw value would land at or before startedAt. Unlike
// EndFor it anchors on the wall clock, so a late delivery still expires at
// the declared end time.
func (a *Alarm) WindowEndAt(startedAt time.Time) time.Time {
	end := a.EndTime.OnDay(startedAt)
	if !end.After(startedAt) {
		end = end.AddDate(0, 0, 1)
	}

	return end
}

// Validate checks structural invariants of the alarm definition.
func (a *Alarm) Validate() error {
	if a.ID == "" {
		return ErrMissingID
	}

	if err := a.Time.Validate(); err != nil {
		return fmt.Errorf("time: %w", err)
	}

	if err := a.EndTime.Validate(); err != nil {
		return fmt.Errorf("end time: %w", err)
	}

	// Equal start and end would wrap to a full day ahead, which the product
	// treats as an invalid window rather than a 24-hour alarm.
	if a.EndTime.Minutes() == a.Time.Minutes() {
		return ErrEndNotAfterStart
	}

	return nil
}
