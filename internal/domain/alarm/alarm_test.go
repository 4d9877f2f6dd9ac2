package alarm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestAlarmValidate covers identifier, clock-field and window invariants.
func TestAlarmValidate(t *testing.T) {
	t.Parallel()

	a := &Alarm{
		Time:    ClockTime{Hour: 7},
		EndTime: ClockTime{Hour: 7, Minute: 30},
	}

	// Missing id.
	require.ErrorIs(t, a.Validate(), ErrMissingID)

	a.ID = "wake-up"
	require.NoError(t, a.Validate())

	// Out-of-range clock field.
	a.Time = ClockTime{Hour: 24}
	require.ErrorIs(t, a.Validate(), ErrInvalidClockTime)

	// Equal start and end.
	a.Time = ClockTime{Hour: 7, Minute: 30}
	require.ErrorIs(t, a.Validate(), ErrEndNotAfterStart)

	// End numerically before start is legal: it wraps to the next day.
	a.Time = ClockTime{Hour: 23}
	a.EndTime = ClockTime{Hour: 0, Minute: 15}
	require.NoError(t, a.Validate())
}

// TestRingDuration checks same-day and overnight window lengths.
func TestRingDuration(t *testing.T) {
	t.Parallel()

	a := &Alarm{
		Time:    ClockTime{Hour: 7},
		EndTime: ClockTime{Hour: 7, Minute: 30},
	}
	require.Equal(t, 30*time.Minute, a.RingDuration())

	// Overnight wrap: 23:00 -> 00:15 is 75 minutes.
	a.Time = ClockTime{Hour: 23}
	a.EndTime = ClockTime{Minute: 15}
	require.Equal(t, 75*time.Minute, a.RingDuration())

	start := time.Date(2025, time.March, 3, 23, 0, 0, 0, time.UTC)
	require.Equal(t, start.Add(75*time.Minute), a.EndFor(start))
}

// TestWindowEndAt anchors the window end on the wall clock of the start day,
// so a late delivery still expires on time.
func TestWindowEndAt(t *testing.T) {
	t.Parallel()

	a := &Alarm{
		Time:    ClockTime{Hour: 7},
		EndTime: ClockTime{Hour: 7, Minute: 30},
	}

	late := time.Date(2025, time.March, 3, 7, 5, 0, 0, time.Local)
	require.Equal(t,
		time.Date(2025, time.March, 3, 7, 30, 0, 0, time.Local),
		a.WindowEndAt(late))

	// Overnight window: the end rolls to the next day.
	a.Time = ClockTime{Hour: 23}
	a.EndTime = ClockTime{Minute: 15}
	start := time.Date(2025, time.March, 3, 23, 0, 0, 0, time.Local)
	require.Equal(t,
		time.Date(2025, time.March, 4, 0, 15, 0, 0, time.Local),
		a.WindowEndAt(start))
}

// TestParseClockTime checks parsing and range validation.
func TestParseClockTime(t *testing.T) {
	t.Parallel()

	ct, err := ParseClockTime("07:05")
	require.NoError(t, err)
	require.Equal(t, ClockTime{Hour: 7, Minute: 5}, ct)
	require.Equal(t, "07:05", ct.String())

	_, err = ParseClockTime("25:00")
	require.ErrorIs(t, err, ErrInvalidClockTime)

	_, err = ParseClockTime("oops")
	require.Error(t, err)

	// Leftover text and signed fields are rejected, not silently trimmed.
	for _, malformed := range []string{"07:30xyz", "x07:30", "+07:30", "07:-5", "07:", ":30", "07:30:00"} {
		_, err = ParseClockTime(malformed)
		require.ErrorIs(t, err, ErrInvalidClockTime, malformed)
	}

	// Unpadded digits still parse.
	ct, err = ParseClockTime("7:5")
	require.NoError(t, err)
	require.Equal(t, ClockTime{Hour: 7, Minute: 5}, ct)
}

// TestWeekdays exercises set membership and serialization round-trip.
func TestWeekdays(t *testing.T) {
	t.Parallel()

	var empty Weekdays
	require.True(t, empty.IsEmpty())
	require.Nil(t, empty.Slice())

	w := NewWeekdays(time.Monday, time.Friday)
	require.False(t, w.IsEmpty())
	require.True(t, w.Has(time.Monday))
	require.False(t, w.Has(time.Tuesday))
	require.Equal(t, []time.Weekday{time.Monday, time.Friday}, w.Slice())

	require.Equal(t, w, WeekdaysFromInts(w.Ints()))

	// Out-of-range values are ignored.
	require.Equal(t, NewWeekdays(time.Sunday), WeekdaysFromInts([]int{0, 7, -1}))
}

// TestAlarmClone verifies a deep-enough copy and nil safety.
func TestAlarmClone(t *testing.T) {
	t.Parallel()

	require.Nil(t, (*Alarm)(nil).Clone())

	a := &Alarm{
		ID:         "wake-up",
		RepeatDays: NewWeekdays(time.Monday),
	}

	b := a.Clone()
	require.Equal(t, a, b)
	require.NotSame(t, a, b)
}
