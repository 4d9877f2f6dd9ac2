package alarm

import (
	"sort"
	"time"
)

// Weekdays is a set of weekdays stored as a bitmask over time.Weekday
// (Sunday = bit 0). The zero value is the empty set.
type Weekdays uint8

// NewWeekdays builds a set from the given days.
func NewWeekdays(days ...time.Weekday) Weekdays {
	var w Weekdays
	for _, d := range days {
		w = w.Add(d)
	}

	return w
}

// Add returns the set with the given day included.
func (w Weekdays) Add(d time.Weekday) Weekdays {
	return w | 1<<uint(d)
}

// Has reports whether the given day is in the set.
func (w Weekdays) Has(d time.Weekday) bool {
	return w&(1<<uint(d)) != 0
}

// IsEmpty reports whether no day is selected.
func (w Weekdays) IsEmpty() bool {
	return w == 0
}

// Slice returns the selected days in Sunday-first order.
func (w Weekdays) Slice() []time.Weekday {
	if w.IsEmpty() {
		return nil
	}

	days := make([]time.Weekday, 0, 7)

	for d := time.Sunday; d <= time.Saturday; d++ {
		if w.Has(d) {
			days = append(days, d)
		}
	}

	return days
}

// Ints returns the selected days as 0..6 integers, for serialization.
func (w Weekdays) Ints() []int {
	days := w.Slice()
	if days == nil {
		return nil
	}

	out := make([]int, 0, len(days))
	for _, d := range days {
		out = append(out, int(d))
	}

	sort.Ints(out)

	return out
}

// WeekdaysFromInts builds a set from 0..6 integers, ignoring out-of-range values.
func WeekdaysFromInts(days []int) Weekdays {
	var w Weekdays

	for _, d := range days {
		if d >= 0 && d <= 6 {
			w = w.Add(time.Weekday(d))
		}
	}

	return w
}
