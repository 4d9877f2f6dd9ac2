// Package alarm contains core domain types for the alarm business logic.
//
// It defines Alarm (the user-owned definition), ClockTime (a zone-free
// wall-clock hour:minute), Weekdays (a repeat-day set) and PuzzleType
// (the dismissal challenge kind), along with the validation rules the
// scheduling core relies on.
package alarm
