// Package schedule turns alarm definitions into concrete future occurrences
// and keeps the platform's pending-timer set consistent with the alarm store.
//
// NextOccurrences is the pure occurrence calculator; Reconciler owns the
// alarm-to-handles index and the schedule/cancel/reschedule operations built
// on top of it.
package schedule
