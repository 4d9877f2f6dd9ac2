// Package session implements the trigger-session state machine: the
// lifecycle of "an alarm is currently ringing" from delivery to dismissal,
// snooze or auto-expiry.
//
// The Manager serializes every external stimulus onto one ordered event
// queue consumed by a single run loop, de-duplicates platform deliveries
// with a per-alarm cooldown, backstops an unconfirmed surface with a
// fallback alert, and guarantees the session ends at the alarm's declared
// end time via an auto-expire watchdog armed before any fallible step.
package session
