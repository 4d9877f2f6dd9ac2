package platform

import (
	"context"
	"errors"
	"time"
)

// OccurrenceKind distinguishes the start of a ringing window from its end.
type OccurrenceKind int

const (
	// KindMain marks the instant an alarm starts ringing.
	KindMain OccurrenceKind = iota
	// KindEnd marks the instant the ringing window closes.
	KindEnd
)

// String returns a short label for logging.
func (k OccurrenceKind) String() string {
	if k == KindEnd {
		return "END"
	}

	return "MAIN"
}

// Payload is delivered back to the registered callback when a timer fires.
type Payload struct {
	// AlarmID identifies the alarm the timer belongs to.
	AlarmID string
	// Kind tells whether this is a MAIN or END occurrence.
	Kind OccurrenceKind
	// FireAt is the instant the timer was scheduled for.
	FireAt time.Time
}

// Handle is an opaque reference to one pending timer.
type Handle string

// ErrPastInstant is returned when a submission's fire time has already elapsed.
var ErrPastInstant = errors.New("fire time already elapsed")

// Timer is the platform timer/notification primitive. Submission and
// cancellation are non-blocking requests; delivery is asynchronous and
// exactly-once is NOT guaranteed, so consumers must tolerate duplicates.
type Timer interface {
	// Submit schedules one delivery of the payload at or after fireAt.
	Submit(ctx context.Context, fireAt time.Time, payload Payload) (Handle, error)
	// Cancel drops a pending timer. Unknown or already-fired handles are a no-op.
	Cancel(handle Handle)
}

// Alerter is the best-effort fallback delivery primitive used when the
// primary interactive surface fails to confirm visibility in time.
type Alerter interface {
	Alert(ctx context.Context, alarmID, message string)
}
