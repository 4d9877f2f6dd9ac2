package platform

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oshokin/alarm-clock/internal/logger"
)

// LocalTimer is an in-process Timer built on time.AfterFunc. It stands in
// for the host platform's notification service: deliveries arrive on their
// own goroutines and the pending set survives only as long as the process.
type LocalTimer struct {
	// mu protects the pending map and the callback slot.
	mu sync.Mutex
	// pending maps handle to its live runtime timer.
	pending map[Handle]*time.Timer
	// notify receives fired payloads; registered once via Notify.
	notify func(Payload)
	// now is the injected time source.
	now func() time.Time
	// closed rejects submissions after Shutdown.
	closed bool
}

// NewLocalTimer creates an empty timer service. The now function may be nil,
// in which case time.Now is used.
func NewLocalTimer(now func() time.Time) *LocalTimer {
	if now == nil {
		now = time.Now
	}

	return &LocalTimer{
		pending: make(map[Handle]*time.Timer),
		now:     now,
	}
}

// Notify registers the delivery callback. Must be called before Submit.
func (t *LocalTimer) Notify(fn func(Payload)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.notify = fn
}

// Submit schedules one delivery of the payload at fireAt.
func (t *LocalTimer) Submit(ctx context.Context, fireAt time.Time, payload Payload) (Handle, error) {
	delay := fireAt.Sub(t.now())
	if delay <= 0 {
		return "", fmt.Errorf("submit %s for alarm %s: %w", payload.Kind, payload.AlarmID, ErrPastInstant)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return "", fmt.Errorf("submit %s for alarm %s: timer service is shut down", payload.Kind, payload.AlarmID)
	}

	handle := Handle(uuid.NewString())

	t.pending[handle] = time.AfterFunc(delay, func() {
		t.fire(handle, payload)
	})

	logger.DebugKV(ctx, "Timer submitted",
		"alarm_id", payload.AlarmID, "kind", payload.Kind.String(), "fire_at", fireAt)

	return handle, nil
}

// Cancel drops a pending timer. Unknown handles are ignored.
func (t *LocalTimer) Cancel(handle Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if timer, ok := t.pending[handle]; ok {
		timer.Stop()
		delete(t.pending, handle)
	}
}

// Shutdown cancels every outstanding timer and rejects further submissions.
func (t *LocalTimer) Shutdown() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for handle, timer := range t.pending {
		timer.Stop()
		delete(t.pending, handle)
	}

	t.closed = true
}

// PendingCount reports the number of timers not yet fired or cancelled.
func (t *LocalTimer) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.pending)
}

// fire runs on the AfterFunc goroutine: it removes the handle and hands the
// payload to the callback without holding the lock.
func (t *LocalTimer) fire(handle Handle, payload Payload) {
	t.mu.Lock()
	delete(t.pending, handle)
	notify := t.notify
	t.mu.Unlock()

	if notify != nil {
		notify(payload)
	}
}

// LogAlerter is the default Alerter: a warn-level log line standing in for
// a platform-level alert channel.
type LogAlerter struct{}

// Alert emits the fallback message.
func (LogAlerter) Alert(ctx context.Context, alarmID, message string) {
	logger.WarnKV(ctx, "Fallback alert", "alarm_id", alarmID, "message", message)
}
