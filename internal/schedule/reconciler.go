package schedule

import (
	"context"
	"sync"
	"time"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/platform"
	"github.com/oshokin/alarm-clock/internal/repository/alarmstore"
)

// scheduledOccurrence pairs an occurrence with its platform timer handle.
type scheduledOccurrence struct {
	occurrence Occurrence
	handle     platform.Handle
}

// Reconciler owns the mapping from alarms to pending platform timers and
// keeps the platform's pending set consistent with the alarm store. The
// in-memory index is not persisted: ScheduleAll rebuilds it at startup.
type Reconciler struct {
	// timer is the platform timer primitive occurrences are submitted to.
	timer platform.Timer
	// store supplies the full enabled-alarm set for ScheduleAll.
	store alarmstore.Store
	// horizonDays is the rolling scheduling window.
	horizonDays int
	// now is the injected time source.
	now func() time.Time

	// reconcileMu serializes mutating passes end to end. Without it two
	// concurrent reschedules of the same alarm interleave their cancel,
	// submit and record steps, and the loser's handles leak at the platform.
	reconcileMu sync.Mutex
	// mu protects the index. Readers take only mu, so diagnostic reads do
	// not wait behind a pass blocked in timer submission.
	mu sync.Mutex
	// index maps alarm id to its pending occurrences. The whole slice for
	// an alarm is replaced atomically on every reschedule.
	index map[string][]scheduledOccurrence
}

// NewReconciler builds a reconciler over the given timer and store.
// A nil now function defaults to time.Now.
func NewReconciler(timer platform.Timer, store alarmstore.Store, horizonDays int, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}

	return &Reconciler{
		timer:       timer,
		store:       store,
		horizonDays: horizonDays,
		now:         now,
		index:       make(map[string][]scheduledOccurrence),
	}
}

// ScheduleAlarm replaces the alarm's pending occurrence set with a freshly
// computed one. A single submission failure never aborts the siblings: the
// failed occurrence is logged and skipped, to be recovered by the next
// reconciliation pass. Disabled alarms are never scheduled.
func (r *Reconciler) ScheduleAlarm(ctx context.Context, a *domain.Alarm) {
	r.reconcileMu.Lock()
	defer r.reconcileMu.Unlock()

	r.scheduleAlarm(ctx, a)
}

// scheduleAlarm is ScheduleAlarm's body. The caller holds reconcileMu.
func (r *Reconciler) scheduleAlarm(ctx context.Context, a *domain.Alarm) {
	r.cancelAlarm(a.ID)

	if !a.Enabled {
		return
	}

	now := r.now()
	scheduled := r.submitAll(ctx, NextOccurrences(a, now, r.horizonDays), now)

	if len(scheduled) == 0 {
		logger.WarnKV(ctx, "No occurrences scheduled", "alarm_id", a.ID)

		return
	}

	r.mu.Lock()
	r.index[a.ID] = scheduled
	r.mu.Unlock()

	logger.InfoKV(ctx, "Alarm scheduled",
		"alarm_id", a.ID, "occurrences", len(scheduled), "first_at", scheduled[0].occurrence.FireAt)
}

// CancelAlarm cancels every pending occurrence of the alarm and removes it
// from the index. It is idempotent: unknown ids are a no-op.
func (r *Reconciler) CancelAlarm(_ context.Context, id string) {
	r.reconcileMu.Lock()
	defer r.reconcileMu.Unlock()

	r.cancelAlarm(id)
}

// cancelAlarm is CancelAlarm's body. The caller holds reconcileMu.
func (r *Reconciler) cancelAlarm(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.index[id] {
		r.timer.Cancel(s.handle)
	}

	delete(r.index, id)
}

// RescheduleAlarm cancels and, iff the alarm is enabled, schedules it again.
func (r *Reconciler) RescheduleAlarm(ctx context.Context, a *domain.Alarm) {
	r.ScheduleAlarm(ctx, a)
}

// ScheduleAll drops every timer the reconciler owns and re-derives the full
// schedule from the store. This is the recovery/consistency primitive run at
// process start and on demand. Malformed alarms are skipped, others proceed.
func (r *Reconciler) ScheduleAll(ctx context.Context) error {
	r.reconcileMu.Lock()
	defer r.reconcileMu.Unlock()

	r.mu.Lock()
	for id, occurrences := range r.index {
		for _, s := range occurrences {
			r.timer.Cancel(s.handle)
		}

		delete(r.index, id)
	}
	r.mu.Unlock()

	alarms, err := r.store.GetAll(ctx)
	if err != nil {
		return err
	}

	for _, a := range alarms {
		if !a.Enabled {
			continue
		}

		if err := a.Validate(); err != nil {
			logger.ErrorKV(ctx, "Skipping malformed alarm", "alarm_id", a.ID, "error", err)

			continue
		}

		r.scheduleAlarm(ctx, a)
	}

	return nil
}

// ScheduleSnooze submits exactly one extra one-shot MAIN/END pair for the
// alarm at fireAt, leaving its previously scheduled occurrences untouched.
func (r *Reconciler) ScheduleSnooze(ctx context.Context, a *domain.Alarm, fireAt time.Time) {
	r.reconcileMu.Lock()
	defer r.reconcileMu.Unlock()

	extra := []Occurrence{
		{
			AlarmID: a.ID,
			Kind:    platform.KindMain,
			FireAt:  fireAt,
		},
		{
			AlarmID: a.ID,
			Kind:    platform.KindEnd,
			FireAt:  fireAt.Add(a.RingDuration()),
		},
	}

	scheduled := r.submitAll(ctx, extra, r.now())
	if len(scheduled) == 0 {
		return
	}

	r.mu.Lock()
	r.index[a.ID] = append(r.index[a.ID], scheduled...)
	r.mu.Unlock()

	logger.InfoKV(ctx, "Snooze scheduled", "alarm_id", a.ID, "fire_at", fireAt)
}

// NextFireTime returns the earliest still-pending MAIN occurrence across all
// alarms. The second return value is false when nothing is pending.
func (r *Reconciler) NextFireTime() (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		earliest time.Time
		found    bool
	)

	for _, occurrences := range r.index {
		for _, s := range occurrences {
			if s.occurrence.Kind != platform.KindMain {
				continue
			}

			if !found || s.occurrence.FireAt.Before(earliest) {
				earliest = s.occurrence.FireAt
				found = true
			}
		}
	}

	return earliest, found
}

// PendingOccurrences returns a sorted read-only snapshot of every pending
// occurrence, for diagnostic surfaces.
func (r *Reconciler) PendingOccurrences() []Occurrence {
	r.mu.Lock()
	defer r.mu.Unlock()

	var occurrences []Occurrence

	for _, scheduled := range r.index {
		for _, s := range scheduled {
			occurrences = append(occurrences, s.occurrence)
		}
	}

	sortOccurrences(occurrences)

	return occurrences
}

// submitAll submits each occurrence, skipping failures and instants that
// elapsed between computation and submission.
func (r *Reconciler) submitAll(ctx context.Context, occurrences []Occurrence, now time.Time) []scheduledOccurrence {
	scheduled := make([]scheduledOccurrence, 0, len(occurrences))

	for _, occ := range occurrences {
		if !occ.FireAt.After(now) {
			logger.WarnKV(ctx, "Dropping elapsed occurrence",
				"alarm_id", occ.AlarmID, "kind", occ.Kind.String(), "fire_at", occ.FireAt)

			continue
		}

		handle, err := r.timer.Submit(ctx, occ.FireAt, platform.Payload{
			AlarmID: occ.AlarmID,
			Kind:    occ.Kind,
			FireAt:  occ.FireAt,
		})
		if err != nil {
			logger.ErrorKV(ctx, "Occurrence submission failed",
				"alarm_id", occ.AlarmID, "kind", occ.Kind.String(), "fire_at", occ.FireAt, "error", err)

			continue
		}

		scheduled = append(scheduled, scheduledOccurrence{
			occurrence: occ,
			handle:     handle,
		})
	}

	return scheduled
}
