package recovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/repository/alarmstore"
	"github.com/oshokin/alarm-clock/internal/repository/snapshot"
)

// SessionManager is the slice of the session manager recovery drives.
type SessionManager interface {
	Recover(alarmID string, startedAt, endAt time.Time)
}

// Options wires recovery to its collaborators. Now defaults to time.Now.
type Options struct {
	Store     alarmstore.Store
	Snapshots snapshot.Repository
	Sessions  SessionManager
	// Grace is how far past a session's end time a persisted snapshot is
	// still re-entered instead of being written off as silently expired.
	Grace time.Duration
	Now   func() time.Time
}

// Run re-enters a ringing session that was live when the previous process
// stopped. It prefers the persisted snapshot; when none applies it scans the
// enabled alarms for a window that is open right now. Meant to run once at
// startup, after the store is open and before the schedule is reconciled.
func Run(ctx context.Context, opts Options) error {
	ctx = logger.WithName(ctx, "recovery")

	if opts.Now == nil {
		opts.Now = time.Now
	}

	if recovered, err := fromSnapshot(ctx, opts); err != nil {
		return err
	} else if recovered {
		return nil
	}

	return fromWindowScan(ctx, opts)
}

// fromSnapshot re-enters the session recorded on disk, if it still applies.
func fromSnapshot(ctx context.Context, opts Options) (bool, error) {
	if opts.Snapshots == nil {
		return false, nil
	}

	saved, err := opts.Snapshots.Load(ctx)

	switch {
	case errors.Is(err, snapshot.ErrNotFound):
		return false, nil
	case errors.Is(err, snapshot.ErrIncompatible):
		// A snapshot written by a different schema is ignored, not guessed at.
		logger.WarnKV(ctx, "Incompatible session snapshot ignored", "error", err)
		discard(ctx, opts)

		return false, nil
	case err != nil:
		logger.WarnKV(ctx, "Session snapshot load failed", "error", err)

		return false, nil
	}

	now := opts.Now()
	if !now.Before(saved.EndAt.Add(opts.Grace)) {
		logger.InfoKV(ctx, "Persisted session expired while down",
			"alarm_id", saved.AlarmID, "end_at", saved.EndAt)
		discard(ctx, opts)

		return false, nil
	}

	a, err := opts.Store.GetByID(ctx, saved.AlarmID)
	if err != nil {
		if errors.Is(err, alarmstore.ErrNotFound) {
			logger.InfoKV(ctx, "Persisted session alarm no longer exists",
				"alarm_id", saved.AlarmID)
			discard(ctx, opts)

			return false, nil
		}

		return false, fmt.Errorf("load alarm %s for recovery: %w", saved.AlarmID, err)
	}

	if !a.Enabled {
		logger.InfoKV(ctx, "Persisted session alarm was disabled", "alarm_id", a.ID)
		discard(ctx, opts)

		return false, nil
	}

	logger.InfoKV(ctx, "Re-entering persisted session",
		"alarm_id", a.ID, "started_at", saved.StartedAt, "end_at", saved.EndAt)
	opts.Sessions.Recover(a.ID, saved.StartedAt, saved.EndAt)

	return true, nil
}

// openWindow is one currently-open ringing window found by the scan.
type openWindow struct {
	alarmID   string
	startedAt time.Time
	endAt     time.Time
}

// fromWindowScan finds an alarm whose ringing window contains the current
// instant and re-enters it. With no snapshot this is the only evidence that
// an alarm should have been ringing while the process was down.
func fromWindowScan(ctx context.Context, opts Options) error {
	alarms, err := opts.Store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load alarms for recovery: %w", err)
	}

	now := opts.Now()

	var open []openWindow

	for _, a := range alarms {
		if !a.Enabled {
			continue
		}

		if err = a.Validate(); err != nil {
			logger.WarnKV(ctx, "Skipping malformed alarm during recovery",
				"alarm_id", a.ID, "error", err)

			continue
		}

		if w, ok := currentWindow(a, now); ok {
			open = append(open, w)
		}
	}

	if len(open) == 0 {
		return nil
	}

	sort.Slice(open, func(i, j int) bool {
		return open[i].startedAt.Before(open[j].startedAt)
	})

	w := open[0]
	logger.InfoKV(ctx, "Re-entering open ringing window",
		"alarm_id", w.alarmID, "started_at", w.startedAt, "end_at", w.endAt)
	opts.Sessions.Recover(w.alarmID, w.startedAt, w.endAt)

	return nil
}

// currentWindow reports whether the alarm's ringing window is open at the
// given instant. Both today's and yesterday's start are considered so a
// window that wraps midnight is still found.
func currentWindow(a *domain.Alarm, now time.Time) (openWindow, bool) {
	for _, day := range []time.Time{now, now.AddDate(0, 0, -1)} {
		start := a.Time.OnDay(day)
		if start.After(now) {
			continue
		}

		if !a.IsOneShot() && !a.RepeatDays.Has(start.Weekday()) {
			continue
		}

		end := a.WindowEndAt(start)
		if now.Before(end) {
			return openWindow{alarmID: a.ID, startedAt: start, endAt: end}, true
		}
	}

	return openWindow{}, false
}

// discard clears a snapshot that will not be re-entered.
func discard(ctx context.Context, opts Options) {
	if err := opts.Snapshots.Clear(ctx); err != nil {
		logger.WarnKV(ctx, "Clearing stale session snapshot failed", "error", err)
	}
}
