package recovery

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/repository/alarmstore"
	"github.com/oshokin/alarm-clock/internal/repository/snapshot"
	"github.com/oshokin/alarm-clock/internal/testfixtures"
)

// recorder captures Recover calls.
type recorder struct {
	calls []recovered
}

type recovered struct {
	alarmID   string
	startedAt time.Time
	endAt     time.Time
}

func (r *recorder) Recover(alarmID string, startedAt, endAt time.Time) {
	r.calls = append(r.calls, recovered{alarmID: alarmID, startedAt: startedAt, endAt: endAt})
}

// listStore is a read-only alarm store backed by a slice.
type listStore struct {
	alarms []*domain.Alarm
}

func (s *listStore) GetAll(context.Context) ([]*domain.Alarm, error) {
	out := make([]*domain.Alarm, 0, len(s.alarms))
	for _, a := range s.alarms {
		out = append(out, a.Clone())
	}

	return out, nil
}

func (s *listStore) GetByID(_ context.Context, id string) (*domain.Alarm, error) {
	for _, a := range s.alarms {
		if a.ID == id {
			return a.Clone(), nil
		}
	}

	return nil, alarmstore.ErrNotFound
}

func (s *listStore) Create(_ context.Context, a *domain.Alarm) (*domain.Alarm, error) {
	return a, nil
}

func (s *listStore) Update(_ context.Context, a *domain.Alarm) (*domain.Alarm, error) {
	return a, nil
}

func (s *listStore) Delete(context.Context, string) error { return nil }

func (s *listStore) SetEnabled(context.Context, string, bool) error { return nil }

const testGrace = 2 * time.Minute

func repeatingAlarm(id string, start, end domain.ClockTime, days ...time.Weekday) *domain.Alarm {
	return &domain.Alarm{
		ID:         id,
		Name:       id,
		Time:       start,
		EndTime:    end,
		Enabled:    true,
		RepeatDays: domain.NewWeekdays(days...),
	}
}

func runRecovery(
	t *testing.T,
	clock *testfixtures.Clock,
	store *listStore,
	snaps snapshot.Repository,
) *recorder {
	t.Helper()

	sessions := new(recorder)
	err := Run(context.Background(), Options{
		Store:     store,
		Snapshots: snaps,
		Sessions:  sessions,
		Grace:     testGrace,
		Now:       clock.NowFunc(),
	})
	require.NoError(t, err)

	return sessions
}

func TestSnapshotRecovered(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	snaps := snapshot.NewFileRepository(filepath.Join(t.TempDir(), "session.json"))

	started := clock.Now().Add(-10 * time.Minute)
	endAt := clock.Now().Add(20 * time.Minute)

	require.NoError(t, snaps.Save(context.Background(), &snapshot.ActiveSession{
		AlarmID:   "a",
		StartedAt: started,
		EndAt:     endAt,
	}))

	store := &listStore{alarms: []*domain.Alarm{
		repeatingAlarm("a", domain.ClockTime{Hour: 7, Minute: 50},
			domain.ClockTime{Hour: 8, Minute: 20}, time.Sunday),
	}}

	sessions := runRecovery(t, clock, store, snaps)

	require.Len(t, sessions.calls, 1)
	require.Equal(t, recovered{alarmID: "a", startedAt: started, endAt: endAt}, sessions.calls[0])
}

func TestSnapshotExpiredBeyondGraceIsDiscarded(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	snaps := snapshot.NewFileRepository(filepath.Join(t.TempDir(), "session.json"))

	require.NoError(t, snaps.Save(context.Background(), &snapshot.ActiveSession{
		AlarmID:   "a",
		StartedAt: clock.Now().Add(-2 * time.Hour),
		EndAt:     clock.Now().Add(-time.Hour),
	}))

	store := &listStore{}

	sessions := runRecovery(t, clock, store, snaps)
	require.Empty(t, sessions.calls)

	// The stale file is removed so it is not re-evaluated next start.
	_, err := snaps.Load(context.Background())
	require.ErrorIs(t, err, snapshot.ErrNotFound)
}

func TestSnapshotWithinGraceStillRecovered(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	snaps := snapshot.NewFileRepository(filepath.Join(t.TempDir(), "session.json"))

	require.NoError(t, snaps.Save(context.Background(), &snapshot.ActiveSession{
		AlarmID:   "a",
		StartedAt: clock.Now().Add(-31 * time.Minute),
		EndAt:     clock.Now().Add(-time.Minute),
	}))

	store := &listStore{alarms: []*domain.Alarm{
		repeatingAlarm("a", domain.ClockTime{Hour: 7, Minute: 29},
			domain.ClockTime{Hour: 7, Minute: 59}, time.Sunday),
	}}

	sessions := runRecovery(t, clock, store, snaps)
	require.Len(t, sessions.calls, 1)
}

func TestIncompatibleSnapshotFallsBackToScan(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	path := filepath.Join(t.TempDir(), "session.json")

	require.NoError(t, os.WriteFile(path,
		[]byte(`{"schema_version":99,"alarm_id":"a"}`), 0o600))

	// The scan finds the window the snapshot would have pointed at anyway.
	store := &listStore{alarms: []*domain.Alarm{
		repeatingAlarm("a", domain.ClockTime{Hour: 7, Minute: 45},
			domain.ClockTime{Hour: 8, Minute: 15}, time.Sunday),
	}}

	sessions := runRecovery(t, clock, store, snapshot.NewFileRepository(path))

	require.Len(t, sessions.calls, 1)
	require.Equal(t, "a", sessions.calls[0].alarmID)
	require.Equal(t, clock.Now().Add(-15*time.Minute), sessions.calls[0].startedAt)
	require.Equal(t, clock.Now().Add(15*time.Minute), sessions.calls[0].endAt)
}

func TestSnapshotForDisabledAlarmIsDiscarded(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	snaps := snapshot.NewFileRepository(filepath.Join(t.TempDir(), "session.json"))

	require.NoError(t, snaps.Save(context.Background(), &snapshot.ActiveSession{
		AlarmID:   "off",
		StartedAt: clock.Now().Add(-5 * time.Minute),
		EndAt:     clock.Now().Add(25 * time.Minute),
	}))

	off := repeatingAlarm("off", domain.ClockTime{Hour: 7, Minute: 55},
		domain.ClockTime{Hour: 8, Minute: 25}, time.Sunday)
	off.Enabled = false

	sessions := runRecovery(t, clock, &listStore{alarms: []*domain.Alarm{off}}, snaps)
	require.Empty(t, sessions.calls)

	_, err := snaps.Load(context.Background())
	require.ErrorIs(t, err, snapshot.ErrNotFound)
}

func TestScanFindsOvernightWindowFromYesterday(t *testing.T) {
	t.Parallel()

	// Sunday 00:15, ten minutes before a Saturday 23:30 window closes.
	clock := testfixtures.NewClock(
		time.Date(2025, time.March, 2, 0, 15, 0, 0, time.Local))

	store := &listStore{alarms: []*domain.Alarm{
		repeatingAlarm("night", domain.ClockTime{Hour: 23, Minute: 30},
			domain.ClockTime{Minute: 30}, time.Saturday),
	}}

	sessions := runRecovery(t, clock, store, nil)

	require.Len(t, sessions.calls, 1)
	require.Equal(t, "night", sessions.calls[0].alarmID)
	require.Equal(t,
		time.Date(2025, time.March, 1, 23, 30, 0, 0, time.Local),
		sessions.calls[0].startedAt)
	require.Equal(t,
		time.Date(2025, time.March, 2, 0, 30, 0, 0, time.Local),
		sessions.calls[0].endAt)
}

func TestScanSkipsWrongWeekdayAndClosedWindows(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})

	store := &listStore{alarms: []*domain.Alarm{
		// Window open by clock but the alarm only repeats on Mondays.
		repeatingAlarm("monday", domain.ClockTime{Hour: 7, Minute: 45},
			domain.ClockTime{Hour: 8, Minute: 15}, time.Monday),
		// Right weekday, window already closed.
		repeatingAlarm("early", domain.ClockTime{Hour: 6},
			domain.ClockTime{Hour: 6, Minute: 30}, time.Sunday),
	}}

	sessions := runRecovery(t, clock, store, nil)
	require.Empty(t, sessions.calls)
}

func TestScanRecoversEarliestOfSeveralOpenWindows(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})

	store := &listStore{alarms: []*domain.Alarm{
		repeatingAlarm("late", domain.ClockTime{Hour: 7, Minute: 55},
			domain.ClockTime{Hour: 8, Minute: 25}, time.Sunday),
		repeatingAlarm("earlier", domain.ClockTime{Hour: 7, Minute: 40},
			domain.ClockTime{Hour: 8, Minute: 10}, time.Sunday),
	}}

	sessions := runRecovery(t, clock, store, nil)

	require.Len(t, sessions.calls, 1)
	require.Equal(t, "earlier", sessions.calls[0].alarmID)
}

func TestOneShotAlarmStillEnabledIsRecovered(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})

	oneShot := repeatingAlarm("once", domain.ClockTime{Hour: 7, Minute: 50},
		domain.ClockTime{Hour: 8, Minute: 20})

	sessions := runRecovery(t, clock, &listStore{alarms: []*domain.Alarm{oneShot}}, nil)

	require.Len(t, sessions.calls, 1)
	require.Equal(t, "once", sessions.calls[0].alarmID)
}
