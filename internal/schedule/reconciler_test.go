package schedule

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/platform"
	"github.com/oshokin/alarm-clock/internal/testfixtures"
)

// fakeTimer records submissions and cancellations without real timers.
type fakeTimer struct {
	mu        sync.Mutex
	nextID    int
	pending   map[platform.Handle]platform.Payload
	failAfter int // fail submissions once this many have succeeded; -1 never fails
}

func newFakeTimer() *fakeTimer {
	return &fakeTimer{
		pending:   make(map[platform.Handle]platform.Payload),
		failAfter: -1,
	}
}

func (f *fakeTimer) Submit(_ context.Context, _ time.Time, payload platform.Payload) (platform.Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failAfter >= 0 && len(f.pending) >= f.failAfter {
		return "", platform.ErrPastInstant
	}

	f.nextID++
	handle := platform.Handle(fmt.Sprintf("h-%d", f.nextID))
	f.pending[handle] = payload

	return handle, nil
}

func (f *fakeTimer) Cancel(handle platform.Handle) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.pending, handle)
}

func (f *fakeTimer) pendingCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.pending)
}

// gatedTimer holds the first submission until released, keeping one
// reconcile pass mid-flight while the test drives another.
type gatedTimer struct {
	*fakeTimer
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedTimer() *gatedTimer {
	return &gatedTimer{
		fakeTimer: newFakeTimer(),
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
}

func (g *gatedTimer) Submit(ctx context.Context, at time.Time, payload platform.Payload) (platform.Handle, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})

	return g.fakeTimer.Submit(ctx, at, payload)
}

// fakeStore is an in-memory alarm store for reconciler tests.
type fakeStore struct {
	mu     sync.Mutex
	alarms map[string]*domain.Alarm
}

func newFakeStore(alarms ...*domain.Alarm) *fakeStore {
	s := &fakeStore{alarms: make(map[string]*domain.Alarm)}
	for _, a := range alarms {
		s.alarms[a.ID] = a.Clone()
	}

	return s
}

func (s *fakeStore) GetAll(context.Context) ([]*domain.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := make([]*domain.Alarm, 0, len(s.alarms))
	for _, a := range s.alarms {
		all = append(all, a.Clone())
	}

	return all, nil
}

func (s *fakeStore) GetByID(_ context.Context, id string) (*domain.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.alarms[id]; ok {
		return a.Clone(), nil
	}

	return nil, fmt.Errorf("alarm %s: not found", id)
}

func (s *fakeStore) Create(_ context.Context, a *domain.Alarm) (*domain.Alarm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alarms[a.ID] = a.Clone()

	return a.Clone(), nil
}

func (s *fakeStore) Update(_ context.Context, a *domain.Alarm) (*domain.Alarm, error) {
	return s.Create(context.Background(), a)
}

func (s *fakeStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.alarms, id)

	return nil
}

func (s *fakeStore) SetEnabled(_ context.Context, id string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a, ok := s.alarms[id]; ok {
		a.Enabled = enabled
	}

	return nil
}

// mondayAlarm is the reference repeating alarm used across reconciler tests.
func mondayAlarm() *domain.Alarm {
	return &domain.Alarm{
		ID:         "monday",
		Time:       domain.ClockTime{Hour: 7},
		EndTime:    domain.ClockTime{Hour: 7, Minute: 30},
		Enabled:    true,
		RepeatDays: domain.NewWeekdays(time.Monday),
	}
}

// TestScheduleAndCancelIdempotent covers scheduling, double cancel and the
// empty index afterwards.
func TestScheduleAndCancelIdempotent(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	timer := newFakeTimer()
	r := NewReconciler(timer, newFakeStore(), 7, clock.NowFunc())
	ctx := context.Background()

	r.ScheduleAlarm(ctx, mondayAlarm())
	require.Equal(t, 2, timer.pendingCount(), "one MAIN and one END")

	r.CancelAlarm(ctx, "monday")
	require.Zero(t, timer.pendingCount())

	// Cancel twice and cancel unknown: both no-ops.
	r.CancelAlarm(ctx, "monday")
	r.CancelAlarm(ctx, "never-existed")
	require.Zero(t, timer.pendingCount())
	require.Empty(t, r.PendingOccurrences())
}

// TestRescheduleDisabledYieldsNothing asserts a disabled alarm ends with
// zero pending occurrences.
func TestRescheduleDisabledYieldsNothing(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	timer := newFakeTimer()
	r := NewReconciler(timer, newFakeStore(), 7, clock.NowFunc())
	ctx := context.Background()

	a := mondayAlarm()
	r.ScheduleAlarm(ctx, a)
	require.NotZero(t, timer.pendingCount())

	a.Enabled = false
	r.RescheduleAlarm(ctx, a)
	require.Zero(t, timer.pendingCount())
	require.Empty(t, r.PendingOccurrences())
}

// TestSubmissionFailureSkipsSingleOccurrence ensures one failed submission
// does not abort the rest of the alarm's occurrences.
func TestSubmissionFailureSkipsSingleOccurrence(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	timer := newFakeTimer()
	timer.failAfter = 3

	daily := &domain.Alarm{
		ID:      "daily",
		Time:    domain.ClockTime{Hour: 9},
		EndTime: domain.ClockTime{Hour: 9, Minute: 30},
		Enabled: true,
		RepeatDays: domain.NewWeekdays(
			time.Sunday, time.Monday, time.Tuesday, time.Wednesday,
			time.Thursday, time.Friday, time.Saturday,
		),
	}

	r := NewReconciler(timer, newFakeStore(), 7, clock.NowFunc())
	r.ScheduleAlarm(context.Background(), daily)

	// 7 days x 2 occurrences computed, only the first 3 submissions land.
	require.Equal(t, 3, timer.pendingCount())
	require.Len(t, r.PendingOccurrences(), 3)
}

// TestScheduleAllRebuildsFromStore checks the startup consistency pass.
func TestScheduleAllRebuildsFromStore(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	timer := newFakeTimer()

	disabled := mondayAlarm()
	disabled.ID = "disabled"
	disabled.Enabled = false

	malformed := mondayAlarm()
	malformed.ID = "malformed"
	malformed.EndTime = malformed.Time // invalid window

	store := newFakeStore(mondayAlarm(), disabled, malformed)
	r := NewReconciler(timer, store, 7, clock.NowFunc())

	require.NoError(t, r.ScheduleAll(context.Background()))

	occurrences := r.PendingOccurrences()
	require.Len(t, occurrences, 2, "only the valid enabled alarm is scheduled")

	for _, occ := range occurrences {
		require.Equal(t, "monday", occ.AlarmID)
	}

	// A second pass replaces, not duplicates.
	require.NoError(t, r.ScheduleAll(context.Background()))
	require.Len(t, r.PendingOccurrences(), 2)
}

// TestConcurrentRescheduleLeavesNoStrayTimers races two reschedules of the
// same alarm, one stalled inside timer submission, and checks that a later
// cancel still reaches every pending timer.
func TestConcurrentRescheduleLeavesNoStrayTimers(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	timer := newGatedTimer()
	r := NewReconciler(timer, newFakeStore(), 7, clock.NowFunc())
	ctx := context.Background()

	var wg sync.WaitGroup

	wg.Add(2)

	go func() {
		defer wg.Done()

		r.ScheduleAlarm(ctx, mondayAlarm())
	}()

	// Wait until the first pass is stalled in Submit, then race a second
	// full reschedule of the same alarm against it.
	<-timer.entered

	go func() {
		defer wg.Done()

		r.ScheduleAlarm(ctx, mondayAlarm())
	}()

	close(timer.release)
	wg.Wait()

	// Whichever pass finished last owns the alarm's full pending set.
	require.Equal(t, 2, timer.pendingCount(), "one MAIN and one END")

	r.CancelAlarm(ctx, "monday")
	require.Zero(t, timer.pendingCount())
	require.Empty(t, r.PendingOccurrences())
}

// TestNextFireTime returns the earliest pending MAIN.
func TestNextFireTime(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	timer := newFakeTimer()
	r := NewReconciler(timer, newFakeStore(), 7, clock.NowFunc())
	ctx := context.Background()

	_, ok := r.NextFireTime()
	require.False(t, ok)

	r.ScheduleAlarm(ctx, mondayAlarm())

	later := mondayAlarm()
	later.ID = "tuesday"
	later.RepeatDays = domain.NewWeekdays(time.Tuesday)
	r.ScheduleAlarm(ctx, later)

	next, ok := r.NextFireTime()
	require.True(t, ok)
	require.Equal(t, time.Date(2025, time.March, 3, 7, 0, 0, 0, time.Local), next)
}

// TestScheduleSnoozeAddsExactlyOnePair verifies snooze does not disturb the
// existing schedule and adds one MAIN/END pair.
func TestScheduleSnoozeAddsExactlyOnePair(t *testing.T) {
	t.Parallel()

	clock := testfixtures.NewClock(time.Time{})
	timer := newFakeTimer()
	r := NewReconciler(timer, newFakeStore(), 7, clock.NowFunc())
	ctx := context.Background()

	a := mondayAlarm()
	r.ScheduleAlarm(ctx, a)
	before := r.PendingOccurrences()

	snoozeAt := clock.Now().Add(5 * time.Minute)
	r.ScheduleSnooze(ctx, a, snoozeAt)

	after := r.PendingOccurrences()
	require.Len(t, after, len(before)+2)

	next, ok := r.NextFireTime()
	require.True(t, ok)
	require.Equal(t, snoozeAt, next)

	// The original occurrences are still present.
	for _, occ := range before {
		require.Contains(t, after, occ)
	}
}
