package session

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/logger"
	"github.com/oshokin/alarm-clock/internal/platform"
	"github.com/oshokin/alarm-clock/internal/playback"
	"github.com/oshokin/alarm-clock/internal/repository/alarmstore"
	"github.com/oshokin/alarm-clock/internal/repository/snapshot"
)

const (
	// eventQueueSize bounds the ordered event queue feeding the run loop.
	eventQueueSize = 64
	// subscriberBuffer is the per-subscriber change buffer. A subscriber
	// that falls this far behind is dropped and must re-subscribe.
	subscriberBuffer = 8
)

// Scheduler is the slice of the reconciler the session manager needs.
type Scheduler interface {
	ScheduleSnooze(ctx context.Context, a *domain.Alarm, fireAt time.Time)
	CancelAlarm(ctx context.Context, id string)
}

// Player is the slice of the playback controller the session manager needs.
type Player interface {
	Start(ctx context.Context, cfg playback.Config) error
	Stop(ctx context.Context)
}

// TimerFunc arms a one-shot timer and returns its stop function. Injected so
// tests can fire watchdogs deterministically.
type TimerFunc func(d time.Duration, fn func()) (stop func() bool)

// Change is delivered to subscribers on every state transition.
type Change struct {
	// State is the state just entered.
	State State
	// AlarmID identifies the session's alarm; empty on return to idle.
	AlarmID string
}

// Snapshot is a read-only view of the current session for display surfaces.
type Snapshot struct {
	State          State
	AlarmID        string
	AlarmName      string
	StartedAt      time.Time
	EndAt          time.Time
	PuzzleAttempts int
	// Question is the challenge prompt, empty when the puzzle is "none".
	Question string
	// Queued lists alarms waiting for the active session to terminate.
	Queued []string
}

// Options wires the manager to its collaborators. Now, StartTimer and Rand
// default to the real clock, time.AfterFunc and a time-seeded source.
type Options struct {
	Store          alarmstore.Store
	Scheduler      Scheduler
	Player         Player
	Alerter        platform.Alerter
	Snapshots      snapshot.Repository
	CooldownWindow time.Duration
	FallbackDelay  time.Duration
	SnoozeInterval time.Duration
	Now            func() time.Time
	StartTimer     TimerFunc
	Rand           *rand.Rand
}

// session is the loop-owned record of one ringing episode.
type session struct {
	alarm     *domain.Alarm
	startedAt time.Time
	endAt     time.Time
	state     State
	attempts  int
	challenge *Challenge
}

// eventKind enumerates the messages the run loop consumes.
type eventKind int

const (
	eventDelivery eventKind = iota
	eventRecover
	eventConfirm
	eventAnswer
	eventDismiss
	eventSnooze
	eventFallback
	eventExpire
)

// event is one message on the ordered queue. Watchdog events carry the
// session sequence they were armed for, so a stale timer firing after
// teardown is ignored instead of hitting a newer session.
type event struct {
	kind      eventKind
	payload   platform.Payload
	answer    string
	seq       uint64
	alarmID   string
	startedAt time.Time
	endAt     time.Time
}

// Manager is the singleton trigger-session state machine. Every external
// stimulus (delivery, user action, watchdog firing) becomes a message on one
// ordered queue consumed by a single run loop; nothing calls back into the
// state machine synchronously from a timer callback.
type Manager struct {
	opts   Options
	events chan event
	done   chan struct{}
	once   sync.Once

	// Loop-owned state; touched only by Run.
	current        *session
	seq            uint64
	cooldown       map[string]time.Time
	queue          []string
	cancelFallback func() bool
	cancelExpire   func() bool

	// mu protects the published view and the subscriber set.
	mu          sync.Mutex
	view        Snapshot
	subscribers map[int]chan Change
	nextSubID   int
}

// NewManager builds a manager; call Run to start consuming events.
func NewManager(opts Options) *Manager {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if opts.StartTimer == nil {
		opts.StartTimer = func(d time.Duration, fn func()) func() bool {
			return time.AfterFunc(d, fn).Stop
		}
	}

	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano())) //nolint:gosec // not used for security
	}

	return &Manager{
		opts:        opts,
		events:      make(chan event, eventQueueSize),
		done:        make(chan struct{}),
		cooldown:    make(map[string]time.Time),
		subscribers: make(map[int]chan Change),
	}
}

// Run consumes the event queue until the context is cancelled. On shutdown
// any live playback is stopped and watchdogs are cancelled, but the
// persisted snapshot is kept so the next start can recover the session.
func (m *Manager) Run(ctx context.Context) {
	ctx = logger.WithName(ctx, "session")

	for {
		select {
		case <-ctx.Done():
			if m.current != nil {
				m.opts.Player.Stop(ctx)
				m.cancelWatchdogs()
			}

			m.Close()

			return
		case ev := <-m.events:
			m.handle(ctx, ev)
		}
	}
}

// Close unblocks producers; posting after Close is a no-op.
func (m *Manager) Close() {
	m.once.Do(func() {
		close(m.done)
	})
}

// OnDelivery feeds a platform timer delivery (or a user tap on the
// notification) into the state machine.
func (m *Manager) OnDelivery(p platform.Payload) {
	m.post(event{kind: eventDelivery, payload: p})
}

// Recover synthesizes a session directly in ACTIVE state for an alarm whose
// ringing window was already open at process start.
func (m *Manager) Recover(alarmID string, startedAt, endAt time.Time) {
	m.post(event{
		kind:      eventRecover,
		alarmID:   alarmID,
		startedAt: startedAt,
		endAt:     endAt,
	})
}

// ConfirmActive tells the machine the interactive surface is visible.
func (m *Manager) ConfirmActive() {
	m.post(event{kind: eventConfirm})
}

// SubmitAnswer submits a dismissal-challenge response.
func (m *Manager) SubmitAnswer(answer string) {
	m.post(event{kind: eventAnswer, answer: answer})
}

// Dismiss requests dismissal of a session whose puzzle type is "none".
func (m *Manager) Dismiss() {
	m.post(event{kind: eventDismiss})
}

// Snooze reschedules the ringing alarm a fixed interval ahead.
func (m *Manager) Snooze() {
	m.post(event{kind: eventSnooze})
}

// Snapshot returns the current read-only view of the session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	view := m.view
	view.Queued = append([]string(nil), m.view.Queued...)

	return view
}

// Subscribe registers a state-change listener. The returned cancel func must
// be called when done. A listener that cannot keep up is dropped and its
// channel closed; it must subscribe again.
func (m *Manager) Subscribe() (<-chan Change, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSubID
	m.nextSubID++

	ch := make(chan Change, subscriberBuffer)
	m.subscribers[id] = ch

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()

		if c, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(c)
		}
	}

	return ch, cancel
}

// post enqueues an event unless the manager is closed.
func (m *Manager) post(ev event) {
	select {
	case m.events <- ev:
	case <-m.done:
	}
}

// handle dispatches one event on the run loop goroutine.
func (m *Manager) handle(ctx context.Context, ev event) {
	switch ev.kind {
	case eventDelivery:
		m.handleDelivery(ctx, ev.payload)
	case eventRecover:
		m.handleRecover(ctx, ev)
	case eventConfirm:
		m.handleConfirm(ctx)
	case eventAnswer:
		m.handleAnswer(ctx, ev.answer)
	case eventDismiss:
		m.handleDismiss(ctx)
	case eventSnooze:
		m.handleSnooze(ctx)
	case eventFallback:
		m.handleFallback(ctx, ev.seq)
	case eventExpire:
		m.handleExpire(ctx, ev.seq)
	}
}

// handleDelivery processes MAIN and END occurrences from the platform.
func (m *Manager) handleDelivery(ctx context.Context, p platform.Payload) {
	if p.Kind == platform.KindEnd {
		// The END occurrence is an external backstop equivalent to the
		// in-process auto-expire watchdog.
		if m.current != nil && m.current.alarm.ID == p.AlarmID {
			m.finish(ctx, StateAutoExpired)
		}

		return
	}

	now := m.opts.Now()

	if last, ok := m.cooldown[p.AlarmID]; ok && now.Sub(last) < m.opts.CooldownWindow {
		logger.DebugKV(ctx, "Duplicate delivery suppressed", "alarm_id", p.AlarmID)

		return
	}

	m.cooldown[p.AlarmID] = now

	if m.current != nil {
		if m.current.alarm.ID == p.AlarmID {
			return
		}

		m.enqueue(ctx, p.AlarmID)

		return
	}

	m.begin(ctx, p.AlarmID, now, time.Time{}, StatePending)
}

// handleRecover re-enters an already-open ringing window.
func (m *Manager) handleRecover(ctx context.Context, ev event) {
	if m.current != nil {
		m.enqueue(ctx, ev.alarmID)

		return
	}

	// Suppress an imminent duplicate delivery for the recovered alarm.
	m.cooldown[ev.alarmID] = m.opts.Now()

	m.begin(ctx, ev.alarmID, ev.startedAt, ev.endAt, StateActive)
}

// begin creates the session and acquires its resources. The auto-expire
// watchdog is armed before any fallible step so a ringing alarm can never
// outlive its declared end time.
func (m *Manager) begin(ctx context.Context, alarmID string, startedAt, endAt time.Time, initial State) {
	a, err := m.opts.Store.GetByID(ctx, alarmID)
	if err != nil {
		logger.ErrorKV(ctx, "Alarm lookup failed, trigger dropped", "alarm_id", alarmID, "error", err)
		m.startNextQueued(ctx)

		return
	}

	if err = a.Validate(); err != nil {
		logger.ErrorKV(ctx, "Malformed alarm, trigger dropped", "alarm_id", alarmID, "error", err)
		m.startNextQueued(ctx)

		return
	}

	if !a.Enabled {
		logger.InfoKV(ctx, "Trigger for disabled alarm ignored", "alarm_id", alarmID)
		m.startNextQueued(ctx)

		return
	}

	if endAt.IsZero() {
		endAt = a.WindowEndAt(startedAt)
	}

	m.seq++
	seq := m.seq

	m.current = &session{
		alarm:     a,
		startedAt: startedAt,
		endAt:     endAt,
		state:     initial,
		challenge: NewChallenge(a.Puzzle, m.opts.Rand),
	}

	expireIn := endAt.Sub(m.opts.Now())
	if expireIn <= 0 {
		expireIn = time.Millisecond
	}

	m.cancelExpire = m.opts.StartTimer(expireIn, func() {
		m.post(event{kind: eventExpire, seq: seq})
	})

	if initial == StatePending {
		m.cancelFallback = m.opts.StartTimer(m.opts.FallbackDelay, func() {
			m.post(event{kind: eventFallback, seq: seq})
		})
	}

	if err = m.opts.Player.Start(ctx, playback.Config{
		SoundID: a.SoundID,
		Volume:  1,
		Loop:    true,
		Vibrate: a.VibrationEnabled,
	}); err != nil {
		// Playback failure never blocks the session: the user can still
		// dismiss and the watchdogs are already armed.
		logger.ErrorKV(ctx, "Playback start failed", "alarm_id", alarmID, "error", err)
	}

	if m.opts.Snapshots != nil {
		if err = m.opts.Snapshots.Save(ctx, &snapshot.ActiveSession{
			AlarmID:   alarmID,
			StartedAt: startedAt,
			EndAt:     endAt,
		}); err != nil {
			logger.WarnKV(ctx, "Session snapshot save failed", "alarm_id", alarmID, "error", err)
		}
	}

	logger.InfoKV(ctx, "Session started",
		"alarm_id", alarmID, "state", initial.String(), "end_at", endAt)

	m.publish(initial, alarmID)
}

// handleConfirm moves PENDING to ACTIVE once the surface is visible.
func (m *Manager) handleConfirm(ctx context.Context) {
	if m.current == nil || m.current.state != StatePending {
		return
	}

	m.current.state = StateActive
	m.stopFallback()

	logger.InfoKV(ctx, "Session active", "alarm_id", m.current.alarm.ID)
	m.publish(StateActive, m.current.alarm.ID)
}

// handleAnswer validates a challenge response on an active session.
func (m *Manager) handleAnswer(ctx context.Context, answer string) {
	if m.current == nil || m.current.state != StateActive {
		return
	}

	ch := m.current.challenge
	if ch == nil || strings.TrimSpace(answer) == ch.Answer {
		m.dismiss(ctx)

		return
	}

	m.current.attempts++
	logger.InfoKV(ctx, "Wrong challenge answer",
		"alarm_id", m.current.alarm.ID, "attempts", m.current.attempts)
	m.publish(StateActive, m.current.alarm.ID)
}

// handleDismiss dismisses an active session with no challenge attached.
func (m *Manager) handleDismiss(ctx context.Context) {
	if m.current == nil || m.current.state != StateActive {
		return
	}

	if m.current.challenge != nil {
		logger.InfoKV(ctx, "Dismiss refused, challenge answer required",
			"alarm_id", m.current.alarm.ID)

		return
	}

	m.dismiss(ctx)
}

// dismiss completes a correct dismissal, spending one-shot alarms.
func (m *Manager) dismiss(ctx context.Context) {
	a := m.current.alarm

	if a.IsOneShot() {
		if err := m.opts.Store.SetEnabled(ctx, a.ID, false); err != nil {
			logger.ErrorKV(ctx, "Disabling one-shot alarm failed", "alarm_id", a.ID, "error", err)
		}

		m.opts.Scheduler.CancelAlarm(ctx, a.ID)
	}

	m.finish(ctx, StateDismissed)
}

// handleSnooze reschedules the alarm one interval ahead and tears down.
func (m *Manager) handleSnooze(ctx context.Context) {
	if m.current == nil || m.current.state != StateActive {
		return
	}

	a := m.current.alarm
	fireAt := m.opts.Now().Add(m.opts.SnoozeInterval)

	m.opts.Scheduler.ScheduleSnooze(ctx, a, fireAt)
	logger.InfoKV(ctx, "Session snoozed", "alarm_id", a.ID, "fire_at", fireAt)

	m.finish(ctx, StateSnoozed)
}

// handleFallback emits the one-time fallback alert for a session still
// waiting for its surface.
func (m *Manager) handleFallback(ctx context.Context, seq uint64) {
	if m.current == nil || seq != m.seq || m.current.state != StatePending {
		return
	}

	// The timer is one-shot and never re-armed, so the alert fires at most
	// once per session. The session itself stays PENDING: the surface may
	// still appear.
	m.cancelFallback = nil
	m.opts.Alerter.Alert(ctx, m.current.alarm.ID, "Alarm is ringing")
}

// handleExpire drives the session to AUTO_EXPIRED at its end time.
func (m *Manager) handleExpire(ctx context.Context, seq uint64) {
	if m.current == nil || seq != m.seq {
		return
	}

	m.finish(ctx, StateAutoExpired)
}

// finish performs the terminal transition: release playback, cancel
// watchdogs, clear the persisted snapshot, notify, then surface the next
// queued alarm if any. The cooldown entry outlives the session on purpose.
func (m *Manager) finish(ctx context.Context, terminal State) {
	s := m.current
	s.state = terminal

	m.opts.Player.Stop(ctx)
	m.cancelWatchdogs()

	if m.opts.Snapshots != nil {
		if err := m.opts.Snapshots.Clear(ctx); err != nil {
			logger.WarnKV(ctx, "Session snapshot clear failed", "error", err)
		}
	}

	logger.InfoKV(ctx, "Session finished", "alarm_id", s.alarm.ID, "state", terminal.String())
	m.publish(terminal, s.alarm.ID)

	m.current = nil
	m.publish(StateIdle, "")

	m.startNextQueued(ctx)
}

// enqueue records a different alarm that fired during an existing session.
func (m *Manager) enqueue(ctx context.Context, alarmID string) {
	for _, queued := range m.queue {
		if queued == alarmID {
			return
		}
	}

	m.queue = append(m.queue, alarmID)
	logger.InfoKV(ctx, "Alarm queued behind active session", "alarm_id", alarmID)
	m.refreshView()
}

// startNextQueued surfaces the oldest queued alarm as a fresh session.
func (m *Manager) startNextQueued(ctx context.Context) {
	if len(m.queue) == 0 {
		return
	}

	next := m.queue[0]
	m.queue = m.queue[1:]

	m.begin(ctx, next, m.opts.Now(), time.Time{}, StatePending)
}

// cancelWatchdogs stops both session timers. Mandatory on every terminal
// transition so a stale timer cannot fire against a reused alarm id.
func (m *Manager) cancelWatchdogs() {
	m.stopFallback()

	if m.cancelExpire != nil {
		m.cancelExpire()
		m.cancelExpire = nil
	}
}

// stopFallback cancels the fallback timer if still armed.
func (m *Manager) stopFallback() {
	if m.cancelFallback != nil {
		m.cancelFallback()
		m.cancelFallback = nil
	}
}

// publish refreshes the shared view and notifies subscribers.
func (m *Manager) publish(state State, alarmID string) {
	m.refreshView()
	m.notify(Change{State: state, AlarmID: alarmID})
}

// refreshView rebuilds the read-only snapshot from loop-owned state.
func (m *Manager) refreshView() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		m.view = Snapshot{
			State:  StateIdle,
			Queued: append([]string(nil), m.queue...),
		}

		return
	}

	view := Snapshot{
		State:          m.current.state,
		AlarmID:        m.current.alarm.ID,
		AlarmName:      m.current.alarm.Name,
		StartedAt:      m.current.startedAt,
		EndAt:          m.current.endAt,
		PuzzleAttempts: m.current.attempts,
		Queued:         append([]string(nil), m.queue...),
	}

	if m.current.challenge != nil {
		view.Question = m.current.challenge.Question
	}

	m.view = view
}

// notify fans a change out to subscribers, dropping any that lag behind.
func (m *Manager) notify(change Change) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, ch := range m.subscribers {
		select {
		case ch <- change:
		default:
			delete(m.subscribers, id)
			close(ch)
		}
	}
}
