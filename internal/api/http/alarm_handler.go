package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/repository/alarmstore"
	"github.com/oshokin/alarm-clock/internal/schedule"
)

// Scheduler is the slice of the reconciler the API needs: every alarm write
// is immediately reflected in the pending timer set.
type Scheduler interface {
	RescheduleAlarm(ctx context.Context, a *domain.Alarm)
	CancelAlarm(ctx context.Context, id string)
	NextFireTime() (time.Time, bool)
	PendingOccurrences() []schedule.Occurrence
}

// alarmPayload is the wire form of an alarm definition. Clock fields travel
// as "HH:MM" strings, repeat days as 0..6 integers (Sunday = 0).
type alarmPayload struct {
	ID               string    `json:"id,omitempty"`
	Name             string    `json:"name"`
	Time             string    `json:"time"`
	EndTime          string    `json:"end_time"`
	Enabled          bool      `json:"enabled"`
	RepeatDays       []int     `json:"repeat_days,omitempty"`
	Puzzle           string    `json:"puzzle,omitempty"`
	SoundID          string    `json:"sound_id,omitempty"`
	VibrationEnabled bool      `json:"vibration_enabled,omitempty"`
	CreatedAt        time.Time `json:"created_at,omitempty"`
	UpdatedAt        time.Time `json:"updated_at,omitempty"`
}

func toPayload(a *domain.Alarm) alarmPayload {
	return alarmPayload{
		ID:               a.ID,
		Name:             a.Name,
		Time:             a.Time.String(),
		EndTime:          a.EndTime.String(),
		Enabled:          a.Enabled,
		RepeatDays:       a.RepeatDays.Ints(),
		Puzzle:           a.Puzzle.String(),
		SoundID:          a.SoundID,
		VibrationEnabled: a.VibrationEnabled,
		CreatedAt:        a.CreatedAt,
		UpdatedAt:        a.UpdatedAt,
	}
}

func (p alarmPayload) toDomain() (*domain.Alarm, error) {
	start, err := domain.ParseClockTime(p.Time)
	if err != nil {
		return nil, err
	}

	end, err := domain.ParseClockTime(p.EndTime)
	if err != nil {
		return nil, err
	}

	return &domain.Alarm{
		ID:               p.ID,
		Name:             p.Name,
		Time:             start,
		EndTime:          end,
		Enabled:          p.Enabled,
		RepeatDays:       domain.WeekdaysFromInts(p.RepeatDays),
		Puzzle:           domain.PuzzleTypeFromString(p.Puzzle),
		SoundID:          p.SoundID,
		VibrationEnabled: p.VibrationEnabled,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}, nil
}

// AlarmHandler serves alarm CRUD and keeps the schedule in sync.
type AlarmHandler struct {
	store     alarmstore.Store
	scheduler Scheduler
	now       func() time.Time
}

// NewAlarmHandler builds the handler. now defaults to time.Now.
func NewAlarmHandler(store alarmstore.Store, scheduler Scheduler, now func() time.Time) *AlarmHandler {
	if now == nil {
		now = time.Now
	}

	return &AlarmHandler{store: store, scheduler: scheduler, now: now}
}

// List responds with every stored alarm.
func (h *AlarmHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	alarms, err := h.store.GetAll(ctx)
	if err != nil {
		writeStoreError(ctx, w, err)

		return
	}

	payloads := make([]alarmPayload, 0, len(alarms))
	for _, a := range alarms {
		payloads = append(payloads, toPayload(a))
	}

	writeJSON(ctx, w, http.StatusOK, payloads)
}

// Get responds with one alarm by id.
func (h *AlarmHandler) Get(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	a, err := h.store.GetByID(ctx, id)
	if err != nil {
		writeStoreError(ctx, w, err)

		return
	}

	writeJSON(ctx, w, http.StatusOK, toPayload(a))
}

// Create stores a new alarm and schedules its occurrences.
func (h *AlarmHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload alarmPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(ctx, w, http.StatusBadRequest, err)

		return
	}

	a, err := payload.toDomain()
	if err != nil {
		writeError(ctx, w, http.StatusUnprocessableEntity, err)

		return
	}

	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	a.CreatedAt = h.now()
	a.UpdatedAt = a.CreatedAt

	if err = a.Validate(); err != nil {
		writeError(ctx, w, http.StatusUnprocessableEntity, err)

		return
	}

	created, err := h.store.Create(ctx, a)
	if err != nil {
		writeStoreError(ctx, w, err)

		return
	}

	h.scheduler.RescheduleAlarm(ctx, created)

	writeJSON(ctx, w, http.StatusCreated, toPayload(created))
}

// Update replaces an alarm definition and reconciles its occurrences.
func (h *AlarmHandler) Update(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	var payload alarmPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(ctx, w, http.StatusBadRequest, err)

		return
	}

	a, err := payload.toDomain()
	if err != nil {
		writeError(ctx, w, http.StatusUnprocessableEntity, err)

		return
	}

	a.ID = id
	a.UpdatedAt = h.now()

	if err = a.Validate(); err != nil {
		writeError(ctx, w, http.StatusUnprocessableEntity, err)

		return
	}

	// Existence check first so an update cannot silently create.
	existing, err := h.store.GetByID(ctx, id)
	if err != nil {
		writeStoreError(ctx, w, err)

		return
	}

	a.CreatedAt = existing.CreatedAt

	updated, err := h.store.Update(ctx, a)
	if err != nil {
		writeStoreError(ctx, w, err)

		return
	}

	h.scheduler.RescheduleAlarm(ctx, updated)

	writeJSON(ctx, w, http.StatusOK, toPayload(updated))
}

// Delete removes an alarm and cancels its occurrences.
func (h *AlarmHandler) Delete(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	if err := h.store.Delete(ctx, id); err != nil {
		writeStoreError(ctx, w, err)

		return
	}

	h.scheduler.CancelAlarm(ctx, id)

	writeJSON(ctx, w, http.StatusNoContent, nil)
}

// enabledPayload is the body of the enable/disable endpoint.
type enabledPayload struct {
	Enabled bool `json:"enabled"`
}

// SetEnabled flips the enabled flag and reconciles the schedule.
func (h *AlarmHandler) SetEnabled(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	var payload enabledPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(ctx, w, http.StatusBadRequest, err)

		return
	}

	// Existence check because SetEnabled on a missing row is a no-op.
	if _, err := h.store.GetByID(ctx, id); err != nil {
		writeStoreError(ctx, w, err)

		return
	}

	if err := h.store.SetEnabled(ctx, id, payload.Enabled); err != nil {
		writeStoreError(ctx, w, err)

		return
	}

	a, err := h.store.GetByID(ctx, id)
	if err != nil {
		writeStoreError(ctx, w, err)

		return
	}

	h.scheduler.RescheduleAlarm(ctx, a)

	writeJSON(ctx, w, http.StatusOK, toPayload(a))
}
