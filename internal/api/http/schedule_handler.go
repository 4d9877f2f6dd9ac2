package http

import (
	"net/http"
	"time"
)

// nextFirePayload is the answer to "when does the next alarm ring".
// FireAt is null when nothing is scheduled.
type nextFirePayload struct {
	FireAt *time.Time `json:"fire_at"`
}

// occurrencePayload is one pending timer in the diagnostic snapshot.
type occurrencePayload struct {
	AlarmID string    `json:"alarm_id"`
	Kind    string    `json:"kind"`
	FireAt  time.Time `json:"fire_at"`
}

// ScheduleHandler exposes read-only views of the pending timer set.
type ScheduleHandler struct {
	scheduler Scheduler
}

// NewScheduleHandler builds the handler.
func NewScheduleHandler(scheduler Scheduler) *ScheduleHandler {
	return &ScheduleHandler{scheduler: scheduler}
}

// Next responds with the earliest pending MAIN fire time.
func (h *ScheduleHandler) Next(w http.ResponseWriter, r *http.Request) {
	var payload nextFirePayload

	if fireAt, ok := h.scheduler.NextFireTime(); ok {
		payload.FireAt = &fireAt
	}

	writeJSON(r.Context(), w, http.StatusOK, payload)
}

// Occurrences responds with every pending occurrence, soonest first.
func (h *ScheduleHandler) Occurrences(w http.ResponseWriter, r *http.Request) {
	pending := h.scheduler.PendingOccurrences()

	payloads := make([]occurrencePayload, 0, len(pending))
	for _, occ := range pending {
		payloads = append(payloads, occurrencePayload{
			AlarmID: occ.AlarmID,
			Kind:    occ.Kind.String(),
			FireAt:  occ.FireAt,
		})
	}

	writeJSON(r.Context(), w, http.StatusOK, payloads)
}
