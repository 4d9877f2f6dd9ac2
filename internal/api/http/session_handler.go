package http

import (
	"net/http"
	"time"

	"github.com/oshokin/alarm-clock/internal/session"
)

// Sessions is the slice of the session manager the API needs. Actions are
// posted to the state machine and applied asynchronously.
type Sessions interface {
	Snapshot() session.Snapshot
	ConfirmActive()
	SubmitAnswer(answer string)
	Dismiss()
	Snooze()
}

// sessionPayload is the wire form of the session snapshot.
type sessionPayload struct {
	State          string     `json:"state"`
	AlarmID        string     `json:"alarm_id,omitempty"`
	AlarmName      string     `json:"alarm_name,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	EndAt          *time.Time `json:"end_at,omitempty"`
	PuzzleAttempts int        `json:"puzzle_attempts,omitempty"`
	Question       string     `json:"question,omitempty"`
	Queued         []string   `json:"queued,omitempty"`
}

// answerPayload carries a dismissal-challenge response.
type answerPayload struct {
	Answer string `json:"answer"`
}

// SessionHandler serves the trigger-session surface.
type SessionHandler struct {
	sessions Sessions
}

// NewSessionHandler builds the handler.
func NewSessionHandler(sessions Sessions) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Get responds with the current session snapshot.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	view := h.sessions.Snapshot()

	payload := sessionPayload{
		State:          view.State.String(),
		AlarmID:        view.AlarmID,
		AlarmName:      view.AlarmName,
		PuzzleAttempts: view.PuzzleAttempts,
		Question:       view.Question,
		Queued:         view.Queued,
	}

	if !view.StartedAt.IsZero() {
		startedAt := view.StartedAt
		payload.StartedAt = &startedAt
	}

	if !view.EndAt.IsZero() {
		endAt := view.EndAt
		payload.EndAt = &endAt
	}

	writeJSON(r.Context(), w, http.StatusOK, payload)
}

// Confirm reports that the interactive surface is visible.
func (h *SessionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.sessions.ConfirmActive()
	writeJSON(r.Context(), w, http.StatusAccepted, nil)
}

// Answer submits a dismissal-challenge response.
func (h *SessionHandler) Answer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload answerPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(ctx, w, http.StatusBadRequest, err)

		return
	}

	h.sessions.SubmitAnswer(payload.Answer)
	writeJSON(ctx, w, http.StatusAccepted, nil)
}

// Dismiss requests dismissal of a challenge-free session.
func (h *SessionHandler) Dismiss(w http.ResponseWriter, r *http.Request) {
	h.sessions.Dismiss()
	writeJSON(r.Context(), w, http.StatusAccepted, nil)
}

// Snooze reschedules the ringing alarm one interval ahead.
func (h *SessionHandler) Snooze(w http.ResponseWriter, r *http.Request) {
	h.sessions.Snooze()
	writeJSON(r.Context(), w, http.StatusAccepted, nil)
}
