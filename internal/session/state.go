package session

// State is the trigger-session lifecycle state.
type State int

const (
	// StateIdle means no alarm is ringing.
	StateIdle State = iota
	// StatePending means a trigger fired and the interactive surface has not
	// yet confirmed visibility.
	StatePending
	// StateActive means the interactive surface is visible and accepting
	// dismissal input.
	StateActive
	// StateDismissed is the terminal state for a correct dismissal.
	StateDismissed
	// StateSnoozed is the terminal state for a snooze request.
	StateSnoozed
	// StateAutoExpired is the terminal state for the end-time safety valve.
	StateAutoExpired
)

// String returns the state name for logs and transports.
func (s State) String() string {
	switch s {
	case StatePending:
		return "PENDING"
	case StateActive:
		return "ACTIVE"
	case StateDismissed:
		return "DISMISSED"
	case StateSnoozed:
		return "SNOOZED"
	case StateAutoExpired:
		return "AUTO_EXPIRED"
	default:
		return "IDLE"
	}
}

// IsTerminal reports whether the state ends the session.
func (s State) IsTerminal() bool {
	switch s {
	case StateDismissed, StateSnoozed, StateAutoExpired:
		return true
	default:
		return false
	}
}
