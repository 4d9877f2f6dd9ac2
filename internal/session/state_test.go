package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStateNamesAndTerminality(t *testing.T) {
	t.Parallel()

	names := map[State]string{
		StateIdle:        "IDLE",
		StatePending:     "PENDING",
		StateActive:      "ACTIVE",
		StateDismissed:   "DISMISSED",
		StateSnoozed:     "SNOOZED",
		StateAutoExpired: "AUTO_EXPIRED",
	}

	for state, name := range names {
		require.Equal(t, name, state.String())
	}

	require.False(t, StateIdle.IsTerminal())
	require.False(t, StatePending.IsTerminal())
	require.False(t, StateActive.IsTerminal())
	require.True(t, StateDismissed.IsTerminal())
	require.True(t, StateSnoozed.IsTerminal())
	require.True(t, StateAutoExpired.IsTerminal())
}
