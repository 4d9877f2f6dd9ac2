package session

import (
	"math/rand"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// TestNewChallengeNone returns nil for puzzle-free alarms.
func TestNewChallengeNone(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(1))
	require.Nil(t, NewChallenge(domain.PuzzleNone, rng))
}

// TestMathChallengeProperties checks the generator's contract over many
// seeds: answer in [1,100], operands non-negative, question well-formed and
// consistent with the answer.
func TestMathChallengeProperties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 1000; i++ {
		ch := NewChallenge(domain.PuzzleMath, rng)
		require.NotNil(t, ch)

		parts := strings.Fields(strings.TrimSuffix(ch.Question, " = ?"))
		require.Len(t, parts, 3, "question %q", ch.Question)

		left, err := strconv.Atoi(parts[0])
		require.NoError(t, err)

		right, err := strconv.Atoi(parts[2])
		require.NoError(t, err)

		answer, err := strconv.Atoi(ch.Answer)
		require.NoError(t, err)

		require.GreaterOrEqual(t, left, 0)
		require.GreaterOrEqual(t, right, 0)
		require.GreaterOrEqual(t, answer, 1)
		require.LessOrEqual(t, answer, 100)

		switch parts[1] {
		case "+":
			require.Equal(t, answer, left+right)
		case "-":
			require.Equal(t, answer, left-right)
		case "*":
			require.Equal(t, answer, left*right)
		default:
			t.Fatalf("unexpected operator in %q", ch.Question)
		}
	}
}
