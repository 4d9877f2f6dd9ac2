package session

import (
	"fmt"
	"math/rand"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
)

// maxPuzzleResult bounds every challenge answer to [1, maxPuzzleResult].
const maxPuzzleResult = 100

// Challenge is the dismissal puzzle generated once per session. The answer
// is compared for exact match; failed attempts do not regenerate it.
type Challenge struct {
	// Question is the user-facing prompt.
	Question string
	// Answer is the expected response.
	Answer string
}

// NewChallenge builds a challenge for the given puzzle type, or nil when the
// alarm dismisses without one.
func NewChallenge(p domain.PuzzleType, rng *rand.Rand) *Challenge {
	if p != domain.PuzzleMath {
		return nil
	}

	return newMathChallenge(rng)
}

// newMathChallenge generates a random arithmetic expression over +, - and *
// whose result lies in [1, 100]. Subtraction is constructed backwards so
// operands stay non-negative; division is excluded to avoid non-integer
// answers.
func newMathChallenge(rng *rand.Rand) *Challenge {
	var (
		left, right, result int
		op                  string
	)

	switch rng.Intn(3) {
	case 0: // addition
		result = 2 + rng.Intn(maxPuzzleResult-1) // [2, 100]
		left = 1 + rng.Intn(result-1)            // [1, result-1]
		right = result - left
		op = "+"
	case 1: // subtraction
		left = 2 + rng.Intn(maxPuzzleResult-1) // [2, 100]
		result = 1 + rng.Intn(left-1)          // [1, left-1]
		right = left - result
		op = "-"
	default: // multiplication
		left = 1 + rng.Intn(10)
		right = 1 + rng.Intn(maxPuzzleResult/left)
		result = left * right
		op = "*"
	}

	return &Challenge{
		Question: fmt.Sprintf("%d %s %d = ?", left, op, right),
		Answer:   fmt.Sprintf("%d", result),
	}
}
