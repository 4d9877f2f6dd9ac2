package alarm

// PuzzleType is the dismissal-challenge kind attached to an alarm.
type PuzzleType int

const (
	// PuzzleNone dismisses with a single action, no challenge.
	PuzzleNone PuzzleType = iota
	// PuzzleMath requires solving a random arithmetic expression.
	PuzzleMath
)

// String returns the stable serialization name of the puzzle type.
func (p PuzzleType) String() string {
	switch p {
	case PuzzleMath:
		return "math"
	default:
		return "none"
	}
}

// PuzzleTypeFromString maps a serialized name back to the puzzle type.
// Unknown names degrade to PuzzleNone so a stale store never blocks dismissal.
func PuzzleTypeFromString(s string) PuzzleType {
	if s == "math" {
		return PuzzleMath
	}

	return PuzzleNone
}
