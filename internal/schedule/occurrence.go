package schedule

import (
	"sort"
	"time"

	domain "github.com/oshokin/alarm-clock/internal/domain/alarm"
	"github.com/oshokin/alarm-clock/internal/platform"
)

// Occurrence is one concrete future instant at which an alarm must fire
// (MAIN) or its ringing window must close (END).
type Occurrence struct {
	// AlarmID identifies the owning alarm.
	AlarmID string
	// Kind tells whether this is a MAIN or END occurrence.
	Kind platform.OccurrenceKind
	// FireAt is the local instant the occurrence is due.
	FireAt time.Time
}

// NextOccurrences computes the ordered future occurrences of an alarm within
// the horizon. It is pure: wall-clock fields are applied verbatim to local
// calendar days and no state is touched.
//
// One-shot alarms (empty repeat set) yield exactly one MAIN at the next
// matching wall-clock instant strictly after from, always within 24 hours.
// Repeating alarms yield one MAIN per matching weekday over
// [0, horizonDays) day offsets, skipping candidates at or before from.
// Every MAIN is paired with an END derived from the alarm's end time,
// pushed to the next calendar day when the raw value would land at or
// before the MAIN.
func NextOccurrences(a *domain.Alarm, from time.Time, horizonDays int) []Occurrence {
	var mains []time.Time

	if a.IsOneShot() {
		candidate := a.Time.OnDay(from)
		if !candidate.After(from) {
			candidate = a.Time.OnDay(from.AddDate(0, 0, 1))
		}

		mains = append(mains, candidate)
	} else {
		for offset := 0; offset < horizonDays; offset++ {
			candidate := a.Time.OnDay(from.AddDate(0, 0, offset))
			if !a.RepeatDays.Has(candidate.Weekday()) || !candidate.After(from) {
				continue
			}

			mains = append(mains, candidate)
		}
	}

	occurrences := make([]Occurrence, 0, 2*len(mains))

	for _, fireAt := range mains {
		occurrences = append(occurrences,
			Occurrence{
				AlarmID: a.ID,
				Kind:    platform.KindMain,
				FireAt:  fireAt,
			},
			Occurrence{
				AlarmID: a.ID,
				Kind:    platform.KindEnd,
				FireAt:  a.EndFor(fireAt),
			},
		)
	}

	sortOccurrences(occurrences)

	return occurrences
}

// sortOccurrences orders ascending by fire time, MAIN before END on ties.
func sortOccurrences(occurrences []Occurrence) {
	sort.SliceStable(occurrences, func(i, j int) bool {
		if occurrences[i].FireAt.Equal(occurrences[j].FireAt) {
			return occurrences[i].Kind == platform.KindMain && occurrences[j].Kind == platform.KindEnd
		}

		return occurrences[i].FireAt.Before(occurrences[j].FireAt)
	})
}
