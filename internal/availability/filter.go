package availability

import (
	"sort"
	"time"

	"meetblocks/internal/model"
)

// Window restricts slots to an instant range and a daily hour band.
type Window struct {
	Start *time.Time
	End   *time.Time

	BeginHour int
	EndHour   int
}

// Contains reports whether a localized start time passes both bounds.
func (w Window) Contains(t time.Time) bool {
	if w.Start != nil && t.Before(*w.Start) {
		return false
	}
	if w.End != nil && !t.Before(*w.End) {
		return false
	}
	minute := t.Hour()*60 + t.Minute()
	return minute >= w.BeginHour*60 && minute < w.EndHour*60
}

// Filter keeps the slots inside w and returns them sorted by start. Slots
// sharing a start instant are collapsed into one with the union of their
// availability, so the result is strictly ascending.
func Filter(slots []model.Timeslot, w Window, loc *time.Location) []model.Timeslot {
	out := make([]model.Timeslot, 0, len(slots))
	for _, s := range slots {
		if w.Contains(s.Start(loc)) {
			out = append(out, s)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Begin < out[j].Begin
	})

	deduped := out[:0]
	for _, s := range out {
		n := len(deduped)
		if n > 0 && deduped[n-1].Begin == s.Begin {
			merged := deduped[n-1].Available.Clone()
			merged.Union(s.Available)
			deduped[n-1].Available = merged
			continue
		}
		deduped = append(deduped, s)
	}
	return deduped
}
