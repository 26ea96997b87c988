package availability

import (
	"strings"

	"meetblocks/internal/model"
)

// MergeStats counts the availability facts Merge had to skip.
type MergeStats struct {
	// UnknownSlots: the contributing dataset has no start time for the index.
	UnknownSlots int
	// UnknownInstants: the start time is not one of the primary's slots.
	UnknownInstants int
	// UnknownPeople: the person id has no display name.
	UnknownPeople int
	// Excluded: the person is outside the allow-list.
	Excluded int
}

// Skipped is the total of malformed facts (allow-list exclusions are not
// counted as malformed).
func (s MergeStats) Skipped() int {
	return s.UnknownSlots + s.UnknownInstants + s.UnknownPeople
}

// Merged is the unified slot sequence produced by Merge.
type Merged struct {
	// Slots follows the primary dataset's slot order.
	Slots []model.Timeslot
	// Roster holds every allowed person named by any dataset, free or not.
	Roster model.UserSet
	Stats  MergeStats
}

// Merge unions the availability of all datasets onto the slots of
// datasets[0]. Sources are matched by start instant, not by slot index.
//
// A non-empty allow list removes everyone else before the union.
func Merge(datasets []model.Dataset, allow []string) Merged {
	out := Merged{Roster: make(model.UserSet)}
	if len(datasets) == 0 {
		return out
	}

	primary := datasets[0]
	out.Slots = make([]model.Timeslot, 0, len(primary.Slots))
	byBegin := make(map[int64]int, len(primary.Slots))
	for _, st := range primary.Slots {
		if _, dup := byBegin[st.Begin]; dup {
			continue
		}
		byBegin[st.Begin] = len(out.Slots)
		out.Slots = append(out.Slots, model.NewTimeslot(st.Index, st.Begin))
	}

	allowed := allowSet(allow)

	for _, ds := range datasets {
		for _, name := range ds.People {
			if allowed == nil || allowed.Has(name) {
				out.Roster.Add(name)
			}
		}

		beginOf := make(map[int]int64, len(ds.Slots))
		for _, st := range ds.Slots {
			beginOf[st.Index] = st.Begin
		}

		for idx, ids := range ds.Availability {
			begin, ok := beginOf[idx]
			if !ok {
				out.Stats.UnknownSlots += len(ids)
				continue
			}
			pos, ok := byBegin[begin]
			if !ok {
				out.Stats.UnknownInstants += len(ids)
				continue
			}
			for _, id := range ids {
				name, ok := ds.People[id]
				if !ok {
					out.Stats.UnknownPeople++
					continue
				}
				if allowed != nil && !allowed.Has(name) {
					out.Stats.Excluded++
					continue
				}
				out.Slots[pos].Available.Add(name)
			}
		}
	}

	return out
}

// allowSet returns nil when the list selects everyone.
func allowSet(allow []string) model.UserSet {
	var s model.UserSet
	for _, n := range allow {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if s == nil {
			s = make(model.UserSet)
		}
		s.Add(n)
	}
	return s
}
