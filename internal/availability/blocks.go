package availability

import (
	"time"

	"meetblocks/internal/model"
)

// Tag marks a slot as part of at least one qualifying window.
type Tag struct {
	// Qualifying is the union of the common people of every qualifying
	// window that covers the slot.
	Qualifying model.UserSet
}

// Membership maps a slot's start instant to its block tag. Untagged slots
// are absent.
type Membership map[int64]Tag

// Contains reports whether the slot starting at begin is a block member.
func (m Membership) Contains(begin int64) bool {
	_, ok := m[begin]
	return ok
}

// Qualifying returns the tagged people for a slot, or nil.
func (m Membership) Qualifying(begin int64) model.UserSet {
	return m[begin].Qualifying
}

// DetectBlocks slides a window of exactly window slots, one position at a
// time, over time-sorted slots and tags every slot of each window in which
// at least minUsers people are free in all of its slots.
//
// A window is skipped when its first and last starts are further apart
// than (window-1) slots, i.e. it crosses a gap or a day boundary.
// Overlapping qualifying windows chain into longer blocks.
func DetectBlocks(slots []model.Timeslot, window, minUsers int) Membership {
	m := make(Membership)
	if window < 1 || len(slots) < window {
		return m
	}

	maxSpan := int64(time.Duration(window-1) * model.SlotDuration / time.Second)

	for i := 0; i+window <= len(slots); i++ {
		run := slots[i : i+window]
		if run[window-1].Begin-run[0].Begin > maxSpan {
			continue
		}

		common := run[0].Available.Clone()
		for _, s := range run[1:] {
			if common.Len() < minUsers {
				break
			}
			common = common.Intersect(s.Available)
		}
		if common.Len() < minUsers {
			continue
		}

		for _, s := range run {
			tag, ok := m[s.Begin]
			if !ok {
				tag = Tag{Qualifying: make(model.UserSet)}
			}
			tag.Qualifying.Union(common)
			m[s.Begin] = tag
		}
	}

	return m
}
