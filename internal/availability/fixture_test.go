package availability

import (
	"sort"
	"time"

	"meetblocks/internal/model"
)

// cest is a fixed +02:00 zone so tests do not depend on tzdata.
var cest = time.FixedZone("CEST", 2*60*60)

// at returns 2025-06-04 (a Wednesday) hh:mm in cest, shifted by days.
func at(days, hh, mm int) time.Time {
	return time.Date(2025, 6, 4+days, hh, mm, 0, 0, cest)
}

// grid returns n consecutive 15-minute slot starts beginning at start.
func grid(start time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * model.SlotDuration)
	}
	return out
}

// dataset builds a source whose slots are starts (indexed from 0) and
// where free[name] lists the slot indexes that person is free in.
func dataset(id string, starts []time.Time, free map[string][]int) model.Dataset {
	ds := model.Dataset{
		SourceID:     id,
		Name:         id,
		People:       make(map[int]string),
		Availability: make(map[int][]int),
	}
	for i, s := range starts {
		ds.Slots = append(ds.Slots, model.SlotTime{Index: i, Begin: s.Unix()})
	}

	names := make([]string, 0, len(free))
	for n := range free {
		names = append(names, n)
	}
	sort.Strings(names)
	for pid, n := range names {
		ds.People[100+pid] = n
		for _, idx := range free[n] {
			ds.Availability[idx] = append(ds.Availability[idx], 100+pid)
		}
	}
	return ds
}

func span(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

// slotsWith builds filtered-style slots directly from availability lists.
func slotsWith(starts []time.Time, free ...[]string) []model.Timeslot {
	out := make([]model.Timeslot, len(starts))
	for i, s := range starts {
		out[i] = model.NewTimeslot(i, s.Unix())
		if i < len(free) {
			for _, n := range free[i] {
				out[i].Available.Add(n)
			}
		}
	}
	return out
}

func repeat(names []string, n int) [][]string {
	out := make([][]string, n)
	for i := range out {
		out[i] = names
	}
	return out
}

func availabilityByBegin(slots []model.Timeslot) map[int64][]string {
	out := make(map[int64][]string, len(slots))
	for _, s := range slots {
		out[s.Begin] = s.Available.Sorted()
	}
	return out
}
