package availability

import (
	"sort"
	"time"

	"meetblocks/internal/model"
)

// Ranking orders people from most to least constrained: ascending number
// of slots they are free in, ties broken by first encounter.
type Ranking struct {
	names []string
	pos   map[string]int
	count map[string]int
}

// NewRanking ranks everyone in roster by availability over slots. Slots
// are scanned in the given order; names inside one slot lexically.
// Roster members never seen free rank first, alphabetically.
func NewRanking(slots []model.Timeslot, roster model.UserSet) Ranking {
	count := make(map[string]int)
	var seen []string
	for _, s := range slots {
		for _, n := range s.Available.Sorted() {
			if _, ok := count[n]; !ok {
				seen = append(seen, n)
			}
			count[n]++
		}
	}

	names := make([]string, 0, len(count)+roster.Len())
	for _, n := range roster.Sorted() {
		if _, ok := count[n]; !ok {
			names = append(names, n)
			count[n] = 0
		}
	}
	names = append(names, seen...)

	sort.SliceStable(names, func(i, j int) bool {
		return count[names[i]] < count[names[j]]
	})

	pos := make(map[string]int, len(names))
	for i, n := range names {
		pos[n] = i
	}
	return Ranking{names: names, pos: pos, count: count}
}

// Names returns everyone in rank order.
func (r Ranking) Names() []string {
	return append([]string(nil), r.names...)
}

// Count returns how many slots name is free in.
func (r Ranking) Count(name string) int {
	return r.count[name]
}

// Order returns the members of set in rank order.
func (r Ranking) Order(set model.UserSet) []string {
	out := make([]string, 0, set.Len())
	for n := range set {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		pi, iok := r.pos[out[i]]
		pj, jok := r.pos[out[j]]
		if iok != jok {
			return iok
		}
		if pi != pj {
			return pi < pj
		}
		return out[i] < out[j]
	})
	return out
}

// Compress merges consecutive block-member slots of each calendar day into
// ranges. Only tagged slots that also meet the minUsers headcount are
// considered. rule decides whether two slots 15 minutes apart belong to the
// same range.
func Compress(slots []model.Timeslot, m Membership, minUsers int, rule Rule, rank Ranking, loc *time.Location) []model.Range {
	members := make([]model.Timeslot, 0, len(m))
	for _, s := range slots {
		if m.Contains(s.Begin) && s.MeetsHeadcount(minUsers) {
			members = append(members, s)
		}
	}

	var ranges []model.Range
	for _, day := range groupByDate(members, loc) {
		ranges = append(ranges, compressDay(day, m, rule, rank, loc)...)
	}
	return ranges
}

// groupByDate splits slots by local date; groups and their contents are
// time ordered.
func groupByDate(slots []model.Timeslot, loc *time.Location) [][]model.Timeslot {
	sorted := append([]model.Timeslot(nil), slots...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Begin < sorted[j].Begin
	})

	var groups [][]model.Timeslot
	lastDate := ""
	for _, s := range sorted {
		d := s.Date(loc)
		if len(groups) == 0 || d != lastDate {
			groups = append(groups, nil)
			lastDate = d
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], s)
	}
	return groups
}

func compressDay(day []model.Timeslot, m Membership, rule Rule, rank Ranking, loc *time.Location) []model.Range {
	if len(day) == 0 {
		return nil
	}

	step := int64(model.SlotDuration / time.Second)
	var out []model.Range

	first := 0
	for i := 1; i <= len(day); i++ {
		if i < len(day) &&
			day[i].Begin-day[i-1].Begin == step &&
			compatible(rule, m, day[i-1], day[i]) {
			continue
		}
		out = append(out, buildRange(day[first:i], m, rank, loc))
		first = i
	}
	return out
}

// compatible reports whether adjacent slots a and b belong to one range.
// RuleHeadcount looks at each slot's full headcount, not at who is free.
func compatible(rule Rule, m Membership, a, b model.Timeslot) bool {
	if rule == RuleHeadcount {
		return a.Count() == b.Count()
	}
	return m.Qualifying(a.Begin).Equal(m.Qualifying(b.Begin))
}

func buildRange(run []model.Timeslot, m Membership, rank Ranking, loc *time.Location) model.Range {
	people := make(model.UserSet)
	begins := make([]int64, 0, len(run))
	for _, s := range run {
		people.Union(m.Qualifying(s.Begin))
		begins = append(begins, s.Begin)
	}
	last := run[len(run)-1]
	return model.Range{
		Start:  run[0].Start(loc),
		End:    last.Start(loc).Add(model.SlotDuration),
		People: rank.Order(people),
		Slots:  begins,
	}
}
