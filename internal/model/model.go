package model

import (
	"sort"
	"time"
)

// SlotDuration is the fixed length of one scheduling grid cell.
const SlotDuration = 15 * time.Minute

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
	DayLayout   = "Mon"
)

// UserSet is a set of canonical person names.
type UserSet map[string]struct{}

// NewUserSet builds a set from the given names.
func NewUserSet(names ...string) UserSet {
	s := make(UserSet, len(names))
	for _, n := range names {
		s[n] = struct{}{}
	}
	return s
}

func (s UserSet) Add(name string) { s[name] = struct{}{} }

func (s UserSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}

func (s UserSet) Len() int { return len(s) }

// Sorted returns the members in lexical order.
func (s UserSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for n := range s {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func (s UserSet) Clone() UserSet {
	out := make(UserSet, len(s))
	for n := range s {
		out[n] = struct{}{}
	}
	return out
}

// Intersect returns a new set with the members present in both s and o.
func (s UserSet) Intersect(o UserSet) UserSet {
	small, large := s, o
	if len(large) < len(small) {
		small, large = large, small
	}
	out := make(UserSet)
	for n := range small {
		if large.Has(n) {
			out[n] = struct{}{}
		}
	}
	return out
}

// Union adds every member of o to s.
func (s UserSet) Union(o UserSet) {
	for n := range o {
		s[n] = struct{}{}
	}
}

func (s UserSet) Equal(o UserSet) bool {
	if len(s) != len(o) {
		return false
	}
	for n := range s {
		if !o.Has(n) {
			return false
		}
	}
	return true
}

// Timeslot is one 15-minute grid cell and the people free during it.
//
// Index is only meaningful within the source that produced the slot; once
// several sources are merged a slot is identified by Begin.
type Timeslot struct {
	Index     int
	Begin     int64 // Unix seconds, UTC
	Available UserSet
}

// NewTimeslot creates a slot with an empty availability set.
func NewTimeslot(index int, begin int64) Timeslot {
	return Timeslot{Index: index, Begin: begin, Available: make(UserSet)}
}

// Start returns the slot's start instant in loc.
func (t Timeslot) Start(loc *time.Location) time.Time {
	return time.Unix(t.Begin, 0).In(loc)
}

// Date returns the localized calendar date as yyyy-MM-dd.
func (t Timeslot) Date(loc *time.Location) string {
	return t.Start(loc).Format(DateLayout)
}

func (t Timeslot) Weekday(loc *time.Location) time.Weekday {
	return t.Start(loc).Weekday()
}

// DayName returns the abbreviated English day name ("Mon").
func (t Timeslot) DayName(loc *time.Location) string {
	return t.Start(loc).Format(DayLayout)
}

// Clock returns the localized time of day as HH:mm.
func (t Timeslot) Clock(loc *time.Location) string {
	return t.Start(loc).Format(ClockLayout)
}

func (t Timeslot) Count() int { return t.Available.Len() }

func (t Timeslot) MeetsHeadcount(min int) bool { return t.Count() >= min }

// Range is a half-open interval [Start, End) inside one calendar day with
// the people available throughout, most constrained first.
type Range struct {
	Start  time.Time
	End    time.Time
	People []string
	// Slots holds the Begin of every member slot.
	Slots []int64
}

// Label renders the range as "Wed 09:00-10:30" in the range's location.
func (r Range) Label() string {
	return r.Start.Format(DayLayout) + " " + r.Start.Format(ClockLayout) + "-" + r.End.Format(ClockLayout)
}

// SlotTime is one (index, start) fact from a source page.
type SlotTime struct {
	Index int
	Begin int64
}

// Dataset is everything ingestion extracts from one event page.
type Dataset struct {
	SourceID string
	Name     string

	Slots []SlotTime
	// People maps person id to trimmed display name.
	People map[int]string
	// Availability maps slot index to the ids free in that slot.
	Availability map[int][]int
}
