package availability

import (
	"testing"
	"time"

	"meetblocks/internal/model"
)

func TestFilter_HourBandIsHalfOpen(t *testing.T) {
	starts := []time.Time{
		at(0, 5, 45), at(0, 6, 0), at(0, 21, 45), at(0, 22, 0), at(0, 22, 15),
	}
	slots := slotsWith(starts, repeat([]string{"A", "B", "C"}, len(starts))...)

	got := Filter(slots, Window{BeginHour: 6, EndHour: 22}, cest)

	want := []int64{at(0, 6, 0).Unix(), at(0, 21, 45).Unix()}
	if len(got) != len(want) {
		t.Fatalf("Filter() kept %d slots, want %d", len(got), len(want))
	}
	for i, s := range got {
		if s.Begin != want[i] {
			t.Errorf("Filter()[%d] = %s, want %s", i, s.Start(cest), time.Unix(want[i], 0).In(cest))
		}
	}
}

func TestFilter_DateBoundsAndOrdering(t *testing.T) {
	starts := []time.Time{
		at(2, 9, 0), at(0, 9, 0), at(1, 9, 0), at(-1, 9, 0), at(1, 8, 45),
	}
	slots := slotsWith(starts)
	start := at(0, 0, 0)
	end := at(2, 0, 0)

	got := Filter(slots, Window{Start: &start, End: &end, BeginHour: 0, EndHour: 23}, cest)

	want := []time.Time{at(0, 9, 0), at(1, 8, 45), at(1, 9, 0)}
	if len(got) != len(want) {
		t.Fatalf("Filter() kept %d slots, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].Begin != want[i].Unix() {
			t.Errorf("Filter()[%d] = %s, want %s", i, got[i].Start(cest), want[i])
		}
	}
}

func TestFilter_UnboundedKeepsAllInBand(t *testing.T) {
	slots := slotsWith(grid(at(0, 9, 0), 4))
	got := Filter(slots, Window{BeginHour: 6, EndHour: 22}, cest)
	if len(got) != 4 {
		t.Errorf("Filter() kept %d slots, want 4", len(got))
	}
}

func TestFilter_CollapsesDuplicateInstants(t *testing.T) {
	s1 := model.NewTimeslot(0, at(0, 9, 0).Unix())
	s1.Available.Add("A")
	s2 := model.NewTimeslot(4, at(0, 9, 0).Unix())
	s2.Available.Add("B")

	got := Filter([]model.Timeslot{s1, s2}, Window{BeginHour: 6, EndHour: 22}, cest)

	if len(got) != 1 {
		t.Fatalf("Filter() = %d slots, want 1", len(got))
	}
	if got[0].Count() != 2 {
		t.Errorf("collapsed slot = %v, want [A B]", got[0].Available.Sorted())
	}
	if s1.Available.Has("B") {
		t.Error("Filter mutated the input slot's availability")
	}
}

func TestFilter_Empty(t *testing.T) {
	slots := slotsWith([]time.Time{at(0, 3, 0)})
	if got := Filter(slots, Window{BeginHour: 6, EndHour: 22}, cest); len(got) != 0 {
		t.Errorf("Filter() = %d slots, want 0", len(got))
	}
}
