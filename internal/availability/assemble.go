package availability

import (
	"sort"
	"strconv"
	"time"

	"meetblocks/internal/model"
)

// Kind tells exporters how to type a matrix column.
type Kind int

const (
	KindDay Kind = iota
	KindDate
	KindTime
	KindFlag
	KindCount
)

func (k Kind) String() string {
	switch k {
	case KindDay:
		return "day"
	case KindDate:
		return "date"
	case KindTime:
		return "time"
	case KindFlag:
		return "flag"
	case KindCount:
		return "count"
	}
	return "unknown"
}

// Column is one header cell of the wide matrix.
type Column struct {
	Name string
	Kind Kind
	// Person is set for per-person availability columns.
	Person bool
}

// Matrix is the wide per-slot view: one row per filtered slot.
type Matrix struct {
	Columns []Column
	Rows    [][]string
}

// Header returns the column names.
func (mx Matrix) Header() []string {
	out := make([]string, len(mx.Columns))
	for i, c := range mx.Columns {
		out[i] = c.Name
	}
	return out
}

// BuildMatrix lays out slots with one 0/1 column per person in people
// order, followed by the headcount and the two flags.
func BuildMatrix(slots []model.Timeslot, m Membership, people []string, minUsers int, loc *time.Location) Matrix {
	cols := []Column{
		{Name: "Day", Kind: KindDay},
		{Name: "Date", Kind: KindDate},
		{Name: "Begin", Kind: KindTime},
	}
	for _, p := range people {
		cols = append(cols, Column{Name: p, Kind: KindFlag, Person: true})
	}
	cols = append(cols,
		Column{Name: "CountAvailable", Kind: KindCount},
		Column{Name: "AtLeast" + strconv.Itoa(minUsers) + "Users", Kind: KindFlag},
		Column{Name: "IsPartOfBlock", Kind: KindFlag},
	)

	rows := make([][]string, 0, len(slots))
	for _, s := range slots {
		row := make([]string, 0, len(cols))
		row = append(row, s.DayName(loc), s.Date(loc), s.Clock(loc))
		for _, p := range people {
			row = append(row, flag(s.Available.Has(p)))
		}
		row = append(row,
			strconv.Itoa(s.Count()),
			flag(s.MeetsHeadcount(minUsers)),
			flag(m.Contains(s.Begin)),
		)
		rows = append(rows, row)
	}

	return Matrix{Columns: cols, Rows: rows}
}

func flag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// Overview is the weekly view: one column per range, one row per rank.
type Overview struct {
	Labels []string
	// Rows[i][j] is the i-th ranked person of range j, "" when range j has
	// fewer people.
	Rows   [][]string
	Ranges []model.Range
}

// BuildOverview orders ranges by start and pads the ranked people into a
// rectangle.
func BuildOverview(ranges []model.Range) Overview {
	sorted := append([]model.Range(nil), ranges...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	labels := make([]string, len(sorted))
	depth := 0
	for j, r := range sorted {
		labels[j] = r.Label()
		if len(r.People) > depth {
			depth = len(r.People)
		}
	}

	rows := make([][]string, depth)
	for i := range rows {
		row := make([]string, len(sorted))
		for j, r := range sorted {
			if i < len(r.People) {
				row[j] = r.People[i]
			}
		}
		rows[i] = row
	}

	return Overview{Labels: labels, Rows: rows, Ranges: sorted}
}
