// Package schedule derives the default date window the CLI analyses when no
// explicit bounds are given.
package schedule

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// LeadDays is how far ahead the default window must start: a run on a
// Friday looks at the Monday after next, never at the coming one.
const LeadDays = 4

// WindowDays is the length of the default window.
const WindowDays = 7

// DefaultWindow returns [start, end): start is local midnight of the first
// Monday strictly after the date LeadDays from now, end is WindowDays
// later.
func DefaultWindow(now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	lead := now.In(loc).AddDate(0, 0, LeadDays)
	from := time.Date(lead.Year(), lead.Month(), lead.Day()+1, 0, 0, 0, 0, loc)

	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{rrule.MO},
		Dtstart:   from,
		Count:     1,
	})
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("schedule: build weekly rule: %w", err)
	}
	occ := r.All()
	if len(occ) == 0 {
		return time.Time{}, time.Time{}, fmt.Errorf("schedule: no Monday after %s", from.Format(time.DateOnly))
	}

	start := occ[0].In(loc)
	return start, start.AddDate(0, 0, WindowDays), nil
}
