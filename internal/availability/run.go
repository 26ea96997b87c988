package availability

import (
	"fmt"

	appLog "meetblocks/internal/log"
	"meetblocks/internal/model"
)

// Result is everything one pipeline pass produces.
type Result struct {
	Params Params

	// Slots are the filtered, time-sorted slots.
	Slots      []model.Timeslot
	Membership Membership
	// People is the matrix column order, most constrained first.
	People []string
	Ranges []model.Range

	Matrix   Matrix
	Overview Overview

	Stats MergeStats
}

// Empty reports whether no slot survived the temporal filter.
func (r Result) Empty() bool {
	return len(r.Slots) == 0
}

// Run validates p and runs the full pipeline over datasets. datasets[0] is
// the primary source whose slots define the time grid.
//
// An empty filter result is not an error; check Result.Empty.
func Run(p Params, datasets []model.Dataset) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	if len(datasets) == 0 {
		return Result{}, fmt.Errorf("%w: no datasets", ErrInvalidParams)
	}
	if p.Rule == "" {
		p.Rule = RuleSet
	}

	merged := Merge(datasets, p.SelectOnly)
	if merged.Stats.Skipped() > 0 {
		appLog.Debug("merge skipped malformed facts",
			"unknown_slots", merged.Stats.UnknownSlots,
			"unknown_instants", merged.Stats.UnknownInstants,
			"unknown_people", merged.Stats.UnknownPeople,
		)
	}

	res := Result{
		Params:     p,
		Membership: make(Membership),
		Stats:      merged.Stats,
	}

	res.Slots = Filter(merged.Slots, p.Window(), p.Location)
	if len(res.Slots) == 0 {
		appLog.Info("no timeslots match the date/time filter", "merged_slots", len(merged.Slots))
	}

	res.Membership = DetectBlocks(res.Slots, p.WindowSlots, p.MinUsers)

	rank := NewRanking(res.Slots, merged.Roster)
	res.People = rank.Names()
	res.Ranges = Compress(res.Slots, res.Membership, p.MinUsers, p.Rule, rank, p.Location)
	res.Matrix = BuildMatrix(res.Slots, res.Membership, res.People, p.MinUsers, p.Location)
	res.Overview = BuildOverview(res.Ranges)

	appLog.Info("availability pipeline completed",
		"datasets", len(datasets),
		"slots", len(res.Slots),
		"people", len(res.People),
		"block_slots", len(res.Membership),
		"ranges", len(res.Ranges),
	)
	return res, nil
}
