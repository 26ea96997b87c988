// Package availability finds meeting windows in merged per-person
// 15-minute availability.
//
// The pipeline is Merge → Filter → DetectBlocks → Compress → Build*. Run
// wires the stages together; each stage is also usable on its own. Nothing
// in this package performs I/O.
package availability

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidParams is returned (wrapped) by Params.Validate and Run when the
// configuration is unusable. It is distinct from runtime failures.
var ErrInvalidParams = errors.New("availability: invalid params")

const (
	DefaultMinUsers    = 3
	DefaultWindowSlots = 6
	DefaultBeginHour   = 6
	DefaultEndHour     = 22
)

// Rule selects how Compress decides that two adjacent slots belong to the
// same range.
type Rule string

const (
	// RuleSet merges slots whose qualifying people are exactly equal.
	RuleSet Rule = "set"
	// RuleHeadcount merges slots whose total headcounts are equal, even
	// if the people differ.
	RuleHeadcount Rule = "headcount"
)

// ParseRule maps a config value to a Rule. Empty selects RuleSet.
func ParseRule(s string) (Rule, error) {
	switch Rule(s) {
	case "", RuleSet:
		return RuleSet, nil
	case RuleHeadcount:
		return RuleHeadcount, nil
	default:
		return "", fmt.Errorf("%w: unknown merge rule %q", ErrInvalidParams, s)
	}
}

// Params is the single entry point configuration of the pipeline.
type Params struct {
	// MinUsers is the minimum number of the same people that must be free
	// in every slot of a window.
	MinUsers int
	// WindowSlots is the sliding window length in 15-minute slots.
	WindowSlots int

	// BeginHour/EndHour bound the local time of day, [BeginHour, EndHour).
	BeginHour int
	EndHour   int

	// Start/End bound the slot start instant, [Start, End). Nil is unbounded.
	Start *time.Time
	End   *time.Time

	// SelectOnly restricts everything to these names. Empty keeps everyone.
	SelectOnly []string

	// Location is used for every date and clock derivation.
	Location *time.Location

	Rule Rule
}

// DefaultParams returns the defaults with no date bounds.
func DefaultParams(loc *time.Location) Params {
	return Params{
		MinUsers:    DefaultMinUsers,
		WindowSlots: DefaultWindowSlots,
		BeginHour:   DefaultBeginHour,
		EndHour:     DefaultEndHour,
		Location:    loc,
		Rule:        RuleSet,
	}
}

// Validate rejects parameters the pipeline cannot run with.
func (p Params) Validate() error {
	if p.Location == nil {
		return fmt.Errorf("%w: location is nil", ErrInvalidParams)
	}
	if p.MinUsers < 1 {
		return fmt.Errorf("%w: min users must be >= 1, got %d", ErrInvalidParams, p.MinUsers)
	}
	if p.WindowSlots < 1 {
		return fmt.Errorf("%w: window slots must be >= 1, got %d", ErrInvalidParams, p.WindowSlots)
	}
	if p.BeginHour < 0 || p.BeginHour > 23 {
		return fmt.Errorf("%w: begin hour %d outside 0-23", ErrInvalidParams, p.BeginHour)
	}
	if p.EndHour < 0 || p.EndHour > 23 {
		return fmt.Errorf("%w: end hour %d outside 0-23", ErrInvalidParams, p.EndHour)
	}
	if p.EndHour <= p.BeginHour {
		return fmt.Errorf("%w: end hour %d must be after begin hour %d", ErrInvalidParams, p.EndHour, p.BeginHour)
	}
	if p.Start != nil && p.End != nil && !p.End.After(*p.Start) {
		return fmt.Errorf("%w: end %s must be after start %s", ErrInvalidParams,
			p.End.Format(time.RFC3339), p.Start.Format(time.RFC3339))
	}
	if _, err := ParseRule(string(p.Rule)); err != nil {
		return err
	}
	return nil
}

// Window returns the temporal filter described by p.
func (p Params) Window() Window {
	return Window{
		Start:     p.Start,
		End:       p.End,
		BeginHour: p.BeginHour,
		EndHour:   p.EndHour,
	}
}
