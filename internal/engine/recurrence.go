// Package engine implements the balance forecast pipeline: recurrence
// expansion, dynamic amount resolution, ledger construction, working-capital
// segmentation, daily aggregation, horizon sizing and completion search.
//
// Every function here is pure: rules and parameters in, values out. Callers
// own caching, persistence and transport.
package engine

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	"runway/internal/core"
)

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

var rruleFrequencies = map[core.Frequency]rrule.Frequency{
	core.Weekly:  rrule.WEEKLY,
	core.Monthly: rrule.MONTHLY,
	core.Yearly:  rrule.YEARLY,
}

// baseRule translates a validated spec into its single base rrule. The spec's
// DtStart anchors the pattern; a zero DtStart falls back to the forecast start
// so patterns without an anchor begin at the start of the simulation.
func baseRule(spec *core.RecurrenceSpec, fallbackStart core.Date) (*rrule.RRule, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	opt := rrule.ROption{
		Freq:    rruleFrequencies[spec.Freq],
		Dtstart: spec.DtStart.Time,
	}
	if spec.DtStart.IsZero() {
		opt.Dtstart = fallbackStart.Time
	}
	opt.Interval = spec.Interval
	if opt.Interval <= 0 {
		opt.Interval = 1
	}
	for _, wd := range spec.ByWeekday {
		opt.Byweekday = append(opt.Byweekday, rruleWeekdays[wd])
	}
	if spec.ByMonthDay > 0 {
		opt.Bymonthday = []int{spec.ByMonthDay}
	}
	if !spec.Until.IsZero() {
		opt.Until = spec.Until.Time
	}
	if spec.Count > 0 {
		opt.Count = spec.Count
	}

	r, err := rrule.NewRRule(opt)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrRuleTooComplex, err)
	}
	return r, nil
}

func buildSet(spec *core.RecurrenceSpec, fallbackStart core.Date) (*rrule.Set, error) {
	r, err := baseRule(spec, fallbackStart)
	if err != nil {
		return nil, err
	}
	set := &rrule.Set{}
	set.RRule(r)
	for _, d := range spec.RDates {
		set.RDate(d.Time)
	}
	for _, d := range spec.ExDates {
		set.ExDate(d.Time)
	}
	return set, nil
}

// ExpandDates returns the ascending occurrence dates of a recurrence spec
// within [start, end], both inclusive, with excluded dates removed and
// explicit extra dates added.
func ExpandDates(spec *core.RecurrenceSpec, start, end core.Date) ([]core.Date, error) {
	set, err := buildSet(spec, start)
	if err != nil {
		return nil, err
	}
	times := set.Between(start.Time, end.Time, true)
	dates := make([]core.Date, 0, len(times))
	for _, t := range times {
		dates = append(dates, core.Date{Time: t})
	}
	return dates, nil
}
