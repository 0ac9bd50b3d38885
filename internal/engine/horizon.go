package engine

import "runway/internal/core"

// sentinelDate bounds forward searches over count-bounded patterns so a rule
// with an enormous count terminates instead of scanning forever.
var sentinelDate = core.NewDate(3000, 12, 31)

// horizonFloorDays guarantees a minimum simulation window so forecasts over
// different display ranges stay comparable.
const horizonFloorDays = 400

// ComputeMinimumEndDate returns the earliest end date that must be simulated
// so no rule's finite behavior is silently truncated: the latest excluded
// date, explicitly included date, exceptional-transaction date, final
// occurrence of an until-bounded pattern and final occurrence of a
// count-bounded pattern across all rules, floored at StartDate plus 400 days,
// plus one day so the day after the last unusual date is still visible.
// Display windows filter the computed series; they never shrink it.
func ComputeMinimumEndDate(rules []core.Rule, p core.Parameters) core.Date {
	latest := p.StartDate.AddDays(horizonFloorDays)
	for _, rule := range rules {
		if d, ok := latestUnusualDate(rule, p.StartDate); ok {
			latest = core.MaxDate(latest, d)
		}
	}
	return latest.AddDays(1)
}

// latestUnusualDate reports the latest date at which the rule deviates from an
// infinite steady pattern, if any. Invalid recurrence specs are skipped here;
// they are rejected with full context when the ledger is computed.
func latestUnusualDate(rule core.Rule, start core.Date) (core.Date, bool) {
	var latest core.Date
	found := false
	consider := func(d core.Date) {
		if d.IsZero() {
			return
		}
		if !found || d.After(latest.Time) {
			latest = d
			found = true
		}
	}

	for _, ex := range rule.Exceptional {
		consider(ex.Day)
	}

	spec := rule.Recurrence
	if spec == nil {
		return latest, found
	}
	for _, d := range spec.ExDates {
		consider(d)
	}
	for _, d := range spec.RDates {
		consider(d)
	}

	r, err := baseRule(spec, start)
	if err != nil {
		return latest, found
	}
	if spec.Count > 0 {
		occurrences := r.Between(start.Time, sentinelDate.Time, true)
		if len(occurrences) > 0 {
			consider(core.Date{Time: occurrences[len(occurrences)-1]})
		}
	}
	if !spec.Until.IsZero() {
		if last := r.Before(spec.Until.Time, true); !last.IsZero() {
			consider(core.Date{Time: last})
		}
	}
	return latest, found
}
