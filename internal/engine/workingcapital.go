package engine

import "runway/internal/core"

// applyWorkingCapital computes, for every entry, the minimum balance the
// account reaches before the next time money comes in, minus the safety-net
// reserve. Two passes:
//
//  1. Partition the ledger into expense segments. A segment starts at a
//     positive-value entry (or at the start of the ledger) and runs until the
//     next positive-value entry. Every entry in a segment gets the segment's
//     lowest balance minus setAside.
//  2. Walk segments newest to oldest keeping a running minimum, so working
//     capital never decreases when scanning the ledger backward. Money needed
//     for a dip weeks away is already reserved today.
func applyWorkingCapital(entries []core.LedgerEntry, p core.Parameters) {
	if len(entries) == 0 {
		return
	}

	type segment struct {
		start, end int // [start, end)
		floor      int64
	}

	var segments []segment
	segStart := 0
	for i := range entries {
		if entries[i].Value.Cents > 0 && i > segStart {
			segments = append(segments, segment{start: segStart, end: i})
			segStart = i
		}
	}
	segments = append(segments, segment{start: segStart, end: len(entries)})

	for s := range segments {
		lowest := entries[segments[s].start].Balance.Cents
		for i := segments[s].start + 1; i < segments[s].end; i++ {
			if b := entries[i].Balance.Cents; b < lowest {
				lowest = b
			}
		}
		segments[s].floor = lowest - p.SetAside.Cents
	}

	lowest := segments[len(segments)-1].floor
	for s := len(segments) - 1; s >= 0; s-- {
		if segments[s].floor < lowest {
			lowest = segments[s].floor
		}
		for i := segments[s].start; i < segments[s].end; i++ {
			entries[i].WorkingCapital = core.CentsOf(lowest)
		}
	}
}
