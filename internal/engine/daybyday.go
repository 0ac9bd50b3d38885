package engine

import "runway/internal/core"

// ComputeDayByDays buckets ledger entries into one candle per calendar day
// from StartDate through EndDate inclusive. A synthetic zero-value entry seeds
// the start day with the initial balance; its working capital is the lower of
// the first real entry's working capital and currentBalance − setAside, so a
// payday on day one never implies the money is already free to spend. An
// empty ledger yields no candles; the caller substitutes
// currentBalance − setAside as the current-day figure.
func ComputeDayByDays(entries []core.LedgerEntry, p core.Parameters) []core.DayCandle {
	if len(entries) == 0 {
		return nil
	}

	initialWC := p.CurrentBalance.Cents - p.SetAside.Cents
	if wc := entries[0].WorkingCapital.Cents; wc < initialWC {
		initialWC = wc
	}
	seed := core.LedgerEntry{
		RuleID:         "seed",
		ID:             "seed::" + p.StartDate.String(),
		Day:            p.StartDate,
		Balance:        p.CurrentBalance,
		WorkingCapital: core.CentsOf(initialWC),
	}

	all := make([]core.LedgerEntry, 0, len(entries)+1)
	all = append(all, seed)
	all = append(all, entries...)

	currentBalance := seed.Balance.Cents
	currentWC := seed.WorkingCapital.Cents

	var candles []core.DayCandle
	i := 0
	for day := p.StartDate; !day.After(p.EndDate.Time); day = day.AddDays(1) {
		dayStart := i
		for i < len(all) && all[i].Day.Equal(day.Time) {
			i++
		}
		today := all[dayStart:i]

		volume := len(today)
		if day.Equal(p.StartDate.Time) {
			volume-- // the synthetic seed entry does not count
		}

		balance := candleOver(currentBalance, today, func(e core.LedgerEntry) int64 { return e.Balance.Cents })
		workingCapital := candleOver(currentWC, today, func(e core.LedgerEntry) int64 { return e.WorkingCapital.Cents })

		candles = append(candles, core.DayCandle{
			Date:           day,
			Volume:         volume,
			Balance:        balance,
			WorkingCapital: workingCapital,
		})
		currentBalance = balance.Close.Cents
		currentWC = workingCapital.Close.Cents
	}
	return candles
}

// candleOver summarizes the values touched during a day: the carried-in value
// plus each entry's value, in order.
func candleOver(carry int64, entries []core.LedgerEntry, value func(core.LedgerEntry) int64) core.Candle {
	open, low, high, last := carry, carry, carry, carry
	for _, e := range entries {
		v := value(e)
		if v < low {
			low = v
		}
		if v > high {
			high = v
		}
		last = v
	}
	return core.Candle{
		Open:  core.CentsOf(open),
		Low:   core.CentsOf(low),
		High:  core.CentsOf(high),
		Close: core.CentsOf(last),
	}
}
