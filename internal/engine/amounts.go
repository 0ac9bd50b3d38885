package engine

import (
	"math"
	"sort"

	"runway/internal/core"
)

// expandRule turns one rule into its dated ledger entries for the window
// described by p. The returned entries carry rule values only; balances and
// working capital are assigned later by the ledger builder.
func expandRule(rule core.Rule, p core.Parameters) ([]core.LedgerEntry, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}

	if rule.Kind == core.KindTransactionsList {
		entries := make([]core.LedgerEntry, 0, len(rule.Exceptional))
		for _, ex := range rule.Exceptional {
			entries = append(entries, entryFromException(rule, ex, "", core.Money{}))
		}
		sortEntries(entries)
		return entries, nil
	}

	// A savings goal already at or above target produces nothing.
	if rule.Kind == core.KindSavingsGoal && rule.Progress.Cents >= rule.Goal.Cents {
		return nil, nil
	}

	dates, err := ExpandDates(rule.Recurrence, p.StartDate, p.EndDate)
	if err != nil {
		return nil, err
	}

	// An exception on a generated occurrence's day replaces that occurrence;
	// the rest inject extra one-off entries. Exceptions win over exclusions
	// because exclusion only ever removes pattern-generated dates. At most
	// one exception per day replaces; further same-day exceptions inject, so
	// none is ever dropped.
	overrides := make(map[string][]core.ExceptionalTransaction, len(rule.Exceptional))
	for _, ex := range rule.Exceptional {
		key := ex.Day.String()
		overrides[key] = append(overrides[key], ex)
	}

	entries := make([]core.LedgerEntry, 0, len(dates)+len(rule.Exceptional))
	replaced := make(map[string]bool, len(overrides))
	for _, day := range dates {
		if exs, ok := overrides[day.String()]; ok {
			replaced[day.String()] = true
			entries = append(entries, entryFromException(rule, exs[0], rule.Name, rule.Value))
			continue
		}
		entries = append(entries, core.LedgerEntry{
			RuleID: rule.ID,
			ID:     rule.ID + "::" + day.String(),
			Name:   rule.Name,
			Value:  rule.Value,
			Day:    day,
		})
	}
	skipped := make(map[string]bool, len(replaced))
	for _, ex := range rule.Exceptional {
		key := ex.Day.String()
		if replaced[key] && !skipped[key] {
			// The day's first exception already replaced the occurrence.
			skipped[key] = true
			continue
		}
		entries = append(entries, entryFromException(rule, ex, rule.Name, rule.Value))
	}
	sortEntries(entries)

	switch rule.Kind {
	case core.KindIncome, core.KindExpense:
		return entries, nil
	case core.KindSavingsGoal:
		return resolveSavingsGoal(rule, entries), nil
	case core.KindLoan:
		return resolveLoan(rule, entries, p.StartDate), nil
	case core.KindTransactionsList:
		// handled above
		return entries, nil
	default:
		return nil, core.ErrUnknownKind
	}
}

func entryFromException(rule core.Rule, ex core.ExceptionalTransaction, fallbackName string, fallbackValue core.Money) core.LedgerEntry {
	name := fallbackName
	if ex.Name != nil {
		name = *ex.Name
	}
	value := fallbackValue
	if ex.Value != nil {
		value = *ex.Value
	}
	return core.LedgerEntry{
		RuleID:                   rule.ID,
		ID:                       rule.ID + "::" + ex.Day.String() + "::" + ex.ID,
		Name:                     name,
		Value:                    value,
		Day:                      ex.Day,
		ExceptionalTransactionID: ex.ID,
	}
}

// resolveSavingsGoal walks occurrences in date order tracking saved progress.
// Contributions never push progress past the goal: the occurrence that reaches
// it is truncated to exactly what is missing, flagged as the last payment, and
// nothing is emitted afterwards.
func resolveSavingsGoal(rule core.Rule, entries []core.LedgerEntry) []core.LedgerEntry {
	progress := rule.Progress.Cents
	goal := rule.Goal.Cents

	kept := entries[:0]
	for _, e := range entries {
		if progress >= goal {
			break
		}
		progress += -e.Value.Cents
		if progress >= goal {
			e.IsLastPayment = true
		}
		if progress > goal {
			// Shrink the contribution by the overshoot.
			e.Value.Cents += progress - goal
			progress = goal
		}
		kept = append(kept, e)
	}
	return kept
}

// resolveLoan walks occurrences in date order tracking the outstanding
// balance. Interest accrues between occurrences at the daily share of the
// effective annual rate implied by the APR and compounding frequency; the
// payment that clears the balance is truncated to exactly what is owed.
func resolveLoan(rule core.Rule, entries []core.LedgerEntry, start core.Date) []core.LedgerEntry {
	var dailyRate float64
	if rule.APR > 0 {
		n := float64(rule.CompoundingsYearly)
		effectiveAnnualRate := math.Pow(1+rule.APR/n, n) - 1
		dailyRate = effectiveAnnualRate / 365
	}

	balance := rule.Balance.Cents
	lastAccrual := start

	kept := entries[:0]
	for _, e := range entries {
		if balance <= 0 {
			break
		}

		days := e.Day.DaysSince(lastAccrual)
		if days > 0 && dailyRate > 0 {
			balance += int64(math.Round(float64(balance) * dailyRate * float64(days)))
		}
		lastAccrual = e.Day

		balance -= -e.Value.Cents
		if balance <= 0 {
			e.IsLastPayment = true
		}
		if balance < 0 {
			// Shrink the payment so it never exceeds what was owed.
			e.Value.Cents += -balance
			balance = 0
		}
		kept = append(kept, e)
	}
	return kept
}

// sortEntries orders by (day, value) ascending. Same-day ties break by signed
// value so expenses land before income, the conservative ordering for
// working-capital computation.
func sortEntries(entries []core.LedgerEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Day.Equal(entries[j].Day.Time) {
			return entries[i].Day.Before(entries[j].Day.Time)
		}
		return entries[i].Value.Cents < entries[j].Value.Cents
	})
}
