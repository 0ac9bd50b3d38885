package engine

import (
	"fmt"

	"runway/internal/core"
)

// RuleError reports a rule the engine rejected. Rejection is isolated: the
// remaining rules still produce a forecast.
type RuleError struct {
	RuleID string `json:"rule_id"`
	Err    error  `json:"-"`
}

func (e RuleError) Error() string {
	return fmt.Sprintf("rule %s: %v", e.RuleID, e.Err)
}

func (e RuleError) Unwrap() error {
	return e.Err
}

// ComputeTransactions expands every rule over [StartDate, EndDate], merges the
// occurrences into one chronological ledger and assigns running balances and
// working capital. It is deterministic: identical inputs yield identical
// output.
func ComputeTransactions(rules []core.Rule, p core.Parameters) ([]core.LedgerEntry, []RuleError) {
	var (
		entries  []core.LedgerEntry
		rejected []RuleError
	)
	for _, rule := range rules {
		expanded, err := expandRule(rule, p)
		if err != nil {
			rejected = append(rejected, RuleError{RuleID: rule.ID, Err: err})
			continue
		}
		entries = append(entries, expanded...)
	}

	sortEntries(entries)
	applyBalances(entries, p)
	applyWorkingCapital(entries, p)
	return entries, rejected
}

// applyBalances assigns each entry the running sum of values seeded by the
// current balance.
func applyBalances(entries []core.LedgerEntry, p core.Parameters) {
	balance := p.CurrentBalance.Cents
	for i := range entries {
		balance += entries[i].Value.Cents
		entries[i].Balance = core.CentsOf(balance)
	}
}
