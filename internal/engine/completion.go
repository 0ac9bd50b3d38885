package engine

import (
	"fmt"

	"runway/internal/core"
)

// completionHorizonYears caps how far ahead a completion search simulates.
// Past this the answer is "incomplete", never an unbounded scan.
const completionHorizonYears = 10

type CompletionResult string

const (
	// CompletionComplete means the rule's target is reached on Day.
	CompletionComplete CompletionResult = "complete"
	// CompletionIncomplete means the target was not reached before
	// SearchedUpTo; still paying it off.
	CompletionIncomplete CompletionResult = "incomplete"
)

// Completion is the outcome of a last-payment search.
type Completion struct {
	Result       CompletionResult `json:"result"`
	Day          core.Date        `json:"day,omitempty"`
	SearchedUpTo core.Date        `json:"searched_up_to,omitempty"`
}

// ComputeLastPaymentDay searches forward for the date a savings goal is
// reached or a loan is paid off, simulating the rule in isolation over
// [start, max(end, start+10y)]. A nil result with nil error means the rule is
// already satisfied and produces no payments at all. Horizon exhaustion is a
// valid incomplete outcome, not an error.
func ComputeLastPaymentDay(rule core.Rule, start, end core.Date) (*Completion, error) {
	switch rule.Kind {
	case core.KindSavingsGoal, core.KindLoan:
	case core.KindIncome, core.KindExpense, core.KindTransactionsList:
		return nil, fmt.Errorf("rule kind %q has no completion date", rule.Kind)
	default:
		return nil, core.ErrUnknownKind
	}

	searchEnd := core.MaxDate(end, start.AddYears(completionHorizonYears))
	entries, rejected := ComputeTransactions([]core.Rule{rule}, core.Parameters{
		StartDate: start,
		EndDate:   searchEnd,
	})
	if len(rejected) > 0 {
		return nil, rejected[0].Err
	}
	if len(entries) == 0 {
		return nil, nil
	}

	final := entries[len(entries)-1]
	if !final.IsLastPayment {
		return &Completion{Result: CompletionIncomplete, SearchedUpTo: searchEnd}, nil
	}
	return &Completion{Result: CompletionComplete, Day: final.Day}, nil
}
