package engine

import (
	"testing"

	"runway/internal/core"
)

func goalRule(progress, goal int64) core.Rule {
	return core.Rule{
		ID:         "vacation",
		Name:       "Vacation fund",
		Kind:       core.KindSavingsGoal,
		Value:      core.CentsOf(-1000),
		Progress:   core.CentsOf(progress),
		Goal:       core.CentsOf(goal),
		Recurrence: weeklyMondays(),
	}
}

func yearParams() core.Parameters {
	return core.Parameters{
		StartDate:      core.NewDate(2024, 5, 19),
		EndDate:        core.NewDate(2025, 5, 19),
		CurrentBalance: core.CentsOf(100000),
	}
}

func TestSavingsGoalStopsAtTarget(t *testing.T) {
	entries, rejected := ComputeTransactions([]core.Rule{goalRule(90200, 100000)}, yearParams())
	if len(rejected) != 0 {
		t.Fatalf("rejected = %v", rejected)
	}
	if len(entries) != 10 {
		t.Fatalf("got %d entries, want 10", len(entries))
	}
	for i, e := range entries[:9] {
		if e.Value.Cents != -1000 {
			t.Errorf("entry %d value = %d, want -1000", i, e.Value.Cents)
		}
		if e.IsLastPayment {
			t.Errorf("entry %d flagged as last payment", i)
		}
	}
	final := entries[9]
	if final.Value.Cents != -800 {
		t.Errorf("final contribution = %d, want -800 (truncated to the gap)", final.Value.Cents)
	}
	if !final.IsLastPayment {
		t.Error("final contribution not flagged as last payment")
	}
	if final.Day.String() != "2024-07-22" {
		t.Errorf("final contribution day = %s, want 2024-07-22", final.Day)
	}
}

func TestSavingsGoalExactFit(t *testing.T) {
	entries, rejected := ComputeTransactions([]core.Rule{goalRule(98000, 100000)}, yearParams())
	if len(rejected) != 0 {
		t.Fatalf("rejected = %v", rejected)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].IsLastPayment {
		t.Error("first contribution flagged as last payment")
	}
	if entries[1].Value.Cents != -1000 || !entries[1].IsLastPayment {
		t.Errorf("final contribution = %d (last=%v), want -1000 flagged",
			entries[1].Value.Cents, entries[1].IsLastPayment)
	}
}

func TestSavingsGoalAlreadyMet(t *testing.T) {
	entries, rejected := ComputeTransactions([]core.Rule{goalRule(100000, 100000)}, yearParams())
	if len(rejected) != 0 {
		t.Fatalf("rejected = %v", rejected)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries for a met goal, want none", len(entries))
	}
}

func TestSavingsGoalCountsExceptionalContributions(t *testing.T) {
	rule := goalRule(90200, 100000)
	rule.Exceptional = []core.ExceptionalTransaction{{
		ID:    "bonus",
		Day:   core.NewDate(2024, 6, 1),
		Value: moneyPtr(-5000),
	}}

	entries, rejected := ComputeTransactions([]core.Rule{rule}, yearParams())
	if len(rejected) != 0 {
		t.Fatalf("rejected = %v", rejected)
	}
	if len(entries) != 6 {
		t.Fatalf("got %d entries, want 6", len(entries))
	}
	final := entries[5]
	if final.Day.String() != "2024-06-17" {
		t.Errorf("final contribution day = %s, want 2024-06-17", final.Day)
	}
	if final.Value.Cents != -800 || !final.IsLastPayment {
		t.Errorf("final contribution = %d (last=%v), want -800 flagged",
			final.Value.Cents, final.IsLastPayment)
	}
}

func TestSavingsGoalIgnoresExceptionalPastCompletion(t *testing.T) {
	rule := goalRule(90200, 100000)
	rule.Exceptional = []core.ExceptionalTransaction{{
		ID:    "late",
		Day:   core.NewDate(2024, 8, 1),
		Value: moneyPtr(-5000),
	}}

	entries, rejected := ComputeTransactions([]core.Rule{rule}, yearParams())
	if len(rejected) != 0 {
		t.Fatalf("rejected = %v", rejected)
	}
	if len(entries) != 10 {
		t.Fatalf("got %d entries, want 10 (nothing after the goal is reached)", len(entries))
	}
	for _, e := range entries {
		if e.Day.After(core.NewDate(2024, 7, 22).Time) {
			t.Errorf("entry on %s past completion day", e.Day)
		}
	}
}

func TestLoanPaysOffWithAccruedInterest(t *testing.T) {
	rule := core.Rule{
		ID:                 "car",
		Name:               "Car loan",
		Kind:               core.KindLoan,
		Value:              core.CentsOf(-40000),
		Balance:            core.CentsOf(100000),
		APR:                0.08,
		CompoundingsYearly: 12,
		Recurrence:         weeklyMondays(),
	}

	entries, rejected := ComputeTransactions([]core.Rule{rule}, testParams())
	if len(rejected) != 0 {
		t.Fatalf("rejected = %v", rejected)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}

	wantValues := []int64{-40000, -40000, -20151}
	for i, e := range entries {
		if e.Value.Cents != wantValues[i] {
			t.Errorf("payment %d = %d, want %d", i, e.Value.Cents, wantValues[i])
		}
	}
	if entries[0].IsLastPayment || entries[1].IsLastPayment {
		t.Error("intermediate payment flagged as last")
	}
	if !entries[2].IsLastPayment {
		t.Error("closing payment not flagged as last")
	}
	if entries[2].Day.String() != "2024-06-03" {
		t.Errorf("closing payment day = %s, want 2024-06-03", entries[2].Day)
	}
}

func TestLoanZeroRateIsPlainAmortization(t *testing.T) {
	rule := core.Rule{
		ID:         "interest-free",
		Name:       "Interest-free loan",
		Kind:       core.KindLoan,
		Value:      core.CentsOf(-40000),
		Balance:    core.CentsOf(100000),
		Recurrence: weeklyMondays(),
	}

	entries, rejected := ComputeTransactions([]core.Rule{rule}, testParams())
	if len(rejected) != 0 {
		t.Fatalf("rejected = %v", rejected)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[2].Value.Cents != -20000 {
		t.Errorf("closing payment = %d, want -20000", entries[2].Value.Cents)
	}
	if !entries[2].IsLastPayment {
		t.Error("closing payment not flagged as last")
	}
}

func TestLoanZeroBalanceEmitsNothing(t *testing.T) {
	rule := core.Rule{
		ID:         "paid",
		Name:       "Paid off",
		Kind:       core.KindLoan,
		Value:      core.CentsOf(-40000),
		Recurrence: weeklyMondays(),
	}

	entries, rejected := ComputeTransactions([]core.Rule{rule}, testParams())
	if len(rejected) != 0 {
		t.Fatalf("rejected = %v", rejected)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries for a settled loan, want none", len(entries))
	}
}
