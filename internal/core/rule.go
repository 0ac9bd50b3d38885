package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// RuleKind tags the closed set of rule variants. Everywhere a kind is
// dispatched the switch must be exhaustive over these values.
type RuleKind string

const (
	KindIncome           RuleKind = "income"
	KindExpense          RuleKind = "expense"
	KindSavingsGoal      RuleKind = "savings_goal"
	KindLoan             RuleKind = "loan"
	KindTransactionsList RuleKind = "transactions_list"
)

// Frequency is the base repetition of a recurrence spec.
type Frequency string

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

var (
	ErrEmptyName          = errors.New("empty rule name")
	ErrUnknownKind        = errors.New("unknown rule kind")
	ErrRuleTooComplex     = errors.New("rule too complex")
	ErrMissingRecurrence  = errors.New("missing recurrence spec")
	ErrNonPositiveGoal    = errors.New("goal must be positive")
	ErrNegativeProgress   = errors.New("progress must not be negative")
	ErrProgressOverGoal   = errors.New("progress must not exceed goal")
	ErrNegativeBalance    = errors.New("loan balance must not be negative")
	ErrNegativeAPR        = errors.New("apr must not be negative")
	ErrBadCompounding     = errors.New("compoundings per year must be at least 1")
	ErrNegativeSetAside   = errors.New("set aside must not be negative")
	ErrEndBeforeStart     = errors.New("end date before start date")
	ErrRuleNotFound       = errors.New("rule not found")
)

// RecurrenceSpec describes one repeating date pattern plus explicit excluded
// and included dates. A rule carries at most one base pattern by construction;
// anything the fields cannot express is rejected as too complex.
type RecurrenceSpec struct {
	Freq       Frequency      `json:"freq"`
	Interval   int            `json:"interval,omitempty"`
	ByWeekday  []time.Weekday `json:"by_weekday,omitempty"`
	ByMonthDay int            `json:"by_month_day,omitempty"`
	DtStart    Date           `json:"dtstart,omitempty"`
	Until      Date           `json:"until,omitempty"`
	Count      int            `json:"count,omitempty"`
	ExDates    []Date         `json:"exdates,omitempty"`
	RDates     []Date         `json:"rdates,omitempty"`
}

// Validate rejects specs the expander cannot honor. These are configuration
// errors surfaced to the rule author, never silently coerced.
func (s *RecurrenceSpec) Validate() error {
	switch s.Freq {
	case Weekly, Monthly, Yearly:
	default:
		return fmt.Errorf("%w: unsupported frequency %q", ErrRuleTooComplex, s.Freq)
	}
	if s.Interval < 0 {
		return fmt.Errorf("%w: negative interval", ErrRuleTooComplex)
	}
	if s.Count < 0 {
		return fmt.Errorf("%w: negative count", ErrRuleTooComplex)
	}
	if s.Count > 0 && !s.Until.IsZero() {
		return fmt.Errorf("%w: both count and until set", ErrRuleTooComplex)
	}
	if s.ByMonthDay < 0 || s.ByMonthDay > 31 {
		return fmt.Errorf("%w: month day %d out of range", ErrRuleTooComplex, s.ByMonthDay)
	}
	for _, wd := range s.ByWeekday {
		if wd < time.Sunday || wd > time.Saturday {
			return fmt.Errorf("%w: invalid weekday %d", ErrRuleTooComplex, wd)
		}
	}
	return nil
}

// ExceptionalTransaction is a dated override or addition attached to a rule.
// A nil Name or Value falls back to the rule's own name or value. When the day
// coincides with a generated occurrence the exception replaces it; otherwise
// it injects an extra one-off entry.
type ExceptionalTransaction struct {
	ID    string  `json:"id"`
	Day   Date    `json:"day"`
	Name  *string `json:"name,omitempty"`
	Value *Money  `json:"value,omitempty"`
}

// Rule is one financial obligation. Kind decides which fields are meaningful:
// recurring kinds use Value and Recurrence; savings goals add Progress and
// Goal; loans add Balance, APR and CompoundingsYearly; transactions lists
// carry only Exceptional entries. Rules are supplied whole for each forecast
// call and never mutated by the engine.
type Rule struct {
	ID          string                   `json:"id"`
	Name        string                   `json:"name"`
	Kind        RuleKind                 `json:"kind"`
	Value       Money                    `json:"value"`
	Recurrence  *RecurrenceSpec          `json:"recurrence,omitempty"`
	Exceptional []ExceptionalTransaction `json:"exceptional_transactions,omitempty"`

	// Version increments on every update; change events carry it so
	// consumers can drop stale notifications.
	Version int64 `json:"version,omitempty"`

	// Savings goal fields.
	Progress Money `json:"progress,omitempty"`
	Goal     Money `json:"goal,omitempty"`

	// Loan fields.
	Balance            Money   `json:"balance,omitempty"`
	APR                float64 `json:"apr,omitempty"`
	CompoundingsYearly int     `json:"compoundings_yearly,omitempty"`
}

// IsRecurring reports whether the rule expands a recurrence pattern.
func (r Rule) IsRecurring() bool {
	return r.Kind != KindTransactionsList
}

// Validate implements the configuration-error taxonomy: malformed recurrence,
// non-positive goal, negative loan balance and friends are rejected up front.
func (r Rule) Validate() error {
	if strings.TrimSpace(r.Name) == "" && r.Kind != KindTransactionsList {
		return ErrEmptyName
	}
	switch r.Kind {
	case KindIncome, KindExpense:
		return r.validateRecurrence()
	case KindSavingsGoal:
		if r.Goal.Cents <= 0 {
			return ErrNonPositiveGoal
		}
		if r.Progress.Cents < 0 {
			return ErrNegativeProgress
		}
		if r.Progress.Cents > r.Goal.Cents {
			return ErrProgressOverGoal
		}
		return r.validateRecurrence()
	case KindLoan:
		if r.Balance.Cents < 0 {
			return ErrNegativeBalance
		}
		if r.APR < 0 {
			return ErrNegativeAPR
		}
		if r.APR > 0 && r.CompoundingsYearly < 1 {
			return ErrBadCompounding
		}
		return r.validateRecurrence()
	case KindTransactionsList:
		if r.Recurrence != nil {
			return fmt.Errorf("%w: transactions list with recurrence", ErrRuleTooComplex)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownKind, r.Kind)
	}
}

func (r Rule) validateRecurrence() error {
	if r.Recurrence == nil {
		return ErrMissingRecurrence
	}
	return r.Recurrence.Validate()
}
