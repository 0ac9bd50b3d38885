package core

// Parameters is the immutable snapshot a forecast run is computed against.
type Parameters struct {
	StartDate      Date  `json:"start_date"`
	EndDate        Date  `json:"end_date"`
	CurrentBalance Money `json:"current_balance"`
	SetAside       Money `json:"set_aside"`
}

// Validate rejects parameter snapshots the engine cannot work with.
func (p Parameters) Validate() error {
	if p.StartDate.IsZero() {
		return ErrInvalidDate
	}
	if !p.EndDate.IsZero() && p.EndDate.Before(p.StartDate.Time) {
		return ErrEndBeforeStart
	}
	if p.SetAside.Cents < 0 {
		return ErrNegativeSetAside
	}
	return nil
}

// LedgerEntry is one concrete dated transaction produced by expanding a rule.
// Balance and WorkingCapital are filled in by the ledger builder and the
// working-capital pass; the entry ID is unique per (rule, day, exception).
type LedgerEntry struct {
	RuleID string `json:"rule_id"`
	ID     string `json:"id"`
	Name   string `json:"name"`
	Value  Money  `json:"value"`
	Day    Date   `json:"day"`

	// IsLastPayment is set on the occurrence that exactly completes a
	// savings goal or pays off a loan.
	IsLastPayment bool `json:"is_last_payment,omitempty"`

	// ExceptionalTransactionID links back to the originating exception.
	ExceptionalTransactionID string `json:"exceptional_transaction_id,omitempty"`

	Balance        Money `json:"balance"`
	WorkingCapital Money `json:"working_capital"`
}

// Candle is an open/low/high/close summary over one day's running values.
type Candle struct {
	Open  Money `json:"open"`
	Low   Money `json:"low"`
	High  Money `json:"high"`
	Close Money `json:"close"`
}

// DayCandle aggregates one calendar day of ledger activity for display.
type DayCandle struct {
	Date           Date   `json:"date"`
	Volume         int    `json:"volume"`
	Balance        Candle `json:"balance"`
	WorkingCapital Candle `json:"working_capital"`
}
