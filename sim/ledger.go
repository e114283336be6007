package sim

// Ledger holds the account's free cash: money not posted as collateral
// against an open position. Only order fills debit it and only closes
// credit it.
type Ledger struct {
	balance float64
}

func NewLedger(balance float64) *Ledger {
	return &Ledger{balance: balance}
}

func (l *Ledger) Balance() float64 { return l.balance }

// Covers reports whether amount can be debited without borrowing.
func (l *Ledger) Covers(amount float64) bool {
	return amount <= l.balance
}

// Debit removes amount from the balance. Callers pass amount >= 0.
func (l *Ledger) Debit(amount float64) {
	l.balance -= amount
}

// Credit adds amount to the balance. Callers pass amount >= 0.
func (l *Ledger) Credit(amount float64) {
	l.balance += amount
}
