// Package cost prices model calls and keeps the per-run spend ledger.
package cost

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Kind labels what a ledger entry paid for.
type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
)

// Entry is one charge attributed to a car and platform.
type Entry struct {
	Kind     Kind
	CarID    string
	Platform string
	Amount   decimal.Decimal
}

// Ledger accumulates charges for one pipeline run.
type Ledger struct {
	mu      sync.Mutex
	entries []Entry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Record adds a charge. Negative amounts are rejected.
func (l *Ledger) Record(e Entry) error {
	if e.Amount.IsNegative() {
		return fmt.Errorf("negative %s cost %s for car %s", e.Kind, e.Amount, e.CarID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
	return nil
}

// Total returns the exact sum of all charges.
func (l *Ledger) Total() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := decimal.Zero
	for _, e := range l.entries {
		total = total.Add(e.Amount)
	}
	return total
}

// TotalByKind returns the sum per charge kind.
func (l *Ledger) TotalByKind() map[Kind]decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[Kind]decimal.Decimal)
	for _, e := range l.entries {
		out[e.Kind] = out[e.Kind].Add(e.Amount)
	}
	return out
}

// Sum adds amounts exactly.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
