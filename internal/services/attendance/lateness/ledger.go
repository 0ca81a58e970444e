package lateness

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

// LedgerStore is the persistence needed by Ledger.
type LedgerStore interface {
	IncrementLateCount(ctx context.Context, name string, at time.Time) (int, error)
	RecordFirstLate(ctx context.Context, name string, at time.Time) error
}

// Ledger keeps late counts in the local database. It is used when no
// spreadsheet is configured.
type Ledger struct {
	store LedgerStore
	clock clockwork.Clock
}

// NewLedger builds a local reporter. A nil clock uses the real clock.
func NewLedger(store LedgerStore, clock clockwork.Clock) *Ledger {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Ledger{store: store, clock: clock}
}

// IncrementLateCount implements Reporter.
func (l *Ledger) IncrementLateCount(ctx context.Context, name string) (int, error) {
	if l == nil || l.store == nil {
		return 0, fmt.Errorf("late ledger is not configured")
	}
	return l.store.IncrementLateCount(ctx, name, l.clock.Now())
}

// RecordFirstLate implements Reporter.
func (l *Ledger) RecordFirstLate(ctx context.Context, name string) error {
	if l == nil || l.store == nil {
		return fmt.Errorf("late ledger is not configured")
	}
	return l.store.RecordFirstLate(ctx, name, l.clock.Now())
}
