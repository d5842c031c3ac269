package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// Ledger mutates account running balances. Every method runs on the
// Queries of the caller's unit of work, so a balance change and the record
// that caused it commit or roll back together.
type Ledger struct {
	logger *applog.Logger
}

func NewLedger() *Ledger {
	return &Ledger{logger: applog.Default(applog.ComponentLedger)}
}

// Apply adds d to its account. A zero delta is a no-op.
func (l *Ledger) Apply(ctx context.Context, q *storage.Queries, userID int64, d core.Delta) error {
	if d.Amount.IsZero() {
		return nil
	}
	if err := q.AdjustAccountBalance(ctx, userID, d); err != nil {
		return fmt.Errorf("apply delta to account %d: %w", d.AccountID, err)
	}
	l.logger.DebugContext(ctx, "Balance adjusted",
		applog.NewFields().WithOperation(applog.OpApply).WithUser(userID).
			WithDelta(d.AccountID, d.Amount.Cents).ToSlice()...)
	return nil
}

// Reverse undoes a delta previously applied with Apply.
func (l *Ledger) Reverse(ctx context.Context, q *storage.Queries, userID int64, d core.Delta) error {
	return l.Apply(ctx, q, userID, d.Reverse())
}

// ApplyEntry applies the balance effect of an income or expense charged to
// target and returns it. Card-charged entries leave every account alone and
// report ok false.
func (l *Ledger) ApplyEntry(ctx context.Context, q *storage.Queries, userID int64, target core.Target, typ core.EntryType, amount core.Money) (d core.Delta, ok bool, err error) {
	d, ok = core.EntryDelta(target, typ, amount)
	if !ok {
		return core.Delta{}, false, nil
	}
	return d, true, l.Apply(ctx, q, userID, d)
}

// ReverseEntry undoes ApplyEntry for the same arguments.
func (l *Ledger) ReverseEntry(ctx context.Context, q *storage.Queries, userID int64, target core.Target, typ core.EntryType, amount core.Money) (d core.Delta, ok bool, err error) {
	d, ok = core.EntryDelta(target, typ, amount)
	if !ok {
		return core.Delta{}, false, nil
	}
	d = d.Reverse()
	return d, true, l.Apply(ctx, q, userID, d)
}

// ApplyTransfer debits the source and credits the destination.
func (l *Ledger) ApplyTransfer(ctx context.Context, q *storage.Queries, tr core.Transfer) ([2]core.Delta, error) {
	deltas := tr.Deltas()
	for _, d := range deltas {
		if err := l.Apply(ctx, q, tr.UserID, d); err != nil {
			return deltas, err
		}
	}
	return deltas, nil
}

// ReverseTransfer credits the source and debits the destination.
func (l *Ledger) ReverseTransfer(ctx context.Context, q *storage.Queries, tr core.Transfer) ([2]core.Delta, error) {
	deltas := tr.Deltas()
	for i, d := range deltas {
		deltas[i] = d.Reverse()
		if err := l.Apply(ctx, q, tr.UserID, deltas[i]); err != nil {
			return deltas, err
		}
	}
	return deltas, nil
}
