package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

// BalanceAudit compares an account's stored running balance with the one
// rebuilt from its history.
type BalanceAudit struct {
	AccountID int64
	UserID    int64
	Name      string
	Current   core.Money
	Expected  core.Money
}

// Drift is how far the stored balance is from the rebuilt one.
func (a BalanceAudit) Drift() core.Money {
	return a.Current.Sub(a.Expected)
}

// AuditAccountBalances rebuilds every account balance from its initial
// balance, debit transactions, paid debit installments and transfers.
func (q *Queries) AuditAccountBalances(ctx context.Context) ([]BalanceAudit, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT a.id, a.user_id, a.name, a.current_balance_cents,
			a.initial_balance_cents
			+ COALESCE((SELECT SUM(CASE WHEN t.type = 'income' THEN t.amount_cents ELSE -t.amount_cents END)
				FROM transactions t WHERE t.account_id = a.id), 0)
			- COALESCE((SELECT SUM(i.amount_cents)
				FROM installments i WHERE i.account_id = a.id AND i.paid = 1), 0)
			- COALESCE((SELECT SUM(tr.amount_cents)
				FROM transfers tr WHERE tr.from_account_id = a.id), 0)
			+ COALESCE((SELECT SUM(tr.amount_cents)
				FROM transfers tr WHERE tr.to_account_id = a.id), 0)
		FROM accounts a
		ORDER BY a.id`)
	if err != nil {
		return nil, fmt.Errorf("audit account balances: %w", err)
	}
	defer rows.Close()

	var out []BalanceAudit
	for rows.Next() {
		var a BalanceAudit
		if err := rows.Scan(&a.AccountID, &a.UserID, &a.Name, &a.Current.Cents, &a.Expected.Cents); err != nil {
			return nil, fmt.Errorf("scan balance audit: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
