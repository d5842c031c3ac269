package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

const accountColumns = `id, user_id, name, type, initial_balance_cents, current_balance_cents,
	color, icon, active, created_at`

func scanAccount(row scanner) (core.Account, error) {
	var (
		a         core.Account
		active    int64
		createdAt string
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Type, &a.InitialBalance.Cents,
		&a.CurrentBalance.Cents, &a.Color, &a.Icon, &active, &createdAt)
	if err != nil {
		return core.Account{}, err
	}
	a.Active = active == 1
	a.CreatedAt = parseTimestamp(createdAt)
	return a, nil
}

// CreateUser inserts a user row and returns its id.
func (q *Queries) CreateUser(ctx context.Context, username, email string) (int64, error) {
	res, err := q.db.ExecContext(ctx,
		`INSERT INTO users (username, email, created_at) VALUES (?, ?, ?)`,
		username, email, q.timestamp())
	if err != nil {
		return 0, fmt.Errorf("create user: %w", err)
	}
	return res.LastInsertId()
}

// CreateAccount inserts a and sets its ID. The current balance starts at
// the initial balance.
func (q *Queries) CreateAccount(ctx context.Context, a *core.Account) error {
	createdAt := q.timestamp()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO accounts (user_id, name, type, initial_balance_cents, current_balance_cents,
			color, icon, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.UserID, a.Name, a.Type, a.InitialBalance.Cents, a.InitialBalance.Cents,
		a.Color, a.Icon, boolInt(a.Active), createdAt)
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	if a.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("account id: %w", err)
	}
	a.CurrentBalance = a.InitialBalance
	a.CreatedAt = parseTimestamp(createdAt)
	return nil
}

func (q *Queries) GetAccount(ctx context.Context, userID, id int64) (core.Account, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	a, err := scanAccount(row)
	if err != nil {
		return core.Account{}, notFound(err, fmt.Sprintf("account %d", id))
	}
	return a, nil
}

func (q *Queries) ListAccounts(ctx context.Context, userID int64, activeOnly bool) ([]core.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE user_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := q.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateAccount changes the descriptive fields and the active flag. Balances
// are never written here.
func (q *Queries) UpdateAccount(ctx context.Context, a core.Account) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE accounts SET name = ?, type = ?, color = ?, icon = ?, active = ?
		WHERE id = ? AND user_id = ?`,
		a.Name, a.Type, a.Color, a.Icon, boolInt(a.Active), a.ID, a.UserID)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return expectOne(res, fmt.Sprintf("account %d", a.ID))
}

// AdjustAccountBalance adds delta to the running balance in a single
// statement, so concurrent adjustments never overwrite each other.
func (q *Queries) AdjustAccountBalance(ctx context.Context, userID int64, d core.Delta) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE accounts SET current_balance_cents = current_balance_cents + ?
		WHERE id = ? AND user_id = ?`,
		d.Amount.Cents, d.AccountID, userID)
	if err != nil {
		return fmt.Errorf("adjust account balance: %w", err)
	}
	return expectOne(res, fmt.Sprintf("account %d", d.AccountID))
}

// SumAccountBalances totals the running balance of the user's active accounts.
func (q *Queries) SumAccountBalances(ctx context.Context, userID int64) (core.Money, error) {
	m, err := q.sum(ctx, `
		SELECT COALESCE(SUM(current_balance_cents), 0) FROM accounts
		WHERE user_id = ? AND active = 1`, userID)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum account balances: %w", err)
	}
	return m, nil
}
