package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

const transferColumns = `id, user_id, from_account_id, to_account_id, amount_cents, date,
	description, notes, created_at`

func scanTransfer(row scanner) (core.Transfer, error) {
	var (
		t               core.Transfer
		date, createdAt string
	)
	err := row.Scan(&t.ID, &t.UserID, &t.FromAccountID, &t.ToAccountID, &t.Amount.Cents, &date,
		&t.Description, &t.Notes, &createdAt)
	if err != nil {
		return core.Transfer{}, err
	}
	if t.Date, err = parseDate(date); err != nil {
		return core.Transfer{}, err
	}
	t.CreatedAt = parseTimestamp(createdAt)
	return t, nil
}

func (q *Queries) CreateTransfer(ctx context.Context, t *core.Transfer) error {
	createdAt := q.timestamp()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO transfers (user_id, from_account_id, to_account_id, amount_cents, date,
			description, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, t.FromAccountID, t.ToAccountID, t.Amount.Cents, formatDate(t.Date),
		t.Description, t.Notes, createdAt)
	if err != nil {
		return fmt.Errorf("create transfer: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("transfer id: %w", err)
	}
	t.CreatedAt = parseTimestamp(createdAt)
	return nil
}

func (q *Queries) GetTransfer(ctx context.Context, userID, id int64) (core.Transfer, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+transferColumns+` FROM transfers WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransfer(row)
	if err != nil {
		return core.Transfer{}, notFound(err, fmt.Sprintf("transfer %d", id))
	}
	return t, nil
}

// ListTransfers returns the user's transfers, newest first. A positive limit
// caps the result.
func (q *Queries) ListTransfers(ctx context.Context, userID int64, limit int) ([]core.Transfer, error) {
	query := `SELECT ` + transferColumns + ` FROM transfers WHERE user_id = ?
		ORDER BY date DESC, created_at DESC, id DESC`
	args := []any{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var out []core.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) DeleteTransfer(ctx context.Context, userID, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transfers WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transfer: %w", err)
	}
	return expectOne(res, fmt.Sprintf("transfer %d", id))
}
