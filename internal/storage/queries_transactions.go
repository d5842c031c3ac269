package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

// TransactionFilter narrows ListTransactions. Zero fields are ignored; the
// date range is inclusive on both ends.
type TransactionFilter struct {
	AccountID  int64
	CardID     int64
	CategoryID int64
	Type       core.EntryType
	From       core.Date
	To         core.Date
	Limit      int
}

const transactionColumns = `id, user_id, account_id, credit_card_id, category_id, description,
	amount_cents, type, date, notes, attachment, attachment_type, created_at`

func scanTransaction(row scanner) (core.Transaction, error) {
	var (
		t                    core.Transaction
		account, card, catID sql.NullInt64
		typ, date, createdAt string
	)
	err := row.Scan(&t.ID, &t.UserID, &account, &card, &catID, &t.Description,
		&t.Amount.Cents, &typ, &date, &t.Notes, &t.Attachment.Filename, &t.Attachment.Type, &createdAt)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Target, err = targetFromColumns(account, card); err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %d: %w", t.ID, err)
	}
	if t.Date, err = parseDate(date); err != nil {
		return core.Transaction{}, err
	}
	t.CategoryID = catID.Int64
	t.Type = core.EntryType(typ)
	t.CreatedAt = parseTimestamp(createdAt)
	return t, nil
}

func (q *Queries) collectTransactions(ctx context.Context, query string, args ...any) ([]core.Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (q *Queries) CreateTransaction(ctx context.Context, t *core.Transaction) error {
	account, card := targetColumns(t.Target)
	createdAt := q.timestamp()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, account_id, credit_card_id, category_id, description,
			amount_cents, type, date, notes, attachment, attachment_type, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UserID, account, card, nullID(t.CategoryID), t.Description, t.Amount.Cents,
		string(t.Type), formatDate(t.Date), t.Notes, t.Attachment.Filename, t.Attachment.Type, createdAt)
	if err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	if t.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("transaction id: %w", err)
	}
	t.CreatedAt = parseTimestamp(createdAt)
	return nil
}

func (q *Queries) GetTransaction(ctx context.Context, userID, id int64) (core.Transaction, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	t, err := scanTransaction(row)
	if err != nil {
		return core.Transaction{}, notFound(err, fmt.Sprintf("transaction %d", id))
	}
	return t, nil
}

// ListTransactions returns the user's transactions, newest first.
func (q *Queries) ListTransactions(ctx context.Context, userID int64, f TransactionFilter) ([]core.Transaction, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.AccountID > 0 {
		where = append(where, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.CardID > 0 {
		where = append(where, "credit_card_id = ?")
		args = append(args, f.CardID)
	}
	if f.CategoryID > 0 {
		where = append(where, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if !f.From.IsEmpty() {
		where = append(where, "date >= ?")
		args = append(args, formatDate(f.From))
	}
	if !f.To.IsEmpty() {
		where = append(where, "date <= ?")
		args = append(args, formatDate(f.To))
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY date DESC, created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	return q.collectTransactions(ctx, query, args...)
}

// UpdateTransaction rewrites every mutable column of t.
func (q *Queries) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	account, card := targetColumns(t.Target)
	res, err := q.db.ExecContext(ctx, `
		UPDATE transactions SET account_id = ?, credit_card_id = ?, category_id = ?, description = ?,
			amount_cents = ?, type = ?, date = ?, notes = ?, attachment = ?, attachment_type = ?
		WHERE id = ? AND user_id = ?`,
		account, card, nullID(t.CategoryID), t.Description, t.Amount.Cents, string(t.Type),
		formatDate(t.Date), t.Notes, t.Attachment.Filename, t.Attachment.Type, t.ID, t.UserID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectOne(res, fmt.Sprintf("transaction %d", t.ID))
}

func (q *Queries) DeleteTransaction(ctx context.Context, userID, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOne(res, fmt.Sprintf("transaction %d", id))
}

// SumCardExpenses totals expense transactions charged to a card in p.
func (q *Queries) SumCardExpenses(ctx context.Context, userID, cardID int64, p core.Period) (core.Money, error) {
	m, err := q.sum(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE user_id = ? AND credit_card_id = ? AND type = 'expense' AND date >= ? AND date < ?`,
		userID, cardID, formatDate(p.Start), formatDate(p.End))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum card expenses: %w", err)
	}
	return m, nil
}

// ListCardExpenses returns the expense transactions charged to a card in p.
func (q *Queries) ListCardExpenses(ctx context.Context, userID, cardID int64, p core.Period) ([]core.Transaction, error) {
	return q.collectTransactions(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE user_id = ? AND credit_card_id = ? AND type = 'expense' AND date >= ? AND date < ?
		ORDER BY date DESC, id DESC`,
		userID, cardID, formatDate(p.Start), formatDate(p.End))
}

// SumTransactions totals transactions of typ dated in p. With debitOnly set,
// card-charged transactions are excluded.
func (q *Queries) SumTransactions(ctx context.Context, userID int64, typ core.EntryType, debitOnly bool, p core.Period) (core.Money, error) {
	query := `
		SELECT COALESCE(SUM(amount_cents), 0) FROM transactions
		WHERE user_id = ? AND type = ? AND date >= ? AND date < ?`
	if debitOnly {
		query += ` AND account_id IS NOT NULL`
	}
	m, err := q.sum(ctx, query, userID, string(typ), formatDate(p.Start), formatDate(p.End))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum %s transactions: %w", typ, err)
	}
	return m, nil
}

// SumExpensesByCategory groups categorized expense transactions dated in p,
// largest first.
func (q *Queries) SumExpensesByCategory(ctx context.Context, userID int64, p core.Period) ([]core.CategoryAmount, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.color, SUM(t.amount_cents) AS total
		FROM transactions t
		JOIN categories c ON c.id = t.category_id
		WHERE t.user_id = ? AND t.type = 'expense' AND t.date >= ? AND t.date < ?
		GROUP BY c.id, c.name, c.color
		ORDER BY total DESC, c.name`,
		userID, formatDate(p.Start), formatDate(p.End))
	if err != nil {
		return nil, fmt.Errorf("sum expenses by category: %w", err)
	}
	defer rows.Close()

	var out []core.CategoryAmount
	for rows.Next() {
		var ca core.CategoryAmount
		if err := rows.Scan(&ca.CategoryID, &ca.Name, &ca.Color, &ca.Amount.Cents); err != nil {
			return nil, fmt.Errorf("scan category sum: %w", err)
		}
		out = append(out, ca)
	}
	return out, rows.Err()
}
