package storage

import (
	"context"
	"database/sql"
	"fmt"

	"fintrack/internal/core"
)

// InstallmentStatus filters ListInstallments.
type InstallmentStatus string

const (
	InstallmentsPending InstallmentStatus = "pending"
	InstallmentsPaid    InstallmentStatus = "paid"
	InstallmentsAll     InstallmentStatus = "all"
)

const installmentColumns = `id, user_id, account_id, credit_card_id, category_id, description,
	total_amount_cents, amount_cents, current_installment, total_installments, due_date,
	purchase_date, paid, paid_date, notes, created_at`

func scanInstallment(row scanner) (core.Installment, error) {
	var (
		i                        core.Installment
		account, card, catID     sql.NullInt64
		due, purchase, createdAt string
		paid                     int64
		paidDate                 sql.NullString
	)
	err := row.Scan(&i.ID, &i.UserID, &account, &card, &catID, &i.Description,
		&i.TotalAmount.Cents, &i.Amount.Cents, &i.Index, &i.Count, &due,
		&purchase, &paid, &paidDate, &i.Notes, &createdAt)
	if err != nil {
		return core.Installment{}, err
	}
	if i.Target, err = targetFromColumns(account, card); err != nil {
		return core.Installment{}, fmt.Errorf("installment %d: %w", i.ID, err)
	}
	if i.DueDate, err = parseDate(due); err != nil {
		return core.Installment{}, err
	}
	if i.PurchaseDate, err = parseDate(purchase); err != nil {
		return core.Installment{}, err
	}
	if paidDate.Valid {
		if i.PaidDate, err = parseDate(paidDate.String); err != nil {
			return core.Installment{}, err
		}
	}
	i.CategoryID = catID.Int64
	i.Paid = paid == 1
	i.CreatedAt = parseTimestamp(createdAt)
	return i, nil
}

func (q *Queries) collectInstallments(ctx context.Context, query string, args ...any) ([]core.Installment, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list installments: %w", err)
	}
	defer rows.Close()

	var out []core.Installment
	for rows.Next() {
		i, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		out = append(out, i)
	}
	return out, rows.Err()
}

func (q *Queries) CreateInstallment(ctx context.Context, i *core.Installment) error {
	account, card := targetColumns(i.Target)
	createdAt := q.timestamp()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO installments (user_id, account_id, credit_card_id, category_id, description,
			total_amount_cents, amount_cents, current_installment, total_installments, due_date,
			purchase_date, paid, paid_date, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		i.UserID, account, card, nullID(i.CategoryID), i.Description,
		i.TotalAmount.Cents, i.Amount.Cents, i.Index, i.Count, formatDate(i.DueDate),
		formatDate(i.PurchaseDate), boolInt(i.Paid), nullDate(i.PaidDate), i.Notes, createdAt)
	if err != nil {
		return fmt.Errorf("create installment: %w", err)
	}
	if i.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("installment id: %w", err)
	}
	i.CreatedAt = parseTimestamp(createdAt)
	return nil
}

func (q *Queries) GetInstallment(ctx context.Context, userID, id int64) (core.Installment, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE id = ? AND user_id = ?`, id, userID)
	i, err := scanInstallment(row)
	if err != nil {
		return core.Installment{}, notFound(err, fmt.Sprintf("installment %d", id))
	}
	return i, nil
}

// ListInstallments returns the user's installments by ascending due date.
func (q *Queries) ListInstallments(ctx context.Context, userID int64, status InstallmentStatus) ([]core.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE user_id = ?`
	switch status {
	case InstallmentsPending:
		query += ` AND paid = 0`
	case InstallmentsPaid:
		query += ` AND paid = 1`
	}
	query += ` ORDER BY due_date ASC, id ASC`
	return q.collectInstallments(ctx, query, userID)
}

// SetInstallmentPaid flips the paid flag only when it differs from paid, so
// a concurrent toggle cannot be applied twice. It returns ErrInvalidState
// when the row is already in the requested state.
func (q *Queries) SetInstallmentPaid(ctx context.Context, userID, id int64, paid bool, paidDate core.Date) error {
	if !paid {
		paidDate = core.Date{}
	}
	res, err := q.db.ExecContext(ctx, `
		UPDATE installments SET paid = ?, paid_date = ?
		WHERE id = ? AND user_id = ? AND paid = ?`,
		boolInt(paid), nullDate(paidDate), id, userID, boolInt(!paid))
	if err != nil {
		return fmt.Errorf("set installment paid: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("installment rows affected: %w", err)
	}
	if n == 0 {
		if paid {
			return core.ErrAlreadyPaid
		}
		return core.ErrNotPaid
	}
	return nil
}

// SumCardInstallments totals installments charged to a card and due in p,
// paid or not.
func (q *Queries) SumCardInstallments(ctx context.Context, userID, cardID int64, p core.Period) (core.Money, error) {
	m, err := q.sum(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM installments
		WHERE user_id = ? AND credit_card_id = ? AND due_date >= ? AND due_date < ?`,
		userID, cardID, formatDate(p.Start), formatDate(p.End))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum card installments: %w", err)
	}
	return m, nil
}

// ListCardInstallments returns installments charged to a card and due in p.
func (q *Queries) ListCardInstallments(ctx context.Context, userID, cardID int64, p core.Period) ([]core.Installment, error) {
	return q.collectInstallments(ctx, `
		SELECT `+installmentColumns+` FROM installments
		WHERE user_id = ? AND credit_card_id = ? AND due_date >= ? AND due_date < ?
		ORDER BY due_date DESC, id DESC`,
		userID, cardID, formatDate(p.Start), formatDate(p.End))
}

// SumPaidDebitInstallments totals account-charged installments whose
// payment date falls in p.
func (q *Queries) SumPaidDebitInstallments(ctx context.Context, userID int64, p core.Period) (core.Money, error) {
	m, err := q.sum(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM installments
		WHERE user_id = ? AND paid = 1 AND account_id IS NOT NULL
			AND paid_date >= ? AND paid_date < ?`,
		userID, formatDate(p.Start), formatDate(p.End))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum paid installments: %w", err)
	}
	return m, nil
}

// SumUnpaidInstallmentsDue totals unpaid installments due in p across every
// payment method.
func (q *Queries) SumUnpaidInstallmentsDue(ctx context.Context, userID int64, p core.Period) (core.Money, error) {
	m, err := q.sum(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0) FROM installments
		WHERE user_id = ? AND paid = 0 AND due_date >= ? AND due_date < ?`,
		userID, formatDate(p.Start), formatDate(p.End))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum unpaid installments: %w", err)
	}
	return m, nil
}

// CountUnpaidInstallmentsDue counts unpaid installments due in p.
func (q *Queries) CountUnpaidInstallmentsDue(ctx context.Context, userID int64, p core.Period) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM installments
		WHERE user_id = ? AND paid = 0 AND due_date >= ? AND due_date < ?`,
		userID, formatDate(p.Start), formatDate(p.End)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unpaid installments: %w", err)
	}
	return n, nil
}
