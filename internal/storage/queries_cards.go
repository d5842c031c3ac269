package storage

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

const cardColumns = `id, user_id, name, limit_cents, closing_day, due_day, color, icon, active, created_at`

func scanCard(row scanner) (core.CreditCard, error) {
	var (
		c         core.CreditCard
		active    int64
		createdAt string
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Limit.Cents, &c.ClosingDay, &c.DueDay,
		&c.Color, &c.Icon, &active, &createdAt)
	if err != nil {
		return core.CreditCard{}, err
	}
	c.Active = active == 1
	c.CreatedAt = parseTimestamp(createdAt)
	return c, nil
}

func (q *Queries) CreateCreditCard(ctx context.Context, c *core.CreditCard) error {
	createdAt := q.timestamp()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO credit_cards (user_id, name, limit_cents, closing_day, due_day, color, icon, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, c.Limit.Cents, c.ClosingDay, c.DueDay, c.Color, c.Icon, boolInt(c.Active), createdAt)
	if err != nil {
		return fmt.Errorf("create credit card: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("credit card id: %w", err)
	}
	c.CreatedAt = parseTimestamp(createdAt)
	return nil
}

func (q *Queries) GetCreditCard(ctx context.Context, userID, id int64) (core.CreditCard, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+cardColumns+` FROM credit_cards WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCard(row)
	if err != nil {
		return core.CreditCard{}, notFound(err, fmt.Sprintf("credit card %d", id))
	}
	return c, nil
}

func (q *Queries) ListCreditCards(ctx context.Context, userID int64, activeOnly bool) ([]core.CreditCard, error) {
	query := `SELECT ` + cardColumns + ` FROM credit_cards WHERE user_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := q.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list credit cards: %w", err)
	}
	defer rows.Close()

	var out []core.CreditCard
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credit card: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateCreditCard(ctx context.Context, c core.CreditCard) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE credit_cards SET name = ?, limit_cents = ?, closing_day = ?, due_day = ?,
			color = ?, icon = ?, active = ?
		WHERE id = ? AND user_id = ?`,
		c.Name, c.Limit.Cents, c.ClosingDay, c.DueDay, c.Color, c.Icon, boolInt(c.Active), c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("update credit card: %w", err)
	}
	return expectOne(res, fmt.Sprintf("credit card %d", c.ID))
}

const categoryColumns = `id, user_id, name, type, color, icon, created_at`

func scanCategory(row scanner) (core.Category, error) {
	var (
		c         core.Category
		typ       string
		createdAt string
	)
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &typ, &c.Color, &c.Icon, &createdAt); err != nil {
		return core.Category{}, err
	}
	c.Type = core.EntryType(typ)
	c.CreatedAt = parseTimestamp(createdAt)
	return c, nil
}

func (q *Queries) CreateCategory(ctx context.Context, c *core.Category) error {
	createdAt := q.timestamp()
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO categories (user_id, name, type, color, icon, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.UserID, c.Name, string(c.Type), c.Color, c.Icon, createdAt)
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}
	if c.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("category id: %w", err)
	}
	c.CreatedAt = parseTimestamp(createdAt)
	return nil
}

func (q *Queries) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	c, err := scanCategory(row)
	if err != nil {
		return core.Category{}, notFound(err, fmt.Sprintf("category %d", id))
	}
	return c, nil
}

func (q *Queries) ListCategories(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE user_id = ? ORDER BY type, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE categories SET name = ?, type = ?, color = ?, icon = ?
		WHERE id = ? AND user_id = ?`,
		c.Name, string(c.Type), c.Color, c.Icon, c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	return expectOne(res, fmt.Sprintf("category %d", c.ID))
}
