package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds every statement of the schema. All reads and writes are
// scoped by the owning user.
type Queries struct {
	db  DBTX
	now func() time.Time
}

func New(db DBTX) *Queries {
	return &Queries{db: db, now: time.Now}
}

// WithTx returns a copy of q bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx, now: q.now}
}

const (
	dateLayout      = "2006-01-02"
	timestampLayout = time.RFC3339
)

type scanner interface {
	Scan(dest ...any) error
}

func (q *Queries) timestamp() string {
	return q.now().UTC().Format(timestampLayout)
}

func formatDate(d core.Date) string {
	return d.Format(dateLayout)
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse stored date %q: %w", s, err)
	}
	return core.Date{Time: t}, nil
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullID(id int64) sql.NullInt64 {
	return sql.NullInt64{Int64: id, Valid: id > 0}
}

func nullDate(d core.Date) sql.NullString {
	if d.IsEmpty() {
		return sql.NullString{}
	}
	return sql.NullString{String: formatDate(d), Valid: true}
}

// targetColumns splits a target into its account and card columns.
func targetColumns(t core.Target) (account, card sql.NullInt64) {
	if id, ok := t.AccountID(); ok {
		return nullID(id), sql.NullInt64{}
	}
	if id, ok := t.CardID(); ok {
		return sql.NullInt64{}, nullID(id)
	}
	return sql.NullInt64{}, sql.NullInt64{}
}

func targetFromColumns(account, card sql.NullInt64) (core.Target, error) {
	switch {
	case account.Valid && !card.Valid:
		return core.DebitTarget(account.Int64), nil
	case card.Valid && !account.Valid:
		return core.CreditTarget(card.Int64), nil
	}
	return core.Target{}, fmt.Errorf("stored row violates account/card exclusivity")
}

// notFound maps sql.ErrNoRows to core.ErrNotFound.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return fmt.Errorf("get %s: %w", what, err)
}

// expectOne returns ErrNotFound when a user-scoped write matched nothing.
func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, core.ErrNotFound)
	}
	return nil
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

func (q *Queries) sum(ctx context.Context, query string, args ...any) (core.Money, error) {
	var cents int64
	if err := q.db.QueryRowContext(ctx, query, args...).Scan(&cents); err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}
