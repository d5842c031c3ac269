package mirror

import (
	"context"
	"errors"
	"strconv"

	"fintrack/internal/core"
	"fintrack/internal/events"
)

// Row is one ledger event flattened for a spreadsheet-like sink.
type Row struct {
	EventID     string
	Kind        events.Kind
	UserID      int64
	EntityID    int64
	Date        core.Date
	Description string
	Amount      core.Money
	AccountID   int64
	CardID      int64
}

// Writer appends rows to a mirror and returns a reference to where the row
// landed.
type Writer interface {
	Append(ctx context.Context, r Row) (rowRef string, err error)
}

// RowFromEvent builds a row from e. Events without a business date fall
// back to the day they occurred.
func RowFromEvent(e *events.LedgerEvent) (Row, error) {
	if e == nil {
		return Row{}, errors.New("nil ledger event")
	}
	r := Row{
		EventID:     e.ID,
		Kind:        e.Kind,
		UserID:      e.UserID,
		EntityID:    e.EntityID,
		Description: e.Description,
		Amount:      core.Cents(e.AmountCents),
		AccountID:   e.AccountID,
		CardID:      e.CardID,
	}
	if e.Date != "" {
		d, err := core.ParseDate(e.Date)
		if err != nil {
			return Row{}, err
		}
		r.Date = d
	} else {
		r.Date = core.DateOf(e.OccurredAt)
	}
	return r, nil
}

func (r Row) Validate() error {
	if r.EventID == "" {
		return errors.New("row has no event id")
	}
	if r.Kind == "" {
		return errors.New("row has no kind")
	}
	return r.Date.Validate()
}

// Values renders the row as sheet cells: date, kind, description, amount,
// account, card, user, entity and event id.
func (r Row) Values() []any {
	return []any{
		r.Date.String(),
		string(r.Kind),
		r.Description,
		r.Amount.String(),
		optionalID(r.AccountID),
		optionalID(r.CardID),
		r.UserID,
		r.EntityID,
		r.EventID,
	}
}

func optionalID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}
