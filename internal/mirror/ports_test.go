package mirror

import (
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
)

func TestRowFromEvent(t *testing.T) {
	e := events.NewLedgerEvent(events.TransactionCreated, 7, 42)
	e.Description = "Groceries"
	e.AmountCents = 2550
	e.Date = "2024-03-02"
	e.AccountID = 3

	r, err := RowFromEvent(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Date.String() != "2024-03-02" {
		t.Errorf("unexpected date: %s", r.Date)
	}
	if r.Amount != core.Cents(2550) {
		t.Errorf("unexpected amount: %s", r.Amount)
	}

	vals := r.Values()
	want := []any{"2024-03-02", "transaction.created", "Groceries", "25.50", "3", "", int64(7), int64(42), e.ID}
	if len(vals) != len(want) {
		t.Fatalf("expected %d values, got %d", len(want), len(vals))
	}
	for i := range want {
		if vals[i] != want[i] {
			t.Errorf("value %d: expected %v, got %v", i, want[i], vals[i])
		}
	}
}

func TestRowFromEvent_DateFallback(t *testing.T) {
	e := events.NewLedgerEvent(events.AccountCreated, 1, 1)
	e.OccurredAt = time.Date(2024, 5, 6, 23, 0, 0, 0, time.UTC)

	r, err := RowFromEvent(e)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Date.String() != "2024-05-06" {
		t.Errorf("expected occurrence date, got %s", r.Date)
	}
}

func TestRowFromEvent_Invalid(t *testing.T) {
	if _, err := RowFromEvent(nil); err == nil {
		t.Error("expected error for nil event")
	}

	e := events.NewLedgerEvent(events.TransferCreated, 1, 1)
	e.Date = "not-a-date"
	if _, err := RowFromEvent(e); err == nil {
		t.Error("expected error for malformed date")
	}
}
