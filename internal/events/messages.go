package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind names what happened in the ledger.
type Kind string

const (
	TransactionCreated  Kind = "transaction.created"
	TransactionUpdated  Kind = "transaction.updated"
	TransactionDeleted  Kind = "transaction.deleted"
	InstallmentPurchase Kind = "installment.purchased"
	InstallmentPaid     Kind = "installment.paid"
	InstallmentUnpaid   Kind = "installment.unpaid"
	TransferCreated     Kind = "transfer.created"
	TransferDeleted     Kind = "transfer.deleted"
	AccountCreated      Kind = "account.created"
	CardCreated         Kind = "card.created"
)

// BalanceChange is one signed account adjustment carried by an event.
type BalanceChange struct {
	AccountID  int64 `json:"account_id"`
	DeltaCents int64 `json:"delta_cents"`
}

// LedgerEvent is published after a ledger write commits. It is a snapshot:
// consumers never need to read the database to render it.
type LedgerEvent struct {
	ID          string          `json:"id"`
	Kind        Kind            `json:"kind"`
	UserID      int64           `json:"user_id"`
	EntityID    int64           `json:"entity_id"`
	AccountID   int64           `json:"account_id,omitempty"`
	CardID      int64           `json:"card_id,omitempty"`
	Description string          `json:"description,omitempty"`
	AmountCents int64           `json:"amount_cents"`
	Date        string          `json:"date,omitempty"`
	Changes     []BalanceChange `json:"changes,omitempty"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

// NewLedgerEvent stamps a fresh event with a random ID and the current time.
func NewLedgerEvent(kind Kind, userID, entityID int64) *LedgerEvent {
	return &LedgerEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		UserID:     userID,
		EntityID:   entityID,
		OccurredAt: time.Now().UTC(),
	}
}

func (e *LedgerEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// LedgerEventFromJSON decodes and sanity-checks a message body.
func LedgerEventFromJSON(data []byte) (*LedgerEvent, error) {
	var e LedgerEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(e.ID); err != nil {
		return nil, fmt.Errorf("invalid event id %q: %w", e.ID, err)
	}
	if e.Kind == "" {
		return nil, fmt.Errorf("event %s has no kind", e.ID)
	}
	return &e, nil
}
