package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// TransactionService records single incomes and expenses. Debit entries
// move their account balance in the same unit of work as the row itself;
// credit entries only change the card invoice.
type TransactionService struct {
	repo     *storage.SQLiteRepository
	ledger   *Ledger
	invoices *InvoiceService
	notifier *notifier
	logger   *applog.Logger
}

func NewTransactionService(repo *storage.SQLiteRepository, ledger *Ledger, invoices *InvoiceService, n *notifier) *TransactionService {
	return &TransactionService{
		repo:     repo,
		ledger:   ledger,
		invoices: invoices,
		notifier: n,
		logger:   applog.Default(applog.ComponentTransaction),
	}
}

// Add stores t and applies its balance effect.
func (s *TransactionService) Add(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var delta core.Delta
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		if err := checkTarget(ctx, q, t.UserID, t.Target); err != nil {
			return err
		}
		if err := checkCategory(ctx, q, t.UserID, t.CategoryID); err != nil {
			return err
		}
		if err := q.CreateTransaction(ctx, &t); err != nil {
			return err
		}
		var err error
		delta, _, err = s.ledger.ApplyEntry(ctx, q, t.UserID, t.Target, t.Type, t.Amount)
		return err
	})
	if err != nil {
		logOutcome(ctx, s.logger, "Failed to add transaction", err, applog.FieldUserID, t.UserID)
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	s.invoices.invalidateTargets(t.UserID, t.Target)

	s.logger.InfoContext(ctx, "Transaction added",
		applog.FieldUserID, t.UserID,
		applog.FieldEntityID, t.ID,
		applog.FieldAmountCents, t.Amount.Cents,
		"type", t.Type,
		"method", t.Target.Method())

	s.notifier.publish(ctx, transactionEvent(events.TransactionCreated, t, delta))
	return t, nil
}

// Edit replaces the stored transaction with t. The old balance effect is
// reversed on the old account before the new one is applied, so a change
// of account moves the money between the two. An empty attachment keeps
// the stored one.
func (s *TransactionService) Edit(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	var (
		old      core.Transaction
		reversed core.Delta
		applied  core.Delta
	)
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		if old, err = q.GetTransaction(ctx, t.UserID, t.ID); err != nil {
			return err
		}
		if err := checkTarget(ctx, q, t.UserID, t.Target); err != nil {
			return err
		}
		if err := checkCategory(ctx, q, t.UserID, t.CategoryID); err != nil {
			return err
		}

		if reversed, _, err = s.ledger.ReverseEntry(ctx, q, old.UserID, old.Target, old.Type, old.Amount); err != nil {
			return err
		}
		if t.Attachment.Filename == "" {
			t.Attachment = old.Attachment
		}
		t.CreatedAt = old.CreatedAt
		if err := q.UpdateTransaction(ctx, t); err != nil {
			return err
		}
		applied, _, err = s.ledger.ApplyEntry(ctx, q, t.UserID, t.Target, t.Type, t.Amount)
		return err
	})
	if err != nil {
		logOutcome(ctx, s.logger, "Failed to edit transaction", err,
			applog.FieldUserID, t.UserID, applog.FieldEntityID, t.ID)
		return core.Transaction{}, fmt.Errorf("edit transaction %d: %w", t.ID, err)
	}
	s.invoices.invalidateTargets(t.UserID, old.Target, t.Target)

	s.logger.InfoContext(ctx, "Transaction updated",
		applog.FieldUserID, t.UserID, applog.FieldEntityID, t.ID, applog.FieldAmountCents, t.Amount.Cents)

	e := transactionEvent(events.TransactionUpdated, t, applied)
	e.Changes = changes(reversed, applied)
	s.notifier.publish(ctx, e)
	return t, nil
}

// Delete reverses the transaction's balance effect and removes it. The
// deleted row is returned so the caller can drop its attachment.
func (s *TransactionService) Delete(ctx context.Context, userID, id int64) (core.Transaction, error) {
	var (
		t        core.Transaction
		reversed core.Delta
	)
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		if t, err = q.GetTransaction(ctx, userID, id); err != nil {
			return err
		}
		if reversed, _, err = s.ledger.ReverseEntry(ctx, q, userID, t.Target, t.Type, t.Amount); err != nil {
			return err
		}
		return q.DeleteTransaction(ctx, userID, id)
	})
	if err != nil {
		logOutcome(ctx, s.logger, "Failed to delete transaction", err,
			applog.FieldUserID, userID, applog.FieldEntityID, id)
		return core.Transaction{}, fmt.Errorf("delete transaction %d: %w", id, err)
	}
	s.invoices.invalidateTargets(userID, t.Target)

	s.logger.InfoContext(ctx, "Transaction deleted", applog.FieldUserID, userID, applog.FieldEntityID, id)
	s.notifier.publish(ctx, transactionEvent(events.TransactionDeleted, t, reversed))
	return t, nil
}

func (s *TransactionService) Get(ctx context.Context, userID, id int64) (core.Transaction, error) {
	return s.repo.Queries().GetTransaction(ctx, userID, id)
}

// List returns the user's transactions, newest first.
func (s *TransactionService) List(ctx context.Context, userID int64, f storage.TransactionFilter) ([]core.Transaction, error) {
	return s.repo.Queries().ListTransactions(ctx, userID, f)
}

func transactionEvent(kind events.Kind, t core.Transaction, d core.Delta) *events.LedgerEvent {
	e := events.NewLedgerEvent(kind, t.UserID, t.ID)
	stampTarget(e, t.Target)
	e.Description = t.Description
	e.AmountCents = t.Type.Sign() * t.Amount.Cents
	e.Date = t.Date.String()
	e.Changes = changes(d)
	return e
}
