package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// TransferService moves money between two accounts of the same user.
type TransferService struct {
	repo     *storage.SQLiteRepository
	ledger   *Ledger
	notifier *notifier
	logger   *applog.Logger
}

func NewTransferService(repo *storage.SQLiteRepository, ledger *Ledger, n *notifier) *TransferService {
	return &TransferService{
		repo:     repo,
		ledger:   ledger,
		notifier: n,
		logger:   applog.Default(applog.ComponentTransfer),
	}
}

// Add stores the transfer and moves its amount from source to destination.
// A transfer to the same account returns core.ErrSameAccount.
func (s *TransferService) Add(ctx context.Context, tr core.Transfer) (core.Transfer, error) {
	if err := tr.Validate(); err != nil {
		if core.IsInvalidState(err) {
			s.logger.WarnContext(ctx, "Transfer rejected",
				applog.FieldUserID, tr.UserID, applog.FieldAccountID, tr.FromAccountID, applog.FieldError, err)
		}
		return core.Transfer{}, err
	}

	var deltas [2]core.Delta
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		for _, id := range []int64{tr.FromAccountID, tr.ToAccountID} {
			if _, err := q.GetAccount(ctx, tr.UserID, id); err != nil {
				return err
			}
		}
		if err := q.CreateTransfer(ctx, &tr); err != nil {
			return err
		}
		var err error
		deltas, err = s.ledger.ApplyTransfer(ctx, q, tr)
		return err
	})
	if err != nil {
		logOutcome(ctx, s.logger, "Failed to add transfer", err, applog.FieldUserID, tr.UserID)
		return core.Transfer{}, fmt.Errorf("add transfer: %w", err)
	}

	s.logger.InfoContext(ctx, "Transfer added",
		applog.FieldUserID, tr.UserID,
		applog.FieldEntityID, tr.ID,
		applog.FieldAmountCents, tr.Amount.Cents,
		"from", tr.FromAccountID,
		"to", tr.ToAccountID)

	s.notifier.publish(ctx, transferEvent(events.TransferCreated, tr, deltas))
	return tr, nil
}

// Delete restores both balances and removes the transfer.
func (s *TransferService) Delete(ctx context.Context, userID, id int64) (core.Transfer, error) {
	var (
		tr     core.Transfer
		deltas [2]core.Delta
	)
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		if tr, err = q.GetTransfer(ctx, userID, id); err != nil {
			return err
		}
		if deltas, err = s.ledger.ReverseTransfer(ctx, q, tr); err != nil {
			return err
		}
		return q.DeleteTransfer(ctx, userID, id)
	})
	if err != nil {
		logOutcome(ctx, s.logger, "Failed to delete transfer", err,
			applog.FieldUserID, userID, applog.FieldEntityID, id)
		return core.Transfer{}, fmt.Errorf("delete transfer %d: %w", id, err)
	}

	s.logger.InfoContext(ctx, "Transfer deleted", applog.FieldUserID, userID, applog.FieldEntityID, id)
	s.notifier.publish(ctx, transferEvent(events.TransferDeleted, tr, deltas))
	return tr, nil
}

func (s *TransferService) Get(ctx context.Context, userID, id int64) (core.Transfer, error) {
	return s.repo.Queries().GetTransfer(ctx, userID, id)
}

// List returns the user's transfers, newest first. A limit of zero returns
// all of them.
func (s *TransferService) List(ctx context.Context, userID int64, limit int) ([]core.Transfer, error) {
	return s.repo.Queries().ListTransfers(ctx, userID, limit)
}

func transferEvent(kind events.Kind, tr core.Transfer, deltas [2]core.Delta) *events.LedgerEvent {
	e := events.NewLedgerEvent(kind, tr.UserID, tr.ID)
	e.AccountID = tr.FromAccountID
	e.Description = tr.Description
	e.AmountCents = tr.Amount.Cents
	e.Date = tr.Date.String()
	e.Changes = changes(deltas[:]...)
	return e
}
