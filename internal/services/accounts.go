package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// AccountService manages accounts. Balances are never written here: the
// current balance starts at the initial balance and only the ledger moves it.
type AccountService struct {
	repo     *storage.SQLiteRepository
	notifier *notifier
	logger   *applog.Logger
}

func NewAccountService(repo *storage.SQLiteRepository, n *notifier) *AccountService {
	return &AccountService{repo: repo, notifier: n, logger: applog.Default(applog.ComponentAccount)}
}

func (s *AccountService) Create(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	a.Active = true
	if err := s.repo.Queries().CreateAccount(ctx, &a); err != nil {
		logOutcome(ctx, s.logger, "Failed to create account", err, applog.FieldUserID, a.UserID)
		return core.Account{}, err
	}

	s.logger.InfoContext(ctx, "Account created",
		applog.FieldUserID, a.UserID, applog.FieldAccountID, a.ID,
		applog.FieldAmountCents, a.InitialBalance.Cents)

	e := events.NewLedgerEvent(events.AccountCreated, a.UserID, a.ID)
	e.AccountID = a.ID
	e.Description = a.Name
	e.AmountCents = a.InitialBalance.Cents
	s.notifier.publish(ctx, e)
	return a, nil
}

func (s *AccountService) Get(ctx context.Context, userID, id int64) (core.Account, error) {
	return s.repo.Queries().GetAccount(ctx, userID, id)
}

func (s *AccountService) List(ctx context.Context, userID int64, activeOnly bool) ([]core.Account, error) {
	return s.repo.Queries().ListAccounts(ctx, userID, activeOnly)
}

// Update changes the account's metadata and active flag. Balances in a are
// ignored.
func (s *AccountService) Update(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	var out core.Account
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		cur, err := q.GetAccount(ctx, a.UserID, a.ID)
		if err != nil {
			return err
		}
		cur.Name, cur.Type, cur.Color, cur.Icon, cur.Active = a.Name, a.Type, a.Color, a.Icon, a.Active
		if err := q.UpdateAccount(ctx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	if err != nil {
		logOutcome(ctx, s.logger, "Failed to update account", err,
			applog.FieldUserID, a.UserID, applog.FieldAccountID, a.ID)
		return core.Account{}, fmt.Errorf("update account: %w", err)
	}
	return out, nil
}

// Deactivate hides the account from active listings. Its history and
// balance stay untouched.
func (s *AccountService) Deactivate(ctx context.Context, userID, id int64) error {
	a, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	a.Active = false
	if _, err := s.Update(ctx, a); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Account deactivated", applog.FieldUserID, userID, applog.FieldAccountID, id)
	return nil
}

// TotalBalance sums the running balances of the user's active accounts.
func (s *AccountService) TotalBalance(ctx context.Context, userID int64) (core.Money, error) {
	return s.repo.Queries().SumAccountBalances(ctx, userID)
}
