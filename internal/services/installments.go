package services

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// InstallmentService expands purchases into installments and settles them.
type InstallmentService struct {
	repo     *storage.SQLiteRepository
	ledger   *Ledger
	invoices *InvoiceService
	notifier *notifier
	policy   core.InstallmentPolicy
	now      func() time.Time
	logger   *applog.Logger
}

func NewInstallmentService(repo *storage.SQLiteRepository, ledger *Ledger, invoices *InvoiceService, n *notifier, policy core.InstallmentPolicy, now func() time.Time) *InstallmentService {
	if now == nil {
		now = time.Now
	}
	return &InstallmentService{
		repo:     repo,
		ledger:   ledger,
		invoices: invoices,
		notifier: n,
		policy:   policy,
		now:      now,
		logger:   applog.Default(applog.ComponentInstallment),
	}
}

// Purchase schedules p and stores every installment in one unit of work.
// A debit purchase settles its first installment on the purchase date.
func (s *InstallmentService) Purchase(ctx context.Context, p core.Purchase) ([]core.Installment, error) {
	insts, err := core.SchedulePurchase(p, s.policy)
	if err != nil {
		return nil, err
	}

	var deltas []core.Delta
	err = s.repo.WithTx(ctx, func(q *storage.Queries) error {
		if err := checkTarget(ctx, q, p.UserID, p.Target); err != nil {
			return err
		}
		if err := checkCategory(ctx, q, p.UserID, p.CategoryID); err != nil {
			return err
		}
		for i := range insts {
			if err := q.CreateInstallment(ctx, &insts[i]); err != nil {
				return fmt.Errorf("installment %d/%d: %w", insts[i].Index, insts[i].Count, err)
			}
			if !insts[i].Paid {
				continue
			}
			d, ok := insts[i].PaymentDelta()
			if !ok {
				continue
			}
			if err := s.ledger.Apply(ctx, q, p.UserID, d); err != nil {
				return err
			}
			deltas = append(deltas, d)
		}
		return nil
	})
	if err != nil {
		logOutcome(ctx, s.logger, "Failed to create installment purchase", err, applog.FieldUserID, p.UserID)
		return nil, fmt.Errorf("installment purchase: %w", err)
	}
	s.invoices.invalidateTargets(p.UserID, p.Target)

	s.logger.InfoContext(ctx, "Installment purchase created",
		applog.FieldUserID, p.UserID,
		applog.FieldAmountCents, p.Total.Cents,
		applog.FieldCount, p.Count,
		"method", p.Target.Method())

	e := events.NewLedgerEvent(events.InstallmentPurchase, p.UserID, insts[0].ID)
	stampTarget(e, p.Target)
	e.Description = p.Description
	e.AmountCents = -p.Total.Cents
	e.Date = p.Date.String()
	e.Changes = changes(deltas...)
	s.notifier.publish(ctx, e)
	return insts, nil
}

// Pay marks the installment paid on paidDate, today when empty, and charges
// its account when it is a debit installment. Paying a paid installment
// returns core.ErrAlreadyPaid and changes nothing.
func (s *InstallmentService) Pay(ctx context.Context, userID, id int64, paidDate core.Date) (core.Installment, error) {
	if paidDate.IsEmpty() {
		paidDate = today(s.now)
	}
	return s.toggle(ctx, userID, id, true, paidDate)
}

// Unpay reverts a payment, refunding the account of a debit installment.
// Unpaying an unpaid installment returns core.ErrNotPaid and changes
// nothing.
func (s *InstallmentService) Unpay(ctx context.Context, userID, id int64) (core.Installment, error) {
	return s.toggle(ctx, userID, id, false, core.Date{})
}

func (s *InstallmentService) toggle(ctx context.Context, userID, id int64, paid bool, paidDate core.Date) (core.Installment, error) {
	op, kind := applog.OpPay, events.InstallmentPaid
	if !paid {
		op, kind = applog.OpUnpay, events.InstallmentUnpaid
	}

	var (
		inst  core.Installment
		delta core.Delta
	)
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		if inst, err = q.GetInstallment(ctx, userID, id); err != nil {
			return err
		}
		// The conditional update rejects a toggle to the current state, so
		// a balance is never charged twice.
		if err := q.SetInstallmentPaid(ctx, userID, id, paid, paidDate); err != nil {
			return err
		}
		inst.Paid, inst.PaidDate = paid, paidDate

		d, ok := inst.PaymentDelta()
		if !ok {
			return nil
		}
		if !paid {
			d = d.Reverse()
		}
		delta = d
		return s.ledger.Apply(ctx, q, userID, d)
	})
	if err != nil {
		logOutcome(ctx, s.logger, "Installment toggle rejected", err,
			applog.FieldOperation, op, applog.FieldUserID, userID, applog.FieldEntityID, id)
		return core.Installment{}, fmt.Errorf("%s installment %d: %w", op, id, err)
	}

	s.logger.InfoContext(ctx, "Installment toggled",
		applog.FieldOperation, op,
		applog.FieldUserID, userID,
		applog.FieldEntityID, id,
		applog.FieldAmountCents, inst.Amount.Cents)

	e := events.NewLedgerEvent(kind, userID, inst.ID)
	stampTarget(e, inst.Target)
	e.Description = inst.Description
	e.AmountCents = -inst.Amount.Cents
	e.Date = inst.DueDate.String()
	e.Changes = changes(delta)
	s.notifier.publish(ctx, e)
	return inst, nil
}

func (s *InstallmentService) Get(ctx context.Context, userID, id int64) (core.Installment, error) {
	return s.repo.Queries().GetInstallment(ctx, userID, id)
}

// List returns the user's installments in the given status by due date.
func (s *InstallmentService) List(ctx context.Context, userID int64, status storage.InstallmentStatus) ([]core.Installment, error) {
	return s.repo.Queries().ListInstallments(ctx, userID, status)
}
