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

// CardService manages credit cards and their invoice views. A card holds no
// balance; what it owes is always derived from the rows charged to it.
type CardService struct {
	repo     *storage.SQLiteRepository
	invoices *InvoiceService
	notifier *notifier
	now      func() time.Time
	logger   *applog.Logger
}

func NewCardService(repo *storage.SQLiteRepository, invoices *InvoiceService, n *notifier, now func() time.Time) *CardService {
	if now == nil {
		now = time.Now
	}
	return &CardService{
		repo:     repo,
		invoices: invoices,
		notifier: n,
		now:      now,
		logger:   applog.Default(applog.ComponentCard),
	}
}

func (s *CardService) Create(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	if err := c.Validate(); err != nil {
		return core.CreditCard{}, err
	}
	c.Active = true
	if err := s.repo.Queries().CreateCreditCard(ctx, &c); err != nil {
		logOutcome(ctx, s.logger, "Failed to create credit card", err, applog.FieldUserID, c.UserID)
		return core.CreditCard{}, err
	}

	s.logger.InfoContext(ctx, "Credit card created",
		applog.FieldUserID, c.UserID, applog.FieldCardID, c.ID, applog.FieldAmountCents, c.Limit.Cents)

	e := events.NewLedgerEvent(events.CardCreated, c.UserID, c.ID)
	e.CardID = c.ID
	e.Description = c.Name
	e.AmountCents = c.Limit.Cents
	s.notifier.publish(ctx, e)
	return c, nil
}

func (s *CardService) Get(ctx context.Context, userID, id int64) (core.CreditCard, error) {
	return s.repo.Queries().GetCreditCard(ctx, userID, id)
}

func (s *CardService) List(ctx context.Context, userID int64, activeOnly bool) ([]core.CreditCard, error) {
	return s.repo.Queries().ListCreditCards(ctx, userID, activeOnly)
}

// Update changes name, limit, closing and due days, look and active flag.
func (s *CardService) Update(ctx context.Context, c core.CreditCard) (core.CreditCard, error) {
	if err := c.Validate(); err != nil {
		return core.CreditCard{}, err
	}
	var out core.CreditCard
	err := s.repo.WithTx(ctx, func(q *storage.Queries) error {
		cur, err := q.GetCreditCard(ctx, c.UserID, c.ID)
		if err != nil {
			return err
		}
		cur.Name, cur.Limit, cur.ClosingDay, cur.DueDay = c.Name, c.Limit, c.ClosingDay, c.DueDay
		cur.Color, cur.Icon, cur.Active = c.Color, c.Icon, c.Active
		if err := q.UpdateCreditCard(ctx, cur); err != nil {
			return err
		}
		out = cur
		return nil
	})
	if err != nil {
		logOutcome(ctx, s.logger, "Failed to update credit card", err,
			applog.FieldUserID, c.UserID, applog.FieldCardID, c.ID)
		return core.CreditCard{}, fmt.Errorf("update credit card: %w", err)
	}
	// A new closing day moves the period boundaries.
	s.invoices.Invalidate(c.UserID, c.ID)
	return out, nil
}

// Overview lists the user's cards with their open invoice, available limit
// and usage, as seen on ref.
func (s *CardService) Overview(ctx context.Context, userID int64, ref core.Date, activeOnly bool) ([]core.CardOverview, error) {
	cards, err := s.List(ctx, userID, activeOnly)
	if err != nil {
		return nil, err
	}
	out := make([]core.CardOverview, 0, len(cards))
	for _, c := range cards {
		ov, err := s.invoices.Overview(ctx, c, ref)
		if err != nil {
			return nil, fmt.Errorf("card %d overview: %w", c.ID, err)
		}
		out = append(out, ov)
	}
	return out, nil
}

// Invoice lists what is billed to the card in the invoice open on ref.
func (s *CardService) Invoice(ctx context.Context, userID, cardID int64, ref core.Date) (core.Invoice, error) {
	q := s.repo.Queries()
	card, err := q.GetCreditCard(ctx, userID, cardID)
	if err != nil {
		return core.Invoice{}, err
	}
	if ref.IsEmpty() {
		ref = today(s.now)
	}

	p := card.InvoicePeriod(ref)
	txs, err := q.ListCardExpenses(ctx, userID, cardID, p)
	if err != nil {
		return core.Invoice{}, err
	}
	insts, err := q.ListCardInstallments(ctx, userID, cardID, p)
	if err != nil {
		return core.Invoice{}, err
	}
	total, err := s.invoices.InvoiceTotal(ctx, userID, cardID, p)
	if err != nil {
		return core.Invoice{}, err
	}

	return core.Invoice{
		Card:         card,
		Period:       p,
		DueDate:      core.InvoiceDueDate(card.DueDay, p),
		Transactions: txs,
		Installments: insts,
		Total:        total,
	}, nil
}
