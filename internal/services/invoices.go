package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// InvoiceService derives card invoice figures from the transactions and
// installments charged to the card. Totals are cached per card and period;
// every write that touches a card drops that card's entries.
type InvoiceService struct {
	repo   *storage.SQLiteRepository
	cache  cache.Cache[core.Money]
	now    func() time.Time
	logger *applog.Logger

	// gens counts invalidations per card prefix. A total computed across an
	// invalidation is returned but not cached.
	mu   sync.Mutex
	gens map[string]uint64
}

func NewInvoiceService(repo *storage.SQLiteRepository, c cache.Cache[core.Money], now func() time.Time) *InvoiceService {
	if now == nil {
		now = time.Now
	}
	return &InvoiceService{
		repo:   repo,
		cache:  c,
		now:    now,
		logger: applog.Default(applog.ComponentInvoice),
		gens:   make(map[string]uint64),
	}
}

func cardPrefix(userID, cardID int64) string {
	return fmt.Sprintf("u%d:card:%d:", userID, cardID)
}

func invoiceKey(userID, cardID int64, p core.Period) string {
	return cardPrefix(userID, cardID) + p.Start.String() + ":" + p.End.String()
}

func (s *InvoiceService) generation(prefix string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gens[prefix]
}

// store caches total under key unless the card was invalidated since gen
// was read.
func (s *InvoiceService) store(prefix, key string, gen uint64, total core.Money) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gens[prefix] != gen {
		return false
	}
	s.cache.Set(key, total)
	return true
}

// InvoiceTotal sums the card's expense transactions dated in p and its
// installments due in p, paid or not. An empty period totals zero.
func (s *InvoiceService) InvoiceTotal(ctx context.Context, userID, cardID int64, p core.Period) (core.Money, error) {
	if s.cache == nil {
		return s.compute(ctx, s.repo.Queries(), userID, cardID, p)
	}

	prefix := cardPrefix(userID, cardID)
	key := invoiceKey(userID, cardID, p)
	if total, ok := s.cache.Get(key); ok {
		return total, nil
	}

	gen := s.generation(prefix)
	total, err := s.compute(ctx, s.repo.Queries(), userID, cardID, p)
	if err != nil {
		return core.Money{}, err
	}
	if !s.store(prefix, key, gen, total) {
		s.logger.Debug("Invoice total changed while computing, not cached",
			applog.FieldUserID, userID, applog.FieldCardID, cardID)
	}
	return total, nil
}

func (s *InvoiceService) compute(ctx context.Context, q *storage.Queries, userID, cardID int64, p core.Period) (core.Money, error) {
	expenses, err := q.SumCardExpenses(ctx, userID, cardID, p)
	if err != nil {
		return core.Money{}, err
	}
	installments, err := q.SumCardInstallments(ctx, userID, cardID, p)
	if err != nil {
		return core.Money{}, err
	}
	return expenses.Add(installments), nil
}

// CurrentTotal returns the open invoice period of card as seen on ref and
// its total.
func (s *InvoiceService) CurrentTotal(ctx context.Context, card core.CreditCard, ref core.Date) (core.Period, core.Money, error) {
	p := card.InvoicePeriod(ref)
	total, err := s.InvoiceTotal(ctx, card.UserID, card.ID, p)
	return p, total, err
}

// AvailableLimit is the card limit minus the open invoice as seen today.
// It goes negative when the invoice exceeds the limit.
func (s *InvoiceService) AvailableLimit(ctx context.Context, card core.CreditCard) (core.Money, error) {
	_, total, err := s.CurrentTotal(ctx, card, today(s.now))
	if err != nil {
		return core.Money{}, err
	}
	return card.Limit.Sub(total), nil
}

// UsagePercent is total over the card limit, in percent. A card without a
// limit reports zero.
func UsagePercent(card core.CreditCard, total core.Money) decimal.Decimal {
	return core.Percent(total, card.Limit)
}

// Overview returns the card with its open invoice figures as seen on ref.
func (s *InvoiceService) Overview(ctx context.Context, card core.CreditCard, ref core.Date) (core.CardOverview, error) {
	p, total, err := s.CurrentTotal(ctx, card, ref)
	if err != nil {
		return core.CardOverview{}, err
	}
	return core.CardOverview{
		Card:           card,
		Period:         p,
		CurrentInvoice: total,
		AvailableLimit: card.Limit.Sub(total),
		UsagePercent:   UsagePercent(card, total),
	}, nil
}

// Invalidate drops every cached total of the given cards.
func (s *InvoiceService) Invalidate(userID int64, cardIDs ...int64) {
	if s.cache == nil {
		return
	}
	for _, id := range cardIDs {
		if id <= 0 {
			continue
		}
		prefix := cardPrefix(userID, id)
		s.mu.Lock()
		s.gens[prefix]++
		n := s.cache.DeletePrefix(prefix)
		s.mu.Unlock()
		if n > 0 {
			s.logger.Debug("Invoice cache invalidated",
				applog.FieldUserID, userID, applog.FieldCardID, id, applog.FieldCount, n)
		}
	}
}

// invalidateTargets drops the cached totals of the cards behind targets.
func (s *InvoiceService) invalidateTargets(userID int64, targets ...core.Target) {
	for _, t := range targets {
		if id, ok := t.CardID(); ok {
			s.Invalidate(userID, id)
		}
	}
}
