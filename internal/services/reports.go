package services

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

const recentTransactions = 10

// ReportService builds the read-only dashboard and report views. Each view
// runs its independent aggregates concurrently.
type ReportService struct {
	repo             *storage.SQLiteRepository
	invoices         *InvoiceService
	commitmentMonths int
	reportMonths     int
	logger           *applog.Logger
}

func NewReportService(repo *storage.SQLiteRepository, invoices *InvoiceService, commitmentMonths, reportMonths int) *ReportService {
	return &ReportService{
		repo:             repo,
		invoices:         invoices,
		commitmentMonths: commitmentMonths,
		reportMonths:     reportMonths,
		logger:           applog.Default(applog.ComponentReport),
	}
}

// FutureCommitment sums the user's unpaid installments due in the given
// calendar month, debit and credit alike.
func (s *ReportService) FutureCommitment(ctx context.Context, userID int64, year, month int) (core.Money, error) {
	return s.repo.Queries().SumUnpaidInstallmentsDue(ctx, userID, core.MonthPeriod(year, month))
}

// ProjectCommitments returns the commitment of each of the months calendar
// months following ref's month.
func (s *ReportService) ProjectCommitments(ctx context.Context, userID int64, ref core.Date, months int) ([]core.MonthCommitment, error) {
	out := make([]core.MonthCommitment, months)
	g, gctx := errgroup.WithContext(ctx)
	for i := range out {
		i := i
		y, m := monthOffset(ref, i+1)
		out[i] = core.MonthCommitment{Year: y, Month: m}
		g.Go(func() error {
			amount, err := s.FutureCommitment(gctx, userID, y, m)
			if err != nil {
				return fmt.Errorf("commitment %d-%02d: %w", y, m, err)
			}
			out[i].Amount = amount
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// MonthFlow returns the month's income, its debit expense including debit
// installments paid in the month, and their difference.
func (s *ReportService) MonthFlow(ctx context.Context, userID int64, year, month int) (core.MonthFlow, error) {
	q := s.repo.Queries()
	p := core.MonthPeriod(year, month)

	income, err := q.SumTransactions(ctx, userID, core.Income, false, p)
	if err != nil {
		return core.MonthFlow{}, err
	}
	expense, err := q.SumTransactions(ctx, userID, core.Expense, true, p)
	if err != nil {
		return core.MonthFlow{}, err
	}
	paid, err := q.SumPaidDebitInstallments(ctx, userID, p)
	if err != nil {
		return core.MonthFlow{}, err
	}
	expense = expense.Add(paid)

	return core.MonthFlow{
		Year:    year,
		Month:   month,
		Income:  income,
		Expense: expense,
		Balance: income.Sub(expense),
	}, nil
}

// Dashboard is the overview of ref's month.
func (s *ReportService) Dashboard(ctx context.Context, userID int64, ref core.Date) (core.Dashboard, error) {
	start := time.Now()
	q := s.repo.Queries()
	month := core.MonthPeriod(ref.Year(), ref.Month())
	d := core.Dashboard{Year: ref.Year(), Month: ref.Month()}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		flow, err := s.MonthFlow(gctx, userID, ref.Year(), ref.Month())
		d.Income, d.Expense, d.Balance = flow.Income, flow.Expense, flow.Balance
		return err
	})
	g.Go(func() error {
		var err error
		if d.Accounts, err = q.ListAccounts(gctx, userID, true); err != nil {
			return err
		}
		d.TotalBalance, err = q.SumAccountBalances(gctx, userID)
		return err
	})
	g.Go(func() error {
		cards, err := q.ListCreditCards(gctx, userID, true)
		if err != nil {
			return err
		}
		for _, c := range cards {
			ov, err := s.invoices.Overview(gctx, c, ref)
			if err != nil {
				return err
			}
			d.Cards = append(d.Cards, ov)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		d.RecentTransactions, err = q.ListTransactions(gctx, userID, storage.TransactionFilter{Limit: recentTransactions})
		return err
	})
	g.Go(func() error {
		var err error
		d.ExpensesByCategory, err = q.SumExpensesByCategory(gctx, userID, month)
		withPercentages(d.ExpensesByCategory)
		return err
	})
	g.Go(func() error {
		var err error
		d.PendingInstallments, err = q.CountUnpaidInstallmentsDue(gctx, userID, month)
		return err
	})
	g.Go(func() error {
		commitments, err := s.ProjectCommitments(gctx, userID, ref, s.commitmentMonths)
		for _, c := range commitments {
			d.FutureCommitment = d.FutureCommitment.Add(c.Amount)
		}
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to build dashboard", applog.FieldUserID, userID, applog.FieldError, err)
		return core.Dashboard{}, fmt.Errorf("dashboard: %w", err)
	}

	s.logger.DebugContext(ctx, "Dashboard built",
		applog.FieldUserID, userID, applog.FieldDuration, time.Since(start).Milliseconds())
	return d, nil
}

// Report covers the last reportMonths months up to ref's month, the
// expenses of ref's year by category and the upcoming commitments.
func (s *ReportService) Report(ctx context.Context, userID int64, ref core.Date) (core.Report, error) {
	r := core.Report{Months: make([]core.MonthFlow, s.reportMonths)}

	g, gctx := errgroup.WithContext(ctx)
	for i := range r.Months {
		i := i
		y, m := monthOffset(ref, i-(s.reportMonths-1))
		g.Go(func() error {
			flow, err := s.MonthFlow(gctx, userID, y, m)
			r.Months[i] = flow
			return err
		})
	}
	g.Go(func() error {
		year := core.Period{Start: core.NewDate(ref.Year(), 1, 1), End: core.NewDate(ref.Year()+1, 1, 1)}
		var err error
		r.CategoryExpenses, err = s.repo.Queries().SumExpensesByCategory(gctx, userID, year)
		withPercentages(r.CategoryExpenses)
		return err
	})
	g.Go(func() error {
		var err error
		r.FutureCommitments, err = s.ProjectCommitments(gctx, userID, ref, 3)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to build report", applog.FieldUserID, userID, applog.FieldError, err)
		return core.Report{}, fmt.Errorf("report: %w", err)
	}
	return r, nil
}

// withPercentages fills each entry's share of the grand total.
func withPercentages(items []core.CategoryAmount) {
	var total core.Money
	for _, it := range items {
		total = total.Add(it.Amount)
	}
	for i := range items {
		items[i].Percent = core.Percent(items[i].Amount, total)
	}
}

// monthOffset returns the calendar month n months after ref's month.
func monthOffset(ref core.Date, n int) (year, month int) {
	first := core.NewDate(ref.Year(), ref.Month(), 1).AddMonthsClamped(n)
	return first.Year(), first.Month()
}
