package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
	"fintrack/internal/events"
	"fintrack/internal/storage"
)

var fixedNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

type fixture struct {
	svc  *Services
	repo *storage.SQLiteRepository
	pub  *events.Recorder
	user int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	pub := events.NewRecorder()
	svc := New(repo, pub, Options{Now: func() time.Time { return fixedNow }})
	user, err := svc.Users.Create(context.Background(), "alice", "alice@example.com")
	require.NoError(t, err)
	return &fixture{svc: svc, repo: repo, pub: pub, user: user}
}

func (f *fixture) account(t *testing.T, name string, initial int64) core.Account {
	t.Helper()
	a, err := f.svc.Accounts.Create(context.Background(), core.Account{
		UserID: f.user, Name: name, InitialBalance: core.Cents(initial),
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) card(t *testing.T, closingDay int) core.CreditCard {
	t.Helper()
	c, err := f.svc.Cards.Create(context.Background(), core.CreditCard{
		UserID: f.user, Name: "Visa", Limit: core.Cents(100000), ClosingDay: closingDay, DueDay: 20,
	})
	require.NoError(t, err)
	return c
}

func (f *fixture) balance(t *testing.T, accountID int64) int64 {
	t.Helper()
	a, err := f.svc.Accounts.Get(context.Background(), f.user, accountID)
	require.NoError(t, err)
	return a.CurrentBalance.Cents
}

func TestUserCreateSeedsDefaultCategories(t *testing.T) {
	f := newFixture(t)

	cats, err := f.svc.Categories.List(context.Background(), f.user)
	require.NoError(t, err)
	assert.Len(t, cats, len(DefaultCategories))

	income := 0
	for _, c := range cats {
		if c.Type == core.Income {
			income++
		}
	}
	assert.Equal(t, 4, income)
}

func TestLedgerBalanceEqualsInitialPlusDeltas(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.account(t, "Checking", 10000)
	ledger := NewLedger()

	steps := []struct {
		reverse bool
		cents   int64
	}{
		{false, 2500}, {false, -700}, {true, 2500}, {false, -12000}, {true, -700}, {false, 1},
	}
	want := int64(10000)
	for _, st := range steps {
		d := core.Delta{AccountID: acc.ID, Amount: core.Cents(st.cents)}
		err := f.repo.WithTx(ctx, func(q *storage.Queries) error {
			if st.reverse {
				return ledger.Reverse(ctx, q, f.user, d)
			}
			return ledger.Apply(ctx, q, f.user, d)
		})
		require.NoError(t, err)
		if st.reverse {
			want -= st.cents
		} else {
			want += st.cents
		}
		assert.Equal(t, want, f.balance(t, acc.ID))
	}
}

func TestLedgerCreditEntryLeavesAccountsAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	card := f.card(t, 10)
	ledger := NewLedger()

	err := f.repo.WithTx(ctx, func(q *storage.Queries) error {
		_, ok, err := ledger.ApplyEntry(ctx, q, f.user, core.CreditTarget(card.ID), core.Expense, core.Cents(500))
		assert.False(t, ok)
		return err
	})
	require.NoError(t, err)
}

func TestInstallmentDebitPurchaseScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.account(t, "Checking", 100000)

	insts, err := f.svc.Installments.Purchase(ctx, core.Purchase{
		UserID: f.user, Target: core.DebitTarget(acc.ID), Description: "TV",
		Total: core.Cents(30000), Count: 3, Date: core.NewDate(2024, 1, 15),
	})
	require.NoError(t, err)
	require.Len(t, insts, 3)

	wantDue := []string{"2024-01-15", "2024-02-14", "2024-03-15"}
	for i, inst := range insts {
		assert.Equal(t, core.Cents(10000), inst.Amount)
		assert.Equal(t, wantDue[i], inst.DueDate.String())
		assert.Equal(t, i == 0, inst.Paid, "installment %d paid", i+1)
	}
	assert.Equal(t, "2024-01-15", insts[0].PaidDate.String())
	assert.Equal(t, "TV - Installment 2/3", insts[1].Description)
	assert.Equal(t, int64(90000), f.balance(t, acc.ID))

	pending, err := f.svc.Installments.List(ctx, f.user, storage.InstallmentsPending)
	require.NoError(t, err)
	assert.Len(t, pending, 2)
}

func TestInstallmentPayUnpayIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.account(t, "Checking", 100000)

	insts, err := f.svc.Installments.Purchase(ctx, core.Purchase{
		UserID: f.user, Target: core.DebitTarget(acc.ID), Description: "Sofa",
		Total: core.Cents(30000), Count: 3, Date: core.NewDate(2024, 1, 15),
	})
	require.NoError(t, err)
	second := insts[1].ID

	paid, err := f.svc.Installments.Pay(ctx, f.user, second, core.Date{})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", paid.PaidDate.String())
	assert.Equal(t, int64(80000), f.balance(t, acc.ID))

	_, err = f.svc.Installments.Pay(ctx, f.user, second, core.Date{})
	assert.ErrorIs(t, err, core.ErrAlreadyPaid)
	assert.True(t, core.IsInvalidState(err))
	assert.Equal(t, int64(80000), f.balance(t, acc.ID))

	_, err = f.svc.Installments.Unpay(ctx, f.user, second)
	require.NoError(t, err)
	assert.Equal(t, int64(90000), f.balance(t, acc.ID))

	_, err = f.svc.Installments.Unpay(ctx, f.user, second)
	assert.ErrorIs(t, err, core.ErrNotPaid)
	assert.Equal(t, int64(90000), f.balance(t, acc.ID))

	got, err := f.svc.Installments.Get(ctx, f.user, second)
	require.NoError(t, err)
	assert.False(t, got.Paid)
	assert.True(t, got.PaidDate.IsEmpty())

	_, err = f.svc.Installments.Pay(ctx, f.user, 9999, core.Date{})
	assert.True(t, core.IsNotFound(err))
}

func TestInstallmentCreditPurchaseHasNoBalanceEffect(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.account(t, "Checking", 5000)
	card := f.card(t, 10)

	insts, err := f.svc.Installments.Purchase(ctx, core.Purchase{
		UserID: f.user, Target: core.CreditTarget(card.ID), Description: "Phone",
		Total: core.Cents(10000), Count: 3, Date: core.NewDate(2024, 3, 1),
	})
	require.NoError(t, err)

	var sum int64
	for _, inst := range insts {
		assert.False(t, inst.Paid)
		sum += inst.Amount.Cents
	}
	assert.Equal(t, int64(10000), sum)
	assert.Equal(t, core.Cents(3334), insts[0].Amount)

	_, err = f.svc.Installments.Pay(ctx, f.user, insts[0].ID, core.NewDate(2024, 3, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(5000), f.balance(t, acc.ID))
}

func TestInstallmentPurchaseIsAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.account(t, "Checking", 100000)

	_, err := f.svc.Installments.Purchase(ctx, core.Purchase{
		UserID: f.user, Target: core.DebitTarget(acc.ID), CategoryID: 9999, Description: "Bike",
		Total: core.Cents(30000), Count: 3, Date: core.NewDate(2024, 1, 15),
	})
	assert.True(t, core.IsNotFound(err))

	all, err := f.svc.Installments.List(ctx, f.user, storage.InstallmentsAll)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Equal(t, int64(100000), f.balance(t, acc.ID))
}

func TestTransferScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "A", 20000)
	b := f.account(t, "B", 10000)

	tr, err := f.svc.Transfers.Add(ctx, core.Transfer{
		UserID: f.user, FromAccountID: a.ID, ToAccountID: b.ID,
		Amount: core.Cents(5000), Date: core.NewDate(2024, 3, 1),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(15000), f.balance(t, a.ID))
	assert.Equal(t, int64(15000), f.balance(t, b.ID))

	_, err = f.svc.Transfers.Delete(ctx, f.user, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), f.balance(t, a.ID))
	assert.Equal(t, int64(10000), f.balance(t, b.ID))

	list, err := f.svc.Transfers.List(ctx, f.user, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTransferRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "A", 20000)

	_, err := f.svc.Transfers.Add(ctx, core.Transfer{
		UserID: f.user, FromAccountID: a.ID, ToAccountID: a.ID,
		Amount: core.Cents(5000), Date: core.NewDate(2024, 3, 1),
	})
	assert.ErrorIs(t, err, core.ErrSameAccount)

	_, err = f.svc.Transfers.Add(ctx, core.Transfer{
		UserID: f.user, FromAccountID: a.ID, ToAccountID: 9999,
		Amount: core.Cents(5000), Date: core.NewDate(2024, 3, 1),
	})
	assert.True(t, core.IsNotFound(err))
	assert.Equal(t, int64(20000), f.balance(t, a.ID))

	_, err = f.svc.Transfers.Delete(ctx, f.user, 9999)
	assert.True(t, core.IsNotFound(err))
}

func TestTransactionEditAndDeleteRestoreBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "A", 10000)
	b := f.account(t, "B", 0)

	orig := core.Transaction{
		UserID: f.user, Target: core.DebitTarget(a.ID), Description: "Groceries",
		Amount: core.Cents(2500), Type: core.Expense, Date: core.NewDate(2024, 3, 2),
	}
	created, err := f.svc.Transactions.Add(ctx, orig)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), f.balance(t, a.ID))

	edited := created
	edited.Target = core.DebitTarget(b.ID)
	edited.Type = core.Income
	edited.Amount = core.Cents(4000)
	_, err = f.svc.Transactions.Edit(ctx, edited)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), f.balance(t, a.ID))
	assert.Equal(t, int64(4000), f.balance(t, b.ID))

	_, err = f.svc.Transactions.Edit(ctx, created)
	require.NoError(t, err)
	assert.Equal(t, int64(7500), f.balance(t, a.ID))
	assert.Equal(t, int64(0), f.balance(t, b.ID))

	_, err = f.svc.Transactions.Delete(ctx, f.user, created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), f.balance(t, a.ID))

	_, err = f.svc.Transactions.Get(ctx, f.user, created.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestTransactionEditKeepsAttachment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "A", 0)

	created, err := f.svc.Transactions.Add(ctx, core.Transaction{
		UserID: f.user, Target: core.DebitTarget(a.ID), Description: "Dinner",
		Amount: core.Cents(1500), Type: core.Expense, Date: core.NewDate(2024, 3, 2),
		Attachment: core.NewAttachment("20240302_receipt.jpg"),
	})
	require.NoError(t, err)

	edit := created
	edit.Attachment = core.Attachment{}
	edit.Description = "Dinner out"
	_, err = f.svc.Transactions.Edit(ctx, edit)
	require.NoError(t, err)

	got, err := f.svc.Transactions.Get(ctx, f.user, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dinner out", got.Description)
	assert.Equal(t, core.AttachmentImage, got.Attachment.Type)
}

func TestTransactionOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.account(t, "Checking", 10000)
	card := f.card(t, 10)

	bob, err := f.svc.Users.Create(ctx, "bob", "bob@example.com")
	require.NoError(t, err)

	for _, target := range []core.Target{core.DebitTarget(acc.ID), core.CreditTarget(card.ID)} {
		_, err := f.svc.Transactions.Add(ctx, core.Transaction{
			UserID: bob, Target: target, Description: "Not mine",
			Amount: core.Cents(100), Type: core.Expense, Date: core.NewDate(2024, 3, 2),
		})
		assert.True(t, core.IsNotFound(err), "target %v", target.Method())
	}
	assert.Equal(t, int64(10000), f.balance(t, acc.ID))

	list, err := f.svc.Transactions.List(ctx, bob, storage.TransactionFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTransactionValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Transactions.Add(context.Background(), core.Transaction{
		UserID: f.user, Description: "No target",
		Amount: core.Cents(100), Type: core.Expense, Date: core.NewDate(2024, 3, 2),
	})
	assert.True(t, core.IsValidation(err))
}

func TestInvoiceAggregation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.account(t, "Checking", 50000)
	card := f.card(t, 10)
	first := core.InvoicePeriod(10, core.NewDate(2024, 3, 5))
	second := core.InvoicePeriod(10, core.NewDate(2024, 3, 15))
	require.Equal(t, "2024-02-10", first.Start.String())
	require.Equal(t, "2024-03-10", first.End.String())

	total, err := f.svc.Invoices.InvoiceTotal(ctx, f.user, card.ID, first)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	add := func(typ core.EntryType, cents int64, date core.Date) {
		t.Helper()
		_, err := f.svc.Transactions.Add(ctx, core.Transaction{
			UserID: f.user, Target: core.CreditTarget(card.ID), Description: "Card",
			Amount: core.Cents(cents), Type: typ, Date: date,
		})
		require.NoError(t, err)
	}
	add(core.Expense, 4000, core.NewDate(2024, 3, 1))
	add(core.Income, 1000, core.NewDate(2024, 3, 2))
	add(core.Expense, 2000, core.NewDate(2024, 3, 10))

	insts, err := f.svc.Installments.Purchase(ctx, core.Purchase{
		UserID: f.user, Target: core.CreditTarget(card.ID), Description: "Headphones",
		Total: core.Cents(6000), Count: 2, Date: core.NewDate(2024, 2, 15),
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-16", insts[1].DueDate.String())

	total, err = f.svc.Invoices.InvoiceTotal(ctx, f.user, card.ID, first)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(7000), total)

	// Paying an installment does not change what the invoice owes.
	_, err = f.svc.Installments.Pay(ctx, f.user, insts[0].ID, core.Date{})
	require.NoError(t, err)
	total, err = f.svc.Invoices.InvoiceTotal(ctx, f.user, card.ID, first)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(7000), total)
	assert.Equal(t, int64(50000), f.balance(t, acc.ID))

	total, err = f.svc.Invoices.InvoiceTotal(ctx, f.user, card.ID, second)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(5000), total)

	available, err := f.svc.Invoices.AvailableLimit(ctx, card)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(95000), available)

	overviews, err := f.svc.Cards.Overview(ctx, f.user, core.DateOf(fixedNow), true)
	require.NoError(t, err)
	require.Len(t, overviews, 1)
	assert.True(t, decimal.NewFromInt(5).Equal(overviews[0].UsagePercent), "usage %s", overviews[0].UsagePercent)

	inv, err := f.svc.Cards.Invoice(ctx, f.user, card.ID, core.NewDate(2024, 3, 5))
	require.NoError(t, err)
	assert.Len(t, inv.Transactions, 1)
	assert.Len(t, inv.Installments, 1)
	assert.Equal(t, core.Cents(7000), inv.Total)
	assert.Equal(t, "2024-03-20", inv.DueDate.String())
}

func TestInvoiceCacheInvalidatedOnEdit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.account(t, "Checking", 0)
	card := f.card(t, 10)
	p := core.InvoicePeriod(10, core.NewDate(2024, 3, 15))

	tx, err := f.svc.Transactions.Add(ctx, core.Transaction{
		UserID: f.user, Target: core.CreditTarget(card.ID), Description: "Fuel",
		Amount: core.Cents(3000), Type: core.Expense, Date: core.NewDate(2024, 3, 12),
	})
	require.NoError(t, err)

	total, err := f.svc.Invoices.InvoiceTotal(ctx, f.user, card.ID, p)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(3000), total)

	tx.Target = core.DebitTarget(acc.ID)
	_, err = f.svc.Transactions.Edit(ctx, tx)
	require.NoError(t, err)

	total, err = f.svc.Invoices.InvoiceTotal(ctx, f.user, card.ID, p)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
	assert.Equal(t, int64(-3000), f.balance(t, acc.ID))
}

func TestInvoiceTotalKeyedOnBothPeriodEnds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	card := f.card(t, 10)

	_, err := f.svc.Transactions.Add(ctx, core.Transaction{
		UserID: f.user, Target: core.CreditTarget(card.ID), Description: "Books",
		Amount: core.Cents(4000), Type: core.Expense, Date: core.NewDate(2024, 3, 1),
	})
	require.NoError(t, err)

	start := core.NewDate(2024, 2, 10)
	wide, err := f.svc.Invoices.InvoiceTotal(ctx, f.user, card.ID, core.Period{Start: start, End: core.NewDate(2024, 3, 10)})
	require.NoError(t, err)
	assert.Equal(t, core.Cents(4000), wide)

	narrow, err := f.svc.Invoices.InvoiceTotal(ctx, f.user, card.ID, core.Period{Start: start, End: core.NewDate(2024, 2, 20)})
	require.NoError(t, err)
	assert.True(t, narrow.IsZero())
}

func TestInvoiceTotalNotCachedAcrossInvalidation(t *testing.T) {
	f := newFixture(t)
	card := f.card(t, 10)
	inv := f.svc.Invoices
	p := core.InvoicePeriod(10, core.NewDate(2024, 3, 15))
	prefix := cardPrefix(f.user, card.ID)
	key := invoiceKey(f.user, card.ID, p)

	gen := inv.generation(prefix)
	inv.Invalidate(f.user, card.ID)
	assert.False(t, inv.store(prefix, key, gen, core.Cents(999)))
	_, ok := inv.cache.Get(key)
	assert.False(t, ok)

	assert.True(t, inv.store(prefix, key, inv.generation(prefix), core.Cents(999)))
	cached, ok := inv.cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, core.Cents(999), cached)
}

func TestUsagePercentWithoutLimit(t *testing.T) {
	card := core.CreditCard{Limit: core.Cents(0)}
	assert.True(t, UsagePercent(card, core.Cents(5000)).IsZero())
}

func TestCommitmentsAndDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.account(t, "Checking", 100000)
	card := f.card(t, 10)

	cats, err := f.svc.Categories.List(ctx, f.user)
	require.NoError(t, err)
	var food core.Category
	for _, c := range cats {
		if c.Name == "Food" {
			food = c
		}
	}
	require.NotZero(t, food.ID)

	_, err = f.svc.Transactions.Add(ctx, core.Transaction{
		UserID: f.user, Target: core.DebitTarget(acc.ID), Description: "Salary",
		Amount: core.Cents(500000), Type: core.Income, Date: core.NewDate(2024, 3, 1),
	})
	require.NoError(t, err)
	_, err = f.svc.Transactions.Add(ctx, core.Transaction{
		UserID: f.user, Target: core.DebitTarget(acc.ID), Description: "Rent",
		Amount: core.Cents(10000), Type: core.Expense, Date: core.NewDate(2024, 3, 3),
	})
	require.NoError(t, err)
	_, err = f.svc.Transactions.Add(ctx, core.Transaction{
		UserID: f.user, Target: core.CreditTarget(card.ID), CategoryID: food.ID, Description: "Market",
		Amount: core.Cents(20000), Type: core.Expense, Date: core.NewDate(2024, 3, 4),
	})
	require.NoError(t, err)

	// Debit: due 03-05 (paid), 04-04, 05-04.
	_, err = f.svc.Installments.Purchase(ctx, core.Purchase{
		UserID: f.user, Target: core.DebitTarget(acc.ID), Description: "Laptop",
		Total: core.Cents(30000), Count: 3, Date: core.NewDate(2024, 3, 5),
	})
	require.NoError(t, err)
	// Credit: due 03-20 and 04-19, both unpaid.
	_, err = f.svc.Installments.Purchase(ctx, core.Purchase{
		UserID: f.user, Target: core.CreditTarget(card.ID), Description: "Chair",
		Total: core.Cents(10000), Count: 2, Date: core.NewDate(2024, 3, 20),
	})
	require.NoError(t, err)

	april, err := f.svc.Reports.FutureCommitment(ctx, f.user, 2024, 4)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(15000), april)

	projected, err := f.svc.Reports.ProjectCommitments(ctx, f.user, core.NewDate(2024, 3, 15), 3)
	require.NoError(t, err)
	require.Len(t, projected, 3)
	assert.Equal(t, 4, projected[0].Month)
	assert.Equal(t, core.Cents(15000), projected[0].Amount)
	assert.Equal(t, core.Cents(10000), projected[1].Amount)
	assert.True(t, projected[2].Amount.IsZero())

	d, err := f.svc.Reports.Dashboard(ctx, f.user, core.NewDate(2024, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, core.Cents(500000), d.Income)
	assert.Equal(t, core.Cents(20000), d.Expense)
	assert.Equal(t, core.Cents(480000), d.Balance)
	assert.Equal(t, core.Cents(580000), d.TotalBalance)
	assert.Len(t, d.Accounts, 1)
	assert.Len(t, d.Cards, 1)
	assert.Len(t, d.RecentTransactions, 3)
	assert.Equal(t, 1, d.PendingInstallments)
	assert.Equal(t, core.Cents(25000), d.FutureCommitment)
	require.Len(t, d.ExpensesByCategory, 1)
	assert.Equal(t, "Food", d.ExpensesByCategory[0].Name)
	assert.True(t, decimal.NewFromInt(100).Equal(d.ExpensesByCategory[0].Percent))

	r, err := f.svc.Reports.Report(ctx, f.user, core.NewDate(2024, 3, 15))
	require.NoError(t, err)
	require.Len(t, r.Months, 6)
	assert.Equal(t, 10, r.Months[0].Month)
	assert.Equal(t, 2023, r.Months[0].Year)
	last := r.Months[5]
	assert.Equal(t, 3, last.Month)
	assert.Equal(t, core.Cents(480000), last.Balance)
	assert.Len(t, r.FutureCommitments, 3)
	assert.Len(t, r.CategoryExpenses, 1)
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "A", 10000)
	b := f.account(t, "B", 0)

	tr, err := f.svc.Transfers.Add(ctx, core.Transfer{
		UserID: f.user, FromAccountID: a.ID, ToAccountID: b.ID,
		Amount: core.Cents(2500), Date: core.NewDate(2024, 3, 1),
	})
	require.NoError(t, err)

	evs := f.pub.Events()
	require.NotEmpty(t, evs)
	last := evs[len(evs)-1]
	assert.Equal(t, events.TransferCreated, last.Kind)
	assert.Equal(t, tr.ID, last.EntityID)
	require.Len(t, last.Changes, 2)
	assert.Equal(t, int64(-2500), last.Changes[0].DeltaCents)
	assert.Equal(t, b.ID, last.Changes[1].AccountID)

	// A failed rejection publishes nothing.
	before := len(f.pub.Events())
	_, err = f.svc.Transfers.Add(ctx, core.Transfer{
		UserID: f.user, FromAccountID: a.ID, ToAccountID: a.ID,
		Amount: core.Cents(1), Date: core.NewDate(2024, 3, 1),
	})
	require.Error(t, err)
	assert.Len(t, f.pub.Events(), before)

	// A broken publisher never fails the write.
	f.pub.FailWith(errors.New("broker down"))
	_, err = f.svc.Transfers.Delete(ctx, f.user, tr.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), f.balance(t, a.ID))
}

func TestServicesWithoutPublisher(t *testing.T) {
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	require.NoError(t, err)
	defer repo.Close()

	svc := New(repo, nil, Options{})
	ctx := context.Background()
	user, err := svc.Users.Create(ctx, "carol", "carol@example.com")
	require.NoError(t, err)

	acc, err := svc.Accounts.Create(ctx, core.Account{UserID: user, Name: "Wallet", InitialBalance: core.Cents(1000)})
	require.NoError(t, err)
	_, err = svc.Transactions.Add(ctx, core.Transaction{
		UserID: user, Target: core.DebitTarget(acc.ID), Description: "Coffee",
		Amount: core.Cents(350), Type: core.Expense, Date: core.NewDate(2024, 3, 1),
	})
	require.NoError(t, err)

	got, err := svc.Accounts.Get(ctx, user, acc.ID)
	require.NoError(t, err)
	assert.Equal(t, core.Cents(650), got.CurrentBalance)
}

func TestAccountUpdateNeverTouchesBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acc := f.account(t, "Checking", 10000)

	acc.Name = "Main"
	acc.CurrentBalance = core.Cents(999999)
	acc.InitialBalance = core.Cents(1)
	updated, err := f.svc.Accounts.Update(ctx, acc)
	require.NoError(t, err)
	assert.Equal(t, "Main", updated.Name)
	assert.Equal(t, core.Cents(10000), updated.CurrentBalance)

	require.NoError(t, f.svc.Accounts.Deactivate(ctx, f.user, acc.ID))
	active, err := f.svc.Accounts.List(ctx, f.user, true)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, int64(10000), f.balance(t, acc.ID))
}

func TestStoredBalancesMatchHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.account(t, "A", 50000)
	b := f.account(t, "B", 1000)

	tx, err := f.svc.Transactions.Add(ctx, core.Transaction{
		UserID: f.user, Target: core.DebitTarget(a.ID), Description: "Rent",
		Amount: core.Cents(12000), Type: core.Expense, Date: core.NewDate(2024, 3, 1),
	})
	require.NoError(t, err)
	tx.Target = core.DebitTarget(b.ID)
	tx.Amount = core.Cents(3000)
	_, err = f.svc.Transactions.Edit(ctx, tx)
	require.NoError(t, err)

	insts, err := f.svc.Installments.Purchase(ctx, core.Purchase{
		UserID: f.user, Target: core.DebitTarget(a.ID), Description: "Laptop",
		Total: core.Cents(9000), Count: 3, Date: core.NewDate(2024, 2, 1),
	})
	require.NoError(t, err)
	_, err = f.svc.Installments.Pay(ctx, f.user, insts[1].ID, core.NewDate(2024, 3, 2))
	require.NoError(t, err)
	_, err = f.svc.Installments.Pay(ctx, f.user, insts[2].ID, core.NewDate(2024, 3, 3))
	require.NoError(t, err)
	_, err = f.svc.Installments.Unpay(ctx, f.user, insts[2].ID)
	require.NoError(t, err)

	_, err = f.svc.Transfers.Add(ctx, core.Transfer{
		UserID: f.user, FromAccountID: a.ID, ToAccountID: b.ID,
		Amount: core.Cents(7000), Date: core.NewDate(2024, 3, 4),
	})
	require.NoError(t, err)

	audits, err := f.repo.Queries().AuditAccountBalances(ctx)
	require.NoError(t, err)
	require.Len(t, audits, 2)
	for _, au := range audits {
		assert.True(t, au.Drift().IsZero(), "account %d drifted by %s", au.AccountID, au.Drift())
	}
	assert.Equal(t, int64(50000-6000-7000), f.balance(t, a.ID))
	assert.Equal(t, int64(1000-3000+7000), f.balance(t, b.ID))
}
