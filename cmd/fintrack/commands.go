package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

var errUsage = errors.New("usage")

type handler func(ctx context.Context, args []string) error

type app struct {
	svc    *services.Services
	out    io.Writer
	errOut io.Writer
	clock  func() time.Time
	user   int64
}

func (a *app) now() time.Time {
	if a.clock != nil {
		return a.clock()
	}
	return time.Now()
}

func (a *app) run(ctx context.Context, args []string) error {
	fs := a.flags("fintrack")
	user := fs.Int64("user", 1, "acting user id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	a.user = *user

	rest := fs.Args()
	if len(rest) == 0 {
		return errUsage
	}

	switch rest[0] {
	case "dashboard":
		return a.dashboard(ctx, rest[1:])
	case "report":
		return a.report(ctx, rest[1:])
	case "commitments":
		return a.commitments(ctx, rest[1:])
	}

	if len(rest) < 2 {
		return errUsage
	}
	h, ok := a.commands()[rest[0]+" "+rest[1]]
	if !ok {
		return errUsage
	}
	return h(ctx, rest[2:])
}

func (a *app) commands() map[string]handler {
	return map[string]handler{
		"user add":           a.userAdd,
		"account add":        a.accountAdd,
		"account list":       a.accountList,
		"account edit":       a.accountEdit,
		"account deactivate": a.accountDeactivate,
		"card add":           a.cardAdd,
		"card list":          a.cardList,
		"card edit":          a.cardEdit,
		"card invoice":       a.cardInvoice,
		"category add":       a.categoryAdd,
		"category list":      a.categoryList,
		"category edit":      a.categoryEdit,
		"tx add":             a.txAdd,
		"tx edit":            a.txEdit,
		"tx delete":          a.txDelete,
		"tx list":            a.txList,
		"inst buy":           a.instBuy,
		"inst pay":           a.instPay,
		"inst unpay":         a.instUnpay,
		"inst list":          a.instList,
		"transfer add":       a.transferAdd,
		"transfer delete":    a.transferDelete,
		"transfer list":      a.transferList,
	}
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	if a.errOut != nil {
		fs.SetOutput(a.errOut)
	} else {
		fs.SetOutput(os.Stderr)
	}
	return fs
}

// moneyFlag parses amounts such as 12.34 or 12,34.
type moneyFlag struct {
	v      core.Money
	signed bool
}

func (m *moneyFlag) String() string { return m.v.String() }

func (m *moneyFlag) Set(s string) error {
	var err error
	if m.signed {
		m.v, err = core.ParseSignedMoney(s)
	} else {
		m.v, err = core.ParseMoney(s)
	}
	return err
}

// dateFlag parses YYYY-MM-DD. The zero value means "not given".
type dateFlag struct{ v core.Date }

func (d *dateFlag) String() string { return d.v.String() }

func (d *dateFlag) Set(s string) error {
	v, err := core.ParseDate(s)
	if err != nil {
		return err
	}
	d.v = v
	return nil
}

func (d *dateFlag) or(fallback core.Date) core.Date {
	if d.v.IsEmpty() {
		return fallback
	}
	return d.v
}

// visited returns the names of the flags set on the command line.
func visited(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func targetFrom(account, card int64) (core.Target, error) {
	switch {
	case account > 0 && card == 0:
		return core.DebitTarget(account), nil
	case card > 0 && account == 0:
		return core.CreditTarget(card), nil
	}
	return core.Target{}, core.Target{}.Validate()
}

func requireID(id int64) error {
	if id <= 0 {
		return fmt.Errorf("%w: -id is required", errUsage)
	}
	return nil
}

func (a *app) userAdd(ctx context.Context, args []string) error {
	fs := a.flags("user add")
	username := fs.String("username", "", "user name")
	email := fs.String("email", "", "unique email")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := a.svc.Users.Create(ctx, *username, *email)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "user %d created with default categories\n", id)
	return nil
}

func (a *app) accountAdd(ctx context.Context, args []string) error {
	fs := a.flags("account add")
	name := fs.String("name", "", "account name")
	typ := fs.String("type", "checking", "checking, savings, wallet...")
	initial := &moneyFlag{signed: true}
	fs.Var(initial, "initial", "initial balance")
	color := fs.String("color", "", "display color")
	icon := fs.String("icon", "", "display icon")
	if err := fs.Parse(args); err != nil {
		return err
	}
	acc, err := a.svc.Accounts.Create(ctx, core.Account{
		UserID: a.user, Name: *name, Type: *typ, InitialBalance: initial.v, Color: *color, Icon: *icon,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "account %d created, balance %s\n", acc.ID, acc.CurrentBalance)
	return nil
}

func (a *app) accountList(ctx context.Context, args []string) error {
	fs := a.flags("account list")
	all := fs.Bool("all", false, "include inactive accounts")
	if err := fs.Parse(args); err != nil {
		return err
	}
	accounts, err := a.svc.Accounts.List(ctx, a.user, !*all)
	if err != nil {
		return err
	}
	total, err := a.svc.Accounts.TotalBalance(ctx, a.user)
	if err != nil {
		return err
	}
	printAccounts(a.out, accounts, total)
	return nil
}

func (a *app) accountEdit(ctx context.Context, args []string) error {
	fs := a.flags("account edit")
	id := fs.Int64("id", 0, "account id")
	name := fs.String("name", "", "account name")
	typ := fs.String("type", "", "account type")
	color := fs.String("color", "", "display color")
	icon := fs.String("icon", "", "display icon")
	active := fs.Bool("active", true, "active flag")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(*id); err != nil {
		return err
	}
	acc, err := a.svc.Accounts.Get(ctx, a.user, *id)
	if err != nil {
		return err
	}
	set := visited(fs)
	if set["name"] {
		acc.Name = *name
	}
	if set["type"] {
		acc.Type = *typ
	}
	if set["color"] {
		acc.Color = *color
	}
	if set["icon"] {
		acc.Icon = *icon
	}
	if set["active"] {
		acc.Active = *active
	}
	if _, err := a.svc.Accounts.Update(ctx, acc); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "account %d updated\n", acc.ID)
	return nil
}

func (a *app) accountDeactivate(ctx context.Context, args []string) error {
	fs := a.flags("account deactivate")
	id := fs.Int64("id", 0, "account id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(*id); err != nil {
		return err
	}
	if err := a.svc.Accounts.Deactivate(ctx, a.user, *id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "account %d deactivated\n", *id)
	return nil
}

func (a *app) cardAdd(ctx context.Context, args []string) error {
	fs := a.flags("card add")
	name := fs.String("name", "", "card name")
	limit := &moneyFlag{signed: true}
	fs.Var(limit, "limit", "credit limit")
	closing := fs.Int("closing", 0, "closing day (1-31)")
	due := fs.Int("due", 0, "due day (1-31)")
	color := fs.String("color", "", "display color")
	icon := fs.String("icon", "", "display icon")
	if err := fs.Parse(args); err != nil {
		return err
	}
	card, err := a.svc.Cards.Create(ctx, core.CreditCard{
		UserID: a.user, Name: *name, Limit: limit.v, ClosingDay: *closing, DueDay: *due, Color: *color, Icon: *icon,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "card %d created\n", card.ID)
	return nil
}

func (a *app) cardList(ctx context.Context, args []string) error {
	fs := a.flags("card list")
	all := fs.Bool("all", false, "include inactive cards")
	ref := &dateFlag{}
	fs.Var(ref, "ref", "reference date (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	overviews, err := a.svc.Cards.Overview(ctx, a.user, ref.or(core.DateOf(a.now())), !*all)
	if err != nil {
		return err
	}
	printCards(a.out, overviews)
	return nil
}

func (a *app) cardEdit(ctx context.Context, args []string) error {
	fs := a.flags("card edit")
	id := fs.Int64("id", 0, "card id")
	name := fs.String("name", "", "card name")
	limit := &moneyFlag{signed: true}
	fs.Var(limit, "limit", "credit limit")
	closing := fs.Int("closing", 0, "closing day (1-31)")
	due := fs.Int("due", 0, "due day (1-31)")
	color := fs.String("color", "", "display color")
	icon := fs.String("icon", "", "display icon")
	active := fs.Bool("active", true, "active flag")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(*id); err != nil {
		return err
	}
	card, err := a.svc.Cards.Get(ctx, a.user, *id)
	if err != nil {
		return err
	}
	set := visited(fs)
	if set["name"] {
		card.Name = *name
	}
	if set["limit"] {
		card.Limit = limit.v
	}
	if set["closing"] {
		card.ClosingDay = *closing
	}
	if set["due"] {
		card.DueDay = *due
	}
	if set["color"] {
		card.Color = *color
	}
	if set["icon"] {
		card.Icon = *icon
	}
	if set["active"] {
		card.Active = *active
	}
	if _, err := a.svc.Cards.Update(ctx, card); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "card %d updated\n", card.ID)
	return nil
}

func (a *app) cardInvoice(ctx context.Context, args []string) error {
	fs := a.flags("card invoice")
	id := fs.Int64("id", 0, "card id")
	ref := &dateFlag{}
	fs.Var(ref, "ref", "any date inside the wanted invoice period (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(*id); err != nil {
		return err
	}
	inv, err := a.svc.Cards.Invoice(ctx, a.user, *id, ref.v)
	if err != nil {
		return err
	}
	printInvoice(a.out, inv)
	return nil
}

func (a *app) categoryAdd(ctx context.Context, args []string) error {
	fs := a.flags("category add")
	name := fs.String("name", "", "category name")
	typ := fs.String("type", string(core.Expense), "income or expense")
	color := fs.String("color", "", "display color")
	icon := fs.String("icon", "", "display icon")
	if err := fs.Parse(args); err != nil {
		return err
	}
	c, err := a.svc.Categories.Create(ctx, core.Category{
		UserID: a.user, Name: *name, Type: core.EntryType(*typ), Color: *color, Icon: *icon,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "category %d created\n", c.ID)
	return nil
}

func (a *app) categoryList(ctx context.Context, args []string) error {
	fs := a.flags("category list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cats, err := a.svc.Categories.List(ctx, a.user)
	if err != nil {
		return err
	}
	printCategories(a.out, cats)
	return nil
}

func (a *app) categoryEdit(ctx context.Context, args []string) error {
	fs := a.flags("category edit")
	id := fs.Int64("id", 0, "category id")
	name := fs.String("name", "", "category name")
	color := fs.String("color", "", "display color")
	icon := fs.String("icon", "", "display icon")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(*id); err != nil {
		return err
	}
	c, err := a.svc.Categories.Get(ctx, a.user, *id)
	if err != nil {
		return err
	}
	set := visited(fs)
	if set["name"] {
		c.Name = *name
	}
	if set["color"] {
		c.Color = *color
	}
	if set["icon"] {
		c.Icon = *icon
	}
	if _, err := a.svc.Categories.Update(ctx, c); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "category %d updated\n", c.ID)
	return nil
}

// txFlags are shared by tx add and tx edit.
type txFlags struct {
	account, card, category *int64
	typ, desc, notes, attach *string
	amount                   *moneyFlag
	date                     *dateFlag
}

func newTxFlags(fs *flag.FlagSet) txFlags {
	f := txFlags{
		account:  fs.Int64("account", 0, "debit account id"),
		card:     fs.Int64("card", 0, "credit card id"),
		category: fs.Int64("category", 0, "category id"),
		typ:      fs.String("type", string(core.Expense), "income or expense"),
		desc:     fs.String("desc", "", "description"),
		notes:    fs.String("notes", "", "notes"),
		attach:   fs.String("attachment", "", "stored attachment file name"),
		amount:   &moneyFlag{},
		date:     &dateFlag{},
	}
	fs.Var(f.amount, "amount", "amount, e.g. 12.34")
	fs.Var(f.date, "date", "date YYYY-MM-DD (default today)")
	return f
}

func (a *app) txAdd(ctx context.Context, args []string) error {
	fs := a.flags("tx add")
	f := newTxFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	target, err := targetFrom(*f.account, *f.card)
	if err != nil {
		return err
	}
	t, err := a.svc.Transactions.Add(ctx, core.Transaction{
		UserID:      a.user,
		Target:      target,
		CategoryID:  *f.category,
		Description: *f.desc,
		Amount:      f.amount.v,
		Type:        core.EntryType(*f.typ),
		Date:        f.date.or(core.DateOf(a.now())),
		Notes:       *f.notes,
		Attachment:  core.NewAttachment(*f.attach),
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "transaction %d recorded\n", t.ID)
	return nil
}

func (a *app) txEdit(ctx context.Context, args []string) error {
	fs := a.flags("tx edit")
	id := fs.Int64("id", 0, "transaction id")
	f := newTxFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(*id); err != nil {
		return err
	}
	t, err := a.svc.Transactions.Get(ctx, a.user, *id)
	if err != nil {
		return err
	}
	set := visited(fs)
	if set["account"] || set["card"] {
		if t.Target, err = targetFrom(*f.account, *f.card); err != nil {
			return err
		}
	}
	if set["category"] {
		t.CategoryID = *f.category
	}
	if set["type"] {
		t.Type = core.EntryType(*f.typ)
	}
	if set["desc"] {
		t.Description = *f.desc
	}
	if set["notes"] {
		t.Notes = *f.notes
	}
	if set["attachment"] {
		t.Attachment = core.NewAttachment(*f.attach)
	}
	if set["amount"] {
		t.Amount = f.amount.v
	}
	if set["date"] {
		t.Date = f.date.v
	}
	if _, err := a.svc.Transactions.Edit(ctx, t); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "transaction %d updated\n", t.ID)
	return nil
}

func (a *app) txDelete(ctx context.Context, args []string) error {
	fs := a.flags("tx delete")
	id := fs.Int64("id", 0, "transaction id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(*id); err != nil {
		return err
	}
	t, err := a.svc.Transactions.Delete(ctx, a.user, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "transaction %d deleted (%s %s)\n", t.ID, t.Description, t.Amount)
	return nil
}

func (a *app) txList(ctx context.Context, args []string) error {
	fs := a.flags("tx list")
	account := fs.Int64("account", 0, "only this account")
	card := fs.Int64("card", 0, "only this card")
	category := fs.Int64("category", 0, "only this category")
	typ := fs.String("type", "", "only income or expense")
	from, to := &dateFlag{}, &dateFlag{}
	fs.Var(from, "from", "first date, inclusive")
	fs.Var(to, "to", "last date, inclusive")
	limit := fs.Int("limit", 50, "maximum rows, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	txs, err := a.svc.Transactions.List(ctx, a.user, storage.TransactionFilter{
		AccountID:  *account,
		CardID:     *card,
		CategoryID: *category,
		Type:       core.EntryType(*typ),
		From:       from.v,
		To:         to.v,
		Limit:      *limit,
	})
	if err != nil {
		return err
	}
	printTransactions(a.out, txs)
	return nil
}

func (a *app) instBuy(ctx context.Context, args []string) error {
	fs := a.flags("inst buy")
	account := fs.Int64("account", 0, "debit account id")
	card := fs.Int64("card", 0, "credit card id")
	category := fs.Int64("category", 0, "category id")
	desc := fs.String("desc", "", "description")
	notes := fs.String("notes", "", "notes")
	count := fs.Int("count", 1, "number of installments")
	total := &moneyFlag{}
	fs.Var(total, "total", "purchase total")
	date := &dateFlag{}
	fs.Var(date, "date", "purchase date (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	target, err := targetFrom(*account, *card)
	if err != nil {
		return err
	}
	insts, err := a.svc.Installments.Purchase(ctx, core.Purchase{
		UserID:      a.user,
		Target:      target,
		CategoryID:  *category,
		Description: *desc,
		Total:       total.v,
		Count:       *count,
		Date:        date.or(core.DateOf(a.now())),
		Notes:       *notes,
	})
	if err != nil {
		return err
	}
	printInstallments(a.out, insts)
	return nil
}

func (a *app) instPay(ctx context.Context, args []string) error {
	fs := a.flags("inst pay")
	id := fs.Int64("id", 0, "installment id")
	date := &dateFlag{}
	fs.Var(date, "date", "payment date (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(*id); err != nil {
		return err
	}
	inst, err := a.svc.Installments.Pay(ctx, a.user, *id, date.v)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "installment %d paid on %s\n", inst.ID, inst.PaidDate)
	return nil
}

func (a *app) instUnpay(ctx context.Context, args []string) error {
	fs := a.flags("inst unpay")
	id := fs.Int64("id", 0, "installment id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(*id); err != nil {
		return err
	}
	inst, err := a.svc.Installments.Unpay(ctx, a.user, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "installment %d marked unpaid\n", inst.ID)
	return nil
}

func (a *app) instList(ctx context.Context, args []string) error {
	fs := a.flags("inst list")
	status := fs.String("status", string(storage.InstallmentsPending), "pending, paid or all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	insts, err := a.svc.Installments.List(ctx, a.user, storage.InstallmentStatus(*status))
	if err != nil {
		return err
	}
	printInstallments(a.out, insts)
	return nil
}

func (a *app) transferAdd(ctx context.Context, args []string) error {
	fs := a.flags("transfer add")
	from := fs.Int64("from", 0, "source account id")
	to := fs.Int64("to", 0, "destination account id")
	desc := fs.String("desc", "", "description")
	notes := fs.String("notes", "", "notes")
	amount := &moneyFlag{}
	fs.Var(amount, "amount", "amount, e.g. 12.34")
	date := &dateFlag{}
	fs.Var(date, "date", "date YYYY-MM-DD (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tr, err := a.svc.Transfers.Add(ctx, core.Transfer{
		UserID:        a.user,
		FromAccountID: *from,
		ToAccountID:   *to,
		Amount:        amount.v,
		Date:          date.or(core.DateOf(a.now())),
		Description:   *desc,
		Notes:         *notes,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "transfer %d recorded\n", tr.ID)
	return nil
}

func (a *app) transferDelete(ctx context.Context, args []string) error {
	fs := a.flags("transfer delete")
	id := fs.Int64("id", 0, "transfer id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := requireID(*id); err != nil {
		return err
	}
	tr, err := a.svc.Transfers.Delete(ctx, a.user, *id)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "transfer %d deleted (%s)\n", tr.ID, tr.Amount)
	return nil
}

func (a *app) transferList(ctx context.Context, args []string) error {
	fs := a.flags("transfer list")
	limit := fs.Int("limit", 50, "maximum rows, 0 for all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	trs, err := a.svc.Transfers.List(ctx, a.user, *limit)
	if err != nil {
		return err
	}
	printTransfers(a.out, trs)
	return nil
}

func (a *app) dashboard(ctx context.Context, args []string) error {
	fs := a.flags("dashboard")
	ref := &dateFlag{}
	fs.Var(ref, "ref", "any date of the wanted month (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	d, err := a.svc.Reports.Dashboard(ctx, a.user, ref.or(core.DateOf(a.now())))
	if err != nil {
		return err
	}
	printDashboard(a.out, d)
	return nil
}

func (a *app) report(ctx context.Context, args []string) error {
	fs := a.flags("report")
	ref := &dateFlag{}
	fs.Var(ref, "ref", "any date of the last reported month (default today)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	r, err := a.svc.Reports.Report(ctx, a.user, ref.or(core.DateOf(a.now())))
	if err != nil {
		return err
	}
	printReport(a.out, r)
	return nil
}

func (a *app) commitments(ctx context.Context, args []string) error {
	fs := a.flags("commitments")
	ref := &dateFlag{}
	fs.Var(ref, "ref", "months are counted after this date's month (default today)")
	months := fs.Int("months", 3, "number of months")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *months < 1 {
		return fmt.Errorf("%w: -months must be at least 1", errUsage)
	}
	cs, err := a.svc.Reports.ProjectCommitments(ctx, a.user, ref.or(core.DateOf(a.now())), *months)
	if err != nil {
		return err
	}
	printCommitments(a.out, cs)
	return nil
}
