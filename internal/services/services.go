package services

import (
	"context"
	"time"

	"fintrack/internal/cache"
	"fintrack/internal/core"
	"fintrack/internal/events"
	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// Options tunes the services. Zero values fall back to the defaults of
// DefaultOptions.
type Options struct {
	Policy           core.InstallmentPolicy
	CommitmentMonths int
	ReportMonths     int
	InvoiceCache     cache.Cache[core.Money]
	Now              func() time.Time
}

func DefaultOptions() Options {
	return Options{
		Policy:           core.DefaultInstallmentPolicy(),
		CommitmentMonths: 3,
		ReportMonths:     6,
		Now:              time.Now,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.Policy.Stride == "" {
		o.Policy.Stride = def.Policy.Stride
	}
	if o.Policy.Split == "" {
		o.Policy.Split = def.Policy.Split
	}
	if o.CommitmentMonths <= 0 {
		o.CommitmentMonths = def.CommitmentMonths
	}
	if o.ReportMonths <= 0 {
		o.ReportMonths = def.ReportMonths
	}
	if o.InvoiceCache == nil {
		o.InvoiceCache = cache.NewLRUCache[core.Money](256, 5*time.Minute)
	}
	if o.Now == nil {
		o.Now = def.Now
	}
	return o
}

// Services bundles every use case over one repository and publisher.
type Services struct {
	Users        *UserService
	Accounts     *AccountService
	Cards        *CardService
	Categories   *CategoryService
	Transactions *TransactionService
	Installments *InstallmentService
	Transfers    *TransferService
	Invoices     *InvoiceService
	Reports      *ReportService
}

// New wires the services. pub may be nil, in which case no events are
// published.
func New(repo *storage.SQLiteRepository, pub events.Publisher, opts Options) *Services {
	opts = opts.withDefaults()
	ledger := NewLedger()
	n := newNotifier(pub)
	invoices := NewInvoiceService(repo, opts.InvoiceCache, opts.Now)
	categories := NewCategoryService(repo)

	return &Services{
		Users:        NewUserService(repo),
		Accounts:     NewAccountService(repo, n),
		Cards:        NewCardService(repo, invoices, n, opts.Now),
		Categories:   categories,
		Transactions: NewTransactionService(repo, ledger, invoices, n),
		Installments: NewInstallmentService(repo, ledger, invoices, n, opts.Policy, opts.Now),
		Transfers:    NewTransferService(repo, ledger, n),
		Invoices:     invoices,
		Reports:      NewReportService(repo, invoices, opts.CommitmentMonths, opts.ReportMonths),
	}
}

// notifier publishes ledger events after commit. Publishing is best effort:
// the write already succeeded, so failures are only logged.
type notifier struct {
	pub    events.Publisher
	logger *applog.Logger
}

func newNotifier(pub events.Publisher) *notifier {
	return &notifier{pub: pub, logger: applog.Default(applog.ComponentAMQP)}
}

func (n *notifier) publish(ctx context.Context, e *events.LedgerEvent) {
	if n.pub == nil {
		n.logger.WarnContext(ctx, "Event publisher not available, skipping ledger event",
			applog.FieldEventKind, e.Kind)
		return
	}
	if err := n.pub.Publish(ctx, e); err != nil {
		n.logger.ErrorContext(ctx, "Failed to publish ledger event",
			applog.FieldEventID, e.ID,
			applog.FieldEventKind, e.Kind,
			applog.FieldUserID, e.UserID,
			applog.FieldError, err)
	}
}

func changes(deltas ...core.Delta) []events.BalanceChange {
	var out []events.BalanceChange
	for _, d := range deltas {
		if d.Amount.IsZero() {
			continue
		}
		out = append(out, events.BalanceChange{AccountID: d.AccountID, DeltaCents: d.Amount.Cents})
	}
	return out
}

func stampTarget(e *events.LedgerEvent, t core.Target) {
	if id, ok := t.AccountID(); ok {
		e.AccountID = id
	}
	if id, ok := t.CardID(); ok {
		e.CardID = id
	}
}

// checkTarget verifies that the account or card behind t belongs to the user.
func checkTarget(ctx context.Context, q *storage.Queries, userID int64, t core.Target) error {
	if id, ok := t.AccountID(); ok {
		if _, err := q.GetAccount(ctx, userID, id); err != nil {
			return err
		}
		return nil
	}
	if id, ok := t.CardID(); ok {
		if _, err := q.GetCreditCard(ctx, userID, id); err != nil {
			return err
		}
		return nil
	}
	return t.Validate()
}

func checkCategory(ctx context.Context, q *storage.Queries, userID, categoryID int64) error {
	if categoryID == 0 {
		return nil
	}
	if _, err := q.GetCategory(ctx, userID, categoryID); err != nil {
		return err
	}
	return nil
}

// logOutcome logs a failed write at the level its kind deserves.
func logOutcome(ctx context.Context, logger *applog.Logger, msg string, err error, args ...any) {
	args = append(args, applog.FieldError, err)
	switch {
	case core.IsInvalidState(err), core.IsNotFound(err), core.IsValidation(err):
		logger.WarnContext(ctx, msg, args...)
	default:
		logger.ErrorContext(ctx, msg, args...)
	}
}

func today(now func() time.Time) core.Date {
	return core.DateOf(now())
}
