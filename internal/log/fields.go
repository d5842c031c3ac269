package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldUserID      = "user_id"
	FieldAccountID   = "account_id"
	FieldCardID      = "card_id"
	FieldEntityID    = "id"
	FieldAmountCents = "amount_cents"
	FieldDeltaCents  = "delta_cents"
	FieldPeriod      = "period"
	FieldYear        = "year"
	FieldMonth       = "month"
	FieldCount       = "count"
	FieldEventID     = "event_id"
	FieldEventKind   = "event_kind"
	FieldDuration    = "duration_ms"
)

// Components defines standard component names
const (
	ComponentApp         = "app"
	ComponentLedger      = "ledger"
	ComponentAccount     = "account"
	ComponentCard        = "card"
	ComponentCategory    = "category"
	ComponentTransaction = "transaction"
	ComponentInstallment = "installment"
	ComponentTransfer    = "transfer"
	ComponentInvoice     = "invoice"
	ComponentReport      = "report"
	ComponentStorage     = "storage"
	ComponentAMQP        = "amqp"
	ComponentWorker      = "worker"
	ComponentMirror      = "mirror"
	ComponentCache       = "cache"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRead     = "read"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpList     = "list"
	OpApply    = "apply"
	OpReverse  = "reverse"
	OpPay      = "pay"
	OpUnpay    = "unpay"
	OpPublish  = "publish"
	OpSync     = "sync"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

func (f LogFields) WithUser(userID int64) LogFields {
	f[FieldUserID] = userID
	return f
}

// WithDelta adds the account and signed cents of a balance change.
func (f LogFields) WithDelta(accountID, cents int64) LogFields {
	f[FieldAccountID] = accountID
	f[FieldDeltaCents] = cents
	return f
}

func (f LogFields) WithAmount(cents int64) LogFields {
	f[FieldAmountCents] = cents
	return f
}

func (f LogFields) WithCard(cardID int64) LogFields {
	f[FieldCardID] = cardID
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
