package core

import (
	"errors"
	"path/filepath"
	"strings"
	"time"
)

const (
	Income  EntryType = "income"
	Expense EntryType = "expense"
)

const (
	Debit  PaymentMethod = "debit"
	Credit PaymentMethod = "credit"
)

const (
	AttachmentImage = "image"
	AttachmentPDF   = "pdf"
)

const dateLayout = "2006-01-02"

type (
	// EntryType is the economic direction of a transaction or category.
	EntryType string

	// PaymentMethod tells whether a purchase hits an account or a card.
	PaymentMethod string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Target is where a transaction or installment is charged: exactly one
	// account (debit) or exactly one credit card (credit). The zero value
	// is invalid.
	Target struct {
		method PaymentMethod
		id     int64
	}

	Attachment struct {
		Filename string
		Type     string // image, pdf or empty
	}

	Account struct {
		ID             int64
		UserID         int64
		Name           string
		Type           string // checking, savings, wallet...
		InitialBalance Money
		CurrentBalance Money
		Color          string
		Icon           string
		Active         bool
		CreatedAt      time.Time
	}

	CreditCard struct {
		ID         int64
		UserID     int64
		Name       string
		Limit      Money
		ClosingDay int
		DueDay     int
		Color      string
		Icon       string
		Active     bool
		CreatedAt  time.Time
	}

	Category struct {
		ID        int64
		UserID    int64
		Name      string
		Type      EntryType
		Color     string
		Icon      string
		CreatedAt time.Time
	}

	Transaction struct {
		ID          int64
		UserID      int64
		Target      Target
		CategoryID  int64 // 0 when uncategorized
		Description string
		Amount      Money
		Type        EntryType
		Date        Date
		Notes       string
		Attachment  Attachment
		CreatedAt   time.Time
	}

	Installment struct {
		ID           int64
		UserID       int64
		Target       Target
		CategoryID   int64
		Description  string
		TotalAmount  Money
		Amount       Money
		Index        int // 1-based
		Count        int
		DueDate      Date
		PurchaseDate Date
		Paid         bool
		PaidDate     Date // zero when unpaid
		Notes        string
		CreatedAt    time.Time
	}

	Transfer struct {
		ID            int64
		UserID        int64
		FromAccountID int64
		ToAccountID   int64
		Amount        Money
		Date          Date
		Description   string
		Notes         string
		CreatedAt     time.Time
	}
)

var (
	ErrInvalidDay              = errors.New("invalid day")
	ErrInvalidMonth            = errors.New("invalid month")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrInvalidEntryType        = errors.New("type must be income or expense")
	ErrInvalidTarget           = errors.New("exactly one of account or credit card is required")
	ErrInvalidInstallmentCount = errors.New("installment count must be at least 1")
	ErrEmptyDescription        = errors.New("empty description")
	ErrEmptyName               = errors.New("empty name")
	ErrDescriptionTooLong      = errors.New("description too long (max 200 characters)")
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, invalid("date", err)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(dateLayout)
}

func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonthsClamped moves n calendar months keeping the day of month, or the
// last day of the target month when it is shorter.
func (d Date) AddMonthsClamped(n int) Date {
	first := time.Date(d.Year(), time.Month(d.Month())+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	return NewDate(first.Year(), int(first.Month()), min(d.Day(), DaysIn(first.Year(), int(first.Month()))))
}

// Before and After compare calendar dates.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }

// DaysIn returns the number of days of month in year.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// IsEmpty returns true if the date is zero (for optional dates)
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (t EntryType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	}
	return invalid("type", ErrInvalidEntryType)
}

// Sign returns +1 for income and -1 for expense.
func (t EntryType) Sign() int64 {
	if t == Income {
		return 1
	}
	return -1
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// DebitTarget charges an account.
func DebitTarget(accountID int64) Target { return Target{method: Debit, id: accountID} }

// CreditTarget charges a credit card.
func CreditTarget(cardID int64) Target { return Target{method: Credit, id: cardID} }

// TargetFor builds a target from a payment method and an id.
func TargetFor(method PaymentMethod, id int64) (Target, error) {
	switch method {
	case Debit:
		return DebitTarget(id), nil
	case Credit:
		return CreditTarget(id), nil
	}
	return Target{}, invalid("payment_method", errors.New("payment method must be debit or credit"))
}

func (t Target) Method() PaymentMethod { return t.method }
func (t Target) ID() int64             { return t.id }
func (t Target) IsDebit() bool         { return t.method == Debit }

func (t Target) AccountID() (int64, bool) {
	if t.method == Debit {
		return t.id, true
	}
	return 0, false
}

func (t Target) CardID() (int64, bool) {
	if t.method == Credit {
		return t.id, true
	}
	return 0, false
}

func (t Target) Validate() error {
	if (t.method != Debit && t.method != Credit) || t.id <= 0 {
		return invalid("target", ErrInvalidTarget)
	}
	return nil
}

// AttachmentTypeFor classifies an uploaded file by extension.
func AttachmentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".png", ".jpg", ".jpeg", ".gif":
		return AttachmentImage
	case ".pdf":
		return AttachmentPDF
	}
	return ""
}

// NewAttachment records a stored file name and its derived type.
func NewAttachment(filename string) Attachment {
	if filename == "" {
		return Attachment{}
	}
	return Attachment{Filename: filename, Type: AttachmentTypeFor(filename)}
}

func validateDescription(s string) error {
	if len(strings.TrimSpace(s)) == 0 {
		return invalid("description", ErrEmptyDescription)
	}
	if len(s) > 200 {
		return invalid("description", ErrDescriptionTooLong)
	}
	return nil
}

func validateDay(field string, day int) error {
	if day < 1 || day > 31 {
		return invalid(field, ErrInvalidDay)
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return invalid("name", ErrEmptyName)
	}
	return nil
}

func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name", ErrEmptyName)
	}
	if c.Limit.IsNegative() {
		return invalid("limit", ErrInvalidAmount)
	}
	if err := validateDay("closing_day", c.ClosingDay); err != nil {
		return err
	}
	return validateDay("due_day", c.DueDay)
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return invalid("name", ErrEmptyName)
	}
	return c.Type.Validate()
}

func (t Transaction) Validate() error {
	if err := t.Target.Validate(); err != nil {
		return err
	}
	if err := validateDescription(t.Description); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if err := t.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	return nil
}

func (tr Transfer) Validate() error {
	if tr.FromAccountID <= 0 || tr.ToAccountID <= 0 {
		return invalid("account", ErrInvalidTarget)
	}
	if tr.FromAccountID == tr.ToAccountID {
		return ErrSameAccount
	}
	if err := tr.Amount.Validate(); err != nil {
		return invalid("amount", err)
	}
	if err := tr.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	if len(tr.Description) > 200 {
		return invalid("description", ErrDescriptionTooLong)
	}
	return nil
}
