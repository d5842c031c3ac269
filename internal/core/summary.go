package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category.
type CategoryAmount struct {
	CategoryID int64
	Name       string
	Color      string
	Amount     Money
	Percent    decimal.Decimal // share of the grand total, 0-100
}

// MonthFlow is the income/expense summary of one calendar month.
type MonthFlow struct {
	Year    int
	Month   int // 1-12
	Income  Money
	Expense Money
	Balance Money
}

// MonthCommitment is the sum of unpaid installments due in one month.
type MonthCommitment struct {
	Year   int
	Month  int
	Amount Money
}

// CardOverview is a credit card with its derived invoice figures.
type CardOverview struct {
	Card           CreditCard
	Period         Period
	CurrentInvoice Money
	AvailableLimit Money
	UsagePercent   decimal.Decimal
}

// Invoice lists everything billed to a card in one period.
type Invoice struct {
	Card         CreditCard
	Period       Period
	DueDate      Date
	Transactions []Transaction
	Installments []Installment
	Total        Money
}

// Dashboard is the monthly overview of a user.
type Dashboard struct {
	Year                int
	Month               int
	Income              Money
	Expense             Money
	Balance             Money
	Accounts            []Account
	TotalBalance        Money
	Cards               []CardOverview
	RecentTransactions  []Transaction
	ExpensesByCategory  []CategoryAmount
	PendingInstallments int
	FutureCommitment    Money
}

// Report is the multi-month view of a user.
type Report struct {
	Months            []MonthFlow
	CategoryExpenses  []CategoryAmount
	FutureCommitments []MonthCommitment
}
