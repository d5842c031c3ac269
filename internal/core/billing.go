package core

import "fmt"

// Period is a half-open date range [Start, End).
type Period struct {
	Start Date
	End   Date
}

// Contains reports whether d falls inside the period.
func (p Period) Contains(d Date) bool {
	return !d.Before(p.Start) && d.Before(p.End)
}

func (p Period) String() string {
	return fmt.Sprintf("[%s, %s)", p.Start, p.End)
}

// MonthPeriod returns the calendar month containing year/month.
func MonthPeriod(year, month int) Period {
	start := NewDate(year, month, 1)
	return Period{Start: start, End: start.AddMonthsClamped(1)}
}

// closingDate returns the closing date of a card in the given month. A
// closing day past the end of a short month falls on the month's last day.
func closingDate(year, month, closingDay int) Date {
	// Normalize month overflow first (month 0 or 13).
	first := NewDate(year, month, 1)
	y, m := first.Year(), first.Month()
	return NewDate(y, m, min(closingDay, DaysIn(y, m)))
}

// InvoicePeriod computes the open invoice of a card that closes on
// closingDay, as seen on ref.
//
// Before the closing day the invoice runs from the previous month's closing
// date to this month's; from the closing day on it runs from this month's
// closing date to next month's. The comparison uses the clamped closing day
// so that ref always falls inside the returned period.
func InvoicePeriod(closingDay int, ref Date) Period {
	y, m := ref.Year(), ref.Month()
	if ref.Before(closingDate(y, m, closingDay)) {
		return Period{
			Start: closingDate(y, m-1, closingDay),
			End:   closingDate(y, m, closingDay),
		}
	}
	return Period{
		Start: closingDate(y, m, closingDay),
		End:   closingDate(y, m+1, closingDay),
	}
}

// InvoicePeriod returns the card's open invoice as seen on ref.
func (c CreditCard) InvoicePeriod(ref Date) Period {
	return InvoicePeriod(c.ClosingDay, ref)
}

// InvoiceDueDate returns the first dueDay on or after the period end,
// clamped to short months.
func InvoiceDueDate(dueDay int, p Period) Date {
	y, m := p.End.Year(), p.End.Month()
	due := closingDate(y, m, dueDay)
	if due.Before(p.End) {
		due = closingDate(y, m+1, dueDay)
	}
	return due
}
