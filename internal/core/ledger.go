package core

// Delta is a signed change to one account's running balance.
type Delta struct {
	AccountID int64
	Amount    Money
}

// Reverse returns the delta that undoes d.
func (d Delta) Reverse() Delta {
	return Delta{AccountID: d.AccountID, Amount: d.Amount.Neg()}
}

// EntryDelta is the balance effect of an income or expense charged to
// target. Card-charged entries only affect invoices, so ok is false for them.
func EntryDelta(target Target, typ EntryType, amount Money) (d Delta, ok bool) {
	accountID, isDebit := target.AccountID()
	if !isDebit {
		return Delta{}, false
	}
	return Delta{AccountID: accountID, Amount: Money{Cents: typ.Sign() * amount.Cents}}, true
}

// Delta returns the balance effect of the transaction.
func (t Transaction) Delta() (Delta, bool) {
	return EntryDelta(t.Target, t.Type, t.Amount)
}

// PaymentDelta returns the balance effect of paying the installment.
// Installments are always purchases, so paying one is an expense.
func (i Installment) PaymentDelta() (Delta, bool) {
	return EntryDelta(i.Target, Expense, i.Amount)
}

// Deltas returns the source debit and destination credit of a transfer.
func (tr Transfer) Deltas() [2]Delta {
	return [2]Delta{
		{AccountID: tr.FromAccountID, Amount: tr.Amount.Neg()},
		{AccountID: tr.ToAccountID, Amount: tr.Amount},
	}
}
