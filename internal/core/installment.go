// This file implements installment scheduling. Due-date spacing uses the
// strategy pattern: each stride kind has its own DueDater, looked up by name.

package core

import (
	"errors"
	"fmt"
	"strings"
)

// StrideKind names a due-date spacing strategy.
type StrideKind string

const (
	// StrideFixed30 spaces installments exactly 30 days apart.
	StrideFixed30 StrideKind = "fixed30"
	// StrideMonthly keeps the purchase day of month, clamped to short months.
	StrideMonthly StrideKind = "monthly"
)

// MaxInstallments bounds a single purchase.
const MaxInstallments = 120

// DueDater computes the due date of the i-th (0-based) installment.
type DueDater interface {
	DueDate(purchase Date, i int) Date
}

// Fixed30Stride implements DueDater with a fixed 30-day stride.
type Fixed30Stride struct{}

func (Fixed30Stride) DueDate(purchase Date, i int) Date {
	return purchase.AddDays(30 * i)
}

// MonthlyStride implements DueDater with a calendar-month stride.
type MonthlyStride struct{}

func (MonthlyStride) DueDate(purchase Date, i int) Date {
	return purchase.AddMonthsClamped(i)
}

var strideStrategies = map[StrideKind]DueDater{
	StrideFixed30: Fixed30Stride{},
	StrideMonthly: MonthlyStride{},
}

// GetDueDater returns the strategy registered for kind.
func GetDueDater(kind StrideKind) (DueDater, error) {
	d, ok := strideStrategies[kind]
	if !ok {
		return nil, fmt.Errorf("unknown installment stride: %s", kind)
	}
	return d, nil
}

// InstallmentPolicy configures how purchases are scheduled.
type InstallmentPolicy struct {
	Stride StrideKind
	Split  SplitPolicy
}

// DefaultInstallmentPolicy keeps the 30-day stride and splits totals so the
// installments always add up to the purchase amount.
func DefaultInstallmentPolicy() InstallmentPolicy {
	return InstallmentPolicy{Stride: StrideFixed30, Split: SplitLargestRemainder}
}

func (p InstallmentPolicy) Validate() error {
	if _, err := GetDueDater(p.Stride); err != nil {
		return err
	}
	switch p.Split {
	case SplitEven, SplitLargestRemainder:
		return nil
	}
	return fmt.Errorf("unknown split policy: %s", p.Split)
}

// Purchase is a request to buy something in Count installments.
type Purchase struct {
	UserID      int64
	Target      Target
	CategoryID  int64
	Description string
	Total       Money
	Count       int
	Date        Date
	Notes       string
}

func (p Purchase) Validate() error {
	if err := p.Target.Validate(); err != nil {
		return err
	}
	if err := validateDescription(p.Description); err != nil {
		return err
	}
	if err := p.Total.Validate(); err != nil {
		return invalid("amount", err)
	}
	if p.Count < 1 || p.Count > MaxInstallments {
		return invalid("installments_count", ErrInvalidInstallmentCount)
	}
	if err := p.Date.Validate(); err != nil {
		return invalid("date", err)
	}
	return nil
}

// SchedulePurchase expands a purchase into its installments.
//
// Under debit the first installment is created already paid on the purchase
// date; its balance effect is applied by the caller. Every other
// installment starts unpaid.
func SchedulePurchase(p Purchase, policy InstallmentPolicy) ([]Installment, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	dueDater, err := GetDueDater(policy.Stride)
	if err != nil {
		return nil, err
	}
	amounts, err := p.Total.Split(p.Count, policy.Split)
	if err != nil {
		return nil, err
	}
	if amounts[len(amounts)-1].IsZero() {
		return nil, invalid("amount", errors.New("amount too small for the number of installments"))
	}

	desc := strings.TrimSpace(p.Description)
	out := make([]Installment, p.Count)
	for i := range out {
		inst := Installment{
			UserID:       p.UserID,
			Target:       p.Target,
			CategoryID:   p.CategoryID,
			Description:  fmt.Sprintf("%s - Installment %d/%d", desc, i+1, p.Count),
			TotalAmount:  p.Total,
			Amount:       amounts[i],
			Index:        i + 1,
			Count:        p.Count,
			DueDate:      dueDater.DueDate(p.Date, i),
			PurchaseDate: p.Date,
			Notes:        p.Notes,
		}
		if i == 0 && p.Target.IsDebit() {
			inst.Paid = true
			inst.PaidDate = p.Date
		}
		out[i] = inst
	}
	return out, nil
}
