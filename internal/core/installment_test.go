package core

import (
	"strings"
	"testing"
)

func TestSchedulePurchaseDebit(t *testing.T) {
	p := Purchase{
		UserID:      1,
		Target:      DebitTarget(7),
		Description: "Laptop",
		Total:       Cents(30000),
		Count:       3,
		Date:        NewDate(2024, 1, 15),
	}
	got, err := SchedulePurchase(p, DefaultInstallmentPolicy())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 installments, got %d", len(got))
	}

	wantDue := []string{"2024-01-15", "2024-02-14", "2024-03-15"}
	for i, inst := range got {
		if inst.Amount.Cents != 10000 {
			t.Errorf("installment %d amount = %d, want 10000", i+1, inst.Amount.Cents)
		}
		if inst.DueDate.String() != wantDue[i] {
			t.Errorf("installment %d due = %s, want %s", i+1, inst.DueDate, wantDue[i])
		}
		if inst.Index != i+1 || inst.Count != 3 {
			t.Errorf("installment %d has index %d/%d", i+1, inst.Index, inst.Count)
		}
		if !strings.HasSuffix(inst.Description, "Installment "+string(rune('1'+i))+"/3") {
			t.Errorf("unexpected description %q", inst.Description)
		}
		if inst.TotalAmount.Cents != 30000 {
			t.Errorf("installment %d total = %d", i+1, inst.TotalAmount.Cents)
		}
	}

	if !got[0].Paid || got[0].PaidDate.String() != "2024-01-15" {
		t.Fatalf("first debit installment should be paid on purchase date, got paid=%v date=%s", got[0].Paid, got[0].PaidDate)
	}
	for _, inst := range got[1:] {
		if inst.Paid || !inst.PaidDate.IsEmpty() {
			t.Fatalf("installment %d should be unpaid", inst.Index)
		}
	}
}

func TestSchedulePurchaseCreditLeavesAllUnpaid(t *testing.T) {
	p := Purchase{
		Target:      CreditTarget(3),
		Description: "Phone",
		Total:       Cents(10000),
		Count:       3,
		Date:        NewDate(2024, 1, 31),
	}
	got, err := SchedulePurchase(p, InstallmentPolicy{Stride: StrideMonthly, Split: SplitLargestRemainder})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantDue := []string{"2024-01-31", "2024-02-29", "2024-03-31"}
	wantAmt := []int64{3334, 3333, 3333}
	for i, inst := range got {
		if inst.Paid {
			t.Errorf("credit installment %d should be unpaid", i+1)
		}
		if inst.DueDate.String() != wantDue[i] {
			t.Errorf("installment %d due = %s, want %s", i+1, inst.DueDate, wantDue[i])
		}
		if inst.Amount.Cents != wantAmt[i] {
			t.Errorf("installment %d amount = %d, want %d", i+1, inst.Amount.Cents, wantAmt[i])
		}
	}
}

func TestSchedulePurchaseEvenSplitDropsRemainder(t *testing.T) {
	p := Purchase{
		Target:      CreditTarget(3),
		Description: "Sofa",
		Total:       Cents(10000),
		Count:       3,
		Date:        NewDate(2024, 1, 1),
	}
	got, err := SchedulePurchase(p, InstallmentPolicy{Stride: StrideFixed30, Split: SplitEven})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var sum int64
	for _, inst := range got {
		sum += inst.Amount.Cents
	}
	if sum != 9999 {
		t.Fatalf("expected even split to drop remainder, sum=%d", sum)
	}
}

func TestSchedulePurchaseValidation(t *testing.T) {
	base := Purchase{
		Target:      DebitTarget(1),
		Description: "x",
		Total:       Cents(100),
		Count:       2,
		Date:        NewDate(2024, 1, 1),
	}
	bads := []Purchase{
		func() Purchase { p := base; p.Target = Target{}; return p }(),
		func() Purchase { p := base; p.Description = " "; return p }(),
		func() Purchase { p := base; p.Total = Cents(0); return p }(),
		func() Purchase { p := base; p.Count = 0; return p }(),
		func() Purchase { p := base; p.Count = MaxInstallments + 1; return p }(),
		func() Purchase { p := base; p.Date = Date{}; return p }(),
		func() Purchase { p := base; p.Total = Cents(1); return p }(), // 1 cent over 2 installments
	}
	for i, p := range bads {
		_, err := SchedulePurchase(p, DefaultInstallmentPolicy())
		if err == nil {
			t.Fatalf("case %d expected error", i)
		}
		if !IsValidation(err) {
			t.Fatalf("case %d expected validation error, got %v", i, err)
		}
	}

	if _, err := SchedulePurchase(base, InstallmentPolicy{Stride: "weekly", Split: SplitEven}); err == nil {
		t.Fatalf("expected error for unknown stride")
	}
}

func TestGetDueDater(t *testing.T) {
	if _, err := GetDueDater(StrideFixed30); err != nil {
		t.Fatalf("fixed30 should be registered: %v", err)
	}
	if _, err := GetDueDater("yearly"); err == nil {
		t.Fatalf("expected error for unknown stride")
	}
}
