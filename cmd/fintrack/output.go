package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"fintrack/internal/core"
)

func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

func target(t core.Target) string {
	if id, ok := t.AccountID(); ok {
		return fmt.Sprintf("account %d", id)
	}
	if id, ok := t.CardID(); ok {
		return fmt.Sprintf("card %d", id)
	}
	return "-"
}

func active(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func printAccounts(w io.Writer, accounts []core.Account, total core.Money) {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tINITIAL\tBALANCE\tACTIVE\t")
	for _, a := range accounts {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t\n", a.ID, a.Name, a.Type, a.InitialBalance, a.CurrentBalance, active(a.Active))
	}
	fmt.Fprintf(tw, "\tTOTAL\t\t\t%s\t\t\n", total)
	tw.Flush()
}

func printCards(w io.Writer, cards []core.CardOverview) {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tCLOSING\tDUE\tLIMIT\tINVOICE\tAVAILABLE\tUSAGE %\tPERIOD\t")
	for _, ov := range cards {
		c := ov.Card
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\t%s\t%s\t%s\t\n",
			c.ID, c.Name, c.ClosingDay, c.DueDay, c.Limit, ov.CurrentInvoice, ov.AvailableLimit,
			ov.UsagePercent.StringFixed(1), ov.Period)
	}
	tw.Flush()
}

func printCategories(w io.Writer, cats []core.Category) {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tNAME\tTYPE\tCOLOR\tICON\t")
	for _, c := range cats {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t\n", c.ID, c.Name, c.Type, c.Color, c.Icon)
	}
	tw.Flush()
}

func printTransactions(w io.Writer, txs []core.Transaction) {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tDATE\tTYPE\tAMOUNT\tTARGET\tCATEGORY\tDESCRIPTION\t")
	for _, t := range txs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\t%s\t\n", t.ID, t.Date, t.Type, t.Amount, target(t.Target), t.CategoryID, t.Description)
	}
	tw.Flush()
}

func printInstallments(w io.Writer, insts []core.Installment) {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tDUE\tN\tAMOUNT\tTARGET\tPAID\tDESCRIPTION\t")
	for _, i := range insts {
		paid := "-"
		if i.Paid {
			paid = i.PaidDate.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%d/%d\t%s\t%s\t%s\t%s\t\n", i.ID, i.DueDate, i.Index, i.Count, i.Amount, target(i.Target), paid, i.Description)
	}
	tw.Flush()
}

func printTransfers(w io.Writer, trs []core.Transfer) {
	tw := table(w)
	fmt.Fprintln(tw, "ID\tDATE\tFROM\tTO\tAMOUNT\tDESCRIPTION\t")
	for _, t := range trs {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\t\n", t.ID, t.Date, t.FromAccountID, t.ToAccountID, t.Amount, t.Description)
	}
	tw.Flush()
}

func printInvoice(w io.Writer, inv core.Invoice) {
	fmt.Fprintf(w, "%s invoice %s, due %s\n\n", inv.Card.Name, inv.Period, inv.DueDate)
	if len(inv.Transactions) > 0 {
		printTransactions(w, inv.Transactions)
		fmt.Fprintln(w)
	}
	if len(inv.Installments) > 0 {
		printInstallments(w, inv.Installments)
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "Total: %s\n", inv.Total)
}

func printCategoryAmounts(w io.Writer, items []core.CategoryAmount) {
	tw := table(w)
	fmt.Fprintln(tw, "CATEGORY\tAMOUNT\tSHARE %\t")
	for _, it := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t\n", it.Name, it.Amount, it.Percent.StringFixed(1))
	}
	tw.Flush()
}

func printDashboard(w io.Writer, d core.Dashboard) {
	fmt.Fprintf(w, "%d-%02d\n", d.Year, d.Month)
	fmt.Fprintf(w, "Income:  %s\nExpense: %s\nBalance: %s\n\n", d.Income, d.Expense, d.Balance)

	printAccounts(w, d.Accounts, d.TotalBalance)
	if len(d.Cards) > 0 {
		fmt.Fprintln(w)
		printCards(w, d.Cards)
	}
	if len(d.ExpensesByCategory) > 0 {
		fmt.Fprintln(w)
		printCategoryAmounts(w, d.ExpensesByCategory)
	}
	if len(d.RecentTransactions) > 0 {
		fmt.Fprintln(w)
		printTransactions(w, d.RecentTransactions)
	}
	fmt.Fprintf(w, "\nPending installments this month: %d\n", d.PendingInstallments)
	fmt.Fprintf(w, "Future commitment: %s\n", d.FutureCommitment)
}

func printReport(w io.Writer, r core.Report) {
	tw := table(w)
	fmt.Fprintln(tw, "MONTH\tINCOME\tEXPENSE\tBALANCE\t")
	for _, m := range r.Months {
		fmt.Fprintf(tw, "%d-%02d\t%s\t%s\t%s\t\n", m.Year, m.Month, m.Income, m.Expense, m.Balance)
	}
	tw.Flush()

	if len(r.CategoryExpenses) > 0 {
		fmt.Fprintln(w)
		printCategoryAmounts(w, r.CategoryExpenses)
	}
	fmt.Fprintln(w)
	printCommitments(w, r.FutureCommitments)
}

func printCommitments(w io.Writer, cs []core.MonthCommitment) {
	tw := table(w)
	fmt.Fprintln(tw, "MONTH\tCOMMITTED\t")
	for _, c := range cs {
		fmt.Fprintf(tw, "%d-%02d\t%s\t\n", c.Year, c.Month, c.Amount)
	}
	tw.Flush()
}
