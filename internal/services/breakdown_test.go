package services

import (
	"testing"

	"github.com/naramuhl/finance-friend-central/internal/core"
)

func TestExpensesByCategory(t *testing.T) {
	mk := func(cat string, cents int64, typ core.TransactionType) core.Transaction {
		return core.Transaction{Category: cat, Amount: core.Money{Cents: cents}, Type: typ, Status: core.Pending}
	}
	txs := []core.Transaction{
		mk("Moradia", 150000, core.Payable),
		mk("Alimentação", 30000, core.Payable),
		mk("Moradia", 20000, core.Payable),
		mk("Trabalho", 500000, core.Receivable),
	}
	got := ExpensesByCategory(txs)
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %+v", got)
	}
	if got[0].Category != "Moradia" || got[0].Amount.Cents != 170000 || got[0].Percentage != 85 {
		t.Errorf("unexpected first entry: %+v", got[0])
	}
	if got[1].Category != "Alimentação" || got[1].Percentage != 15 {
		t.Errorf("unexpected second entry: %+v", got[1])
	}
	if len(ExpensesByCategory(nil)) != 0 {
		t.Error("no payables should yield no categories")
	}
}

func TestCompareMonthlyInMonth(t *testing.T) {
	day := core.NewDate(2025, 3, 10)
	txs := []core.Transaction{
		{Type: core.Receivable, Status: core.Paid, Amount: core.Money{Cents: 1000}, DueDate: core.NewDate(2025, 3, 1)},
		{Type: core.Payable, Status: core.Pending, Amount: core.Money{Cents: 400}, DueDate: core.NewDate(2025, 3, 31)},
		{Type: core.Payable, Status: core.Paid, Amount: core.Money{Cents: 999}, DueDate: core.NewDate(2025, 4, 1)},
	}
	got := CompareMonthly(InMonth(txs, day))
	want := core.MonthlyComparison{
		TotalReceivables: core.Money{Cents: 1000},
		TotalPayables:    core.Money{Cents: 400},
		PaidReceivables:  core.Money{Cents: 1000},
	}
	if got != want {
		t.Fatalf("CompareMonthly() = %+v, want %+v", got, want)
	}
}
