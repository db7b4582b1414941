package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/naramuhl/finance-friend-central/internal/core"
)

// ExpensesByCategory groups payables by category, largest first. Percentages
// are relative to the total of all payables and rounded to one decimal.
func ExpensesByCategory(txs []core.Transaction) []core.CategoryAmount {
	totals := make(map[string]core.Money)
	var grand core.Money
	for _, tx := range txs {
		if tx.Type != core.Payable {
			continue
		}
		totals[tx.Category] = totals[tx.Category].Add(tx.Amount)
		grand = grand.Add(tx.Amount)
	}

	out := make([]core.CategoryAmount, 0, len(totals))
	for cat, amount := range totals {
		ca := core.CategoryAmount{Category: cat, Amount: amount}
		if grand.Cents > 0 {
			pct := decimal.NewFromInt(amount.Cents).
				Mul(decimal.NewFromInt(100)).
				Div(decimal.NewFromInt(grand.Cents)).
				Round(1)
			ca.Percentage, _ = pct.Float64()
		}
		out = append(out, ca)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// CompareMonthly contrasts expected and settled flows over txs.
func CompareMonthly(txs []core.Transaction) core.MonthlyComparison {
	s := Summarize(txs, nil, nil)
	return core.MonthlyComparison{
		TotalReceivables: s.TotalReceivables,
		TotalPayables:    s.TotalPayables,
		PaidReceivables:  s.PaidReceivables,
		PaidPayables:     s.PaidPayables,
	}
}

// InMonth keeps the transactions due in the month of day.
func InMonth(txs []core.Transaction, day core.Date) []core.Transaction {
	var out []core.Transaction
	for _, tx := range txs {
		if tx.DueDate.SameMonth(day) {
			out = append(out, tx)
		}
	}
	return out
}
