package services

import "github.com/naramuhl/finance-friend-central/internal/core"

// Summarize derives the dashboard figures from the current collections. It is
// a pure function and is re-run on every read.
func Summarize(txs []core.Transaction, accounts []core.Account, incomes []core.IncomeSource) core.Summary {
	var s core.Summary
	for _, tx := range txs {
		switch tx.Type {
		case core.Receivable:
			s.TotalReceivables = s.TotalReceivables.Add(tx.Amount)
			if tx.Status == core.Paid {
				s.PaidReceivables = s.PaidReceivables.Add(tx.Amount)
			} else {
				s.PendingReceivables = s.PendingReceivables.Add(tx.Amount)
			}
		case core.Payable:
			s.TotalPayables = s.TotalPayables.Add(tx.Amount)
			if tx.Status == core.Paid {
				s.PaidPayables = s.PaidPayables.Add(tx.Amount)
			} else {
				s.PendingPayables = s.PendingPayables.Add(tx.Amount)
			}
		}
	}
	s.Balance = s.TotalReceivables.Sub(s.TotalPayables)
	s.TotalBalance = TotalBalance(accounts)
	s.ProjectedBalance = s.TotalBalance.Add(s.PendingReceivables).Sub(s.PendingPayables)
	s.MonthlyIncome = MonthlyIncome(incomes)
	return s
}

// TotalBalance sums the balances of active accounts.
func TotalBalance(accounts []core.Account) core.Money {
	var total core.Money
	for _, a := range accounts {
		if a.IsActive {
			total = total.Add(a.Balance)
		}
	}
	return total
}
