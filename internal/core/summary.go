package core

// Summary holds the figures derived from the current collections.
type Summary struct {
	TotalReceivables   Money `json:"totalReceivables"`
	TotalPayables      Money `json:"totalPayables"`
	PendingReceivables Money `json:"pendingReceivables"`
	PendingPayables    Money `json:"pendingPayables"`
	PaidReceivables    Money `json:"paidReceivables"`
	PaidPayables       Money `json:"paidPayables"`
	Balance            Money `json:"balance"`
	TotalBalance       Money `json:"totalBalance"`
	ProjectedBalance   Money `json:"projectedBalance"`
	MonthlyIncome      Money `json:"monthlyIncome"`
}

// CategoryAmount is the payable total of one category.
type CategoryAmount struct {
	Category   string  `json:"category"`
	Amount     Money   `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// MonthlyComparison contrasts what came in with what went out.
type MonthlyComparison struct {
	TotalReceivables Money `json:"totalReceivables"`
	TotalPayables    Money `json:"totalPayables"`
	PaidReceivables  Money `json:"paidReceivables"`
	PaidPayables     Money `json:"paidPayables"`
}
