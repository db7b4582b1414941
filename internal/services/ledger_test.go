package services

import (
	"testing"

	"github.com/naramuhl/finance-friend-central/internal/core"
)

func TestSettlementDelta(t *testing.T) {
	amount := core.Money{Cents: 5000}
	tests := []struct {
		typ  core.TransactionType
		to   core.TransactionStatus
		want int64
	}{
		{core.Payable, core.Paid, -5000},
		{core.Payable, core.Pending, 5000},
		{core.Receivable, core.Paid, 5000},
		{core.Receivable, core.Pending, -5000},
	}
	for _, tt := range tests {
		t.Run(string(tt.typ)+"->"+string(tt.to), func(t *testing.T) {
			if got := SettlementDelta(tt.typ, tt.to, amount); got.Cents != tt.want {
				t.Errorf("SettlementDelta() = %d, want %d", got.Cents, tt.want)
			}
		})
	}
}

func TestEvenToggleSequencesRestoreBalance(t *testing.T) {
	start := core.Money{Cents: 1}
	for _, typ := range []core.TransactionType{core.Payable, core.Receivable} {
		balance := start
		status := core.Pending
		for i := 0; i < 10; i++ {
			status = status.Toggled()
			balance = balance.Add(SettlementDelta(typ, status, core.Money{Cents: 3333}))
		}
		if balance != start {
			t.Fatalf("%s: balance drifted to %v", typ, balance)
		}
	}
}
