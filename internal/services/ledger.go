package services

import "github.com/naramuhl/finance-friend-central/internal/core"

// SettlementDelta returns the signed balance change caused by moving a
// transaction of type t into status to. Moving back into the other status
// yields the exact negation, so a double toggle nets to zero.
func SettlementDelta(t core.TransactionType, to core.TransactionStatus, amount core.Money) core.Money {
	delta := amount
	if t == core.Payable {
		delta = delta.Neg()
	}
	if to == core.Pending {
		delta = delta.Neg()
	}
	return delta
}
