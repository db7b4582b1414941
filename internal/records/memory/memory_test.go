package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/naramuhl/finance-friend-central/internal/core"
	"github.com/naramuhl/finance-friend-central/internal/records"
)

func TestTransactionsOrderedByDueDate(t *testing.T) {
	s := New()
	ctx := context.Background()
	for _, d := range []int{20, 5, 12} {
		_, err := s.InsertTransaction(ctx, "u1", core.Transaction{
			Description: "t", Amount: core.Money{Cents: 100}, DueDate: core.NewDate(2025, 1, d),
			Type: core.Payable, Status: core.Pending, Category: "Outros",
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	got, err := s.ListTransactions(ctx, "u1")
	if err != nil || len(got) != 3 {
		t.Fatalf("unexpected list: %v err=%v", got, err)
	}
	if got[0].DueDate.Day() != 5 || got[2].DueDate.Day() != 20 {
		t.Fatalf("not ordered by due date: %v", got)
	}
	if other, _ := s.ListTransactions(ctx, "u2"); len(other) != 0 {
		t.Fatalf("users must not share records: %v", other)
	}
}

func TestToggleIsAllOrNothing(t *testing.T) {
	s := New()
	ctx := context.Background()
	acc, _ := s.InsertAccount(ctx, "u1", core.Account{Name: "A", AccountType: core.PrimaryAccount, IsActive: true})
	tx, _ := s.InsertTransaction(ctx, "u1", core.Transaction{Amount: core.Money{Cents: 5000}, Type: core.Payable, Status: core.Pending})

	_, err := s.ToggleTransactionStatus(ctx, "u1", records.StatusToggle{
		TransactionID: tx.ID, AccountID: "missing", From: core.Pending, To: core.Paid, Delta: core.Money{Cents: -5000},
	})
	if !core.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	txs, _ := s.ListTransactions(ctx, "u1")
	if txs[0].Status != core.Pending {
		t.Fatal("status must not change when the account write fails")
	}

	got, err := s.ToggleTransactionStatus(ctx, "u1", records.StatusToggle{
		TransactionID: tx.ID, AccountID: acc.ID, From: core.Pending, To: core.Paid, Delta: core.Money{Cents: -5000},
	})
	if err != nil || got.Balance.Cents != -5000 {
		t.Fatalf("unexpected toggle: %+v err=%v", got, err)
	}

	_, err = s.ToggleTransactionStatus(ctx, "u1", records.StatusToggle{
		TransactionID: tx.ID, AccountID: acc.ID, From: core.Pending, To: core.Paid, Delta: core.Money{Cents: -5000},
	})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("stale toggle must conflict, got %v", err)
	}
}

func TestEnsureDefaultAccountIdempotent(t *testing.T) {
	s := New()
	ctx := context.Background()
	var wg sync.WaitGroup
	ids := make([]string, 10)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, err := s.EnsureDefaultAccount(ctx, "u1")
			if err != nil {
				t.Error(err)
				return
			}
			ids[i] = a.ID
		}(i)
	}
	wg.Wait()
	for _, id := range ids[1:] {
		if id != ids[0] {
			t.Fatalf("expected a single default account, got %v", ids)
		}
	}
	accs, _ := s.ListAccounts(ctx, "u1")
	if len(accs) != 1 || accs[0].AccountType != core.PrimaryAccount || accs[0].Name != core.DefaultAccountName {
		t.Fatalf("unexpected accounts: %+v", accs)
	}
	owners, _ := s.ListAccountOwners(ctx)
	if len(owners) != 1 || owners[0] != "u1" {
		t.Fatalf("unexpected owners: %v", owners)
	}
}

func TestContributeToGoal(t *testing.T) {
	s := New()
	ctx := context.Background()
	acc, _ := s.InsertAccount(ctx, "u1", core.Account{Name: "A", Balance: core.Money{Cents: 10000}, IsActive: true})
	g, _ := s.InsertGoal(ctx, "u1", core.FinancialGoal{Name: "G", TargetAmount: core.Money{Cents: 50000}})

	res, err := s.ContributeToGoal(ctx, "u1", records.GoalContribution{
		GoalID: g.ID, AccountID: acc.ID, Expected: core.Money{}, Applied: core.Money{Cents: 3000},
	})
	if err != nil {
		t.Fatal(err)
	}
	if res.Goal.CurrentAmount.Cents != 3000 || res.Account == nil || res.Account.Balance.Cents != 7000 {
		t.Fatalf("unexpected result: %+v", res)
	}

	_, err = s.ContributeToGoal(ctx, "u1", records.GoalContribution{GoalID: g.ID, Expected: core.Money{}, Applied: core.Money{Cents: 1}})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected conflict on stale amount, got %v", err)
	}
}

func TestUpsertSnapshotOnePerDay(t *testing.T) {
	s := New()
	ctx := context.Background()
	day := core.NewDate(2025, 2, 1)
	first, _ := s.UpsertSnapshot(ctx, "u1", day, core.Money{Cents: 100})
	second, _ := s.UpsertSnapshot(ctx, "u1", day, core.Money{Cents: 250})
	if first.ID != second.ID {
		t.Fatal("same-day upsert must keep the snapshot identity")
	}
	_, _ = s.UpsertSnapshot(ctx, "u1", core.NewDate(2025, 1, 15), core.Money{Cents: 50})

	all, _ := s.ListSnapshots(ctx, "u1", core.Date{}, core.Date{})
	if len(all) != 2 || all[0].TotalBalance.Cents != 50 || all[1].TotalBalance.Cents != 250 {
		t.Fatalf("unexpected snapshots: %+v", all)
	}
	ranged, _ := s.ListSnapshots(ctx, "u1", core.NewDate(2025, 1, 20), core.Date{})
	if len(ranged) != 1 {
		t.Fatalf("expected 1 snapshot in range, got %d", len(ranged))
	}
}
