// Package records defines the record store contract the finance session
// reads from and writes through. Every call is scoped to one user.
package records

import (
	"context"

	"github.com/naramuhl/finance-friend-central/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionStore lists transactions ordered by due date ascending.
	TransactionStore interface {
		ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
		InsertTransaction(ctx context.Context, userID string, tx core.Transaction) (core.Transaction, error)
		DeleteTransaction(ctx context.Context, userID, id string) error
		// ToggleTransactionStatus moves a transaction from t.From to t.To and
		// applies t.Delta to the settlement account in one unit. When
		// t.AccountID is empty only the status changes and the returned
		// account is zero. A transaction whose status is no longer t.From
		// yields core.ErrConflict and nothing is written.
		ToggleTransactionStatus(ctx context.Context, userID string, t StatusToggle) (core.Account, error)
	}

	// AccountStore lists accounts in creation order, inactive ones included.
	AccountStore interface {
		ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
		InsertAccount(ctx context.Context, userID string, a core.Account) (core.Account, error)
		UpdateAccount(ctx context.Context, userID, id string, p AccountPatch) (core.Account, error)
		DeactivateAccount(ctx context.Context, userID, id string) (core.Account, error)
		AdjustBalance(ctx context.Context, userID, id string, delta core.Money) (core.Account, error)
		// EnsureDefaultAccount returns the synthesized primary account of the
		// user, creating it at most once no matter how many callers race.
		EnsureDefaultAccount(ctx context.Context, userID string) (core.Account, error)
		// ListAccountOwners returns every user that owns at least one account.
		ListAccountOwners(ctx context.Context) ([]string, error)
	}

	IncomeStore interface {
		ListIncomeSources(ctx context.Context, userID string) ([]core.IncomeSource, error)
		InsertIncomeSource(ctx context.Context, userID string, src core.IncomeSource) (core.IncomeSource, error)
		SetIncomeSourceActive(ctx context.Context, userID, id string, active bool) (core.IncomeSource, error)
		DeleteIncomeSource(ctx context.Context, userID, id string) error
	}

	GoalStore interface {
		ListGoals(ctx context.Context, userID string) ([]core.FinancialGoal, error)
		InsertGoal(ctx context.Context, userID string, g core.FinancialGoal) (core.FinancialGoal, error)
		// ContributeToGoal sets the goal amount to c.Expected+c.Applied and,
		// when c.AccountID is set, debits the account by c.Applied, both or
		// neither. A goal whose amount is no longer c.Expected, or that was
		// completed meanwhile, yields core.ErrConflict.
		ContributeToGoal(ctx context.Context, userID string, c GoalContribution) (ContributionResult, error)
		CompleteGoal(ctx context.Context, userID, id string) (core.FinancialGoal, error)
		DeleteGoal(ctx context.Context, userID, id string) error
	}

	SnapshotStore interface {
		// UpsertSnapshot keeps at most one snapshot per user and day; a later
		// call for the same day replaces the total.
		UpsertSnapshot(ctx context.Context, userID string, day core.Date, total core.Money) (core.PatrimonySnapshot, error)
		// ListSnapshots returns snapshots with from <= date <= to, oldest first.
		// A zero bound is open.
		ListSnapshots(ctx context.Context, userID string, from, to core.Date) ([]core.PatrimonySnapshot, error)
	}

	Store interface {
		TransactionStore
		AccountStore
		IncomeStore
		GoalStore
		SnapshotStore
		Close() error
	}
)

// StatusToggle describes one settlement status change.
type StatusToggle struct {
	TransactionID string
	AccountID     string
	From          core.TransactionStatus
	To            core.TransactionStatus
	Delta         core.Money
}

// GoalContribution describes a deposit (positive) or withdrawal (negative)
// already clamped so the goal amount stays at or above zero.
type GoalContribution struct {
	GoalID    string
	AccountID string
	Expected  core.Money
	Applied   core.Money
}

// ContributionResult carries the records written by a contribution. Account
// is nil when no account was debited.
type ContributionResult struct {
	Goal    core.FinancialGoal
	Account *core.Account
}

// AccountPatch holds the fields to change; nil fields are left untouched.
type AccountPatch struct {
	Name        *string
	Balance     *core.Money
	Color       *string
	AccountType *core.AccountType
	Description *string
	Icon        *string
	IsActive    *bool
}

// Apply returns a copy of a with the patch applied.
func (p AccountPatch) Apply(a core.Account) core.Account {
	if p.Name != nil {
		a.Name = *p.Name
	}
	if p.Balance != nil {
		a.Balance = *p.Balance
	}
	if p.Color != nil {
		a.Color = *p.Color
	}
	if p.AccountType != nil {
		a.AccountType = *p.AccountType
	}
	if p.Description != nil {
		a.Description = *p.Description
	}
	if p.Icon != nil {
		a.Icon = *p.Icon
	}
	if p.IsActive != nil {
		a.IsActive = *p.IsActive
	}
	return a
}
