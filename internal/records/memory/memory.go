// Package memory is an in-process record store. Data lives for the lifetime
// of the process; it backs local development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/naramuhl/finance-friend-central/internal/core"
	"github.com/naramuhl/finance-friend-central/internal/records"
)

type userData struct {
	transactions []core.Transaction
	accounts     []core.Account
	incomes      []core.IncomeSource
	goals        []core.FinancialGoal
	snapshots    map[string]core.PatrimonySnapshot // keyed by YYYY-MM-DD
	defaultID    string
}

type Store struct {
	mu    sync.Mutex
	users map[string]*userData
	now   func() time.Time
}

var _ records.Store = (*Store)(nil)

func New() *Store {
	return &Store{users: make(map[string]*userData), now: time.Now}
}

// WithClock replaces the clock used for CreatedAt timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Close() error { return nil }

func (s *Store) user(id string) *userData {
	u, ok := s.users[id]
	if !ok {
		u = &userData{snapshots: make(map[string]core.PatrimonySnapshot)}
		s.users[id] = u
	}
	return u
}

// ListTransactions returns transactions by due date, oldest first.
func (s *Store) ListTransactions(_ context.Context, userID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Transaction(nil), s.user(userID).transactions...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DueDate.Before(out[j].DueDate.Time)
	})
	return out, nil
}

func (s *Store) InsertTransaction(_ context.Context, userID string, tx core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = uuid.NewString()
	tx.CreatedAt = s.now()
	u := s.user(userID)
	u.transactions = append(u.transactions, tx)
	return tx, nil
}

func (s *Store) DeleteTransaction(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	i := indexOf(u.transactions, func(t core.Transaction) bool { return t.ID == id })
	if i < 0 {
		return core.NotFound("transaction", id)
	}
	u.transactions = append(u.transactions[:i], u.transactions[i+1:]...)
	return nil
}

func (s *Store) ToggleTransactionStatus(_ context.Context, userID string, t records.StatusToggle) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	ti := indexOf(u.transactions, func(x core.Transaction) bool { return x.ID == t.TransactionID })
	if ti < 0 {
		return core.Account{}, core.NotFound("transaction", t.TransactionID)
	}
	if u.transactions[ti].Status != t.From {
		return core.Account{}, core.ErrConflict
	}
	ai := -1
	if t.AccountID != "" {
		ai = indexOf(u.accounts, func(a core.Account) bool { return a.ID == t.AccountID })
		if ai < 0 {
			return core.Account{}, core.NotFound("account", t.AccountID)
		}
	}

	u.transactions[ti].Status = t.To
	if ai < 0 {
		return core.Account{}, nil
	}
	u.accounts[ai].Balance = u.accounts[ai].Balance.Add(t.Delta)
	return u.accounts[ai], nil
}

func (s *Store) ListAccounts(_ context.Context, userID string) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Account(nil), s.user(userID).accounts...), nil
}

func (s *Store) InsertAccount(_ context.Context, userID string, a core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = uuid.NewString()
	a.CreatedAt = s.now()
	u := s.user(userID)
	u.accounts = append(u.accounts, a)
	return a, nil
}

func (s *Store) UpdateAccount(_ context.Context, userID, id string, p records.AccountPatch) (core.Account, error) {
	return s.mutateAccount(userID, id, p.Apply)
}

func (s *Store) DeactivateAccount(_ context.Context, userID, id string) (core.Account, error) {
	return s.mutateAccount(userID, id, func(a core.Account) core.Account {
		a.IsActive = false
		return a
	})
}

func (s *Store) AdjustBalance(_ context.Context, userID, id string, delta core.Money) (core.Account, error) {
	return s.mutateAccount(userID, id, func(a core.Account) core.Account {
		a.Balance = a.Balance.Add(delta)
		return a
	})
}

func (s *Store) mutateAccount(userID, id string, fn func(core.Account) core.Account) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	i := indexOf(u.accounts, func(a core.Account) bool { return a.ID == id })
	if i < 0 {
		return core.Account{}, core.NotFound("account", id)
	}
	u.accounts[i] = fn(u.accounts[i])
	return u.accounts[i], nil
}

func (s *Store) EnsureDefaultAccount(_ context.Context, userID string) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	if u.defaultID != "" {
		if i := indexOf(u.accounts, func(a core.Account) bool { return a.ID == u.defaultID }); i >= 0 {
			return u.accounts[i], nil
		}
	}
	a := core.Account{
		ID:          uuid.NewString(),
		Name:        core.DefaultAccountName,
		AccountType: core.PrimaryAccount,
		IsActive:    true,
		CreatedAt:   s.now(),
	}.WithDefaults()
	u.accounts = append(u.accounts, a)
	u.defaultID = a.ID
	return a, nil
}

func (s *Store) ListAccountOwners(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for id, u := range s.users {
		if len(u.accounts) > 0 {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) ListIncomeSources(_ context.Context, userID string) ([]core.IncomeSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.IncomeSource(nil), s.user(userID).incomes...), nil
}

func (s *Store) InsertIncomeSource(_ context.Context, userID string, src core.IncomeSource) (core.IncomeSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	src.ID = uuid.NewString()
	src.CreatedAt = s.now()
	u := s.user(userID)
	u.incomes = append(u.incomes, src)
	return src, nil
}

func (s *Store) SetIncomeSourceActive(_ context.Context, userID, id string, active bool) (core.IncomeSource, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	i := indexOf(u.incomes, func(x core.IncomeSource) bool { return x.ID == id })
	if i < 0 {
		return core.IncomeSource{}, core.NotFound("income source", id)
	}
	u.incomes[i].IsActive = active
	return u.incomes[i], nil
}

func (s *Store) DeleteIncomeSource(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	i := indexOf(u.incomes, func(x core.IncomeSource) bool { return x.ID == id })
	if i < 0 {
		return core.NotFound("income source", id)
	}
	u.incomes = append(u.incomes[:i], u.incomes[i+1:]...)
	return nil
}

func (s *Store) ListGoals(_ context.Context, userID string) ([]core.FinancialGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.FinancialGoal(nil), s.user(userID).goals...), nil
}

func (s *Store) InsertGoal(_ context.Context, userID string, g core.FinancialGoal) (core.FinancialGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g.ID = uuid.NewString()
	g.CreatedAt = s.now()
	u := s.user(userID)
	u.goals = append(u.goals, g)
	return g, nil
}

func (s *Store) ContributeToGoal(_ context.Context, userID string, c records.GoalContribution) (records.ContributionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	gi := indexOf(u.goals, func(g core.FinancialGoal) bool { return g.ID == c.GoalID })
	if gi < 0 {
		return records.ContributionResult{}, core.NotFound("goal", c.GoalID)
	}
	g := u.goals[gi]
	if g.IsCompleted || g.CurrentAmount != c.Expected {
		return records.ContributionResult{}, core.ErrConflict
	}
	ai := -1
	if c.AccountID != "" {
		ai = indexOf(u.accounts, func(a core.Account) bool { return a.ID == c.AccountID })
		if ai < 0 {
			return records.ContributionResult{}, core.NotFound("account", c.AccountID)
		}
	}

	u.goals[gi].CurrentAmount = c.Expected.Add(c.Applied)
	res := records.ContributionResult{Goal: u.goals[gi]}
	if ai >= 0 {
		u.accounts[ai].Balance = u.accounts[ai].Balance.Sub(c.Applied)
		acc := u.accounts[ai]
		res.Account = &acc
	}
	return res, nil
}

func (s *Store) CompleteGoal(_ context.Context, userID, id string) (core.FinancialGoal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	i := indexOf(u.goals, func(g core.FinancialGoal) bool { return g.ID == id })
	if i < 0 {
		return core.FinancialGoal{}, core.NotFound("goal", id)
	}
	u.goals[i].IsCompleted = true
	return u.goals[i], nil
}

func (s *Store) DeleteGoal(_ context.Context, userID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	i := indexOf(u.goals, func(g core.FinancialGoal) bool { return g.ID == id })
	if i < 0 {
		return core.NotFound("goal", id)
	}
	u.goals = append(u.goals[:i], u.goals[i+1:]...)
	return nil
}

func (s *Store) UpsertSnapshot(_ context.Context, userID string, day core.Date, total core.Money) (core.PatrimonySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.user(userID)
	key := day.String()
	snap, ok := u.snapshots[key]
	if !ok {
		snap = core.PatrimonySnapshot{ID: uuid.NewString(), SnapshotDate: day, CreatedAt: s.now()}
	}
	snap.TotalBalance = total
	u.snapshots[key] = snap
	return snap, nil
}

func (s *Store) ListSnapshots(_ context.Context, userID string, from, to core.Date) ([]core.PatrimonySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.PatrimonySnapshot
	for _, snap := range s.user(userID).snapshots {
		if !from.IsZero() && snap.SnapshotDate.Before(from.Time) {
			continue
		}
		if !to.IsZero() && snap.SnapshotDate.After(to.Time) {
			continue
		}
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SnapshotDate.Before(out[j].SnapshotDate.Time)
	})
	return out, nil
}

func indexOf[T any](items []T, match func(T) bool) int {
	for i, v := range items {
		if match(v) {
			return i
		}
	}
	return -1
}
