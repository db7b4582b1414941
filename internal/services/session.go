package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/naramuhl/finance-friend-central/internal/core"
	"github.com/naramuhl/finance-friend-central/internal/log"
	"github.com/naramuhl/finance-friend-central/internal/records"
)

var (
	// ErrSessionClosed is returned when the session ended before a call
	// completed. Any store result obtained meanwhile is discarded.
	ErrSessionClosed = errors.New("session closed")

	ErrGoalCompleted   = errors.New("goal already completed")
	ErrInactiveAccount = errors.New("account is inactive")
	ErrNoAccount       = errors.New("no active account to settle against")
	ErrZeroDelta       = errors.New("amount must not be zero")
)

// Session is the application state of one user. It holds the loaded
// collections and is their only write path: every mutation goes to the store
// first and touches local state only once the store confirmed it. Derived
// figures are recomputed on each read.
type Session struct {
	userID    string
	store     records.Store
	snapshots SnapshotRecorder
	scheduler *NotificationScheduler
	logger    *log.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool

	// opMu serializes mutations; mu guards the fields below.
	opMu         sync.Mutex
	mu           sync.RWMutex
	transactions []core.Transaction
	accounts     []core.Account
	incomes      []core.IncomeSource
	goals        []core.FinancialGoal
	primaryID    string
	pending      []Notification
}

type SessionOption func(*Session)

// WithClock sets the clock used for "today".
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithSnapshotRecorder enables daily patrimony snapshots.
func WithSnapshotRecorder(r SnapshotRecorder) SessionOption {
	return func(s *Session) { s.snapshots = r }
}

func WithLogger(l *log.Logger) SessionOption {
	return func(s *Session) { s.logger = l }
}

func NewSession(userID string, store records.Store, opts ...SessionOption) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		userID:    userID,
		store:     store,
		scheduler: NewNotificationScheduler(),
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	s.logger = s.logger.WithComponent(log.ComponentSession).With(log.FieldUserID, userID)
	return s
}

func (s *Session) UserID() string { return s.userID }

func (s *Session) today() core.Date { return core.DateOf(s.now()) }

// Closed reports whether End was called.
func (s *Session) Closed() bool { return s.closed.Load() }

// End tears the session down. In-flight store calls are cancelled and their
// results discarded; the notified-goal set is cleared.
func (s *Session) End() {
	if s.closed.Swap(true) {
		return
	}
	s.cancel()
	s.scheduler.Reset()

	s.mu.Lock()
	s.transactions, s.accounts, s.incomes, s.goals = nil, nil, nil, nil
	s.primaryID = ""
	s.pending = nil
	s.mu.Unlock()
	s.logger.Debug("Session ended")
}

// operationContext returns a context cancelled by either the caller or the
// end of the session.
func (s *Session) operationContext(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// begin serializes a mutation. The returned func must be deferred.
func (s *Session) begin(ctx context.Context) (context.Context, func(), error) {
	s.opMu.Lock()
	if s.closed.Load() {
		s.opMu.Unlock()
		return nil, nil, ErrSessionClosed
	}
	opCtx, done := s.operationContext(ctx)
	return opCtx, func() {
		done()
		s.opMu.Unlock()
	}, nil
}

// Load fetches every collection, synthesizes the default account when the
// user has none, resolves the primary account and scans goals for
// notifications. Refresh is the same operation.
func (s *Session) Load(ctx context.Context) error {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()
	return s.load(ctx)
}

func (s *Session) Refresh(ctx context.Context) error { return s.Load(ctx) }

func (s *Session) load(ctx context.Context) error {
	var (
		txs      []core.Transaction
		accounts []core.Account
		incomes  []core.IncomeSource
		goals    []core.FinancialGoal
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = s.store.ListTransactions(gctx, s.userID)
		return err
	})
	g.Go(func() (err error) {
		accounts, err = s.store.ListAccounts(gctx, s.userID)
		return err
	})
	g.Go(func() (err error) {
		incomes, err = s.store.ListIncomeSources(gctx, s.userID)
		return err
	})
	g.Go(func() (err error) {
		goals, err = s.store.ListGoals(gctx, s.userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.storeFailed(ctx, log.OpLoad, err, nil)
	}

	if len(accounts) == 0 {
		acc, err := s.store.EnsureDefaultAccount(ctx, s.userID)
		if err != nil {
			return s.storeFailed(ctx, log.OpLoad, err, nil)
		}
		accounts = append(accounts, acc)
		s.logger.InfoContext(ctx, "Default account created", log.FieldAccountID, acc.ID)
	}
	if s.closed.Load() {
		return ErrSessionClosed
	}

	s.mu.Lock()
	s.transactions = txs
	s.accounts = accounts
	s.incomes = incomes
	s.goals = goals
	s.primaryID = resolvePrimary(accounts)
	s.mu.Unlock()

	s.logger.DebugContext(ctx, "Session loaded",
		"transactions", len(txs), "accounts", len(accounts),
		"incomes", len(incomes), "goals", len(goals))

	s.recordSnapshot(ctx)
	s.scanGoals()
	return nil
}

// resolvePrimary picks the first active account of type primary, else the
// first active account in creation order.
func resolvePrimary(accounts []core.Account) string {
	for _, a := range accounts {
		if a.IsActive && a.AccountType == core.PrimaryAccount {
			return a.ID
		}
	}
	for _, a := range accounts {
		if a.IsActive {
			return a.ID
		}
	}
	return ""
}

// storeFailed classifies a failed store call. Not-found errors drop the stale
// local record through drop; everything else leaves local state untouched.
func (s *Session) storeFailed(ctx context.Context, op string, err error, drop func(*core.NotFoundError)) error {
	if s.closed.Load() || errors.Is(err, context.Canceled) && s.ctx.Err() != nil {
		return ErrSessionClosed
	}
	fields := log.NewFields().WithOperation(op).WithError(err)
	var nf *core.NotFoundError
	switch {
	case errors.As(err, &nf):
		s.logger.InfoContext(ctx, "Record vanished, dropping local copy",
			fields.WithErrorType(log.ErrorTypeNotFound).WithRecord("kind", nf.Kind).WithRecord("id", nf.ID).ToSlice()...)
		if drop != nil {
			s.mu.Lock()
			drop(nf)
			s.mu.Unlock()
		}
		return err
	case errors.Is(err, core.ErrConflict):
		s.logger.WarnContext(ctx, "Record changed concurrently, resynchronizing",
			fields.WithErrorType(log.ErrorTypeConflict).ToSlice()...)
		if rerr := s.load(ctx); rerr != nil {
			s.logger.ErrorContext(ctx, "Resynchronization failed", log.FieldError, rerr)
		}
		return err
	default:
		s.logger.ErrorContext(ctx, "Store call failed", fields.WithErrorType(log.ErrorTypeStore).ToSlice()...)
		return core.WrapStore(op, err)
	}
}

// dropStale removes the record named by nf from whichever collection holds it.
func (s *Session) dropStale(nf *core.NotFoundError) {
	switch nf.Kind {
	case "transaction":
		s.transactions = removeByID(s.transactions, nf.ID, func(t core.Transaction) string { return t.ID })
	case "account":
		s.accounts = removeByID(s.accounts, nf.ID, func(a core.Account) string { return a.ID })
		s.primaryID = resolvePrimary(s.accounts)
	case "income source":
		s.incomes = removeByID(s.incomes, nf.ID, func(i core.IncomeSource) string { return i.ID })
	case "goal":
		s.goals = removeByID(s.goals, nf.ID, func(g core.FinancialGoal) string { return g.ID })
	}
}

func (s *Session) invalid(ctx context.Context, err error) error {
	s.logger.DebugContext(ctx, "Rejected invalid input", log.FieldError, err)
	return err
}

// confirm reports whether a store result may still be applied.
func (s *Session) confirm() error {
	if s.closed.Load() {
		return ErrSessionClosed
	}
	return nil
}

func (s *Session) recordSnapshot(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	s.mu.RLock()
	total := TotalBalance(s.accounts)
	s.mu.RUnlock()
	if err := s.snapshots.Record(ctx, s.userID, s.today(), total); err != nil {
		s.logger.ErrorContext(ctx, "Failed to record patrimony snapshot",
			log.FieldOperation, log.OpSnapshot, log.FieldAmountCents, total.Cents, log.FieldError, err)
	}
}

func (s *Session) scanGoals() {
	s.mu.RLock()
	goals := append([]core.FinancialGoal(nil), s.goals...)
	s.mu.RUnlock()

	notes := s.scheduler.Scan(goals, s.today())
	if len(notes) == 0 {
		return
	}
	s.mu.Lock()
	s.pending = append(s.pending, notes...)
	s.mu.Unlock()
	for _, n := range notes {
		s.logger.Info("Goal notification emitted", log.FieldGoalID, n.GoalID, log.FieldTier, n.Tier)
	}
}

// Transactions

// AddTransaction validates and stores a new transaction. The status defaults
// to pending; adding never touches account balances.
func (s *Session) AddTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	if tx.Status == "" {
		tx.Status = core.Pending
	}
	if err := tx.Validate(s.today()); err != nil {
		return core.Transaction{}, s.invalid(ctx, err)
	}
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	defer done()

	stored, err := s.store.InsertTransaction(ctx, s.userID, tx)
	if err != nil {
		return core.Transaction{}, s.storeFailed(ctx, log.OpCreate, err, nil)
	}
	if err := s.confirm(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	i := sort.Search(len(s.transactions), func(i int) bool {
		return s.transactions[i].DueDate.After(stored.DueDate.Time)
	})
	s.transactions = append(s.transactions, core.Transaction{})
	copy(s.transactions[i+1:], s.transactions[i:])
	s.transactions[i] = stored
	s.mu.Unlock()

	s.logger.LogMutation(ctx, log.OpCreate, log.NewFields().
		WithRecord(log.FieldTransactionID, stored.ID).WithAmount(stored.Amount.Cents))
	return stored, nil
}

// RemoveTransaction deletes a transaction. Balances already settled by it
// are left as they are.
func (s *Session) RemoveTransaction(ctx context.Context, id string) error {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	if _, ok := s.findTransaction(id); !ok {
		return core.NotFound("transaction", id)
	}
	if err := s.store.DeleteTransaction(ctx, s.userID, id); err != nil {
		return s.storeFailed(ctx, log.OpDelete, err, s.dropStale)
	}
	if err := s.confirm(); err != nil {
		return err
	}

	s.mu.Lock()
	s.transactions = removeByID(s.transactions, id, func(t core.Transaction) string { return t.ID })
	s.mu.Unlock()
	s.logger.LogMutation(ctx, log.OpDelete, log.NewFields().WithRecord(log.FieldTransactionID, id))
	return nil
}

// ToggleStatus flips a transaction between pending and paid and applies the
// matching balance change to accountID, or to the primary account when
// accountID is empty. Status and balance are written as one unit.
func (s *Session) ToggleStatus(ctx context.Context, txID, accountID string) (core.Transaction, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return core.Transaction{}, err
	}
	defer done()

	tx, ok := s.findTransaction(txID)
	if !ok {
		return core.Transaction{}, core.NotFound("transaction", txID)
	}
	accountID, err = s.settlementAccount(accountID)
	if err != nil {
		return core.Transaction{}, s.invalid(ctx, err)
	}

	to := tx.Status.Toggled()
	toggle := records.StatusToggle{
		TransactionID: tx.ID,
		AccountID:     accountID,
		From:          tx.Status,
		To:            to,
		Delta:         SettlementDelta(tx.Type, to, tx.Amount),
	}
	acc, err := s.store.ToggleTransactionStatus(ctx, s.userID, toggle)
	if err != nil {
		return core.Transaction{}, s.storeFailed(ctx, log.OpToggle, err, s.dropStale)
	}
	if err := s.confirm(); err != nil {
		return core.Transaction{}, err
	}

	s.mu.Lock()
	for i := range s.transactions {
		if s.transactions[i].ID == tx.ID {
			s.transactions[i].Status = to
			tx = s.transactions[i]
			break
		}
	}
	if acc.ID != "" {
		s.replaceAccountLocked(acc)
	}
	s.mu.Unlock()

	s.logger.LogMutation(ctx, log.OpToggle, log.NewFields().
		WithRecord(log.FieldTransactionID, tx.ID).
		WithRecord(log.FieldAccountID, accountID).
		WithAmount(toggle.Delta.Cents))
	s.recordSnapshot(ctx)
	return tx, nil
}

// settlementAccount resolves the account a balance change applies to. An
// empty id means the primary account.
func (s *Session) settlementAccount(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id == "" {
		if s.primaryID == "" {
			return "", core.Invalid("accountId", ErrNoAccount)
		}
		return s.primaryID, nil
	}
	for _, a := range s.accounts {
		if a.ID == id {
			if !a.IsActive {
				return "", core.Invalid("accountId", ErrInactiveAccount)
			}
			return id, nil
		}
	}
	return "", core.NotFound("account", id)
}

func (s *Session) findTransaction(id string) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.transactions {
		if t.ID == id {
			return t, true
		}
	}
	return core.Transaction{}, false
}

// Accounts

// AddAccount stores a new active account.
func (s *Session) AddAccount(ctx context.Context, a core.Account) (core.Account, error) {
	a = a.WithDefaults()
	a.IsActive = true
	if a.AccountType == "" {
		a.AccountType = core.SecondaryAccount
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, s.invalid(ctx, err)
	}
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return core.Account{}, err
	}
	defer done()

	stored, err := s.store.InsertAccount(ctx, s.userID, a)
	if err != nil {
		return core.Account{}, s.storeFailed(ctx, log.OpCreate, err, nil)
	}
	if err := s.confirm(); err != nil {
		return core.Account{}, err
	}

	s.mu.Lock()
	s.accounts = append(s.accounts, stored)
	s.primaryID = resolvePrimary(s.accounts)
	s.mu.Unlock()

	s.logger.LogMutation(ctx, log.OpCreate, log.NewFields().
		WithRecord(log.FieldAccountID, stored.ID).WithAmount(stored.Balance.Cents))
	s.recordSnapshot(ctx)
	return stored, nil
}

// UpdateAccount applies a partial update after validating the result.
func (s *Session) UpdateAccount(ctx context.Context, id string, p records.AccountPatch) (core.Account, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return core.Account{}, err
	}
	defer done()

	current, ok := s.findAccount(id)
	if !ok {
		return core.Account{}, core.NotFound("account", id)
	}
	if err := p.Apply(current).Validate(); err != nil {
		return core.Account{}, s.invalid(ctx, err)
	}
	return s.writeAccount(ctx, log.OpUpdate, id, func(ctx context.Context) (core.Account, error) {
		return s.store.UpdateAccount(ctx, s.userID, id, p)
	})
}

// DeactivateAccount soft-deletes an account. Its balance stops counting
// toward the total.
func (s *Session) DeactivateAccount(ctx context.Context, id string) (core.Account, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return core.Account{}, err
	}
	defer done()

	if _, ok := s.findAccount(id); !ok {
		return core.Account{}, core.NotFound("account", id)
	}
	return s.writeAccount(ctx, log.OpDelete, id, func(ctx context.Context) (core.Account, error) {
		return s.store.DeactivateAccount(ctx, s.userID, id)
	})
}

// AdjustBalance adds delta to an account balance; an empty id targets the
// primary account.
func (s *Session) AdjustBalance(ctx context.Context, id string, delta core.Money) (core.Account, error) {
	if delta.IsZero() {
		return core.Account{}, s.invalid(ctx, core.Invalid("amount", ErrZeroDelta))
	}
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return core.Account{}, err
	}
	defer done()

	id, err = s.settlementAccount(id)
	if err != nil {
		return core.Account{}, s.invalid(ctx, err)
	}
	current, _ := s.findAccount(id)
	if err := current.Balance.Add(delta).ValidateBalance(); err != nil {
		return core.Account{}, s.invalid(ctx, core.Invalid("amount", err))
	}
	return s.writeAccount(ctx, log.OpAdjust, id, func(ctx context.Context) (core.Account, error) {
		return s.store.AdjustBalance(ctx, s.userID, id, delta)
	})
}

// writeAccount runs an account write and applies the result locally. The
// caller holds the mutation lock.
func (s *Session) writeAccount(ctx context.Context, op, id string, write func(context.Context) (core.Account, error)) (core.Account, error) {
	acc, err := write(ctx)
	if err != nil {
		return core.Account{}, s.storeFailed(ctx, op, err, s.dropStale)
	}
	if err := s.confirm(); err != nil {
		return core.Account{}, err
	}

	s.mu.Lock()
	s.replaceAccountLocked(acc)
	s.primaryID = resolvePrimary(s.accounts)
	s.mu.Unlock()

	s.logger.LogMutation(ctx, op, log.NewFields().WithRecord(log.FieldAccountID, id))
	s.recordSnapshot(ctx)
	return acc, nil
}

func (s *Session) replaceAccountLocked(acc core.Account) {
	for i := range s.accounts {
		if s.accounts[i].ID == acc.ID {
			s.accounts[i] = acc
			return
		}
	}
}

func (s *Session) findAccount(id string) (core.Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.ID == id {
			return a, true
		}
	}
	return core.Account{}, false
}

// Income sources

func (s *Session) AddIncomeSource(ctx context.Context, src core.IncomeSource) (core.IncomeSource, error) {
	src = src.WithDefaults()
	src.IsActive = true
	if err := src.Validate(); err != nil {
		return core.IncomeSource{}, s.invalid(ctx, err)
	}
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return core.IncomeSource{}, err
	}
	defer done()

	stored, err := s.store.InsertIncomeSource(ctx, s.userID, src)
	if err != nil {
		return core.IncomeSource{}, s.storeFailed(ctx, log.OpCreate, err, nil)
	}
	if err := s.confirm(); err != nil {
		return core.IncomeSource{}, err
	}

	s.mu.Lock()
	s.incomes = append(s.incomes, stored)
	s.mu.Unlock()
	s.logger.LogMutation(ctx, log.OpCreate, log.NewFields().
		WithRecord(log.FieldIncomeID, stored.ID).WithAmount(stored.Amount.Cents))
	return stored, nil
}

func (s *Session) SetIncomeSourceActive(ctx context.Context, id string, active bool) (core.IncomeSource, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return core.IncomeSource{}, err
	}
	defer done()

	if !s.hasIncome(id) {
		return core.IncomeSource{}, core.NotFound("income source", id)
	}
	src, err := s.store.SetIncomeSourceActive(ctx, s.userID, id, active)
	if err != nil {
		return core.IncomeSource{}, s.storeFailed(ctx, log.OpUpdate, err, s.dropStale)
	}
	if err := s.confirm(); err != nil {
		return core.IncomeSource{}, err
	}

	s.mu.Lock()
	for i := range s.incomes {
		if s.incomes[i].ID == id {
			s.incomes[i] = src
		}
	}
	s.mu.Unlock()
	s.logger.LogMutation(ctx, log.OpUpdate, log.NewFields().WithRecord(log.FieldIncomeID, id))
	return src, nil
}

func (s *Session) RemoveIncomeSource(ctx context.Context, id string) error {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	if !s.hasIncome(id) {
		return core.NotFound("income source", id)
	}
	if err := s.store.DeleteIncomeSource(ctx, s.userID, id); err != nil {
		return s.storeFailed(ctx, log.OpDelete, err, s.dropStale)
	}
	if err := s.confirm(); err != nil {
		return err
	}

	s.mu.Lock()
	s.incomes = removeByID(s.incomes, id, func(i core.IncomeSource) string { return i.ID })
	s.mu.Unlock()
	s.logger.LogMutation(ctx, log.OpDelete, log.NewFields().WithRecord(log.FieldIncomeID, id))
	return nil
}

func (s *Session) hasIncome(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, i := range s.incomes {
		if i.ID == id {
			return true
		}
	}
	return false
}

// Goals

func (s *Session) AddGoal(ctx context.Context, g core.FinancialGoal) (core.FinancialGoal, error) {
	g = g.WithDefaults()
	g.IsCompleted = false
	if err := g.Validate(); err != nil {
		return core.FinancialGoal{}, s.invalid(ctx, err)
	}
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return core.FinancialGoal{}, err
	}
	defer done()

	stored, err := s.store.InsertGoal(ctx, s.userID, g)
	if err != nil {
		return core.FinancialGoal{}, s.storeFailed(ctx, log.OpCreate, err, nil)
	}
	if err := s.confirm(); err != nil {
		return core.FinancialGoal{}, err
	}

	s.mu.Lock()
	s.goals = append(s.goals, stored)
	s.mu.Unlock()
	s.logger.LogMutation(ctx, log.OpCreate, log.NewFields().
		WithRecord(log.FieldGoalID, stored.ID).WithAmount(stored.TargetAmount.Cents))
	s.scanGoals()
	return stored, nil
}

// ContributeToGoal deposits (positive delta) or withdraws (negative delta)
// money. Withdrawals are clamped so the goal never drops below zero. When
// accountID is set the account is debited by the applied amount in the same
// write.
func (s *Session) ContributeToGoal(ctx context.Context, goalID string, delta core.Money, accountID string) (core.FinancialGoal, error) {
	if delta.IsZero() {
		return core.FinancialGoal{}, s.invalid(ctx, core.Invalid("amount", ErrZeroDelta))
	}
	if delta.Cents > core.MaxAmount.Cents || delta.Cents < -core.MaxAmount.Cents {
		return core.FinancialGoal{}, s.invalid(ctx, core.Invalid("amount", core.ErrAmountTooLarge))
	}
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return core.FinancialGoal{}, err
	}
	defer done()

	goal, ok := s.findGoal(goalID)
	if !ok {
		return core.FinancialGoal{}, core.NotFound("goal", goalID)
	}
	if goal.IsCompleted {
		return core.FinancialGoal{}, s.invalid(ctx, core.Invalid("goalId", ErrGoalCompleted))
	}
	applied := ClampContribution(goal.CurrentAmount, delta)
	if applied.IsZero() {
		return goal, nil
	}
	if goal.CurrentAmount.Add(applied).Cents > core.MaxAmount.Cents {
		return core.FinancialGoal{}, s.invalid(ctx, core.Invalid("amount", core.ErrAmountTooLarge))
	}
	if accountID != "" {
		if accountID, err = s.settlementAccount(accountID); err != nil {
			return core.FinancialGoal{}, s.invalid(ctx, err)
		}
	}

	res, err := s.store.ContributeToGoal(ctx, s.userID, records.GoalContribution{
		GoalID:    goalID,
		AccountID: accountID,
		Expected:  goal.CurrentAmount,
		Applied:   applied,
	})
	if err != nil {
		return core.FinancialGoal{}, s.storeFailed(ctx, log.OpContribute, err, s.dropStale)
	}
	if err := s.confirm(); err != nil {
		return core.FinancialGoal{}, err
	}

	s.mu.Lock()
	s.replaceGoalLocked(res.Goal)
	if res.Account != nil {
		s.replaceAccountLocked(*res.Account)
	}
	s.mu.Unlock()

	s.logger.LogMutation(ctx, log.OpContribute, log.NewFields().
		WithRecord(log.FieldGoalID, goalID).
		WithRecord(log.FieldAccountID, accountID).
		WithAmount(applied.Cents))
	if res.Account != nil {
		s.recordSnapshot(ctx)
	}
	s.scanGoals()
	return res.Goal, nil
}

// CompleteGoal marks a goal as completed. The flag is never cleared.
func (s *Session) CompleteGoal(ctx context.Context, id string) (core.FinancialGoal, error) {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return core.FinancialGoal{}, err
	}
	defer done()

	goal, ok := s.findGoal(id)
	if !ok {
		return core.FinancialGoal{}, core.NotFound("goal", id)
	}
	if goal.IsCompleted {
		return goal, nil
	}
	stored, err := s.store.CompleteGoal(ctx, s.userID, id)
	if err != nil {
		return core.FinancialGoal{}, s.storeFailed(ctx, log.OpComplete, err, s.dropStale)
	}
	if err := s.confirm(); err != nil {
		return core.FinancialGoal{}, err
	}

	s.mu.Lock()
	s.replaceGoalLocked(stored)
	s.mu.Unlock()
	s.logger.LogMutation(ctx, log.OpComplete, log.NewFields().WithRecord(log.FieldGoalID, id))
	return stored, nil
}

func (s *Session) RemoveGoal(ctx context.Context, id string) error {
	ctx, done, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	if _, ok := s.findGoal(id); !ok {
		return core.NotFound("goal", id)
	}
	if err := s.store.DeleteGoal(ctx, s.userID, id); err != nil {
		return s.storeFailed(ctx, log.OpDelete, err, s.dropStale)
	}
	if err := s.confirm(); err != nil {
		return err
	}

	s.mu.Lock()
	s.goals = removeByID(s.goals, id, func(g core.FinancialGoal) string { return g.ID })
	s.mu.Unlock()
	s.logger.LogMutation(ctx, log.OpDelete, log.NewFields().WithRecord(log.FieldGoalID, id))
	return nil
}

func (s *Session) findGoal(id string) (core.FinancialGoal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, g := range s.goals {
		if g.ID == id {
			return g, true
		}
	}
	return core.FinancialGoal{}, false
}

func (s *Session) replaceGoalLocked(g core.FinancialGoal) {
	for i := range s.goals {
		if s.goals[i].ID == g.ID {
			s.goals[i] = g
			return
		}
	}
}

// Reads

// Summary recomputes the aggregate figures from the current collections.
func (s *Session) Summary() core.Summary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Summarize(s.transactions, s.accounts, s.incomes)
}

// Transactions returns all transactions by due date.
func (s *Session) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Transaction(nil), s.transactions...)
}

func (s *Session) Receivables() []core.Transaction {
	return filterType(s.Transactions(), core.Receivable)
}

func (s *Session) Payables() []core.Transaction {
	return filterType(s.Transactions(), core.Payable)
}

// Accounts returns every account in creation order, inactive ones included.
func (s *Session) Accounts() []core.Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.Account(nil), s.accounts...)
}

// PrimaryAccount returns the account balance changes default to.
func (s *Session) PrimaryAccount() (core.Account, bool) {
	s.mu.RLock()
	id := s.primaryID
	s.mu.RUnlock()
	if id == "" {
		return core.Account{}, false
	}
	return s.findAccount(id)
}

func (s *Session) IncomeSources() []core.IncomeSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]core.IncomeSource(nil), s.incomes...)
}

// Goals returns every goal with its progress as of today.
func (s *Session) Goals() []GoalProgress {
	s.mu.RLock()
	goals := append([]core.FinancialGoal(nil), s.goals...)
	s.mu.RUnlock()

	today := s.today()
	out := make([]GoalProgress, len(goals))
	for i, g := range goals {
		out[i] = EvaluateGoal(g, today)
	}
	return out
}

// Notifications drains the notifications emitted since the last call.
func (s *Session) Notifications() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

func (s *Session) ExpensesByCategory() []core.CategoryAmount {
	return ExpensesByCategory(s.Transactions())
}

// MonthlyComparison compares flows of the month containing day, or of all
// transactions when day is zero.
func (s *Session) MonthlyComparison(day core.Date) core.MonthlyComparison {
	txs := s.Transactions()
	if !day.IsZero() {
		txs = InMonth(txs, day)
	}
	return CompareMonthly(txs)
}

// PatrimonyHistory reads the recorded daily totals between from and to.
func (s *Session) PatrimonyHistory(ctx context.Context, from, to core.Date) ([]core.PatrimonySnapshot, error) {
	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	ctx, done := s.operationContext(ctx)
	defer done()
	snaps, err := s.store.ListSnapshots(ctx, s.userID, from, to)
	if err != nil {
		return nil, s.storeFailed(ctx, log.OpList, err, nil)
	}
	return snaps, nil
}

func filterType(txs []core.Transaction, t core.TransactionType) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Type == t {
			out = append(out, tx)
		}
	}
	return out
}

func removeByID[T any](items []T, id string, key func(T) string) []T {
	out := items[:0]
	for _, v := range items {
		if key(v) != id {
			out = append(out, v)
		}
	}
	return out
}
