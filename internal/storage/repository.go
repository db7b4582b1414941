package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/naramuhl/finance-friend-central/internal/core"
	"github.com/naramuhl/finance-friend-central/internal/records"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements records.Store on a SQLite file.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

var _ records.Store = (*SQLiteRepository)(nil)

// DSN builds the connection string used for dbPath. Writers wait on a busy
// database instead of failing, and transactions take the write lock up front.
func DSN(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	dsn := DSN(dbPath)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type rowScanner interface {
	Scan(dest ...any) error
}

// withTx runs fn inside a transaction, committing only if fn succeeds.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) stamp() (string, time.Time, int64) {
	now := r.now()
	return uuid.NewString(), now, now.UnixNano()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Transactions

const transactionColumns = `id, description, amount_cents, due_date, type, status, category, created_at`

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		amount    int64
		due       string
		createdAt int64
	)
	if err := row.Scan(&t.ID, &t.Description, &amount, &due, &t.Type, &t.Status, &t.Category, &createdAt); err != nil {
		return core.Transaction{}, err
	}
	d, err := core.ParseDate(due)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse due date %q: %w", due, err)
	}
	t.Amount = core.Money{Cents: amount}
	t.DueDate = d
	t.CreatedAt = time.Unix(0, createdAt)
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE user_id = ? ORDER BY due_date, created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	id, now, nanos := r.stamp()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, description, amount_cents, due_date, type, status, category, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, t.Description, t.Amount.Cents, t.DueDate.String(), t.Type, t.Status, t.Category, nanos)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	t.ID = id
	t.CreatedAt = now
	slog.DebugContext(ctx, "Transaction saved to SQLite", "id", id, "amount_cents", t.Amount.Cents)
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOne(res, "transaction", id)
}

func (r *SQLiteRepository) ToggleTransactionStatus(ctx context.Context, userID string, t records.StatusToggle) (core.Account, error) {
	var acc core.Account
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE transactions SET status = ? WHERE id = ? AND user_id = ? AND status = ?`,
			t.To, t.TransactionID, userID, t.From)
		if err != nil {
			return fmt.Errorf("update transaction status: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return missingOrConflict(ctx, tx, "transactions", "transaction", userID, t.TransactionID)
		}
		if t.AccountID == "" {
			return nil
		}
		acc, err = adjustBalance(ctx, tx, userID, t.AccountID, t.Delta)
		return err
	})
	if err != nil {
		return core.Account{}, err
	}
	return acc, nil
}

// missingOrConflict tells a vanished row apart from one whose guard no
// longer matched.
func missingOrConflict(ctx context.Context, tx *sql.Tx, table, kind, userID, id string) error {
	var one int
	err := tx.QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE id = ? AND user_id = ?`, id, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.NotFound(kind, id)
	}
	if err != nil {
		return fmt.Errorf("check %s: %w", kind, err)
	}
	return core.ErrConflict
}

func expectOne(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.NotFound(kind, id)
	}
	return nil
}

// Accounts

const accountColumns = `id, name, balance_cents, color, account_type, description, icon, is_active, created_at`

func scanAccount(row rowScanner) (core.Account, error) {
	var (
		a         core.Account
		balance   int64
		createdAt int64
	)
	if err := row.Scan(&a.ID, &a.Name, &balance, &a.Color, &a.AccountType, &a.Description, &a.Icon, &a.IsActive, &createdAt); err != nil {
		return core.Account{}, err
	}
	a.Balance = core.Money{Cents: balance}
	a.CreatedAt = time.Unix(0, createdAt)
	return a, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getAccount(ctx context.Context, q querier, userID, id string) (core.Account, error) {
	a, err := scanAccount(q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{}, core.NotFound("account", id)
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func adjustBalance(ctx context.Context, tx *sql.Tx, userID, id string, delta core.Money) (core.Account, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance_cents = balance_cents + ? WHERE id = ? AND user_id = ?`,
		delta.Cents, id, userID)
	if err != nil {
		return core.Account{}, fmt.Errorf("adjust balance: %w", err)
	}
	if err := expectOne(res, "account", id); err != nil {
		return core.Account{}, err
	}
	return getAccount(ctx, tx, userID, id)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var out []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) InsertAccount(ctx context.Context, userID string, a core.Account) (core.Account, error) {
	id, now, nanos := r.stamp()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, user_id, name, balance_cents, color, account_type, description, icon, is_active, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, a.Name, a.Balance.Cents, a.Color, a.AccountType, a.Description, a.Icon, boolInt(a.IsActive), nanos)
	if err != nil {
		return core.Account{}, fmt.Errorf("insert account: %w", err)
	}
	a.ID = id
	a.CreatedAt = now
	return a, nil
}

func (r *SQLiteRepository) UpdateAccount(ctx context.Context, userID, id string, p records.AccountPatch) (core.Account, error) {
	var out core.Account
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		current, err := getAccount(ctx, tx, userID, id)
		if err != nil {
			return err
		}
		out = p.Apply(current)
		_, err = tx.ExecContext(ctx,
			`UPDATE accounts SET name = ?, balance_cents = ?, color = ?, account_type = ?, description = ?, icon = ?, is_active = ?
			 WHERE id = ? AND user_id = ?`,
			out.Name, out.Balance.Cents, out.Color, out.AccountType, out.Description, out.Icon, boolInt(out.IsActive), id, userID)
		if err != nil {
			return fmt.Errorf("update account: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return out, nil
}

func (r *SQLiteRepository) DeactivateAccount(ctx context.Context, userID, id string) (core.Account, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE accounts SET is_active = 0 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return core.Account{}, fmt.Errorf("deactivate account: %w", err)
	}
	if err := expectOne(res, "account", id); err != nil {
		return core.Account{}, err
	}
	return getAccount(ctx, r.db, userID, id)
}

func (r *SQLiteRepository) AdjustBalance(ctx context.Context, userID, id string, delta core.Money) (core.Account, error) {
	var acc core.Account
	err := r.withTx(ctx, func(tx *sql.Tx) (err error) {
		acc, err = adjustBalance(ctx, tx, userID, id, delta)
		return err
	})
	return acc, err
}

// EnsureDefaultAccount relies on the partial unique index over default
// accounts: concurrent callers insert at most one row and all read it back.
func (r *SQLiteRepository) EnsureDefaultAccount(ctx context.Context, userID string) (core.Account, error) {
	a := core.Account{
		Name:        core.DefaultAccountName,
		AccountType: core.PrimaryAccount,
		IsActive:    true,
	}.WithDefaults()
	id, _, nanos := r.stamp()

	var out core.Account
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (id, user_id, name, balance_cents, color, account_type, description, icon, is_active, is_default, created_at)
			 VALUES (?, ?, ?, 0, ?, ?, '', ?, 1, 1, ?)
			 ON CONFLICT DO NOTHING`,
			id, userID, a.Name, a.Color, a.AccountType, a.Icon, nanos)
		if err != nil {
			return fmt.Errorf("insert default account: %w", err)
		}
		out, err = scanAccount(tx.QueryRowContext(ctx,
			`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? AND is_default = 1`, userID))
		if err != nil {
			return fmt.Errorf("read default account: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return out, nil
}

func (r *SQLiteRepository) ListAccountOwners(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM accounts ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list account owners: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan account owner: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Income sources

const incomeColumns = `id, name, description, amount_cents, frequency, is_active, color, icon, created_at`

func scanIncome(row rowScanner) (core.IncomeSource, error) {
	var (
		s         core.IncomeSource
		amount    int64
		createdAt int64
	)
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &amount, &s.Frequency, &s.IsActive, &s.Color, &s.Icon, &createdAt); err != nil {
		return core.IncomeSource{}, err
	}
	s.Amount = core.Money{Cents: amount}
	s.CreatedAt = time.Unix(0, createdAt)
	return s, nil
}

func (r *SQLiteRepository) ListIncomeSources(ctx context.Context, userID string) ([]core.IncomeSource, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+incomeColumns+` FROM income_sources WHERE user_id = ? ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list income sources: %w", err)
	}
	defer rows.Close()

	var out []core.IncomeSource
	for rows.Next() {
		s, err := scanIncome(rows)
		if err != nil {
			return nil, fmt.Errorf("scan income source: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) InsertIncomeSource(ctx context.Context, userID string, s core.IncomeSource) (core.IncomeSource, error) {
	id, now, nanos := r.stamp()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO income_sources (id, user_id, name, description, amount_cents, frequency, is_active, color, icon, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, s.Name, s.Description, s.Amount.Cents, s.Frequency, boolInt(s.IsActive), s.Color, s.Icon, nanos)
	if err != nil {
		return core.IncomeSource{}, fmt.Errorf("insert income source: %w", err)
	}
	s.ID = id
	s.CreatedAt = now
	return s, nil
}

func (r *SQLiteRepository) SetIncomeSourceActive(ctx context.Context, userID, id string, active bool) (core.IncomeSource, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE income_sources SET is_active = ? WHERE id = ? AND user_id = ?`, boolInt(active), id, userID)
	if err != nil {
		return core.IncomeSource{}, fmt.Errorf("update income source: %w", err)
	}
	if err := expectOne(res, "income source", id); err != nil {
		return core.IncomeSource{}, err
	}
	s, err := scanIncome(r.db.QueryRowContext(ctx,
		`SELECT `+incomeColumns+` FROM income_sources WHERE id = ? AND user_id = ?`, id, userID))
	if err != nil {
		return core.IncomeSource{}, fmt.Errorf("read income source: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) DeleteIncomeSource(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM income_sources WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete income source: %w", err)
	}
	return expectOne(res, "income source", id)
}

// Goals

const goalColumns = `id, name, description, target_cents, current_cents, deadline, color, icon, is_completed, created_at`

func scanGoal(row rowScanner) (core.FinancialGoal, error) {
	var (
		g         core.FinancialGoal
		target    int64
		current   int64
		deadline  sql.NullString
		createdAt int64
	)
	if err := row.Scan(&g.ID, &g.Name, &g.Description, &target, &current, &deadline, &g.Color, &g.Icon, &g.IsCompleted, &createdAt); err != nil {
		return core.FinancialGoal{}, err
	}
	if deadline.Valid && deadline.String != "" {
		d, err := core.ParseDate(deadline.String)
		if err != nil {
			return core.FinancialGoal{}, fmt.Errorf("parse deadline %q: %w", deadline.String, err)
		}
		g.Deadline = &d
	}
	g.TargetAmount = core.Money{Cents: target}
	g.CurrentAmount = core.Money{Cents: current}
	g.CreatedAt = time.Unix(0, createdAt)
	return g, nil
}

func getGoal(ctx context.Context, q querier, userID, id string) (core.FinancialGoal, error) {
	g, err := scanGoal(q.QueryRowContext(ctx,
		`SELECT `+goalColumns+` FROM financial_goals WHERE id = ? AND user_id = ?`, id, userID))
	if errors.Is(err, sql.ErrNoRows) {
		return core.FinancialGoal{}, core.NotFound("goal", id)
	}
	if err != nil {
		return core.FinancialGoal{}, fmt.Errorf("get goal: %w", err)
	}
	return g, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context, userID string) ([]core.FinancialGoal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+goalColumns+` FROM financial_goals WHERE user_id = ? ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var out []core.FinancialGoal
	for rows.Next() {
		g, err := scanGoal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) InsertGoal(ctx context.Context, userID string, g core.FinancialGoal) (core.FinancialGoal, error) {
	id, now, nanos := r.stamp()
	var deadline sql.NullString
	if g.Deadline != nil {
		deadline = sql.NullString{String: g.Deadline.String(), Valid: true}
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO financial_goals (id, user_id, name, description, target_cents, current_cents, deadline, color, icon, is_completed, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, userID, g.Name, g.Description, g.TargetAmount.Cents, g.CurrentAmount.Cents, deadline, g.Color, g.Icon, boolInt(g.IsCompleted), nanos)
	if err != nil {
		return core.FinancialGoal{}, fmt.Errorf("insert goal: %w", err)
	}
	g.ID = id
	g.CreatedAt = now
	return g, nil
}

func (r *SQLiteRepository) ContributeToGoal(ctx context.Context, userID string, c records.GoalContribution) (records.ContributionResult, error) {
	var res records.ContributionResult
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		upd, err := tx.ExecContext(ctx,
			`UPDATE financial_goals SET current_cents = ?
			 WHERE id = ? AND user_id = ? AND current_cents = ? AND is_completed = 0`,
			c.Expected.Add(c.Applied).Cents, c.GoalID, userID, c.Expected.Cents)
		if err != nil {
			return fmt.Errorf("update goal amount: %w", err)
		}
		if n, _ := upd.RowsAffected(); n == 0 {
			return missingOrConflict(ctx, tx, "financial_goals", "goal", userID, c.GoalID)
		}
		if res.Goal, err = getGoal(ctx, tx, userID, c.GoalID); err != nil {
			return err
		}
		if c.AccountID == "" {
			return nil
		}
		acc, err := adjustBalance(ctx, tx, userID, c.AccountID, c.Applied.Neg())
		if err != nil {
			return err
		}
		res.Account = &acc
		return nil
	})
	if err != nil {
		return records.ContributionResult{}, err
	}
	return res, nil
}

func (r *SQLiteRepository) CompleteGoal(ctx context.Context, userID, id string) (core.FinancialGoal, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE financial_goals SET is_completed = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return core.FinancialGoal{}, fmt.Errorf("complete goal: %w", err)
	}
	if err := expectOne(res, "goal", id); err != nil {
		return core.FinancialGoal{}, err
	}
	return getGoal(ctx, r.db, userID, id)
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM financial_goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return expectOne(res, "goal", id)
}

// Patrimony snapshots

func scanSnapshot(row rowScanner) (core.PatrimonySnapshot, error) {
	var (
		s         core.PatrimonySnapshot
		total     int64
		day       string
		createdAt int64
	)
	if err := row.Scan(&s.ID, &total, &day, &createdAt); err != nil {
		return core.PatrimonySnapshot{}, err
	}
	d, err := core.ParseDate(day)
	if err != nil {
		return core.PatrimonySnapshot{}, fmt.Errorf("parse snapshot date %q: %w", day, err)
	}
	s.TotalBalance = core.Money{Cents: total}
	s.SnapshotDate = d
	s.CreatedAt = time.Unix(0, createdAt)
	return s, nil
}

func (r *SQLiteRepository) UpsertSnapshot(ctx context.Context, userID string, day core.Date, total core.Money) (core.PatrimonySnapshot, error) {
	id, _, nanos := r.stamp()
	row := r.db.QueryRowContext(ctx,
		`INSERT INTO patrimony_snapshots (id, user_id, total_cents, snapshot_date, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, snapshot_date) DO UPDATE SET total_cents = excluded.total_cents
		 RETURNING id, total_cents, snapshot_date, created_at`,
		id, userID, total.Cents, day.String(), nanos)
	s, err := scanSnapshot(row)
	if err != nil {
		return core.PatrimonySnapshot{}, fmt.Errorf("upsert snapshot: %w", err)
	}
	return s, nil
}

func (r *SQLiteRepository) ListSnapshots(ctx context.Context, userID string, from, to core.Date) ([]core.PatrimonySnapshot, error) {
	var (
		where = []string{"user_id = ?"}
		args  = []any{userID}
	)
	if !from.IsZero() {
		where = append(where, "snapshot_date >= ?")
		args = append(args, from.String())
	}
	if !to.IsZero() {
		where = append(where, "snapshot_date <= ?")
		args = append(args, to.String())
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, total_cents, snapshot_date, created_at FROM patrimony_snapshots
		 WHERE `+strings.Join(where, " AND ")+` ORDER BY snapshot_date`, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []core.PatrimonySnapshot
	for rows.Next() {
		s, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
