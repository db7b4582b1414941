package core

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	Receivable TransactionType = "receivable"
	Payable    TransactionType = "payable"

	Pending TransactionStatus = "pending"
	Paid    TransactionStatus = "paid"

	PrimaryAccount    AccountType = "primary"
	SecondaryAccount  AccountType = "secondary"
	SavingsAccount    AccountType = "savings"
	InvestmentAccount AccountType = "investment"

	Weekly   Frequency = "weekly"
	Biweekly Frequency = "biweekly"
	Monthly  Frequency = "monthly"
	Yearly   Frequency = "yearly"
	OneTime  Frequency = "one-time"
)

// Categories accepted for transactions.
var Categories = []string{
	"Trabalho",
	"Freelance",
	"Moradia",
	"Contas",
	"Alimentação",
	"Transporte",
	"Saúde",
	"Lazer",
	"Educação",
	"Cartões",
	"Outros",
}

const (
	DefaultAccountColor = "blue"
	DefaultAccountIcon  = "wallet"
	DefaultIncomeColor  = "green"
	DefaultIncomeIcon   = "briefcase"
	DefaultGoalColor    = "blue"
	DefaultGoalIcon     = "target"

	// DefaultAccountName is used for the account synthesized when a user has none.
	DefaultAccountName = "Conta Principal"

	maxDescriptionLen = 200
	maxNameLen        = 100
	maxStyleLen       = 50
)

type (
	TransactionType   string
	TransactionStatus string
	AccountType       string
	Frequency         string

	Transaction struct {
		ID          string            `json:"id"`
		Description string            `json:"description"`
		Amount      Money             `json:"amount"`
		DueDate     Date              `json:"dueDate"`
		Type        TransactionType   `json:"type"`
		Status      TransactionStatus `json:"status"`
		Category    string            `json:"category"`
		CreatedAt   time.Time         `json:"createdAt"`
	}

	Account struct {
		ID          string      `json:"id"`
		Name        string      `json:"name"`
		Balance     Money       `json:"balance"`
		Color       string      `json:"color"`
		AccountType AccountType `json:"accountType"`
		Description string      `json:"description,omitempty"`
		Icon        string      `json:"icon"`
		IsActive    bool        `json:"isActive"`
		CreatedAt   time.Time   `json:"createdAt"`
	}

	IncomeSource struct {
		ID          string    `json:"id"`
		Name        string    `json:"name"`
		Description string    `json:"description,omitempty"`
		Amount      Money     `json:"amount"`
		Frequency   Frequency `json:"frequency"`
		IsActive    bool      `json:"isActive"`
		Color       string    `json:"color"`
		Icon        string    `json:"icon"`
		CreatedAt   time.Time `json:"createdAt"`
	}

	// FinancialGoal is a savings target. CurrentAmount may exceed TargetAmount;
	// IsCompleted is only ever set by an explicit user action.
	FinancialGoal struct {
		ID            string    `json:"id"`
		Name          string    `json:"name"`
		Description   string    `json:"description,omitempty"`
		TargetAmount  Money     `json:"targetAmount"`
		CurrentAmount Money     `json:"currentAmount"`
		Deadline      *Date     `json:"deadline,omitempty"`
		Color         string    `json:"color"`
		Icon          string    `json:"icon"`
		IsCompleted   bool      `json:"isCompleted"`
		CreatedAt     time.Time `json:"createdAt"`
	}

	// PatrimonySnapshot is the total balance recorded for one calendar day.
	PatrimonySnapshot struct {
		ID           string    `json:"id"`
		TotalBalance Money     `json:"totalBalance"`
		SnapshotDate Date      `json:"snapshotDate"`
		CreatedAt    time.Time `json:"createdAt"`
	}
)

var (
	ErrEmptyDescription    = errors.New("empty description")
	ErrDescriptionTooLong  = errors.New("description too long (max 200 characters)")
	ErrEmptyName           = errors.New("empty name")
	ErrNameTooLong         = errors.New("name too long (max 100 characters)")
	ErrInvalidType         = errors.New("invalid transaction type")
	ErrInvalidStatus       = errors.New("invalid transaction status")
	ErrInvalidCategory     = errors.New("invalid category")
	ErrInvalidAccountType  = errors.New("invalid account type")
	ErrInvalidFrequency    = errors.New("invalid frequency")
	ErrDueDateTooOld       = errors.New("due date before 2000-01-01")
	ErrDueDateTooFar       = errors.New("due date more than 5 years ahead")
	ErrDeadlineOutOfRange  = errors.New("deadline must be between 2000-01-01 and 2100-12-31")
	ErrInvalidStyle        = errors.New("color and icon must be 1-50 characters")
	ErrNegativeAmount      = errors.New("amount cannot be negative")
	ErrInvalidTargetAmount = errors.New("target amount must be positive")
)

// Toggled returns the opposite settlement status.
func (s TransactionStatus) Toggled() TransactionStatus {
	if s == Paid {
		return Pending
	}
	return Paid
}

func (t TransactionType) Valid() bool {
	return t == Receivable || t == Payable
}

func (s TransactionStatus) Valid() bool {
	return s == Pending || s == Paid
}

func (a AccountType) Valid() bool {
	switch a {
	case PrimaryAccount, SecondaryAccount, SavingsAccount, InvestmentAccount:
		return true
	default:
		return false
	}
}

func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Biweekly, Monthly, Yearly, OneTime:
		return true
	default:
		return false
	}
}

// IsCategory reports whether name is one of the fixed transaction categories.
func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}

// Validate checks a new transaction. The due date window is relative to today.
func (t Transaction) Validate(today Date) error {
	if err := validateText("description", t.Description, maxDescriptionLen, true); err != nil {
		return err
	}
	if err := t.Amount.ValidateAmount(); err != nil {
		return invalid("amount", err)
	}
	if err := t.DueDate.Validate(); err != nil {
		return invalid("dueDate", err)
	}
	if t.DueDate.Before(minDueDate.Time) {
		return invalid("dueDate", ErrDueDateTooOld)
	}
	if t.DueDate.After(today.AddDate(5, 0, 0)) {
		return invalid("dueDate", ErrDueDateTooFar)
	}
	if !t.Type.Valid() {
		return invalid("type", ErrInvalidType)
	}
	if !t.Status.Valid() {
		return invalid("status", ErrInvalidStatus)
	}
	if !IsCategory(t.Category) {
		return invalid("category", ErrInvalidCategory)
	}
	return nil
}

var (
	minDueDate  = NewDate(2000, 1, 1)
	maxDeadline = NewDate(2100, 12, 31)
)

func (a Account) Validate() error {
	if err := validateText("name", a.Name, maxNameLen, true); err != nil {
		return err
	}
	if err := a.Balance.ValidateBalance(); err != nil {
		return invalid("balance", err)
	}
	if !a.AccountType.Valid() {
		return invalid("accountType", ErrInvalidAccountType)
	}
	if err := validateText("description", a.Description, maxDescriptionLen, false); err != nil {
		return err
	}
	return validateStyle(a.Color, a.Icon)
}

func (i IncomeSource) Validate() error {
	if err := validateText("name", i.Name, maxNameLen, true); err != nil {
		return err
	}
	if err := i.Amount.ValidateAmount(); err != nil {
		return invalid("amount", err)
	}
	if !i.Frequency.Valid() {
		return invalid("frequency", ErrInvalidFrequency)
	}
	if err := validateText("description", i.Description, maxDescriptionLen, false); err != nil {
		return err
	}
	return validateStyle(i.Color, i.Icon)
}

func (g FinancialGoal) Validate() error {
	if err := validateText("name", g.Name, maxNameLen, true); err != nil {
		return err
	}
	if g.TargetAmount.Cents <= 0 {
		return invalid("targetAmount", ErrInvalidTargetAmount)
	}
	if err := g.TargetAmount.ValidateAmount(); err != nil {
		return invalid("targetAmount", err)
	}
	if g.CurrentAmount.Cents < 0 {
		return invalid("currentAmount", ErrNegativeAmount)
	}
	if g.CurrentAmount.Cents > MaxAmount.Cents {
		return invalid("currentAmount", ErrAmountTooLarge)
	}
	if g.Deadline != nil {
		if err := g.Deadline.Validate(); err != nil {
			return invalid("deadline", err)
		}
		if g.Deadline.Before(minDueDate.Time) || g.Deadline.After(maxDeadline.Time) {
			return invalid("deadline", ErrDeadlineOutOfRange)
		}
	}
	if err := validateText("description", g.Description, maxDescriptionLen, false); err != nil {
		return err
	}
	return validateStyle(g.Color, g.Icon)
}

// WithDefaults fills color and icon when the caller left them empty.
func (a Account) WithDefaults() Account {
	if a.Color == "" {
		a.Color = DefaultAccountColor
	}
	if a.Icon == "" {
		a.Icon = DefaultAccountIcon
	}
	return a
}

func (i IncomeSource) WithDefaults() IncomeSource {
	if i.Color == "" {
		i.Color = DefaultIncomeColor
	}
	if i.Icon == "" {
		i.Icon = DefaultIncomeIcon
	}
	return i
}

func (g FinancialGoal) WithDefaults() FinancialGoal {
	if g.Color == "" {
		g.Color = DefaultGoalColor
	}
	if g.Icon == "" {
		g.Icon = DefaultGoalIcon
	}
	return g
}

func validateText(field, value string, max int, required bool) error {
	trimmed := strings.TrimSpace(value)
	if required && trimmed == "" {
		if field == "description" {
			return invalid(field, ErrEmptyDescription)
		}
		return invalid(field, ErrEmptyName)
	}
	if utf8.RuneCountInString(value) > max {
		if field == "description" {
			return invalid(field, ErrDescriptionTooLong)
		}
		return invalid(field, ErrNameTooLong)
	}
	return nil
}

func validateStyle(color, icon string) error {
	if n := utf8.RuneCountInString(color); n < 1 || n > maxStyleLen {
		return invalid("color", ErrInvalidStyle)
	}
	if n := utf8.RuneCountInString(icon); n < 1 || n > maxStyleLen {
		return invalid("icon", ErrInvalidStyle)
	}
	return nil
}
