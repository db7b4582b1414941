package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/naramuhl/finance-friend-central/internal/core"
	"github.com/naramuhl/finance-friend-central/internal/records"
)

// UserIDHeader identifies the caller. Authentication happens upstream.
const UserIDHeader = "X-User-ID"

const (
	maxBodyBytes  = 64 << 10
	maxUserIDLen  = 128
	monthLayout   = "2006-01"
	maxBodyErrMsg = "request body too large"
)

var (
	ErrMissingUser = errors.New("missing " + UserIDHeader + " header")
	ErrInvalidUser = errors.New("invalid " + UserIDHeader + " header")
	ErrInvalidBody = errors.New("invalid request body")
)

// userIDFrom returns the caller's user ID from the request headers.
func userIDFrom(r *http.Request) (string, error) {
	id := strings.TrimSpace(r.Header.Get(UserIDHeader))
	if id == "" {
		return "", ErrMissingUser
	}
	if len(id) > maxUserIDLen || strings.IndexFunc(id, unicode.IsControl) >= 0 {
		return "", ErrInvalidUser
	}
	return id, nil
}

// decodeJSON reads a single JSON object into dst. Unknown fields are
// rejected so typos in field names do not pass silently. An empty body
// leaves dst untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: %s", ErrInvalidBody, maxBodyErrMsg)
		}
		return decodeError(err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", ErrInvalidBody)
	}
	return nil
}

// decodeError turns JSON decoding failures into validation errors when they
// concern a single field, so clients learn which field was wrong.
func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return core.Invalid(typeErr.Field, fmt.Errorf("expected %s", typeErr.Type))
	}
	// Money and Date report their own sentinel errors from UnmarshalJSON.
	for _, sentinel := range []error{core.ErrInvalidAmount, core.ErrTooManyDecimals, core.ErrAmountTooLarge, core.ErrInvalidDate} {
		if errors.Is(err, sentinel) {
			return core.Invalid("body", err)
		}
	}
	return fmt.Errorf("%w: %v", ErrInvalidBody, err)
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(r *http.Request, key string) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, core.Invalid(key, err)
	}
	return d, nil
}

// queryMonth parses an optional YYYY-MM query parameter into the first day
// of that month.
func queryMonth(r *http.Request, key string) (core.Date, error) {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse(monthLayout, v)
	if err != nil {
		return core.Date{}, core.Invalid(key, core.ErrInvalidDate)
	}
	return core.NewDate(t.Year(), int(t.Month()), 1), nil
}

type transactionRequest struct {
	Description string                 `json:"description"`
	Amount      core.Money             `json:"amount"`
	DueDate     core.Date              `json:"dueDate"`
	Type        core.TransactionType   `json:"type"`
	Status      core.TransactionStatus `json:"status"`
	Category    string                 `json:"category"`
}

func (req transactionRequest) toTransaction() core.Transaction {
	return core.Transaction{
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		DueDate:     req.DueDate,
		Type:        req.Type,
		Status:      req.Status,
		Category:    strings.TrimSpace(req.Category),
	}
}

// accountRefRequest names the account a settlement or contribution moves
// money on. Empty means the primary account.
type accountRefRequest struct {
	AccountID string `json:"accountId"`
}

type accountRequest struct {
	Name        string           `json:"name"`
	Balance     core.Money       `json:"balance"`
	Color       string           `json:"color"`
	AccountType core.AccountType `json:"accountType"`
	Description string           `json:"description"`
	Icon        string           `json:"icon"`
}

func (req accountRequest) toAccount() core.Account {
	return core.Account{
		Name:        strings.TrimSpace(req.Name),
		Balance:     req.Balance,
		Color:       strings.TrimSpace(req.Color),
		AccountType: req.AccountType,
		Description: strings.TrimSpace(req.Description),
		Icon:        strings.TrimSpace(req.Icon),
	}
}

type accountPatchRequest struct {
	Name        *string           `json:"name"`
	Balance     *core.Money       `json:"balance"`
	Color       *string           `json:"color"`
	AccountType *core.AccountType `json:"accountType"`
	Description *string           `json:"description"`
	Icon        *string           `json:"icon"`
	IsActive    *bool             `json:"isActive"`
}

func (req accountPatchRequest) toPatch() records.AccountPatch {
	return records.AccountPatch{
		Name:        trimmed(req.Name),
		Balance:     req.Balance,
		Color:       trimmed(req.Color),
		AccountType: req.AccountType,
		Description: trimmed(req.Description),
		Icon:        trimmed(req.Icon),
		IsActive:    req.IsActive,
	}
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

type amountRequest struct {
	Amount    core.Money `json:"amount"`
	AccountID string     `json:"accountId"`
}

type incomeRequest struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Amount      core.Money     `json:"amount"`
	Frequency   core.Frequency `json:"frequency"`
	Color       string         `json:"color"`
	Icon        string         `json:"icon"`
}

func (req incomeRequest) toIncomeSource() core.IncomeSource {
	return core.IncomeSource{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Amount:      req.Amount,
		Frequency:   req.Frequency,
		Color:       strings.TrimSpace(req.Color),
		Icon:        strings.TrimSpace(req.Icon),
	}
}

type incomePatchRequest struct {
	IsActive *bool `json:"isActive"`
}

type goalRequest struct {
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	TargetAmount  core.Money `json:"targetAmount"`
	CurrentAmount core.Money `json:"currentAmount"`
	Deadline      *core.Date `json:"deadline"`
	Color         string     `json:"color"`
	Icon          string     `json:"icon"`
}

func (req goalRequest) toGoal() core.FinancialGoal {
	return core.FinancialGoal{
		Name:          strings.TrimSpace(req.Name),
		Description:   strings.TrimSpace(req.Description),
		TargetAmount:  req.TargetAmount,
		CurrentAmount: req.CurrentAmount,
		Deadline:      req.Deadline,
		Color:         strings.TrimSpace(req.Color),
		Icon:          strings.TrimSpace(req.Icon),
	}
}
