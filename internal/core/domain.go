package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	Expense Kind = "expense"
	Income  Kind = "income"
)

const (
	Daily   Frequency = "daily"
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// FallbackCategory is used when neither the caller nor a keyword rule
// assigns a category.
const FallbackCategory = "Other"

// DefaultCategories seeds a new user's category list.
var DefaultCategories = []string{
	"Housing",
	"Transportation",
	"Food",
	"Utilities",
	"Entertainment",
	"Health",
	"Shopping",
	"Travel",
	"Savings",
	"Income",
	"Other",
}

type (
	Kind      string
	Frequency string

	// Date is a calendar day. The time-of-day component is always midnight UTC.
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          int64    `json:"id"`
		UserID      int64    `json:"user_id"`
		Date        Date     `json:"date"`
		Kind        Kind     `json:"kind"`
		Category    string   `json:"category"`
		Amount      float64  `json:"amount"`
		Currency    string   `json:"currency,omitempty"`
		AmountBase  *float64 `json:"amount_base,omitempty"`
		Description string   `json:"description,omitempty"`
	}

	Budget struct {
		ID          int64   `json:"id"`
		UserID      int64   `json:"user_id"`
		PeriodStart Date    `json:"period_start"`
		PeriodEnd   Date    `json:"period_end"`
		Category    string  `json:"category,omitempty"` // empty means all categories
		Amount      float64 `json:"amount"`
	}

	RecurringRule struct {
		ID          int64     `json:"id"`
		UserID      int64     `json:"user_id"`
		Name        string    `json:"name"`
		Kind        Kind      `json:"kind"`
		Amount      float64   `json:"amount"`
		Currency    string    `json:"currency,omitempty"`
		Category    string    `json:"category"`
		Description string    `json:"description,omitempty"`
		Frequency   Frequency `json:"frequency"`
		NextRun     Date      `json:"next_run"`
	}

	Category struct {
		ID     int64  `json:"id"`
		UserID int64  `json:"user_id"`
		Name   string `json:"name"`
		Color  string `json:"color,omitempty"`
	}

	// CategoryRule assigns a category to transactions whose description
	// contains the keyword.
	CategoryRule struct {
		ID       int64  `json:"id"`
		UserID   int64  `json:"user_id"`
		Keyword  string `json:"keyword"`
		Category string `json:"category"`
	}

	CurrencyRate struct {
		ID         int64   `json:"id"`
		UserID     int64   `json:"user_id"`
		Code       string  `json:"code"`
		RateToBase float64 `json:"rate_to_base"`
	}

	UserSettings struct {
		UserID             int64   `json:"user_id"`
		BaseCurrency       string  `json:"base_currency"`
		SavedFilter        string  `json:"saved_filter,omitempty"`
		LargeTxThreshold   float64 `json:"large_tx_threshold"`
		BudgetAlertPercent float64 `json:"budget_alert_percent"`
	}

	SavingsGoal struct {
		ID            int64   `json:"id"`
		UserID        int64   `json:"user_id"`
		Name          string  `json:"name"`
		TargetAmount  float64 `json:"target_amount"`
		CurrentAmount float64 `json:"current_amount"`
		Deadline      *Date   `json:"deadline,omitempty"`
	}

	User struct {
		ID           int64  `json:"id"`
		Username     string `json:"username"`
		Email        string `json:"email,omitempty"`
		PasswordHash string `json:"-"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidKind      = errors.New("invalid transaction kind")
	ErrInvalidFrequency = errors.New("invalid frequency")
	ErrInvalidPeriod    = errors.New("period end before period start")
	ErrEmptyName        = errors.New("empty name")
	ErrEmptyCategory    = errors.New("empty category")
)

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// DaysSince returns the whole number of days from other to d.
func (d Date) DaysSince(other Date) int {
	return int(d.Time.Sub(other.Time).Hours() / 24)
}

// Key formats the date as YYYY-MM-DD.
func (d Date) Key() string {
	return d.Format("2006-01-02")
}

// MonthKey formats the date's month as YYYY-MM.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Key() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (k Kind) Valid() bool {
	return k == Expense || k == Income
}

// Sign is +1 for income and -1 for expense.
func (k Kind) Sign() float64 {
	if k == Expense {
		return -1
	}
	return 1
}

func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// StepDays is the fixed day increment between occurrences. Monthly uses a
// 30-day approximation rather than calendar-month arithmetic.
func (f Frequency) StepDays() int {
	switch f {
	case Daily:
		return 1
	case Weekly:
		return 7
	case Monthly:
		return 30
	default:
		return 0
	}
}

// Normalized is the transaction's value in the owner's base currency:
// the stored base amount when present, the original amount otherwise.
func (t Transaction) Normalized() float64 {
	if t.AmountBase != nil {
		return *t.AmountBase
	}
	return t.Amount
}

// SignedNormalized is Normalized with expenses negative and income positive.
func (t Transaction) SignedNormalized() float64 {
	return t.Kind.Sign() * t.Normalized()
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 500 {
		return errors.New("description too long (max 500 characters)")
	}
	return nil
}

func (b Budget) Validate() error {
	if err := b.PeriodStart.Validate(); err != nil {
		return fmt.Errorf("period start: %w", err)
	}
	if err := b.PeriodEnd.Validate(); err != nil {
		return fmt.Errorf("period end: %w", err)
	}
	if b.PeriodEnd.Before(b.PeriodStart.Time) {
		return ErrInvalidPeriod
	}
	if b.Amount <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// ActiveOn reports whether d falls inside the budget period, inclusive.
func (b Budget) ActiveOn(d Date) bool {
	return !d.Before(b.PeriodStart.Time) && !d.After(b.PeriodEnd.Time)
}

func (r RecurringRule) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrEmptyName
	}
	if !r.Kind.Valid() {
		return ErrInvalidKind
	}
	if r.Amount <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	if !r.Frequency.Valid() {
		return ErrInvalidFrequency
	}
	return r.NextRun.Validate()
}

func (g SavingsGoal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrEmptyName
	}
	if g.TargetAmount < 0 || g.CurrentAmount < 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Percent is the goal's completion percentage, clamped to 999. A zero
// target reports 0 rather than dividing by zero.
func (g SavingsGoal) Percent() float64 {
	if g.TargetAmount <= 0 {
		return 0
	}
	p := g.CurrentAmount / g.TargetAmount * 100
	if p > 999 {
		return 999
	}
	return p
}

func (r CurrencyRate) Validate() error {
	if strings.TrimSpace(r.Code) == "" {
		return errors.New("empty currency code")
	}
	if r.RateToBase <= 0 {
		return errors.New("rate must be greater than zero")
	}
	return nil
}
