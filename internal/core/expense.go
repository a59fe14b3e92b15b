package core

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts are JSON numbers in the ledger file, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	DefaultPaymentMethod = "Cash"
	DefaultCurrency      = "INR"
)

var (
	ErrInvalidAmount   = errors.New("amount must be positive")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidCurrency = errors.New("currency must be a 3-letter code")
)

// Expense is one immutable ledger record. Records carry no identity:
// deletion matches on date, category, amount and description together.
type Expense struct {
	Amount        decimal.Decimal `json:"amount"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Date          Date            `json:"date"`
	PaymentMethod string          `json:"payment_method"`
	Currency      string          `json:"currency"`
}

// Normalize fills the defaults the ledger file format expects for the
// open-set fields.
func (e Expense) Normalize() Expense {
	if strings.TrimSpace(e.PaymentMethod) == "" {
		e.PaymentMethod = DefaultPaymentMethod
	}
	if strings.TrimSpace(e.Currency) == "" {
		e.Currency = DefaultCurrency
	}
	e.Currency = strings.ToUpper(e.Currency)
	return e
}

func (e Expense) Validate() error {
	if !e.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if len(e.Currency) != 3 {
		return ErrInvalidCurrency
	}
	return nil
}

// Matches reports whether the record equals the structural deletion key.
// Category and description compare case-sensitively; amount compares by
// numeric value.
func (e Expense) Matches(date Date, category string, amount decimal.Decimal, description string) bool {
	return e.Date.Equal(date) &&
		e.Category == category &&
		e.Amount.Equal(amount) &&
		e.Description == description
}

// Ledger is the ordered record sequence for one user. Order is entry
// order, not date order.
type Ledger []Expense

// Clone returns a copy so callers cannot mutate the engine's state.
func (l Ledger) Clone() Ledger {
	if l == nil {
		return nil
	}
	out := make(Ledger, len(l))
	copy(out, l)
	return out
}

// BudgetMap maps a category to its monthly spend ceiling. At most one
// ceiling per category.
type BudgetMap map[string]decimal.Decimal

func (b BudgetMap) Clone() BudgetMap {
	if b == nil {
		return nil
	}
	out := make(BudgetMap, len(b))
	for category, ceiling := range b {
		out[category] = ceiling
	}
	return out
}

// Summary is the category-keyed total of a filtered record set.
type Summary map[string]decimal.Decimal
