package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"expenses/internal/backend"
	"expenses/internal/core"
)

var (
	ErrEmptyUsername = errors.New("username cannot be empty")
	ErrNoConverter   = errors.New("no currency converter configured")
	ErrInvalidRange  = errors.New("start date is after end date")
	ErrInvalidBudget = errors.New("budget ceiling must be positive")
)

// Converter turns an amount in one currency into another. Implementations
// must fail loudly: a failed lookup is an error, never a default rate.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Notifier receives budget alerts for external display. A nil Notifier
// disables fan-out; alerts are still returned to the caller.
type Notifier interface {
	NotifyBudgetExceeded(ctx context.Context, username string, alert BudgetAlert) error
}

// BudgetAlert reports that a category's spend for the current calendar
// month went strictly above its configured ceiling.
type BudgetAlert struct {
	Category string          `json:"category"`
	Ceiling  decimal.Decimal `json:"ceiling"`
	Spent    decimal.Decimal `json:"spent"`
	Year     int             `json:"year"`
	Month    time.Month      `json:"month"`
}

// Query is a conjunctive record filter. Zero-valued fields are wildcards.
// Category and PaymentMethod match exactly, case included.
type Query struct {
	Year          int
	Month         time.Month
	Category      string
	PaymentMethod string
}

// Tracker is the ledger engine for one user. Every mutation is a
// read-modify-persist unit: the new state is written through the store
// before it replaces the in-memory state, so a failed save leaves no
// partial change. All operations are serialized behind one mutex.
type Tracker struct {
	mu        sync.Mutex
	store     backend.Store
	username  string
	converter Converter
	notifier  Notifier

	// now is swappable for tests of the budget window and recurring dates.
	now func() time.Time

	ledger  core.Ledger
	budgets core.BudgetMap
}

// NewTracker loads the user's persisted state and returns a ready engine.
// A user with no saved files starts empty; corrupt files fail the load.
func NewTracker(ctx context.Context, store backend.Store, username string, converter Converter, notifier Notifier) (*Tracker, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrEmptyUsername
	}

	ledger, err := store.LoadLedger(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	budgets, err := store.LoadBudgets(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}

	slog.InfoContext(ctx, "Loaded user session",
		"username", username,
		"expenses", len(ledger),
		"budgets", len(budgets))

	return &Tracker{
		store:     store,
		username:  username,
		converter: converter,
		notifier:  notifier,
		now:       time.Now,
		ledger:    ledger,
		budgets:   budgets,
	}, nil
}

// Add validates and appends a record, persists the ledger, then evaluates
// the budget rule for the record's category. The returned alert is nil
// when no ceiling was exceeded; an exceeded ceiling never fails the add.
func (t *Tracker) Add(ctx context.Context, e core.Expense) (*BudgetAlert, error) {
	e = e.Normalize()
	if err := e.Validate(); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := append(t.ledger.Clone(), e)
	if err := t.store.SaveLedger(ctx, t.username, next); err != nil {
		return nil, fmt.Errorf("persist ledger: %w", err)
	}
	t.ledger = next

	slog.InfoContext(ctx, "Expense added",
		"username", t.username,
		"category", e.Category,
		"amount", e.Amount.String(),
		"date", e.Date.String())

	alert := t.checkBudgetLocked(e.Category)
	if alert != nil && t.notifier != nil {
		if err := t.notifier.NotifyBudgetExceeded(ctx, t.username, *alert); err != nil {
			slog.WarnContext(ctx, "Failed to publish budget alert, continuing",
				"category", alert.Category, "error", err)
		}
	}
	return alert, nil
}

// checkBudgetLocked evaluates the budget rule post-insert: sum the
// category's spend over the current calendar month and fire strictly
// above the ceiling. Spend equal to the ceiling does not fire.
func (t *Tracker) checkBudgetLocked(category string) *BudgetAlert {
	ceiling, ok := t.budgets[category]
	if !ok {
		return nil
	}

	now := t.now()
	year, month := now.Year(), now.Month()

	spent := decimal.Zero
	for _, e := range t.ledger {
		if e.Category == category && e.Date.Year() == year && e.Date.Month() == month {
			spent = spent.Add(e.Amount)
		}
	}
	if spent.GreaterThan(ceiling) {
		return &BudgetAlert{
			Category: category,
			Ceiling:  ceiling,
			Spent:    spent,
			Year:     year,
			Month:    month,
		}
	}
	return nil
}

// Delete removes every record matching all four fields and reports how
// many were removed. An absent match is a no-op, not an error.
func (t *Tracker) Delete(ctx context.Context, date core.Date, category string, amount decimal.Decimal, description string) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	kept := make(core.Ledger, 0, len(t.ledger))
	for _, e := range t.ledger {
		if !e.Matches(date, category, amount, description) {
			kept = append(kept, e)
		}
	}
	removed := len(t.ledger) - len(kept)
	if removed == 0 {
		return 0, nil
	}

	if err := t.store.SaveLedger(ctx, t.username, kept); err != nil {
		return 0, fmt.Errorf("persist ledger: %w", err)
	}
	t.ledger = kept

	slog.InfoContext(ctx, "Expenses deleted",
		"username", t.username,
		"category", category,
		"removed", removed)
	return removed, nil
}

// Expenses returns a copy of the full ledger in insertion order.
func (t *Tracker) Expenses() core.Ledger {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Clone()
}

// Search returns records whose description or category contains keyword
// as a case-insensitive substring. An empty keyword matches everything.
func (t *Tracker) Search(keyword string) core.Ledger {
	t.mu.Lock()
	defer t.mu.Unlock()

	needle := strings.ToLower(keyword)
	out := core.Ledger{}
	for _, e := range t.ledger {
		if strings.Contains(strings.ToLower(e.Description), needle) ||
			strings.Contains(strings.ToLower(e.Category), needle) {
			out = append(out, e)
		}
	}
	return out
}

// FilterByCategory matches the category exactly, ignoring case.
func (t *Tracker) FilterByCategory(category string) core.Ledger {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := core.Ledger{}
	for _, e := range t.ledger {
		if strings.EqualFold(e.Category, category) {
			out = append(out, e)
		}
	}
	return out
}

// FilterByDateRange returns records dated within [start, end] inclusive.
func (t *Tracker) FilterByDateRange(start, end core.Date) (core.Ledger, error) {
	if start.After(end.Time) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange, start, end)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	out := core.Ledger{}
	for _, e := range t.ledger {
		if !e.Date.Before(start.Time) && !e.Date.After(end.Time) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Filter applies every non-zero predicate of q conjunctively.
func (t *Tracker) Filter(q Query) core.Ledger {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.filterLocked(q)
}

func (t *Tracker) filterLocked(q Query) core.Ledger {
	out := core.Ledger{}
	for _, e := range t.ledger {
		if q.Year != 0 && e.Date.Year() != q.Year {
			continue
		}
		if q.Month != 0 && e.Date.Month() != q.Month {
			continue
		}
		if q.Category != "" && e.Category != q.Category {
			continue
		}
		if q.PaymentMethod != "" && e.PaymentMethod != q.PaymentMethod {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Summarize totals amounts per category over the records matching the
// year/month pair. Zero values widen the window, matching Filter.
func (t *Tracker) Summarize(year int, month time.Month) core.Summary {
	t.mu.Lock()
	defer t.mu.Unlock()

	summary := core.Summary{}
	for _, e := range t.filterLocked(Query{Year: year, Month: month}) {
		summary[e.Category] = summary[e.Category].Add(e.Amount)
	}
	return summary
}

// SetBudget upserts the monthly ceiling for a category and persists the
// budget map. Non-positive ceilings are rejected.
func (t *Tracker) SetBudget(ctx context.Context, category string, ceiling decimal.Decimal) error {
	if strings.TrimSpace(category) == "" {
		return core.ErrEmptyCategory
	}
	if !ceiling.IsPositive() {
		return fmt.Errorf("%w: %s", ErrInvalidBudget, ceiling)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	next := t.budgets.Clone()
	if next == nil {
		next = core.BudgetMap{}
	}
	next[category] = ceiling
	if err := t.store.SaveBudgets(ctx, t.username, next); err != nil {
		return fmt.Errorf("persist budgets: %w", err)
	}
	t.budgets = next

	slog.InfoContext(ctx, "Budget ceiling set",
		"username", t.username,
		"category", category,
		"ceiling", ceiling.String())
	return nil
}

// Budgets returns a copy of the configured ceilings.
func (t *Tracker) Budgets() core.BudgetMap {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.budgets.Clone()
	if b == nil {
		b = core.BudgetMap{}
	}
	return b
}

// AddRecurring computes the next occurrence of dayOfMonth relative to
// today and adds a normal record dated there.
func (t *Tracker) AddRecurring(ctx context.Context, amount decimal.Decimal, category, description string, dayOfMonth int) (*BudgetAlert, error) {
	today := core.DateOf(t.now())
	target, err := NextOccurrence(today, dayOfMonth)
	if err != nil {
		return nil, err
	}

	return t.Add(ctx, core.Expense{
		Amount:      amount,
		Category:    category,
		Description: description,
		Date:        target,
	})
}

// ConvertCurrency converts amount between two currency codes. Matching
// codes short-circuit to the identity without touching the rate service.
func (t *Tracker) ConvertCurrency(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if len(from) != 3 || len(to) != 3 {
		return decimal.Zero, core.ErrInvalidCurrency
	}
	if from == to {
		return amount, nil
	}
	if t.converter == nil {
		return decimal.Zero, ErrNoConverter
	}

	converted, err := t.converter.Convert(ctx, amount, from, to)
	if err != nil {
		return decimal.Zero, fmt.Errorf("convert %s to %s: %w", from, to, err)
	}
	return converted, nil
}
