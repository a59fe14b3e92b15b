package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_EmptyUser(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	ledger, err := store.LoadLedger(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadLedger() error = %v", err)
	}
	if len(ledger) != 0 {
		t.Errorf("LoadLedger() = %d records, want 0", len(ledger))
	}

	budgets, err := store.LoadBudgets(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadBudgets() error = %v", err)
	}
	if len(budgets) != 0 {
		t.Errorf("LoadBudgets() = %d entries, want 0", len(budgets))
	}
}

func TestSQLiteStore_LedgerRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	want := core.Ledger{
		{
			Amount:        decimal.RequireFromString("120.50"),
			Category:      "Food",
			Description:   "lunch",
			Date:          core.NewDate(2026, time.March, 14),
			PaymentMethod: "Cash",
			Currency:      "INR",
		},
		{
			Amount:        decimal.RequireFromString("45"),
			Category:      "Transport",
			Description:   "bus pass",
			Date:          core.NewDate(2026, time.March, 15),
			PaymentMethod: "Card",
			Currency:      "EUR",
		},
		{
			Amount:        decimal.RequireFromString("9.99"),
			Category:      "Food",
			Description:   "coffee",
			Date:          core.NewDate(2026, time.February, 28),
			PaymentMethod: "Cash",
			Currency:      "INR",
		},
	}

	if err := store.SaveLedger(ctx, "alice", want); err != nil {
		t.Fatalf("SaveLedger() error = %v", err)
	}

	got, err := store.LoadLedger(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadLedger() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("LoadLedger() = %d records, want %d", len(got), len(want))
	}
	// Insertion order must survive the round trip.
	for i := range want {
		if !got[i].Amount.Equal(want[i].Amount) || got[i].Category != want[i].Category ||
			got[i].Description != want[i].Description || !got[i].Date.Equal(want[i].Date) ||
			got[i].PaymentMethod != want[i].PaymentMethod || got[i].Currency != want[i].Currency {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestSQLiteStore_SaveLedgerReplaces(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	first := core.Ledger{
		{Amount: decimal.RequireFromString("10"), Category: "A", Date: core.NewDate(2026, time.January, 1), PaymentMethod: "Cash", Currency: "INR"},
		{Amount: decimal.RequireFromString("20"), Category: "B", Date: core.NewDate(2026, time.January, 2), PaymentMethod: "Cash", Currency: "INR"},
	}
	if err := store.SaveLedger(ctx, "alice", first); err != nil {
		t.Fatalf("SaveLedger() error = %v", err)
	}
	if err := store.SaveLedger(ctx, "alice", first[1:]); err != nil {
		t.Fatalf("SaveLedger() error = %v", err)
	}

	got, err := store.LoadLedger(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadLedger() error = %v", err)
	}
	if len(got) != 1 || got[0].Category != "B" {
		t.Errorf("LoadLedger() = %+v, want single record with category B", got)
	}
}

func TestSQLiteStore_BudgetRoundTrip(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	want := core.BudgetMap{
		"Food":      decimal.RequireFromString("500"),
		"Transport": decimal.RequireFromString("150.25"),
	}
	if err := store.SaveBudgets(ctx, "alice", want); err != nil {
		t.Fatalf("SaveBudgets() error = %v", err)
	}

	got, err := store.LoadBudgets(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadBudgets() error = %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("LoadBudgets() = %d entries, want %d", len(got), len(want))
	}
	for category, ceiling := range want {
		if !got[category].Equal(ceiling) {
			t.Errorf("budget[%s] = %s, want %s", category, got[category], ceiling)
		}
	}
}

func TestSQLiteStore_UsersAreIsolated(t *testing.T) {
	store := newTestSQLiteStore(t)
	ctx := context.Background()

	ledger := core.Ledger{
		{Amount: decimal.RequireFromString("10"), Category: "A", Date: core.NewDate(2026, time.January, 1), PaymentMethod: "Cash", Currency: "INR"},
	}
	if err := store.SaveLedger(ctx, "alice", ledger); err != nil {
		t.Fatalf("SaveLedger() error = %v", err)
	}

	bob, err := store.LoadLedger(ctx, "bob")
	if err != nil {
		t.Fatalf("LoadLedger() error = %v", err)
	}
	if len(bob) != 0 {
		t.Errorf("LoadLedger(bob) = %d records, want 0", len(bob))
	}
}
