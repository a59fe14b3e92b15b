package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"expenses/internal/core"
)

func testLedger() core.Ledger {
	return core.Ledger{
		{
			Amount:        decimal.RequireFromString("120.5"),
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
			Currency:      "INR",
		},
	}
}

func TestJSONStore_LoadLedger_AbsentFile(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	ledger, err := store.LoadLedger(context.Background(), "alice")
	if err != nil {
		t.Fatalf("LoadLedger() error = %v", err)
	}
	if len(ledger) != 0 {
		t.Errorf("LoadLedger() = %d records, want 0 for absent file", len(ledger))
	}
}

func TestJSONStore_SaveAndLoadLedger(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	ctx := context.Background()

	want := testLedger()
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
	for i := range want {
		if !got[i].Amount.Equal(want[i].Amount) || got[i].Category != want[i].Category ||
			got[i].Description != want[i].Description || !got[i].Date.Equal(want[i].Date) ||
			got[i].PaymentMethod != want[i].PaymentMethod || got[i].Currency != want[i].Currency {
			t.Errorf("record %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestJSONStore_LedgerFileFormat(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	if err := store.SaveLedger(context.Background(), "alice", testLedger()[:1]); err != nil {
		t.Fatalf("SaveLedger() error = %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "alice_expenses.json"))
	if err != nil {
		t.Fatalf("read expense file: %v", err)
	}
	content := string(data)

	// Amounts are JSON numbers, dates are YYYY-MM-DD strings.
	if !strings.Contains(content, `"amount": 120.5`) {
		t.Errorf("expense file missing numeric amount:\n%s", content)
	}
	if !strings.Contains(content, `"date": "2026-03-14"`) {
		t.Errorf("expense file missing ISO date:\n%s", content)
	}
	if !strings.Contains(content, `"payment_method": "Cash"`) {
		t.Errorf("expense file missing payment_method key:\n%s", content)
	}
}

func TestJSONStore_LoadLedger_MalformedFile(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}

	path := filepath.Join(dir, "alice_expenses.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0644); err != nil {
		t.Fatalf("write malformed file: %v", err)
	}

	if _, err := store.LoadLedger(context.Background(), "alice"); err == nil {
		t.Error("LoadLedger() error = nil, want parse error for malformed file")
	}
}

func TestJSONStore_SaveAndLoadBudgets(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	ctx := context.Background()

	budgets, err := store.LoadBudgets(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadBudgets() error = %v", err)
	}
	if len(budgets) != 0 {
		t.Errorf("LoadBudgets() = %d entries, want 0 for absent file", len(budgets))
	}

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

func TestJSONStore_UsersAreIsolated(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	ctx := context.Background()

	if err := store.SaveLedger(ctx, "alice", testLedger()); err != nil {
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

func TestJSONStore_SaveReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir)
	if err != nil {
		t.Fatalf("NewJSONStore() error = %v", err)
	}
	ctx := context.Background()

	if err := store.SaveLedger(ctx, "alice", testLedger()); err != nil {
		t.Fatalf("SaveLedger() error = %v", err)
	}
	if err := store.SaveLedger(ctx, "alice", testLedger()[:1]); err != nil {
		t.Fatalf("SaveLedger() error = %v", err)
	}

	got, err := store.LoadLedger(ctx, "alice")
	if err != nil {
		t.Fatalf("LoadLedger() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("LoadLedger() = %d records, want 1 after replacement", len(got))
	}

	// No temp files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, e := range entries {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}
