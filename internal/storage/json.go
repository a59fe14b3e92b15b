package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"expenses/internal/core"
)

// JSONStore persists each user's data as a pair of files in a data
// directory: <username>_expenses.json holds the ledger as a JSON array in
// insertion order, <username>_budgets.json holds the category ceilings as
// a JSON object. An absent file reads as empty; a malformed file is an
// error, never silently reset.
type JSONStore struct {
	dir string
	mu  sync.Mutex
}

// NewJSONStore creates a store rooted at dir, creating it if needed.
func NewJSONStore(dir string) (*JSONStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &JSONStore{dir: dir}, nil
}

func (s *JSONStore) ledgerPath(username string) string {
	return filepath.Join(s.dir, username+"_expenses.json")
}

func (s *JSONStore) budgetsPath(username string) string {
	return filepath.Join(s.dir, username+"_budgets.json")
}

// LoadLedger reads the user's expense file.
func (s *JSONStore) LoadLedger(ctx context.Context, username string) (core.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.ledgerPath(username)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.DebugContext(ctx, "expense file absent, starting empty", "path", path)
		return core.Ledger{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read expense file: %w", err)
	}

	var ledger core.Ledger
	if err := json.Unmarshal(data, &ledger); err != nil {
		return nil, fmt.Errorf("parse expense file %s: %w", path, err)
	}
	return ledger, nil
}

// SaveLedger writes the user's expense file atomically.
func (s *JSONStore) SaveLedger(ctx context.Context, username string, ledger core.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ledger == nil {
		ledger = core.Ledger{}
	}
	if err := s.writeFile(s.ledgerPath(username), ledger); err != nil {
		return fmt.Errorf("save expense file: %w", err)
	}
	return nil
}

// LoadBudgets reads the user's budget file.
func (s *JSONStore) LoadBudgets(ctx context.Context, username string) (core.BudgetMap, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.budgetsPath(username)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.DebugContext(ctx, "budget file absent, starting empty", "path", path)
		return core.BudgetMap{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read budget file: %w", err)
	}

	var budgets core.BudgetMap
	if err := json.Unmarshal(data, &budgets); err != nil {
		return nil, fmt.Errorf("parse budget file %s: %w", path, err)
	}
	return budgets, nil
}

// SaveBudgets writes the user's budget file atomically.
func (s *JSONStore) SaveBudgets(ctx context.Context, username string, budgets core.BudgetMap) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if budgets == nil {
		budgets = core.BudgetMap{}
	}
	if err := s.writeFile(s.budgetsPath(username), budgets); err != nil {
		return fmt.Errorf("save budget file: %w", err)
	}
	return nil
}

// writeFile marshals v and replaces path atomically. A crash mid-write
// leaves the previous file intact.
func (s *JSONStore) writeFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace file: %w", err)
	}
	return nil
}
