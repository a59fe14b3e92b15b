package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"expenses/internal/core"
)

// SQLiteStore keeps the same per-user ledger and budget contract as the
// JSON file store, backed by a single SQLite database. Ledger order is
// preserved through an explicit position column. Amounts are stored as
// decimal strings so values round-trip exactly.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *SQLiteStore) LoadLedger(ctx context.Context, username string) (core.Ledger, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT amount, category, description, date, payment_method, currency
		 FROM expenses WHERE username = ? ORDER BY position`, username)
	if err != nil {
		return nil, fmt.Errorf("query expenses: %w", err)
	}
	defer rows.Close()

	ledger := core.Ledger{}
	for rows.Next() {
		var amount, category, description, date, paymentMethod, currency string
		if err := rows.Scan(&amount, &category, &description, &date, &paymentMethod, &currency); err != nil {
			return nil, fmt.Errorf("scan expense row: %w", err)
		}

		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parse stored amount %q: %w", amount, err)
		}
		d, err := core.ParseDate(date)
		if err != nil {
			return nil, fmt.Errorf("parse stored date %q: %w", date, err)
		}

		ledger = append(ledger, core.Expense{
			Amount:        amt,
			Category:      category,
			Description:   description,
			Date:          d,
			PaymentMethod: paymentMethod,
			Currency:      currency,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate expense rows: %w", err)
	}
	return ledger, nil
}

// SaveLedger replaces the user's ledger in one transaction.
func (s *SQLiteStore) SaveLedger(ctx context.Context, username string, ledger core.Ledger) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM expenses WHERE username = ?`, username); err != nil {
		return fmt.Errorf("clear expenses: %w", err)
	}

	for i, e := range ledger {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO expenses (username, position, amount, category, description, date, payment_method, currency)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			username, i, e.Amount.String(), e.Category, e.Description,
			e.Date.String(), e.PaymentMethod, e.Currency)
		if err != nil {
			return fmt.Errorf("insert expense: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadBudgets(ctx context.Context, username string) (core.BudgetMap, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, ceiling FROM budgets WHERE username = ?`, username)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	budgets := core.BudgetMap{}
	for rows.Next() {
		var category, ceiling string
		if err := rows.Scan(&category, &ceiling); err != nil {
			return nil, fmt.Errorf("scan budget row: %w", err)
		}
		c, err := decimal.NewFromString(ceiling)
		if err != nil {
			return nil, fmt.Errorf("parse stored ceiling %q: %w", ceiling, err)
		}
		budgets[category] = c
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budget rows: %w", err)
	}
	return budgets, nil
}

// SaveBudgets replaces the user's budget map in one transaction.
func (s *SQLiteStore) SaveBudgets(ctx context.Context, username string, budgets core.BudgetMap) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM budgets WHERE username = ?`, username); err != nil {
		return fmt.Errorf("clear budgets: %w", err)
	}

	for category, ceiling := range budgets {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO budgets (username, category, ceiling) VALUES (?, ?, ?)`,
			username, category, ceiling.String())
		if err != nil {
			return fmt.Errorf("insert budget: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
