package backend

import (
	"context"

	"expenses/internal/core"
)

// Store persists one user's ledger and budget map. Implementations must
// return an empty (not nil-error) result for users with no saved data.
type Store interface {
	LoadLedger(ctx context.Context, username string) (core.Ledger, error)
	SaveLedger(ctx context.Context, username string, ledger core.Ledger) error
	LoadBudgets(ctx context.Context, username string) (core.BudgetMap, error)
	SaveBudgets(ctx context.Context, username string, budgets core.BudgetMap) error
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the store instance and optional cleanup function
type Result struct {
	Store   Store
	Cleanup CleanupFunc
}

// Config holds configuration for store creation
type Config struct {
	// Backend type
	Type Type

	// JSON file backend specific
	DataDirectory string

	// SQLite specific
	SQLiteDBPath string
}

// Type represents the type of storage backend
type Type string

const (
	JSONBackend   Type = "json"
	SQLiteBackend Type = "sqlite"
)

// String implements fmt.Stringer
func (t Type) String() string {
	return string(t)
}

// IsValid returns true if the backend type is valid
func (t Type) IsValid() bool {
	switch t {
	case JSONBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
