// Package service defines the contracts shared between the ledger core and its collaborators.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// LedgerStore persists ledger entries. LoadTransactions returns entries in
// insertion order so the merge tie-break survives a restart.
type LedgerStore interface {
	LoadTransactions(ctx context.Context) ([]model.Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	SaveTransactions(ctx context.Context, transactions []model.Transaction) error
	// ReplaceTransactions saves transactions and retires the superseded ids
	// in one database transaction.
	ReplaceTransactions(ctx context.Context, transactions []model.Transaction, superseded []string) error
	// UpdateTransactions rewrites every given entry in one database transaction.
	UpdateTransactions(ctx context.Context, transactions []model.Transaction) error
	// DeleteTransaction removes an entry and retires its id.
	DeleteTransaction(ctx context.Context, id string) error
	// LoadRetiredKeys returns the ids of deleted and superseded entries.
	LoadRetiredKeys(ctx context.Context) ([]string, error)
}

// VendorStore persists description to category mappings.
type VendorStore interface {
	GetVendor(ctx context.Context, name string) (*model.Vendor, error)
	SaveVendor(ctx context.Context, vendor *model.Vendor) error
	GetAllVendors(ctx context.Context) ([]model.Vendor, error)
	DeleteVendor(ctx context.Context, name string) error
}

// BudgetStore persists budget configuration.
type BudgetStore interface {
	SaveBudget(ctx context.Context, budget *model.Budget) error
	GetBudgets(ctx context.Context) ([]model.Budget, error)
	DeleteBudget(ctx context.Context, id int64) error
}

// ScanStore persists ingestion bookkeeping: watermarks, scan runs and
// per-issuer parse diagnostics.
type ScanStore interface {
	GetWatermark(ctx context.Context, source model.Source) (time.Time, error)
	SetWatermark(ctx context.Context, source model.Source, at time.Time) error
	SaveScanRun(ctx context.Context, summary *model.ScanSummary) error
	GetScanRuns(ctx context.Context, limit int) ([]model.ScanSummary, error)
	GetParseDiagnostics(ctx context.Context) (map[string]int, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	LedgerStore
	VendorStore
	BudgetStore
	ScanStore

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
