// Package testutil provides shared test setup: a migrated database and a
// fluent builder for ledger entries.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/storage"
)

// TestDB represents a test database with associated test utilities.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, service.Storage) error
	Transactions   []model.Transaction
	SkipMigrations bool
}

// SetupTestDB creates a migrated database in the test's temp dir. It is
// closed automatically when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.Seed(testutil.NewTxBuilder().Expense("Food", "200", day(5)).Build()...)
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database with custom options.
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})

	ctx := context.Background()
	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	db := &TestDB{Storage: store, t: t}
	if len(opts.Transactions) > 0 {
		db.Seed(opts.Transactions...)
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}
	return db
}

// Seed stores txns or fails the test.
func (db *TestDB) Seed(txns ...model.Transaction) {
	db.t.Helper()
	if err := db.Storage.SaveTransactions(context.Background(), txns); err != nil {
		db.t.Fatalf("failed to seed %d transactions: %v", len(txns), err)
	}
}

// MustLoad returns every stored entry or fails the test.
func (db *TestDB) MustLoad() []model.Transaction {
	db.t.Helper()
	txns, err := db.Storage.LoadTransactions(context.Background())
	if err != nil {
		db.t.Fatalf("failed to load transactions: %v", err)
	}
	return txns
}
