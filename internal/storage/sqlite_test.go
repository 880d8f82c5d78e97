package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

// Helper function to create test transactions.
func createTestTransactions(count int) []model.Transaction {
	txns := make([]model.Transaction, count)
	baseTime := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

	for i := 0; i < count; i++ {
		txns[i] = model.Transaction{
			ID:          fmt.Sprintf("manual-%d", 1000+i),
			Date:        baseTime.Add(time.Duration(i) * time.Hour),
			Amount:      decimal.New(-int64(i+1)*1050, -2),
			Description: fmt.Sprintf("Transaction #%d", i+1),
			Merchant:    fmt.Sprintf("Merchant #%d", (i%3)+1),
			Category:    "Food",
			Source:      model.SourceManual,
		}
	}
	return txns
}

func TestNewSQLiteStorage_EmptyPath(t *testing.T) {
	if _, err := NewSQLiteStorage("  "); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestSQLiteStorage_Migrations(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, ExpectedSchemaVersion)
	}

	// Running again is a no-op.
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}

	for _, table := range []string{"transactions", "vendors", "budgets", "watermarks", "scan_runs", "parse_diagnostics"} {
		var count int
		err := store.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&count)
		if err != nil {
			t.Fatalf("failed to inspect schema: %v", err)
		}
		if count != 1 {
			t.Errorf("table %s missing", table)
		}
	}
}

func TestSQLiteStorage_ConcurrentAccess(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	txns := createTestTransactions(20)
	var wg sync.WaitGroup
	errs := make(chan error, len(txns))
	for i := range txns {
		wg.Add(1)
		go func(txn model.Transaction) {
			defer wg.Done()
			errs <- store.SaveTransactions(ctx, []model.Transaction{txn})
		}(txns[i])
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Errorf("concurrent save failed: %v", err)
		}
	}

	loaded, err := store.LoadTransactions(ctx)
	if err != nil {
		t.Fatalf("LoadTransactions() error = %v", err)
	}
	if len(loaded) != len(txns) {
		t.Errorf("loaded %d transactions, want %d", len(loaded), len(txns))
	}
}

func TestEncodeAmount_KeepsScale(t *testing.T) {
	tests := []struct {
		in   decimal.Decimal
		want string
	}{
		{in: decimal.RequireFromString("500.00"), want: "500.00"},
		{in: decimal.RequireFromString("-12.5"), want: "-12.5"},
		{in: decimal.NewFromInt(42), want: "42"},
	}
	for _, tt := range tests {
		if got := encodeAmount(tt.in); got != tt.want {
			t.Errorf("encodeAmount(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
