package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 4

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries ...string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Ledger and vendor mappings",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				// seq records insertion order, the merge tie-breaker.
				`CREATE TABLE IF NOT EXISTS transactions (
					seq INTEGER PRIMARY KEY AUTOINCREMENT,
					id TEXT UNIQUE NOT NULL,
					date TEXT NOT NULL,
					amount TEXT NOT NULL,
					description TEXT NOT NULL DEFAULT '',
					merchant TEXT NOT NULL DEFAULT '',
					category TEXT NOT NULL DEFAULT '',
					source TEXT NOT NULL,
					pending BOOLEAN NOT NULL DEFAULT FALSE,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_source ON transactions(source)`,
				`CREATE INDEX idx_transactions_category ON transactions(category)`,

				`CREATE TABLE IF NOT EXISTS vendors (
					name TEXT PRIMARY KEY,
					category TEXT NOT NULL,
					source TEXT NOT NULL DEFAULT 'AUTO',
					use_count INTEGER NOT NULL DEFAULT 0,
					is_regex BOOLEAN NOT NULL DEFAULT FALSE,
					last_updated TEXT NOT NULL DEFAULT ''
				)`,
				`CREATE INDEX idx_vendors_category ON vendors(category)`,
			)
		},
	},
	{
		Version:     2,
		Description: "Budgets",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS budgets (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					category TEXT NOT NULL,
					amount TEXT NOT NULL,
					period TEXT NOT NULL,
					start_date TEXT NOT NULL,
					end_date TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_budgets_category ON budgets(category)`,
			)
		},
	},
	{
		Version:     3,
		Description: "Ingestion watermarks, scan runs and parse diagnostics",
		Up: func(tx *sql.Tx) error {
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS watermarks (
					source TEXT PRIMARY KEY,
					watermark TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE TABLE IF NOT EXISTS scan_runs (
					id TEXT PRIMARY KEY,
					source TEXT NOT NULL,
					started_at TEXT NOT NULL,
					finished_at TEXT NOT NULL,
					accepted INTEGER NOT NULL DEFAULT 0,
					duplicates INTEGER NOT NULL DEFAULT 0,
					unknown_issuer INTEGER NOT NULL DEFAULT 0,
					malformed INTEGER NOT NULL DEFAULT 0,
					ambiguous INTEGER NOT NULL DEFAULT 0,
					resolver_fallbacks INTEGER NOT NULL DEFAULT 0
				)`,
				`CREATE INDEX idx_scan_runs_started ON scan_runs(started_at)`,
				`CREATE TABLE IF NOT EXISTS parse_diagnostics (
					issuer TEXT PRIMARY KEY,
					malformed INTEGER NOT NULL DEFAULT 0,
					last_seen TEXT NOT NULL
				)`,
			)
		},
	},
	{
		Version:     4,
		Description: "Retired ledger keys",
		Up: func(tx *sql.Tx) error {
			// Ids of deleted or superseded entries, kept so re-scans skip them.
			return execAll(tx,
				`CREATE TABLE IF NOT EXISTS retired_keys (
					id TEXT PRIMARY KEY,
					reason TEXT NOT NULL,
					retired_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			)
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the database's current schema version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
