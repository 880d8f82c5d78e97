package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

const transactionColumns = `id, date, amount, description, merchant, category, source, pending`

// Reasons recorded for retired keys.
const (
	retiredDeleted    = "deleted"
	retiredSuperseded = "superseded"
)

// SaveTransactions inserts new ledger entries in one database transaction.
// An id that already exists fails the whole batch with common.ErrDuplicateEntry.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.saveTransactionsTx(ctx, tx, transactions)
	})
}

func (s *SQLiteStorage) saveTransactionsTx(ctx context.Context, tx *sql.Tx, transactions []model.Transaction) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (`+transactionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, txn := range transactions {
		_, err = stmt.ExecContext(ctx,
			txn.ID,
			encodeTime(txn.Date),
			encodeAmount(txn.Amount),
			txn.Description,
			txn.Merchant,
			txn.Category,
			string(txn.Source),
			txn.Pending,
		)
		if isUniqueViolation(err) {
			return fmt.Errorf("transaction %s: %w", txn.ID, common.ErrDuplicateEntry)
		}
		if err != nil {
			return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
		}
	}
	return nil
}

// ReplaceTransactions inserts transactions and retires the ids in superseded
// in one database transaction. Superseded ids need not be stored; their key
// is retired either way.
func (s *SQLiteStorage) ReplaceTransactions(ctx context.Context, transactions []model.Transaction, superseded []string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}
	for _, id := range superseded {
		if err := validateString(id, "superseded id"); err != nil {
			return err
		}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, id := range superseded {
			if _, err := s.retireTx(ctx, tx, id, retiredSuperseded); err != nil {
				return err
			}
		}
		return s.saveTransactionsTx(ctx, tx, transactions)
	})
}

// UpdateTransactions rewrites existing entries in one database transaction.
// If any id is missing nothing is changed and common.ErrNotFound is returned.
func (s *SQLiteStorage) UpdateTransactions(ctx context.Context, transactions []model.Transaction) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactions(transactions); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			UPDATE transactions
			SET date = ?, amount = ?, description = ?, merchant = ?, category = ?,
				source = ?, pending = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, txn := range transactions {
			result, err := stmt.ExecContext(ctx,
				encodeTime(txn.Date),
				encodeAmount(txn.Amount),
				txn.Description,
				txn.Merchant,
				txn.Category,
				string(txn.Source),
				txn.Pending,
				txn.ID,
			)
			if err != nil {
				return fmt.Errorf("failed to update transaction %s: %w", txn.ID, err)
			}
			if err := requireAffected(result, "transaction "+txn.ID); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteTransaction removes one ledger entry and retires its id.
func (s *SQLiteStorage) DeleteTransaction(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := s.retireTx(ctx, tx, id, retiredDeleted)
		if err != nil {
			return err
		}
		return requireAffected(result, "transaction "+id)
	})
}

// retireTx deletes id from the ledger, if present, and records it as retired.
// The returned result is that of the delete.
func (s *SQLiteStorage) retireTx(ctx context.Context, tx *sql.Tx, id, reason string) (sql.Result, error) {
	result, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO retired_keys (id, reason) VALUES (?, ?)`, id, reason); err != nil {
		return nil, fmt.Errorf("failed to retire key %s: %w", id, err)
	}
	return result, nil
}

// LoadRetiredKeys returns the ids of every deleted or superseded entry.
func (s *SQLiteStorage) LoadRetiredKeys(ctx context.Context) ([]string, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id FROM retired_keys ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query retired keys: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan retired key: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LoadTransactions returns the whole ledger in insertion order.
func (s *SQLiteStorage) LoadTransactions(ctx context.Context) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+transactionColumns+` FROM transactions ORDER BY seq`)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, txn)
	}
	return transactions, rows.Err()
}

// GetTransactionByID retrieves a single ledger entry.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &txn, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (model.Transaction, error) {
	var (
		txn          model.Transaction
		date, amount string
		source       string
	)
	err := row.Scan(
		&txn.ID,
		&date,
		&amount,
		&txn.Description,
		&txn.Merchant,
		&txn.Category,
		&source,
		&txn.Pending,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return txn, err
		}
		return txn, fmt.Errorf("failed to scan transaction: %w", err)
	}

	if txn.Date, err = decodeTime(date); err != nil {
		return txn, fmt.Errorf("transaction %s: %w", txn.ID, err)
	}
	if txn.Amount, err = decodeAmount(amount); err != nil {
		return txn, fmt.Errorf("transaction %s: %w", txn.ID, err)
	}
	txn.Source = model.Source(source)
	return txn, nil
}
