package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

const vendorColumns = `name, category, source, use_count, is_regex, last_updated`

// GetVendor retrieves a vendor mapping by name.
func (s *SQLiteStorage) GetVendor(ctx context.Context, name string) (*model.Vendor, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+vendorColumns+` FROM vendors WHERE name = ?`, name)
	vendor, err := scanVendor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("vendor %q: %w", name, common.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &vendor, nil
}

// SaveVendor saves or updates a vendor mapping.
func (s *SQLiteStorage) SaveVendor(ctx context.Context, vendor *model.Vendor) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateVendor(vendor); err != nil {
		return err
	}
	return s.saveVendorTx(ctx, s.db, vendor)
}

func (s *SQLiteStorage) saveVendorTx(ctx context.Context, q queryable, vendor *model.Vendor) error {
	if vendor.LastUpdated.IsZero() {
		vendor.LastUpdated = time.Now()
	}
	if vendor.Source == "" {
		vendor.Source = model.SourceAuto
	}

	_, err := q.ExecContext(ctx, `
		INSERT INTO vendors (`+vendorColumns+`)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			category = excluded.category,
			source = excluded.source,
			use_count = excluded.use_count,
			is_regex = excluded.is_regex,
			last_updated = excluded.last_updated
	`, vendor.Name, vendor.Category, string(vendor.Source), vendor.UseCount, vendor.IsRegex, encodeTime(vendor.LastUpdated))
	if err != nil {
		return fmt.Errorf("failed to save vendor: %w", err)
	}
	return nil
}

// GetAllVendors retrieves all vendor mappings ordered by name.
func (s *SQLiteStorage) GetAllVendors(ctx context.Context) ([]model.Vendor, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+vendorColumns+` FROM vendors ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to query vendors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var vendors []model.Vendor
	for rows.Next() {
		vendor, err := scanVendor(rows)
		if err != nil {
			return nil, err
		}
		vendors = append(vendors, vendor)
	}
	return vendors, rows.Err()
}

// DeleteVendor deletes a vendor mapping.
func (s *SQLiteStorage) DeleteVendor(ctx context.Context, name string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(name, "name"); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `DELETE FROM vendors WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete vendor: %w", err)
	}
	return requireAffected(result, "vendor "+name)
}

func scanVendor(row rowScanner) (model.Vendor, error) {
	var (
		vendor      model.Vendor
		source      string
		lastUpdated string
	)
	err := row.Scan(&vendor.Name, &vendor.Category, &source, &vendor.UseCount, &vendor.IsRegex, &lastUpdated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return vendor, err
		}
		return vendor, fmt.Errorf("failed to scan vendor: %w", err)
	}
	vendor.Source = model.VendorSource(source)
	if vendor.LastUpdated, err = decodeTime(lastUpdated); err != nil {
		return vendor, err
	}
	return vendor, nil
}
