// Package storage provides the data persistence layer for the ledger.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrNilParameter       = errors.New("parameter cannot be nil")
	ErrEmptySlice         = errors.New("slice cannot be empty")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidVendor      = errors.New("invalid vendor")
	ErrInvalidBudget      = errors.New("invalid budget")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i, txn := range transactions {
		if err := txn.Validate(); err != nil {
			return fmt.Errorf("%w at index %d: %v", ErrInvalidTransaction, i, err)
		}
	}
	return nil
}

// validateVendor validates a vendor.
func validateVendor(vendor *model.Vendor) error {
	if vendor == nil {
		return fmt.Errorf("%w: vendor", ErrNilParameter)
	}
	if strings.TrimSpace(vendor.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidVendor)
	}
	if strings.TrimSpace(vendor.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidVendor)
	}
	return nil
}

// validateBudget validates a budget.
func validateBudget(budget *model.Budget) error {
	if budget == nil {
		return fmt.Errorf("%w: budget", ErrNilParameter)
	}
	if err := budget.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBudget, err)
	}
	return nil
}
