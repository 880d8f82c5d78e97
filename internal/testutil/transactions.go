package testutil

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// TxBuilder builds ledger entries with unique ids for tests. Amounts are
// given as positive literals; Expense and Income apply the sign.
type TxBuilder struct {
	source model.Source
	txns   []model.Transaction
}

// NewTxBuilder returns a builder producing manual entries.
func NewTxBuilder() *TxBuilder {
	return &TxBuilder{source: model.SourceManual}
}

// From switches the source of subsequently added entries.
func (b *TxBuilder) From(source model.Source) *TxBuilder {
	b.source = source
	return b
}

// Expense adds a debit of amount in category.
func (b *TxBuilder) Expense(category, amount string, date time.Time) *TxBuilder {
	return b.add(category, decimal.RequireFromString(amount).Neg(), date)
}

// Income adds a credit of amount in category.
func (b *TxBuilder) Income(category, amount string, date time.Time) *TxBuilder {
	return b.add(category, decimal.RequireFromString(amount), date)
}

// Merchant sets the merchant and description of the last added entry.
func (b *TxBuilder) Merchant(name string) *TxBuilder {
	if n := len(b.txns); n > 0 {
		b.txns[n-1].Merchant = name
		b.txns[n-1].Description = name
	}
	return b
}

// Pending marks the last added entry as pending.
func (b *TxBuilder) Pending() *TxBuilder {
	if n := len(b.txns); n > 0 {
		b.txns[n-1].Pending = true
	}
	return b
}

// Build returns a copy of the entries added so far.
func (b *TxBuilder) Build() []model.Transaction {
	return append([]model.Transaction(nil), b.txns...)
}

func (b *TxBuilder) add(category string, amount decimal.Decimal, date time.Time) *TxBuilder {
	n := len(b.txns) + 1
	b.txns = append(b.txns, model.Transaction{
		ID:          fmt.Sprintf("%s-test-%03d", b.source, n),
		Date:        date,
		Amount:      amount,
		Description: fmt.Sprintf("%s entry %d", category, n),
		Merchant:    fmt.Sprintf("%s entry %d", category, n),
		Category:    category,
		Source:      b.source,
	})
	return b
}
