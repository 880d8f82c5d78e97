package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Source identifies where a ledger entry came from.
type Source string

// Transaction sources.
const (
	SourceManual Source = "manual"
	SourceOCR    Source = "ocr"
	SourceSMS    Source = "sms"
	SourceLinked Source = "linked"
)

// Sources lists every source in canonical merge order.
var Sources = []Source{SourceManual, SourceOCR, SourceSMS, SourceLinked}

// IsValid reports whether s is one of the known sources.
func (s Source) IsValid() bool {
	switch s {
	case SourceManual, SourceOCR, SourceSMS, SourceLinked:
		return true
	}
	return false
}

// ParseSource converts a string into a Source.
func ParseSource(s string) (Source, error) {
	src := Source(s)
	if !src.IsValid() {
		return "", fmt.Errorf("unknown transaction source %q", s)
	}
	return src, nil
}

// UnknownCategory is the sentinel category for entries nothing could classify.
const UnknownCategory = "Unknown"

// Transaction is a single ledger entry.
//
// Amount is signed: expenses are negative and income is positive. Direction is
// derived from the sign and never stored separately.
type Transaction struct {
	Date        time.Time
	Amount      decimal.Decimal
	ID          string
	Description string
	Merchant    string
	Category    string
	Source      Source
	// Supersedes is the id of the pending entry this one settles. It is only
	// meaningful at ingest and is not stored.
	Supersedes string
	Pending    bool
}

// Direction derives the money flow from the amount sign.
func (t Transaction) Direction() Direction {
	if t.Amount.IsNegative() {
		return DirectionDebit
	}
	return DirectionCredit
}

// IsExpense reports whether the entry takes money out.
func (t Transaction) IsExpense() bool {
	return t.Amount.IsNegative()
}

// IsIncome reports whether the entry brings money in.
func (t Transaction) IsIncome() bool {
	return t.Amount.IsPositive()
}

// DisplayName returns the merchant when known, otherwise the description.
func (t Transaction) DisplayName() string {
	if t.Merchant != "" {
		return t.Merchant
	}
	return t.Description
}

// Validate checks the fields every ledger entry must carry.
func (t Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("transaction id is required")
	}
	if !t.Source.IsValid() {
		return fmt.Errorf("transaction %s: invalid source %q", t.ID, t.Source)
	}
	if t.Date.IsZero() {
		return fmt.Errorf("transaction %s: missing date", t.ID)
	}
	if t.Amount.IsZero() {
		return fmt.Errorf("transaction %s: amount cannot be zero", t.ID)
	}
	if t.Supersedes == t.ID {
		return fmt.Errorf("transaction %s: cannot supersede itself", t.ID)
	}
	return nil
}

// ManualID builds the identifier of a manually entered transaction.
func ManualID(at time.Time) string {
	return "manual-" + strconv.FormatInt(at.UnixMilli(), 10)
}

// SMSID builds the identifier of an SMS-derived transaction from its natural key.
func SMSID(issuer, referenceID string) string {
	return "sms-" + issuer + "-" + referenceID
}

// LinkedID builds the identifier of a linked-account transaction.
func LinkedID(providerID string) string {
	return "linked-" + providerID
}
