// Package model defines the core domain models used throughout the application.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the money flow of a parsed event.
type Direction string

// Direction constants.
const (
	DirectionCredit Direction = "credit"
	DirectionDebit  Direction = "debit"
)

// RawEvent is one parsed bank message before it is merged into the ledger.
// It is never persisted on its own.
type RawEvent struct {
	OccurredAt   time.Time
	Amount       decimal.Decimal // always positive
	Issuer       string
	Counterparty string
	ReferenceID  string
	Direction    Direction
}

// NaturalKey identifies the underlying bank transaction, scoped to its issuer.
func (e RawEvent) NaturalKey() string {
	return e.Issuer + ":" + e.ReferenceID
}

// SignedAmount applies the ledger sign convention to the event amount.
func (e RawEvent) SignedAmount() decimal.Decimal {
	if e.Direction == DirectionDebit {
		return e.Amount.Neg()
	}
	return e.Amount
}

// ToTransaction converts the event into an SMS-sourced ledger entry.
// The category is left empty so the resolver can assign one.
func (e RawEvent) ToTransaction() Transaction {
	return Transaction{
		ID:          SMSID(e.Issuer, e.ReferenceID),
		Date:        e.OccurredAt,
		Amount:      e.SignedAmount(),
		Description: e.Counterparty,
		Merchant:    e.Counterparty,
		Source:      SourceSMS,
	}
}
