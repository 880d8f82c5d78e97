package dedup

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/spice-ledger/internal/model"
)

func event(issuer, ref string) model.RawEvent {
	return model.RawEvent{
		Issuer:       issuer,
		ReferenceID:  ref,
		Direction:    model.DirectionDebit,
		Amount:       decimal.NewFromInt(100),
		Counterparty: "SHOP",
		OccurredAt:   time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestAdmit_DuplicateRejected(t *testing.T) {
	known := NewKeySet()

	assert.Equal(t, Accepted, Admit(event("SBI", "123"), known))
	assert.Equal(t, DuplicateRejected, Admit(event("SBI", "123"), known))
	assert.Equal(t, 1, known.Len())
}

func TestAdmit_ReferenceCollisionAcrossIssuers(t *testing.T) {
	known := NewKeySet()

	assert.Equal(t, Accepted, Admit(event("SBI", "123"), known))
	assert.Equal(t, Accepted, Admit(event("HDFC", "123"), known))
	assert.Equal(t, 2, known.Len())
}

func TestFromTransactions_SeedsKnownKeys(t *testing.T) {
	existing := event("SBI", "777").ToTransaction()
	known := FromTransactions([]model.Transaction{existing})

	assert.Equal(t, DuplicateRejected, Admit(event("SBI", "777"), known))
	assert.Equal(t, DuplicateRejected, AdmitTransaction(existing, known))
}

func TestClone_IsIndependent(t *testing.T) {
	base := NewKeySet("manual-1")
	staged := base.Clone()

	assert.Equal(t, Accepted, AdmitKey("manual-2", staged))
	assert.False(t, base.Contains("manual-2"))
	assert.True(t, staged.Contains("manual-1"))

	staged.Add("manual-3")
	assert.False(t, base.Contains("manual-3"))
}

func TestAdd_RetiredKeysRejectReadmission(t *testing.T) {
	known := NewKeySet()
	known.Add("sms-SBI-123", "linked-pending-1")

	assert.Equal(t, DuplicateRejected, Admit(event("SBI", "123"), known))
	assert.Equal(t, DuplicateRejected, AdmitKey("linked-pending-1", known))
	assert.Equal(t, 2, known.Len())
}

func TestOutcome_String(t *testing.T) {
	assert.Equal(t, "accepted", Accepted.String())
	assert.Equal(t, "duplicate", DuplicateRejected.String())
}
