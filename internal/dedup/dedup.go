// Package dedup decides whether an incoming event is already represented in
// the ledger.
package dedup

import (
	"github.com/Veraticus/spice-ledger/internal/model"
)

// Outcome is the result of an admission attempt.
type Outcome int

// Admission outcomes.
const (
	Accepted Outcome = iota
	DuplicateRejected
)

func (o Outcome) String() string {
	if o == Accepted {
		return "accepted"
	}
	return "duplicate"
}

// KeySet is the set of ledger keys already admitted. Keys are ledger ids; an
// SMS event's key is its issuer-scoped natural key rendered as an id.
//
// A KeySet is not safe for concurrent use. The ledger owns one and only
// mutates a clone while an ingest is in flight, publishing it together with
// the new entries.
type KeySet struct {
	keys map[string]struct{}
}

// NewKeySet builds a set holding keys.
func NewKeySet(keys ...string) *KeySet {
	s := &KeySet{keys: make(map[string]struct{}, len(keys))}
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
	return s
}

// FromTransactions builds the key set of an existing ledger.
func FromTransactions(txns []model.Transaction) *KeySet {
	s := &KeySet{keys: make(map[string]struct{}, len(txns))}
	for _, t := range txns {
		s.keys[t.ID] = struct{}{}
	}
	return s
}

// Contains reports whether key was admitted.
func (s *KeySet) Contains(key string) bool {
	_, ok := s.keys[key]
	return ok
}

// Add records keys as known without admitting an entry for them. Retired
// ids of deleted or superseded entries are added this way.
func (s *KeySet) Add(keys ...string) {
	for _, k := range keys {
		s.keys[k] = struct{}{}
	}
}

// Len returns the number of keys.
func (s *KeySet) Len() int {
	return len(s.keys)
}

// Clone returns an independent copy.
func (s *KeySet) Clone() *KeySet {
	c := &KeySet{keys: make(map[string]struct{}, len(s.keys))}
	for k := range s.keys {
		c.keys[k] = struct{}{}
	}
	return c
}

// Key returns the dedup key of a parsed event.
func Key(e model.RawEvent) string {
	return model.SMSID(e.Issuer, e.ReferenceID)
}

// Admit accepts event when its key is unseen, adding the key to known.
func Admit(event model.RawEvent, known *KeySet) Outcome {
	return AdmitKey(Key(event), known)
}

// AdmitTransaction is Admit for sources that arrive as ledger entries.
func AdmitTransaction(txn model.Transaction, known *KeySet) Outcome {
	return AdmitKey(txn.ID, known)
}

// AdmitKey accepts key when unseen, adding it to known.
func AdmitKey(key string, known *KeySet) Outcome {
	if known.Contains(key) {
		return DuplicateRejected
	}
	known.keys[key] = struct{}{}
	return Accepted
}
