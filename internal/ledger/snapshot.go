package ledger

import (
	"github.com/Veraticus/spice-ledger/internal/dedup"
	"github.com/Veraticus/spice-ledger/internal/merge"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// Snapshot is an immutable view of the ledger at one version. Readers may
// hold on to a snapshot for as long as they like; writers never modify one
// after it is published.
type Snapshot struct {
	keys    *dedup.KeySet
	index   map[string]int
	streams merge.Streams
	entries []model.Transaction
	Version uint64
}

func newSnapshot(version uint64, streams merge.Streams, keys *dedup.KeySet) *Snapshot {
	entries := merge.Merge(streams)
	index := make(map[string]int, len(entries))
	for i, t := range entries {
		index[t.ID] = i
	}
	return &Snapshot{
		Version: version,
		streams: streams,
		entries: entries,
		index:   index,
		keys:    keys,
	}
}

// Transactions returns the merged ledger, newest first. The returned slice is
// a copy.
func (s *Snapshot) Transactions() []model.Transaction {
	out := make([]model.Transaction, len(s.entries))
	copy(out, s.entries)
	return out
}

// Source returns the merged ledger restricted to one source.
func (s *Snapshot) Source(source model.Source) []model.Transaction {
	return merge.Filter(s.entries, source)
}

// Get looks up an entry by id.
func (s *Snapshot) Get(id string) (model.Transaction, bool) {
	i, ok := s.index[id]
	if !ok {
		return model.Transaction{}, false
	}
	return s.entries[i], true
}

// Contains reports whether key has been admitted.
func (s *Snapshot) Contains(key string) bool {
	return s.keys.Contains(key)
}

// Len returns the number of entries.
func (s *Snapshot) Len() int {
	return len(s.entries)
}
