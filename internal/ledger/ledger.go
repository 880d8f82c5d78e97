// Package ledger owns the merged transaction ledger. It serializes every
// write, persists it, and only then publishes a new immutable snapshot for
// readers.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-ledger/internal/category"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/dedup"
	"github.com/Veraticus/spice-ledger/internal/merge"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

// ErrInvalidEntry is returned when an ingested entry fails validation.
var ErrInvalidEntry = errors.New("invalid ledger entry")

// Ledger is the single owner of ledger state. Reads go through Snapshot and
// never block; writes are serialized so only one ingest or mutation is in
// flight at a time.
type Ledger struct {
	store    service.LedgerStore
	resolver category.Resolver
	logger   *slog.Logger
	snap     atomic.Pointer[Snapshot]
	subs     map[int]chan *Snapshot
	writeMu  sync.Mutex
	subMu    sync.Mutex
	nextSub  int
}

// IngestResult reports what one ingest call did. Superseded counts pending
// entries retired because their posted successor arrived.
type IngestResult struct {
	Accepted          []model.Transaction
	Duplicates        int
	Superseded        int
	ResolverFallbacks int
}

// Open loads the persisted ledger and returns a Ledger serving it.
// resolver may be nil, in which case new entries are left "Unknown".
func Open(ctx context.Context, store service.LedgerStore, resolver category.Resolver, logger *slog.Logger) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	txns, err := store.LoadTransactions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	retired, err := store.LoadRetiredKeys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load retired keys: %w", err)
	}
	keys := dedup.FromTransactions(txns)
	keys.Add(retired...)

	l := &Ledger{
		store:    store,
		resolver: resolver,
		logger:   logger.With("component", "ledger"),
		subs:     make(map[int]chan *Snapshot),
	}
	l.snap.Store(newSnapshot(0, merge.Split(txns), keys))
	l.logger.Debug("ledger loaded", "entries", len(txns), "retired", len(retired))
	return l, nil
}

// Snapshot returns the current ledger view.
func (l *Ledger) Snapshot() *Snapshot {
	return l.snap.Load()
}

// IngestEvents admits parsed SMS events. Events whose issuer-scoped key is
// already known are discarded and counted as duplicates.
func (l *Ledger) IngestEvents(ctx context.Context, events []model.RawEvent) (IngestResult, error) {
	txns := make([]model.Transaction, 0, len(events))
	for _, e := range events {
		txns = append(txns, e.ToTransaction())
	}
	return l.ingest(ctx, model.SourceSMS, txns)
}

// IngestTransactions admits already structured entries from source. Entries
// without a category are resolved before they are stored.
func (l *Ledger) IngestTransactions(ctx context.Context, source model.Source, txns []model.Transaction) (IngestResult, error) {
	if !source.IsValid() {
		return IngestResult{}, fmt.Errorf("%w: unknown source %q", ErrInvalidEntry, source)
	}
	for i := range txns {
		if txns[i].Source != source {
			return IngestResult{}, fmt.Errorf("%w: %s has source %q, want %q", ErrInvalidEntry, txns[i].ID, txns[i].Source, source)
		}
	}
	return l.ingest(ctx, source, txns)
}

func (l *Ledger) ingest(ctx context.Context, source model.Source, txns []model.Transaction) (IngestResult, error) {
	var result IngestResult
	for _, t := range txns {
		if err := t.Validate(); err != nil {
			return result, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
		}
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	cur := l.snap.Load()
	keys := cur.keys.Clone()
	superseded := make(map[string]struct{})
	for _, t := range txns {
		if dedup.AdmitTransaction(t, keys) == dedup.DuplicateRejected {
			result.Duplicates++
			continue
		}
		if t.Supersedes != "" {
			superseded[t.Supersedes] = struct{}{}
			if prev, ok := cur.Get(t.Supersedes); ok && strings.TrimSpace(t.Category) == "" {
				t.Category = prev.Category
			}
			t.Supersedes = ""
		}
		if strings.TrimSpace(t.Category) == "" {
			label, err := category.ResolveOrUnknown(ctx, l.resolver, t.DisplayName())
			if err != nil {
				result.ResolverFallbacks++
				l.logger.Warn("category resolver failed", "id", t.ID, "error", err)
			}
			t.Category = label
		}
		result.Accepted = append(result.Accepted, t)
	}
	// A pending entry delivered in the same batch as its successor is dropped.
	result.Accepted = slices.DeleteFunc(result.Accepted, func(t model.Transaction) bool {
		_, ok := superseded[t.ID]
		return ok
	})
	if len(result.Accepted) == 0 {
		return result, nil
	}

	retired := slices.Sorted(maps.Keys(superseded))
	var err error
	if len(retired) > 0 {
		err = l.store.ReplaceTransactions(ctx, result.Accepted, retired)
	} else {
		err = l.store.SaveTransactions(ctx, result.Accepted)
	}
	if err != nil {
		return IngestResult{}, fmt.Errorf("failed to persist %d %s entries: %w", len(result.Accepted), source, err)
	}
	keys.Add(retired...)
	result.Superseded = len(retired)

	streams := without(cur.streams, superseded)
	l.publish(streams.With(source, slices.Concat(streams.For(source), result.Accepted)), keys)
	l.logger.Debug("ingested", "source", source, "accepted", len(result.Accepted),
		"duplicates", result.Duplicates, "superseded", result.Superseded)
	return result, nil
}

// Recategorize sets the category of one entry.
func (l *Ledger) Recategorize(ctx context.Context, id, newCategory string) (model.Transaction, error) {
	newCategory = strings.TrimSpace(newCategory)
	if newCategory == "" {
		return model.Transaction{}, fmt.Errorf("%w: category is required", ErrInvalidEntry)
	}
	return l.update(ctx, id, func(t *model.Transaction) {
		t.Category = newCategory
	})
}

// CorrectAmount replaces the magnitude of an entry's amount. The entry keeps
// its direction; amount must be non-zero and its sign is ignored.
func (l *Ledger) CorrectAmount(ctx context.Context, id string, amount decimal.Decimal) (model.Transaction, error) {
	if amount.IsZero() {
		return model.Transaction{}, fmt.Errorf("%w: amount cannot be zero", ErrInvalidEntry)
	}
	return l.update(ctx, id, func(t *model.Transaction) {
		if t.IsExpense() {
			t.Amount = amount.Abs().Neg()
		} else {
			t.Amount = amount.Abs()
		}
	})
}

// ClearPending marks an entry as settled.
func (l *Ledger) ClearPending(ctx context.Context, id string) (model.Transaction, error) {
	return l.update(ctx, id, func(t *model.Transaction) {
		t.Pending = false
	})
}

func (l *Ledger) update(ctx context.Context, id string, mutate func(*model.Transaction)) (model.Transaction, error) {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	cur := l.snap.Load()
	t, ok := cur.Get(id)
	if !ok {
		return model.Transaction{}, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	mutate(&t)

	if err := l.store.UpdateTransactions(ctx, []model.Transaction{t}); err != nil {
		return model.Transaction{}, fmt.Errorf("failed to update transaction %s: %w", id, err)
	}
	l.publish(replace(cur.streams, map[string]model.Transaction{t.ID: t}), cur.keys)
	return t, nil
}

// BulkReassign moves every entry whose description or merchant matches match
// (after normalization) to newCategory, and teaches the resolver the mapping
// so future entries resolve the same way. All matching entries are persisted
// in one storage transaction and become visible to readers together.
func (l *Ledger) BulkReassign(ctx context.Context, match, newCategory string) (int, error) {
	key := category.Normalize(match)
	newCategory = strings.TrimSpace(newCategory)
	if key == "" || newCategory == "" {
		return 0, fmt.Errorf("%w: match and category are required", ErrInvalidEntry)
	}

	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	cur := l.snap.Load()
	changed := make(map[string]model.Transaction)
	var updates []model.Transaction
	for _, t := range cur.entries {
		if category.Normalize(t.Description) != key && category.Normalize(t.Merchant) != key {
			continue
		}
		if t.Category == newCategory {
			continue
		}
		t.Category = newCategory
		changed[t.ID] = t
		updates = append(updates, t)
	}

	if len(updates) > 0 {
		if err := l.store.UpdateTransactions(ctx, updates); err != nil {
			return 0, fmt.Errorf("failed to reassign %q: %w", match, err)
		}
		l.publish(replace(cur.streams, changed), cur.keys)
	}

	if l.resolver != nil {
		if err := l.resolver.Learn(ctx, match, newCategory); err != nil {
			l.logger.Warn("failed to record category mapping", "match", key, "category", newCategory, "error", err)
		}
	}
	return len(updates), nil
}

// Delete removes an entry. Its key stays retired, so re-scanning the same
// messages or statements does not bring it back.
func (l *Ledger) Delete(ctx context.Context, id string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()

	cur := l.snap.Load()
	if _, ok := cur.Get(id); !ok {
		return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err := l.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("failed to delete transaction %s: %w", id, err)
	}
	l.publish(without(cur.streams, map[string]struct{}{id: {}}), cur.keys)
	return nil
}

// publish must be called with writeMu held.
func (l *Ledger) publish(streams merge.Streams, keys *dedup.KeySet) {
	next := newSnapshot(l.snap.Load().Version+1, streams, keys)
	l.snap.Store(next)
	l.notify(next)
}

// without returns streams minus the entries whose id is in ids.
func without(streams merge.Streams, ids map[string]struct{}) merge.Streams {
	if len(ids) == 0 {
		return streams
	}
	for _, source := range model.Sources {
		stream := streams.For(source)
		if !slices.ContainsFunc(stream, func(t model.Transaction) bool { _, ok := ids[t.ID]; return ok }) {
			continue
		}
		kept := slices.DeleteFunc(slices.Clone(stream), func(t model.Transaction) bool {
			_, ok := ids[t.ID]
			return ok
		})
		streams = streams.With(source, kept)
	}
	return streams
}

func replace(streams merge.Streams, changed map[string]model.Transaction) merge.Streams {
	for _, source := range model.Sources {
		stream := streams.For(source)
		var copied []model.Transaction
		for i, t := range stream {
			nt, ok := changed[t.ID]
			if !ok {
				continue
			}
			if copied == nil {
				copied = slices.Clone(stream)
			}
			copied[i] = nt
		}
		if copied != nil {
			streams = streams.With(source, copied)
		}
	}
	return streams
}
