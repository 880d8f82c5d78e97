package ingest

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/plaid"
	"github.com/Veraticus/spice-ledger/internal/sms"
)

// Sources names the pull sources a refresh should run. Nil sources are skipped.
type Sources struct {
	Inbox  sms.Inbox
	Linked plaid.TransactionFetcher
}

// SourceResult is the outcome of one source in a refresh.
type SourceResult struct {
	Summary *model.ScanSummary
	Err     error
	Source  model.Source
}

// Refresh runs every configured source concurrently. Each source commits to
// the ledger as soon as it completes, in whatever order they finish, and a
// failing source does not stop the others. Results are returned in source
// order.
func (s *Service) Refresh(ctx context.Context, sources Sources, progress ProgressFunc) []SourceResult {
	var (
		g       errgroup.Group
		mu      sync.Mutex
		results = make(map[model.Source]SourceResult)
	)
	record := func(source model.Source, summary *model.ScanSummary, err error) {
		if err != nil {
			s.logger.Error("source refresh failed", "source", source, "error", err)
		}
		mu.Lock()
		results[source] = SourceResult{Source: source, Summary: summary, Err: err}
		mu.Unlock()
	}

	if sources.Inbox != nil {
		g.Go(func() error {
			summary, err := s.ScanInbox(ctx, sources.Inbox, progress)
			record(model.SourceSMS, summary, err)
			return nil
		})
	}
	if sources.Linked != nil {
		g.Go(func() error {
			summary, err := s.SyncLinked(ctx, sources.Linked)
			record(model.SourceLinked, summary, err)
			return nil
		})
	}
	_ = g.Wait()

	out := make([]SourceResult, 0, len(results))
	for _, source := range model.Sources {
		if r, ok := results[source]; ok {
			out = append(out, r)
		}
	}
	return out
}
