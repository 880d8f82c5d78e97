// Package ingest pulls entries from every source and feeds them through
// parsing and deduplication into the ledger.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ledger"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/ocr"
	"github.com/Veraticus/spice-ledger/internal/plaid"
	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/Veraticus/spice-ledger/internal/sms"
)

// Config tunes the ingestion service.
type Config struct {
	Location *time.Location
	// Overlap is how far before the stored watermark an inbox re-scan starts.
	Overlap time.Duration
	// LinkedLookback bounds the first linked-account fetch and how far
	// before the watermark later fetches start, so late-posting entries are
	// picked up.
	LinkedLookback time.Duration
	// LinkedRate limits linked-account fetches; zero means no limit.
	LinkedRate  rate.Limit
	LinkedBurst int
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig(loc *time.Location) Config {
	return Config{
		Location:       loc,
		Overlap:        24 * time.Hour,
		LinkedLookback: 30 * 24 * time.Hour,
		LinkedRate:     rate.Every(10 * time.Second),
		LinkedBurst:    1,
	}
}

// ProgressFunc is told how many inputs of a scan have been processed.
type ProgressFunc func(done, total int)

// Service runs ingestion for all sources against one ledger.
type Service struct {
	ledger  *ledger.Ledger
	parser  *sms.Parser
	scans   service.ScanStore
	limiter *rate.Limiter
	logger  *slog.Logger
	now     func() time.Time
	cfg     Config
}

// New creates an ingestion service.
func New(l *ledger.Ledger, parser *sms.Parser, scans service.ScanStore, cfg Config, logger *slog.Logger) *Service {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if logger == nil {
		logger = slog.Default()
	}
	limit, burst := cfg.LinkedRate, cfg.LinkedBurst
	if limit == 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}
	return &Service{
		ledger:  l,
		parser:  parser,
		scans:   scans,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With("component", "ingest"),
		now:     time.Now,
		cfg:     cfg,
	}
}

// ParseMessages runs every message through the parser and tallies the
// rejections on summary. It has no side effects beyond summary.
func (s *Service) ParseMessages(msgs []sms.Message, summary *model.ScanSummary, progress ProgressFunc) []model.RawEvent {
	events := make([]model.RawEvent, 0, len(msgs))
	for i, msg := range msgs {
		event, err := s.parser.Parse(msg.Address, msg.Body, msg.Date)
		if progress != nil {
			progress(i+1, len(msgs))
		}
		if err == nil {
			events = append(events, event)
			continue
		}

		switch sms.ReasonOf(err) {
		case sms.ReasonUnknownIssuer:
			summary.UnknownIssuer++
		case sms.ReasonAmbiguousDirection:
			summary.Ambiguous++
			s.logger.Debug("ambiguous message dropped", "issuer", sms.IssuerOf(err))
		default:
			summary.Malformed++
			summary.MalformedByIssuer[sms.IssuerOf(err)]++
			s.logger.Debug("malformed message dropped", "issuer", sms.IssuerOf(err), "error", err)
		}
	}
	return events
}

// ScanInbox reads the inbox from the stored watermark less the overlap,
// admits every parseable new event and records the run. Messages already in
// the ledger are counted as duplicates.
func (s *Service) ScanInbox(ctx context.Context, inbox sms.Inbox, progress ProgressFunc) (*model.ScanSummary, error) {
	summary := model.NewScanSummary(uuid.NewString(), model.SourceSMS, s.now())

	watermark, err := s.scans.GetWatermark(ctx, model.SourceSMS)
	if err != nil {
		return nil, fmt.Errorf("failed to read sms watermark: %w", err)
	}
	since := time.Time{}
	if !watermark.IsZero() {
		since = watermark.Add(-s.cfg.Overlap)
	}

	msgs, err := inbox.Messages(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("failed to read inbox: %w", err)
	}
	s.logger.Info("scanning inbox", "scan_id", summary.ID, "since", since, "messages", len(msgs))

	if err := s.admitMessages(ctx, msgs, summary, progress); err != nil {
		return nil, err
	}

	newest := watermark
	for _, msg := range msgs {
		if msg.Date.After(newest) {
			newest = msg.Date
		}
	}
	if newest.After(watermark) {
		if err := s.scans.SetWatermark(ctx, model.SourceSMS, newest); err != nil {
			return nil, fmt.Errorf("failed to advance sms watermark: %w", err)
		}
	}

	return summary, s.finish(ctx, summary)
}

// IngestMessages parses and admits messages pushed by a client. Unlike
// ScanInbox it neither reads nor moves the inbox watermark.
func (s *Service) IngestMessages(ctx context.Context, msgs []sms.Message) (*model.ScanSummary, error) {
	summary := model.NewScanSummary(uuid.NewString(), model.SourceSMS, s.now())
	if err := s.admitMessages(ctx, msgs, summary, nil); err != nil {
		return nil, err
	}
	return summary, s.finish(ctx, summary)
}

func (s *Service) admitMessages(ctx context.Context, msgs []sms.Message, summary *model.ScanSummary, progress ProgressFunc) error {
	events := s.ParseMessages(msgs, summary, progress)
	result, err := s.ledger.IngestEvents(ctx, events)
	if err != nil {
		return fmt.Errorf("failed to ingest sms events: %w", err)
	}
	summary.Accepted = len(result.Accepted)
	summary.Duplicates = result.Duplicates
	summary.ResolverFallbacks = result.ResolverFallbacks
	return nil
}

// AddReceipt normalizes one OCR result and admits it. Re-submitting the same
// receipt is reported as a duplicate, not an error.
func (s *Service) AddReceipt(ctx context.Context, receipt ocr.Receipt) (*model.ScanSummary, model.Transaction, error) {
	summary := model.NewScanSummary(uuid.NewString(), model.SourceOCR, s.now())

	tx, err := ocr.Normalize(receipt, s.cfg.Location)
	if err != nil {
		return nil, model.Transaction{}, common.NewUserError("receipt could not be read", err)
	}

	result, err := s.ledger.IngestTransactions(ctx, model.SourceOCR, []model.Transaction{tx})
	if err != nil {
		return nil, model.Transaction{}, err
	}
	summary.Accepted = len(result.Accepted)
	summary.Duplicates = result.Duplicates
	summary.ResolverFallbacks = result.ResolverFallbacks
	if len(result.Accepted) == 1 {
		tx = result.Accepted[0]
	}
	return summary, tx, s.finish(ctx, summary)
}

// ManualEntry is a user-entered record. Amount is the positive magnitude;
// Direction decides the sign.
type ManualEntry struct {
	Date        time.Time
	Amount      decimal.Decimal
	Description string
	Category    string
	Direction   model.Direction
	Pending     bool
}

// Validate checks the entry before it becomes a ledger entry.
func (e ManualEntry) Validate() error {
	if !e.Amount.IsPositive() {
		return fmt.Errorf("amount must be positive")
	}
	if e.Direction != model.DirectionCredit && e.Direction != model.DirectionDebit {
		return fmt.Errorf("direction must be %q or %q", model.DirectionCredit, model.DirectionDebit)
	}
	if strings.TrimSpace(e.Description) == "" {
		return fmt.Errorf("description is required")
	}
	return nil
}

// AddManual records a manual entry. Its id is taken from the creation time;
// an empty category is resolved like any other new entry.
func (s *Service) AddManual(ctx context.Context, entry ManualEntry) (model.Transaction, error) {
	if err := entry.Validate(); err != nil {
		return model.Transaction{}, common.NewUserError("invalid manual entry", err)
	}

	created := s.now()
	date := entry.Date
	if date.IsZero() {
		date = created
	}
	amount := entry.Amount
	if entry.Direction == model.DirectionDebit {
		amount = amount.Neg()
	}
	description := common.SanitizeText(entry.Description)

	tx := model.Transaction{
		ID:          model.ManualID(created),
		Date:        date.In(s.cfg.Location),
		Amount:      amount,
		Description: description,
		Merchant:    description,
		Category:    strings.TrimSpace(entry.Category),
		Source:      model.SourceManual,
		Pending:     entry.Pending,
	}

	result, err := s.ledger.IngestTransactions(ctx, model.SourceManual, []model.Transaction{tx})
	if err != nil {
		return model.Transaction{}, err
	}
	if len(result.Accepted) == 0 {
		return model.Transaction{}, fmt.Errorf("manual entry %s: %w", tx.ID, common.ErrDuplicateEntry)
	}
	return result.Accepted[0], nil
}

// SyncLinked fetches linked-account entries from the watermark less the
// lookback up to now and admits the new ones. Fetches are rate limited.
func (s *Service) SyncLinked(ctx context.Context, fetcher plaid.TransactionFetcher) (*model.ScanSummary, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrLinkedFetch, err)
	}

	end := s.now()
	watermark, err := s.scans.GetWatermark(ctx, model.SourceLinked)
	if err != nil {
		return nil, fmt.Errorf("failed to read linked watermark: %w", err)
	}
	start := end.Add(-s.cfg.LinkedLookback)
	if !watermark.IsZero() && watermark.Before(end) {
		start = watermark.Add(-s.cfg.LinkedLookback)
	}

	txns, err := fetcher.GetTransactions(ctx, start, end)
	if err != nil {
		return nil, err
	}
	summary, err := s.ImportLinked(ctx, txns)
	if err != nil {
		return nil, err
	}
	if err := s.scans.SetWatermark(ctx, model.SourceLinked, end); err != nil {
		return nil, fmt.Errorf("failed to advance linked watermark: %w", err)
	}
	return summary, nil
}

// ImportLinked admits already fetched linked-account entries, such as the
// contents of an OFX statement.
func (s *Service) ImportLinked(ctx context.Context, txns []model.Transaction) (*model.ScanSummary, error) {
	summary := model.NewScanSummary(uuid.NewString(), model.SourceLinked, s.now())

	valid := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if err := t.Validate(); err != nil {
			summary.Malformed++
			s.logger.Warn("skipping linked entry", "id", t.ID, "error", err)
			continue
		}
		valid = append(valid, t)
	}

	result, err := s.ledger.IngestTransactions(ctx, model.SourceLinked, valid)
	if err != nil {
		return nil, err
	}
	summary.Accepted = len(result.Accepted)
	summary.Duplicates = result.Duplicates
	summary.ResolverFallbacks = result.ResolverFallbacks
	if result.Superseded > 0 {
		s.logger.Info("settled pending linked entries", "scan_id", summary.ID, "count", result.Superseded)
	}
	return summary, s.finish(ctx, summary)
}

func (s *Service) finish(ctx context.Context, summary *model.ScanSummary) error {
	summary.FinishedAt = s.now()
	if err := s.scans.SaveScanRun(ctx, summary); err != nil {
		// Entries are already committed; only the run record is lost.
		s.logger.Warn("failed to record scan run", "scan_id", summary.ID, "error", err)
		if errors.Is(err, context.Canceled) {
			return err
		}
	}
	s.logger.Info("ingest finished", "scan_id", summary.ID, "source", summary.Source, "summary", summary.String())
	return nil
}
