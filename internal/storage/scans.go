package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// GetWatermark returns the latest processed timestamp for source, or the
// zero time when the source was never scanned.
func (s *SQLiteStorage) GetWatermark(ctx context.Context, source model.Source) (time.Time, error) {
	if err := validateContext(ctx); err != nil {
		return time.Time{}, err
	}

	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT watermark FROM watermarks WHERE source = ?`, string(source)).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get watermark: %w", err)
	}
	return decodeTime(raw)
}

// SetWatermark records the latest processed timestamp for source.
func (s *SQLiteStorage) SetWatermark(ctx context.Context, source model.Source, at time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(string(source), "source"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watermarks (source, watermark, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(source) DO UPDATE SET
			watermark = excluded.watermark,
			updated_at = CURRENT_TIMESTAMP
	`, string(source), encodeTime(at))
	if err != nil {
		return fmt.Errorf("failed to set watermark: %w", err)
	}
	return nil
}

// SaveScanRun records a scan summary and folds its per-issuer malformed
// counts into the parse diagnostics, atomically.
func (s *SQLiteStorage) SaveScanRun(ctx context.Context, summary *model.ScanSummary) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if summary == nil {
		return fmt.Errorf("%w: scan summary", ErrNilParameter)
	}
	if err := validateString(summary.ID, "summary.ID"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scan_runs (
				id, source, started_at, finished_at, accepted, duplicates,
				unknown_issuer, malformed, ambiguous, resolver_fallbacks
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, summary.ID, string(summary.Source), encodeTime(summary.StartedAt), encodeTime(summary.FinishedAt),
			summary.Accepted, summary.Duplicates, summary.UnknownIssuer, summary.Malformed,
			summary.Ambiguous, summary.ResolverFallbacks)
		if err != nil {
			return fmt.Errorf("failed to save scan run: %w", err)
		}

		lastSeen := encodeTime(summary.FinishedAt)
		for issuer, n := range summary.MalformedByIssuer {
			if n == 0 {
				continue
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO parse_diagnostics (issuer, malformed, last_seen)
				VALUES (?, ?, ?)
				ON CONFLICT(issuer) DO UPDATE SET
					malformed = malformed + excluded.malformed,
					last_seen = excluded.last_seen
			`, issuer, n, lastSeen)
			if err != nil {
				return fmt.Errorf("failed to update diagnostics for %s: %w", issuer, err)
			}
		}
		return nil
	})
}

// GetScanRuns returns the most recent scan summaries, newest first.
// Per-issuer counts are not stored per run; see GetParseDiagnostics.
func (s *SQLiteStorage) GetScanRuns(ctx context.Context, limit int) ([]model.ScanSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, started_at, finished_at, accepted, duplicates,
			unknown_issuer, malformed, ambiguous, resolver_fallbacks
		FROM scan_runs
		ORDER BY started_at DESC, id
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.ScanSummary
	for rows.Next() {
		var (
			run                 model.ScanSummary
			source              string
			startedAt, finished string
		)
		if err := rows.Scan(&run.ID, &source, &startedAt, &finished, &run.Accepted, &run.Duplicates,
			&run.UnknownIssuer, &run.Malformed, &run.Ambiguous, &run.ResolverFallbacks); err != nil {
			return nil, fmt.Errorf("failed to scan scan run: %w", err)
		}
		run.Source = model.Source(source)
		if run.StartedAt, err = decodeTime(startedAt); err != nil {
			return nil, err
		}
		if run.FinishedAt, err = decodeTime(finished); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetParseDiagnostics returns the cumulative malformed-message count per issuer.
func (s *SQLiteStorage) GetParseDiagnostics(ctx context.Context) (map[string]int, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT issuer, malformed FROM parse_diagnostics ORDER BY issuer`)
	if err != nil {
		return nil, fmt.Errorf("failed to query diagnostics: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]int)
	for rows.Next() {
		var (
			issuer string
			n      int
		)
		if err := rows.Scan(&issuer, &n); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostics: %w", err)
		}
		out[issuer] = n
	}
	return out, rows.Err()
}
