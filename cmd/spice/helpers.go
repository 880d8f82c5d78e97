package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ingest"
	"github.com/Veraticus/spice-ledger/internal/model"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// parseDay parses a YYYY-MM-DD flag value in loc.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(dayLayout, s, loc)
	if err != nil {
		return time.Time{}, common.NewUserError(fmt.Sprintf("invalid date %q, want YYYY-MM-DD", s), err)
	}
	return t, nil
}

// endOfDay returns the last instant of the day containing t.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location()).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// parseMonth validates a YYYY-MM month key.
func parseMonth(s string) (string, error) {
	if _, err := time.Parse(monthLayout, s); err != nil {
		return "", common.NewUserError(fmt.Sprintf("invalid month %q, want YYYY-MM", s), err)
	}
	return s, nil
}

// expandGlobs resolves shell-style patterns into a sorted, de-duplicated file list.
func expandGlobs(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, common.NewUserError(fmt.Sprintf("invalid pattern %q", pattern), err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				files = append(files, m)
			}
		}
	}
	if len(files) == 0 {
		return nil, common.NewUserError("no files matched", errors.New("nothing to import"))
	}
	sort.Strings(files)
	return files, nil
}

// filterMonth keeps the entries whose month key is month.
func filterMonth(txns []model.Transaction, month string, loc *time.Location) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns))
	for _, t := range txns {
		if t.Date.In(loc).Format(monthLayout) == month {
			out = append(out, t)
		}
	}
	return out
}

// printResults renders every source result and joins the failures.
func printResults(cmd *cobra.Command, results []ingest.SourceResult) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			cmd.PrintErrln(cli.FormatError(fmt.Sprintf("%s: %v", r.Source, r.Err)))
			errs = append(errs, fmt.Errorf("%s: %w", r.Source, r.Err))
			continue
		}
		cmd.Println(cli.RenderScanSummary(r.Summary))
	}
	return errors.Join(errs...)
}
