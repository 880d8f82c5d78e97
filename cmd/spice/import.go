package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/ofx"
	"github.com/Veraticus/spice-ledger/internal/plaid"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import linked-account entries",
		Long:  `Import entries from linked bank accounts, either through Plaid or from OFX/QFX statements.`,
	}

	cmd.AddCommand(importPlaidCmd())
	cmd.AddCommand(importOFXCmd())

	return cmd
}

func importPlaidCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plaid",
		Short: "Import a date range from Plaid",
		Long: `Fetch entries for a date range from Plaid and admit the new ones.

Unlike scan --linked this ignores the linked watermark, which makes it
suitable for back-filling older history.`,
		RunE: runImportPlaid,
	}

	cmd.Flags().String("start", "", "First day to fetch, YYYY-MM-DD (default: 30 days ago)")
	cmd.Flags().String("end", "", "Last day to fetch, YYYY-MM-DD (default: today)")
	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")

	return cmd
}

func runImportPlaid(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	end := time.Now().In(a.cfg.Location)
	start := end.AddDate(0, 0, -30)
	if s, _ := cmd.Flags().GetString("start"); s != "" {
		if start, err = parseDay(s, a.cfg.Location); err != nil {
			return err
		}
	}
	if s, _ := cmd.Flags().GetString("end"); s != "" {
		if end, err = parseDay(s, a.cfg.Location); err != nil {
			return err
		}
	}
	if end.Before(start) {
		return common.NewUserError("invalid range", fmt.Errorf("end %s is before start %s", end.Format(dayLayout), start.Format(dayLayout)))
	}

	client, err := plaid.NewClient(a.cfg.Plaid, a.cfg.Location, a.logger)
	if err != nil {
		return common.NewUserError("plaid is not configured", err)
	}

	slog.Info("🌶️  Fetching from Plaid...", "start", start.Format(dayLayout), "end", end.Format(dayLayout))
	txns, err := client.GetTransactions(ctx, start, endOfDay(end))
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	return admitLinked(cmd, a, txns, dryRun)
}

func importOFXCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ofx [files...]",
		Short: "Import entries from OFX/QFX files",
		Long: `Import entries from OFX or QFX (Quicken) statements exported from your bank.

Re-importing an overlapping statement is safe: entries already in the
ledger are skipped.`,
		Example: `  # Import single file
  spice import ofx ~/Downloads/hdfc_mar_2024.qfx

  # Import every statement in a directory
  spice import ofx ~/Downloads/*.qfx`,
		Args: cobra.MinimumNArgs(1),
		RunE: runImportOFX,
	}

	cmd.Flags().BoolP("dry-run", "d", false, "Preview import without saving")

	return cmd
}

func runImportOFX(cmd *cobra.Command, args []string) error {
	files, err := expandGlobs(args)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	parser := ofx.NewParser(a.logger)
	var all []model.Transaction
	for _, path := range files {
		txns, err := parseOFXFile(cmd, parser, path)
		if err != nil {
			slog.Error("Failed to parse OFX file", "file", path, "error", err)
			continue
		}
		slog.Info("Processed file", "file", filepath.Base(path), "transactions_found", len(txns))
		all = append(all, txns...)
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	return admitLinked(cmd, a, all, dryRun)
}

func parseOFXFile(cmd *cobra.Command, parser *ofx.Parser, path string) ([]model.Transaction, error) {
	f, err := os.Open(path) //nolint:gosec // user-specified file
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return parser.ParseFile(cmd.Context(), f)
}

// admitLinked previews or imports fetched linked-account entries.
func admitLinked(cmd *cobra.Command, a *app, txns []model.Transaction, dryRun bool) error {
	if len(txns) == 0 {
		cmd.Println(cli.FormatInfo("No transactions found"))
		return nil
	}

	if dryRun {
		cmd.Println(cli.RenderTransactions(txns, a.cfg.Location))
		cmd.Println(cli.FormatInfo(fmt.Sprintf("Dry run: %d transactions not imported", len(txns))))
		return nil
	}

	summary, err := a.ingest.ImportLinked(cmd.Context(), txns)
	if err != nil {
		return err
	}
	cmd.Println(cli.RenderScanSummary(summary))
	return nil
}
