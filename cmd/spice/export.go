package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/config"
	"github.com/Veraticus/spice-ledger/internal/sheets"
)

func exportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Export the ledger to Google Sheets",
		Long: `Export writes every ledger entry, the monthly summary and budget progress
to a Google Sheets spreadsheet, replacing what a previous export wrote.

Authenticate first with 'spice auth sheets' or configure a service account.`,
		RunE: runExport,
	}
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	sheetsCfg, err := config.LoadSheetsConfig(viper.GetViper())
	if err != nil {
		return fmt.Errorf("google sheets is not configured: %w", err)
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	writer, err := sheets.NewWriter(ctx, *sheetsCfg, a.logger.With("component", "sheets"))
	if err != nil {
		return err
	}

	budgets, err := a.store.GetBudgets(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	txns := a.ledger.Snapshot().Transactions()
	report := sheets.Report{
		GeneratedAt:  now,
		Summary:      a.engine.Aggregate(txns, now),
		Transactions: txns,
		Budgets:      a.engine.ProgressAll(txns, budgets),
	}
	if err := writer.Write(ctx, report); err != nil {
		return err
	}

	cmd.Println(cli.FormatSuccess(fmt.Sprintf("Exported %d entries to %s", len(txns), sheetsCfg.SpreadsheetName)))
	return nil
}
