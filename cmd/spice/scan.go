package main

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ingest"
	"github.com/Veraticus/spice-ledger/internal/plaid"
	"github.com/Veraticus/spice-ledger/internal/sms"
)

func scanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan the SMS inbox and linked accounts for new entries",
		Long: `Scan reads every configured source and admits new entries to the ledger.

The SMS inbox is read from just before the last scan, so a re-scan never
admits the same alert twice. Linked accounts are fetched through Plaid when
--linked is set. Sources run concurrently and fail independently.`,
		RunE: runScan,
	}

	cmd.Flags().String("inbox", "", "SMS inbox export to read (default: sms.inbox)")
	cmd.Flags().Bool("linked", false, "Also fetch linked accounts through Plaid")

	cmd.AddCommand(scanHistoryCmd())

	return cmd
}

func runScan(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	inboxPath, _ := cmd.Flags().GetString("inbox")
	if inboxPath == "" {
		inboxPath = a.cfg.InboxPath
	}
	linked, _ := cmd.Flags().GetBool("linked")

	var sources ingest.Sources
	if inboxPath != "" {
		sources.Inbox = sms.FileInbox{Path: inboxPath}
	}
	if linked {
		client, err := plaid.NewClient(a.cfg.Plaid, a.cfg.Location, a.logger)
		if err != nil {
			return common.NewUserError("plaid is not configured", err)
		}
		sources.Linked = client
	}
	if sources.Inbox == nil && sources.Linked == nil {
		return common.NewUserError("nothing to scan", errors.New("set sms.inbox, pass --inbox or pass --linked"))
	}

	handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), "Scan interrupted", "Entries admitted so far are kept; run scan again to continue.")
	ctx, stop := handler.HandleInterrupts(cmd.Context())
	defer stop()

	progress := cli.NewScanProgress(cmd.ErrOrStderr(), fmt.Sprintf("%s Scanning", cli.InboxIcon))
	results := a.ingest.Refresh(ctx, sources, progress.Update)

	if handler.WasInterrupted() {
		return ctx.Err()
	}
	return printResults(cmd, results)
}

func scanHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent scan runs and parse failures by issuer",
		RunE:  runScanHistory,
	}

	cmd.Flags().IntP("limit", "n", 5, "Number of runs to show")

	return cmd
}

func runScanHistory(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	limit, _ := cmd.Flags().GetInt("limit")
	runs, err := a.store.GetScanRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		cmd.Println(cli.FormatInfo("No scans recorded yet"))
	}
	for i := range runs {
		cmd.Println(cli.RenderScanSummary(&runs[i]))
	}

	diagnostics, err := a.store.GetParseDiagnostics(cmd.Context())
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		return nil
	}
	issuers := make([]string, 0, len(diagnostics))
	for issuer := range diagnostics {
		issuers = append(issuers, issuer)
	}
	sort.Strings(issuers)
	cmd.Println(cli.FormatTitle("Malformed messages by issuer"))
	for _, issuer := range issuers {
		cmd.Printf("  %-12s %d\n", issuer, diagnostics[issuer])
	}
	return nil
}
