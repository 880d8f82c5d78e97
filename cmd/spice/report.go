package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List ledger entries",
		RunE:  runList,
	}

	cmd.Flags().String("source", "", "Only entries from this source (manual, ocr, sms, linked)")
	cmd.Flags().String("month", "", "Only entries dated in this month, YYYY-MM")

	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	snap := a.ledger.Snapshot()
	txns := snap.Transactions()
	if s, _ := cmd.Flags().GetString("source"); s != "" {
		source, err := model.ParseSource(s)
		if err != nil {
			return common.NewUserError("invalid source", err)
		}
		txns = snap.Source(source)
	}
	if m, _ := cmd.Flags().GetString("month"); m != "" {
		month, err := parseMonth(m)
		if err != nil {
			return err
		}
		txns = filterMonth(txns, month, a.cfg.Location)
	}

	cmd.Println(cli.RenderTransactions(txns, a.cfg.Location))
	return nil
}

func summaryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Show balances and monthly totals",
		Long: `Summary totals the ledger by month and category.

Pending entries are shown separately and never count toward the balance.
With --as-of, entries dated after that day are left out.`,
		RunE: runSummary,
	}

	cmd.Flags().String("as-of", "", "Only count entries up to this day, YYYY-MM-DD (default: now)")

	return cmd
}

func runSummary(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	asOf := time.Now()
	if s, _ := cmd.Flags().GetString("as-of"); s != "" {
		day, err := parseDay(s, a.cfg.Location)
		if err != nil {
			return err
		}
		asOf = endOfDay(day)
	}

	summary := a.engine.Aggregate(a.ledger.Snapshot().Transactions(), asOf)
	cmd.Println(cli.RenderSummary(summary))
	return nil
}

func adviceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advice [month]",
		Short: "Show spending advice for a month",
		Long:  `Advice points out where a month's spending concentrated. The month defaults to the current one.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runAdvice,
	}
}

func runAdvice(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	month := a.engine.MonthKey(time.Now())
	if len(args) == 1 {
		if month, err = parseMonth(args[0]); err != nil {
			return err
		}
	}

	advice, err := a.engine.Advice(a.ledger.Snapshot().Transactions(), month)
	if err != nil {
		return common.NewUserError("cannot advise on "+month, err)
	}
	cmd.Println(cli.RenderAdvice(month, advice))
	return nil
}
