package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/money"
)

func recategorizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "recategorize <id> <category>",
		Short: "Change the category of one entry or every matching entry",
		Long: `Recategorize changes the category of a single entry by id.

With --bulk the first argument is a description or merchant instead, and
every entry matching it is moved to the category. The mapping is
remembered, so future entries with that description are categorized the
same way.`,
		Example: `  spice recategorize sms-HDFCBK-412345678901 Groceries
  spice recategorize --bulk "swiggy" Food`,
		Args: cobra.ExactArgs(2),
		RunE: runRecategorize,
	}

	cmd.Flags().Bool("bulk", false, "Match by description or merchant instead of id")
	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func runRecategorize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	bulk, _ := cmd.Flags().GetBool("bulk")
	if !bulk {
		tx, err := a.ledger.Recategorize(ctx, args[0], args[1])
		if err != nil {
			return err
		}
		cmd.Println(cli.FormatSuccess(fmt.Sprintf("%s is now %s", tx.ID, tx.Category)))
		return nil
	}

	ok, err := confirm(cmd, fmt.Sprintf("Move every entry matching %q to %s?", args[0], args[1]))
	if err != nil || !ok {
		return err
	}

	n, err := a.ledger.BulkReassign(ctx, args[0], args[1])
	if err != nil {
		return err
	}
	cmd.Println(cli.FormatSuccess(fmt.Sprintf("Moved %d entries to %s", n, args[1])))
	return nil
}

func correctCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "correct <id> <amount>",
		Short: "Correct the amount of an entry",
		Long:  `Correct replaces an entry's amount. The amount is a positive magnitude; the entry stays an expense or income as before.`,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := money.ParsePositive(args[1])
			if err != nil {
				return common.NewUserError("invalid amount", err)
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			tx, err := a.ledger.CorrectAmount(cmd.Context(), args[0], amount)
			if err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("%s is now %s", tx.ID, money.Format(tx.Amount))))
			return nil
		},
	}
}

func clearPendingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear-pending <id>",
		Short: "Mark a pending entry as settled",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			tx, err := a.ledger.ClearPending(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("%s settled", tx.ID)))
			return nil
		},
	}
}

func deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an entry",
		Long:  `Delete removes an entry from the ledger. Later scans and imports skip the same transaction.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			tx, found := a.ledger.Snapshot().Get(args[0])
			if !found {
				return fmt.Errorf("entry %s: %w", args[0], common.ErrNotFound)
			}
			ok, err := confirm(cmd, fmt.Sprintf("Delete %s (%s %s)?", tx.ID, tx.DisplayName(), money.Format(tx.Amount)))
			if err != nil || !ok {
				return err
			}

			if err := a.ledger.Delete(cmd.Context(), tx.ID); err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("Deleted %s", tx.ID)))
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

// confirm asks question unless --yes was given. A cancelled prompt counts as no.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	if yes, _ := cmd.Flags().GetBool("yes"); yes {
		return true, nil
	}
	ok, err := cli.NewConfirmer(cmd.InOrStdin(), cmd.OutOrStdout()).Confirm(cmd.Context(), question)
	if errors.Is(err, cli.ErrInputCancelled) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !ok {
		cmd.Println(cli.FormatInfo("Nothing changed"))
	}
	return ok, nil
}
