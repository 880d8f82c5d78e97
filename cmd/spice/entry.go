package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/ingest"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/money"
	"github.com/Veraticus/spice-ledger/internal/ocr"
)

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a manual entry",
		Long: `Add records a cash payment, transfer or anything else no other source sees.

Amounts are positive; entries are expenses unless --credit is set. An empty
category is resolved from the description.`,
		Example: `  spice add --amount 250 --description "Chai stall"
  spice add --amount 1,200.50 --description "Freelance" --credit --category Income`,
		RunE: runAdd,
	}

	cmd.Flags().String("amount", "", "Amount, for example 1,250.50 (required)")
	cmd.Flags().String("description", "", "What the entry was for (required)")
	cmd.Flags().String("category", "", "Category (default: resolved from the description)")
	cmd.Flags().String("date", "", "Date as YYYY-MM-DD (default: today)")
	cmd.Flags().Bool("credit", false, "Money coming in rather than going out")
	cmd.Flags().Bool("pending", false, "Mark the entry as not yet settled")
	_ = cmd.MarkFlagRequired("amount")
	_ = cmd.MarkFlagRequired("description")

	return cmd
}

func runAdd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	amountFlag, _ := cmd.Flags().GetString("amount")
	amount, err := money.ParsePositive(amountFlag)
	if err != nil {
		return common.NewUserError("invalid amount", err)
	}

	entry := ingest.ManualEntry{
		Amount:    amount,
		Direction: model.DirectionDebit,
	}
	entry.Description, _ = cmd.Flags().GetString("description")
	entry.Category, _ = cmd.Flags().GetString("category")
	entry.Pending, _ = cmd.Flags().GetBool("pending")
	if credit, _ := cmd.Flags().GetBool("credit"); credit {
		entry.Direction = model.DirectionCredit
	}
	if dateFlag, _ := cmd.Flags().GetString("date"); dateFlag != "" {
		if entry.Date, err = parseDay(dateFlag, a.cfg.Location); err != nil {
			return err
		}
	}

	tx, err := a.ingest.AddManual(cmd.Context(), entry)
	if err != nil {
		return err
	}

	cmd.Println(cli.FormatSuccess(fmt.Sprintf("Added %s: %s %s (%s)",
		tx.ID, tx.DisplayName(), money.Format(tx.Amount), tx.Category)))
	return nil
}

func receiptCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receipt",
		Short: "Record a receipt read by OCR",
		Long: `Receipt admits the fields an OCR service extracted from a receipt image.

Pass the fields directly or point --json at the service's response. The same
receipt always maps to the same entry, so recording it twice is harmless.`,
		Example: `  spice receipt --business "Cafe Coffee Day" --total "₹ 245.00" --date 12/03/2024
  spice receipt --json receipt.json`,
		RunE: runReceipt,
	}

	cmd.Flags().String("business", "", "Business name printed on the receipt")
	cmd.Flags().String("total", "", "Total as printed, for example \"Rs. 1,299.00\"")
	cmd.Flags().String("date", "", "Date as printed on the receipt")
	cmd.Flags().String("json", "", "Read the receipt fields from an OCR JSON response")

	return cmd
}

func runReceipt(cmd *cobra.Command, _ []string) error {
	receipt, err := receiptFromFlags(cmd)
	if err != nil {
		return err
	}

	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	summary, tx, err := a.ingest.AddReceipt(cmd.Context(), receipt)
	if err != nil {
		return err
	}
	if summary.Duplicates > 0 {
		cmd.Println(cli.FormatWarning("Receipt was already recorded"))
		return nil
	}

	cmd.Println(cli.FormatSuccess(fmt.Sprintf("Recorded %s: %s %s on %s (%s)",
		tx.ID, tx.DisplayName(), money.Format(tx.Amount),
		tx.Date.In(a.cfg.Location).Format(dayLayout), tx.Category)))
	return nil
}

// receiptFromFlags reads the receipt from --json when set, otherwise from
// the individual field flags.
func receiptFromFlags(cmd *cobra.Command) (ocr.Receipt, error) {
	var receipt ocr.Receipt
	if path, _ := cmd.Flags().GetString("json"); path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // user-specified file
		if err != nil {
			return receipt, fmt.Errorf("failed to read receipt: %w", err)
		}
		if err := json.Unmarshal(data, &receipt); err != nil {
			return receipt, common.NewUserError("receipt JSON is malformed", err)
		}
		return receipt, nil
	}

	receipt.BusinessName, _ = cmd.Flags().GetString("business")
	receipt.TotalAmount, _ = cmd.Flags().GetString("total")
	receipt.Date, _ = cmd.Flags().GetString("date")
	if strings.TrimSpace(receipt.Date) == "" {
		receipt.Date = time.Now().Format(dayLayout)
	}
	return receipt, nil
}
