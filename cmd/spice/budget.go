package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/money"
)

func budgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage category budgets",
		Long: `Budgets cap what a category may spend over a window.

Spent and remaining amounts are always computed from the ledger; only the
allocation and its window are stored.`,
	}

	cmd.AddCommand(budgetAddCmd())
	cmd.AddCommand(budgetListCmd())
	cmd.AddCommand(budgetDeleteCmd())
	cmd.AddCommand(budgetRollCmd())

	return cmd
}

func budgetAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <category> <amount>",
		Short: "Add a budget",
		Example: `  spice budget add Food 8000
  spice budget add Travel 50000 --period yearly --start 2024-04-01
  spice budget add Wedding 200000 --period custom --start 2024-10-01 --end 2025-01-15`,
		Args: cobra.ExactArgs(2),
		RunE: runBudgetAdd,
	}

	cmd.Flags().String("period", string(model.PeriodMonthly), "weekly, monthly, yearly or custom")
	cmd.Flags().String("start", "", "First day of the window, YYYY-MM-DD (default: start of the current month)")
	cmd.Flags().String("end", "", "Day after the window ends, YYYY-MM-DD (custom periods only)")

	return cmd
}

func runBudgetAdd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	period, _ := cmd.Flags().GetString("period")
	startFlag, _ := cmd.Flags().GetString("start")
	endFlag, _ := cmd.Flags().GetString("end")

	budget, err := buildBudget(args[0], args[1], model.BudgetPeriod(period), startFlag, endFlag, time.Now().In(a.cfg.Location))
	if err != nil {
		return err
	}
	if err := a.store.SaveBudget(cmd.Context(), &budget); err != nil {
		return err
	}

	cmd.Println(cli.FormatSuccess(fmt.Sprintf("Budget %d: %s %s %s from %s to %s",
		budget.ID, budget.Category, money.Format(budget.Amount), budget.Period,
		budget.StartDate.Format(dayLayout), budget.EndDate.Format(dayLayout))))
	return nil
}

// buildBudget assembles a budget from command input. Without a start the
// window begins on the first of now's month.
func buildBudget(category, amount string, period model.BudgetPeriod, start, end string, now time.Time) (model.Budget, error) {
	amt, err := money.ParsePositive(amount)
	if err != nil {
		return model.Budget{}, common.NewUserError("invalid budget amount", err)
	}
	loc := now.Location()

	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	if start != "" {
		if from, err = parseDay(start, loc); err != nil {
			return model.Budget{}, err
		}
	}

	if end != "" && period != model.PeriodCustom {
		return model.Budget{}, common.NewUserError("--end only applies to custom budgets", fmt.Errorf("period is %s", period))
	}

	budget := model.MonthlyBudget(category, amt, from)
	budget.StartDate = from
	budget.Period = period
	switch period {
	case model.PeriodWeekly:
		budget.EndDate = from.AddDate(0, 0, 7)
	case model.PeriodMonthly:
		budget.EndDate = from.AddDate(0, 1, 0)
	case model.PeriodYearly:
		budget.EndDate = from.AddDate(1, 0, 0)
	case model.PeriodCustom:
		if end == "" {
			return model.Budget{}, common.NewUserError("custom budgets need --end", fmt.Errorf("missing end date"))
		}
		if budget.EndDate, err = parseDay(end, loc); err != nil {
			return model.Budget{}, err
		}
	}

	if err := budget.Validate(); err != nil {
		return model.Budget{}, common.NewUserError("invalid budget", err)
	}
	return budget, nil
}

func budgetListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show every budget and how much of it is spent",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			budgets, err := a.store.GetBudgets(cmd.Context())
			if err != nil {
				return err
			}
			progress := a.engine.ProgressAll(a.ledger.Snapshot().Transactions(), budgets)
			cmd.Println(cli.RenderBudgets(progress, a.cfg.Location))
			return nil
		},
	}
}

func budgetDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return common.NewUserError("budget id must be a number", err)
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.DeleteBudget(cmd.Context(), id); err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("Deleted budget %d", id)))
			return nil
		},
	}
}

func budgetRollCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roll",
		Short: "Move expired budgets to their current window",
		Long: `Roll advances every budget whose window has ended to the window that
contains today, keeping its category, amount and period.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			budgets, err := a.store.GetBudgets(cmd.Context())
			if err != nil {
				return err
			}

			now := time.Now().In(a.cfg.Location)
			rolled := 0
			for _, b := range budgets {
				next, ok := rollForward(b, now)
				if !ok {
					continue
				}
				if err := a.store.SaveBudget(cmd.Context(), &next); err != nil {
					return err
				}
				rolled++
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("Rolled %d budgets", rolled)))
			return nil
		},
	}
}

// rollForward advances an expired budget until its window reaches now. The
// id is kept so the stored budget is updated in place.
func rollForward(b model.Budget, now time.Time) (model.Budget, bool) {
	if now.Before(b.EndDate) {
		return b, false
	}
	next := b
	for !now.Before(next.EndDate) {
		next = next.Next()
	}
	next.ID = b.ID
	return next, true
}
