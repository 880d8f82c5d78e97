package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// BudgetPeriod is the cadence a budget window repeats on.
type BudgetPeriod string

// Budget periods.
const (
	PeriodWeekly  BudgetPeriod = "weekly"
	PeriodMonthly BudgetPeriod = "monthly"
	PeriodYearly  BudgetPeriod = "yearly"
	PeriodCustom  BudgetPeriod = "custom"
)

// Budget is a spending allocation for one category over [StartDate, EndDate).
// Spent and remaining figures are always computed from the ledger, never stored.
type Budget struct {
	StartDate time.Time
	EndDate   time.Time
	Amount    decimal.Decimal
	Category  string
	Period    BudgetPeriod
	ID        int64
}

// Validate ensures the budget can be evaluated.
func (b Budget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return fmt.Errorf("budget category is required")
	}
	if !b.Amount.IsPositive() {
		return fmt.Errorf("budget amount must be positive, got %s", b.Amount)
	}
	if b.StartDate.IsZero() || b.EndDate.IsZero() {
		return fmt.Errorf("budget window requires start and end dates")
	}
	if !b.EndDate.After(b.StartDate) {
		return fmt.Errorf("budget end date %s must be after start date %s",
			b.EndDate.Format("2006-01-02"), b.StartDate.Format("2006-01-02"))
	}
	switch b.Period {
	case PeriodWeekly, PeriodMonthly, PeriodYearly, PeriodCustom:
	default:
		return fmt.Errorf("invalid budget period %q", b.Period)
	}
	return nil
}

// Contains reports whether t falls inside the budget window.
func (b Budget) Contains(t time.Time) bool {
	return !t.Before(b.StartDate) && t.Before(b.EndDate)
}

// Next returns the same budget shifted to the following period window.
func (b Budget) Next() Budget {
	next := b
	next.ID = 0
	next.StartDate = b.EndDate
	switch b.Period {
	case PeriodWeekly:
		next.EndDate = b.EndDate.AddDate(0, 0, 7)
	case PeriodMonthly:
		next.EndDate = b.EndDate.AddDate(0, 1, 0)
	case PeriodYearly:
		next.EndDate = b.EndDate.AddDate(1, 0, 0)
	default:
		next.EndDate = b.EndDate.Add(b.EndDate.Sub(b.StartDate))
	}
	return next
}

// MonthlyBudget builds a monthly budget starting on the first day of the month containing t.
func MonthlyBudget(category string, amount decimal.Decimal, t time.Time) Budget {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return Budget{
		Category:  category,
		Amount:    amount,
		Period:    PeriodMonthly,
		StartDate: start,
		EndDate:   start.AddDate(0, 1, 0),
	}
}
