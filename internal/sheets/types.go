package sheets

import (
	"sort"
	"time"

	"github.com/Veraticus/spice-ledger/internal/aggregate"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/money"
)

// Tab titles, in the order they appear in the spreadsheet.
const (
	TabLedger  = "Ledger"
	TabMonths  = "Months"
	TabBudgets = "Budgets"
)

// Tabs lists every tab the writer manages.
var Tabs = []string{TabLedger, TabMonths, TabBudgets}

// Report is everything one export writes.
type Report struct {
	GeneratedAt  time.Time
	Summary      aggregate.Summary
	Transactions []model.Transaction
	Budgets      []aggregate.BudgetProgress
}

// Values maps a tab title to the rows written to it.
type Values map[string][][]any

// BuildValues renders the report into per-tab cell values.
// Dates are rendered in loc; amounts keep two fractional digits.
func BuildValues(report Report, loc *time.Location) Values {
	if loc == nil {
		loc = time.UTC
	}
	return Values{
		TabLedger:  ledgerValues(report.Transactions, loc),
		TabMonths:  monthValues(report.Summary, report.GeneratedAt.In(loc)),
		TabBudgets: budgetValues(report.Budgets, loc),
	}
}

func ledgerValues(txns []model.Transaction, loc *time.Location) [][]any {
	values := make([][]any, 0, len(txns)+1)
	values = append(values, []any{"Date", "Description", "Merchant", "Category", "Source", "Amount", "Pending", "ID"})

	sorted := make([]model.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Date.Equal(sorted[j].Date) {
			return sorted[i].Date.After(sorted[j].Date)
		}
		return sorted[i].ID < sorted[j].ID
	})

	for _, t := range sorted {
		values = append(values, []any{
			t.Date.In(loc).Format("2006-01-02"),
			t.Description,
			t.Merchant,
			t.Category,
			string(t.Source),
			money.Format(t.Amount),
			t.Pending,
			t.ID,
		})
	}
	return values
}

func monthValues(summary aggregate.Summary, generated time.Time) [][]any {
	months := summary.Months()
	values := make([][]any, 0, len(months)+len(summary.ByCategory)+8)
	values = append(values,
		[]any{"Spice Ledger", "Generated " + generated.Format("Jan 2, 2006 15:04")},
		[]any{},
		[]any{"Month", "Income", "Spend", "Net", "Transactions"},
	)
	for _, month := range months {
		totals := summary.ByMonth[month]
		values = append(values, []any{
			month,
			money.Format(totals.Income),
			money.Format(totals.Spend),
			money.Format(totals.Income.Sub(totals.Spend)),
			totals.Count,
		})
	}

	values = append(values,
		[]any{},
		[]any{"Balance", money.Format(summary.TotalBalance)},
		[]any{"Pending", money.Format(summary.PendingTotal), summary.PendingCount},
		[]any{},
		[]any{"Category", "Net"},
	)

	categories := make([]string, 0, len(summary.ByCategory))
	for category := range summary.ByCategory {
		categories = append(categories, category)
	}
	// Largest spend first; spend totals are negative.
	sort.Slice(categories, func(i, j int) bool {
		a, b := summary.ByCategory[categories[i]], summary.ByCategory[categories[j]]
		if !a.Equal(b) {
			return a.LessThan(b)
		}
		return categories[i] < categories[j]
	})
	for _, category := range categories {
		values = append(values, []any{category, money.Format(summary.ByCategory[category])})
	}
	return values
}

func budgetValues(progress []aggregate.BudgetProgress, loc *time.Location) [][]any {
	values := make([][]any, 0, len(progress)+1)
	values = append(values, []any{"Category", "Period", "Start", "End", "Budget", "Spent", "Remaining", "Status"})
	for _, p := range progress {
		values = append(values, []any{
			p.Budget.Category,
			string(p.Budget.Period),
			p.Budget.StartDate.In(loc).Format("2006-01-02"),
			p.Budget.EndDate.In(loc).Format("2006-01-02"),
			money.Format(p.Budget.Amount),
			money.Format(p.Spent),
			money.Format(p.Remaining),
			budgetStatus(p),
		})
	}
	return values
}

func budgetStatus(p aggregate.BudgetProgress) string {
	switch {
	case p.OverLimit:
		return "over"
	case p.NearingLimit:
		return "nearing"
	default:
		return "ok"
	}
}
