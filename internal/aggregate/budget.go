package aggregate

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// BudgetProgress is a budget's consumption computed from the ledger.
type BudgetProgress struct {
	Budget       model.Budget
	Spent        decimal.Decimal
	Remaining    decimal.Decimal
	Ratio        decimal.Decimal
	NearingLimit bool
	OverLimit    bool
}

// Progress computes spent and remaining for budget. Spent is the negated sum
// of settled entries in the budget's category dated within [start, end), so a
// refund in the category lowers it.
func (e *Engine) Progress(ledger []model.Transaction, budget model.Budget) BudgetProgress {
	spent := decimal.Zero
	for _, t := range ledger {
		if !counted(t) || !budget.Contains(t.Date) {
			continue
		}
		if !strings.EqualFold(categoryOf(t), budget.Category) {
			continue
		}
		spent = spent.Sub(t.Amount)
	}

	p := BudgetProgress{
		Budget:    budget,
		Spent:     spent,
		Remaining: budget.Amount.Sub(spent),
	}
	if budget.Amount.IsPositive() {
		p.Ratio = spent.Div(budget.Amount)
		p.NearingLimit = p.Ratio.GreaterThanOrEqual(e.cfg.NearingThreshold)
		p.OverLimit = spent.GreaterThan(budget.Amount)
	}
	return p
}

// ProgressAll computes progress for every budget, keeping their order.
func (e *Engine) ProgressAll(ledger []model.Transaction, budgets []model.Budget) []BudgetProgress {
	out := make([]BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, e.Progress(ledger, b))
	}
	return out
}
