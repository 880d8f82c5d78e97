package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/spice-ledger/internal/aggregate"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/money"
)

const descriptionWidth = 32

// RenderTransactions lists entries newest first with dates shown in loc.
func RenderTransactions(txns []model.Transaction, loc *time.Location) string {
	if len(txns) == 0 {
		return SubtleStyle.Render("No transactions.")
	}
	if loc == nil {
		loc = time.UTC
	}

	sorted := make([]model.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.After(sorted[j].Date)
	})

	var b strings.Builder
	header := fmt.Sprintf("%-10s  %-*s  %-14s  %-7s  %12s", "Date", descriptionWidth, "Description", "Category", "Source", "Amount")
	b.WriteString(TableHeaderStyle.Render(header))
	b.WriteString("\n")
	for _, t := range sorted {
		amount := fmt.Sprintf("%12s", money.Format(t.Amount))
		if t.IsExpense() {
			amount = ExpenseStyle.Render(amount)
		} else {
			amount = IncomeStyle.Render(amount)
		}
		line := fmt.Sprintf("%-10s  %-*s  %-14s  %-7s  %s",
			t.Date.In(loc).Format("2006-01-02"),
			descriptionWidth, truncate(t.DisplayName(), descriptionWidth),
			truncate(categoryLabel(t.Category), 14),
			t.Source,
			amount)
		if t.Pending {
			line += " " + PendingIcon
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(SubtleStyle.Render(fmt.Sprintf("%d entries", len(sorted))))
	return b.String()
}

// RenderSummary renders balances, monthly flows and category totals.
func RenderSummary(s aggregate.Summary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Balance:  %s\n", StyleAmount(s.TotalBalance))
	fmt.Fprintf(&b, "Income:   %s\n", money.Format(s.TotalIncome))
	fmt.Fprintf(&b, "Expenses: %s\n", money.Format(s.TotalExpense))
	if s.PendingCount > 0 {
		fmt.Fprintf(&b, "%s Pending: %s across %d entries\n", PendingIcon, money.Format(s.PendingTotal), s.PendingCount)
	}

	if months := s.Months(); len(months) > 0 {
		b.WriteString("\n" + BoldStyle.Render("By month") + "\n")
		for _, m := range months {
			totals := s.ByMonth[m]
			fmt.Fprintf(&b, "  %s  in %12s  out %12s  (%d)\n", m, money.Format(totals.Income), money.Format(totals.Spend), totals.Count)
		}
	}

	if len(s.ByCategory) > 0 {
		b.WriteString("\n" + BoldStyle.Render("By category") + "\n")
		categories := make([]string, 0, len(s.ByCategory))
		for c := range s.ByCategory {
			categories = append(categories, c)
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Fprintf(&b, "  %-20s %s\n", c, StyleAmount(s.ByCategory[c]))
		}
	}

	if len(s.Excluded) > 0 {
		b.WriteString("\n" + FormatWarning(fmt.Sprintf("%d malformed entries excluded", len(s.Excluded))) + "\n")
	}

	return RenderBox(ChartIcon+" Summary", strings.TrimRight(b.String(), "\n"))
}

// RenderAdvice renders the advice list for month.
func RenderAdvice(month string, advice []aggregate.Advice) string {
	if len(advice) == 0 {
		return FormatInfo("No advice for " + month + ": spending looks evenly spread.")
	}
	lines := make([]string, 0, len(advice))
	for _, a := range advice {
		lines = append(lines, "• "+a.Message)
	}
	return RenderBox("Advice for "+month, strings.Join(lines, "\n"))
}

// RenderBudgets renders budget progress with status markers.
func RenderBudgets(progress []aggregate.BudgetProgress, loc *time.Location) string {
	if len(progress) == 0 {
		return SubtleStyle.Render("No budgets.")
	}
	if loc == nil {
		loc = time.UTC
	}

	var b strings.Builder
	for _, p := range progress {
		window := fmt.Sprintf("%s → %s",
			p.Budget.StartDate.In(loc).Format("2006-01-02"),
			p.Budget.EndDate.In(loc).Format("2006-01-02"))
		line := fmt.Sprintf("#%-3d %-16s %-8s %s  spent %s of %s, remaining %s",
			p.Budget.ID, p.Budget.Category, p.Budget.Period, window,
			money.Format(p.Spent), money.Format(p.Budget.Amount), money.Format(p.Remaining))
		switch {
		case p.OverLimit:
			line = ErrorStyle.Render(ErrorIcon + " " + line)
		case p.NearingLimit:
			line = WarningStyle.Render(WarningIcon + " " + line)
		default:
			line = SuccessStyle.Render(SuccessIcon + " " + line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderScanSummary renders one ingestion run.
func RenderScanSummary(s *model.ScanSummary) string {
	lines := []string{
		fmt.Sprintf("Accepted:       %d", s.Accepted),
		fmt.Sprintf("Duplicates:     %d", s.Duplicates),
		fmt.Sprintf("Unknown issuer: %d", s.UnknownIssuer),
		fmt.Sprintf("Malformed:      %d", s.Malformed),
		fmt.Sprintf("Ambiguous:      %d", s.Ambiguous),
	}
	if s.ResolverFallbacks > 0 {
		lines = append(lines, WarningStyle.Render(fmt.Sprintf("Uncategorized (resolver unavailable): %d", s.ResolverFallbacks)))
	}
	if len(s.MalformedByIssuer) > 0 {
		issuers := make([]string, 0, len(s.MalformedByIssuer))
		for issuer := range s.MalformedByIssuer {
			issuers = append(issuers, issuer)
		}
		sort.Strings(issuers)
		parts := make([]string, 0, len(issuers))
		for _, issuer := range issuers {
			parts = append(parts, fmt.Sprintf("%s=%d", issuer, s.MalformedByIssuer[issuer]))
		}
		lines = append(lines, SubtleStyle.Render("Malformed by issuer: "+strings.Join(parts, " ")))
	}
	if !s.FinishedAt.IsZero() && !s.StartedAt.IsZero() {
		lines = append(lines, SubtleStyle.Render("Took "+s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond).String()))
	}
	title := fmt.Sprintf("%s %s scan", InboxIcon, s.Source)
	return RenderBox(title, lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// RenderVendors lists learned and user-entered category mappings.
func RenderVendors(vendors []model.Vendor) string {
	if len(vendors) == 0 {
		return SubtleStyle.Render("No vendor mappings.")
	}
	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(fmt.Sprintf("%-30s  %-16s  %-6s  %5s", "Vendor", "Category", "Source", "Uses")))
	b.WriteString("\n")
	for _, v := range vendors {
		name := v.Name
		if v.IsRegex {
			name = "/" + name + "/"
		}
		fmt.Fprintf(&b, "%-30s  %-16s  %-6s  %5d\n", truncate(name, 30), truncate(v.Category, 16), v.Source, v.UseCount)
	}
	return strings.TrimRight(b.String(), "\n")
}

func categoryLabel(category string) string {
	if category == "" {
		return model.UnknownCategory
	}
	return category
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
