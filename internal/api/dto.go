package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Veraticus/spice-ledger/internal/aggregate"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/money"
)

type transactionJSON struct {
	Date        time.Time `json:"date"`
	ID          string    `json:"id"`
	Amount      string    `json:"amount"`
	Description string    `json:"description"`
	Merchant    string    `json:"merchant,omitempty"`
	Category    string    `json:"category"`
	Source      string    `json:"source"`
	Direction   string    `json:"direction"`
	Pending     bool      `json:"pending"`
}

func toTransactionJSON(t model.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Date:        t.Date,
		Amount:      money.Format(t.Amount),
		Description: t.Description,
		Merchant:    t.Merchant,
		Category:    t.Category,
		Source:      string(t.Source),
		Direction:   string(t.Direction()),
		Pending:     t.Pending,
	}
}

func toTransactionsJSON(txns []model.Transaction) []transactionJSON {
	out := make([]transactionJSON, 0, len(txns))
	for _, t := range txns {
		out = append(out, toTransactionJSON(t))
	}
	return out
}

type monthJSON struct {
	Spend  string `json:"spend"`
	Income string `json:"income"`
	Count  int    `json:"count"`
}

type summaryJSON struct {
	ByMonth      map[string]monthJSON `json:"by_month"`
	ByCategory   map[string]string    `json:"by_category"`
	TotalBalance string               `json:"total_balance"`
	TotalIncome  string               `json:"total_income"`
	TotalExpense string               `json:"total_expense"`
	PendingTotal string               `json:"pending_total"`
	Excluded     []string             `json:"excluded,omitempty"`
	Counted      int                  `json:"counted"`
	PendingCount int                  `json:"pending_count"`
}

func toSummaryJSON(s aggregate.Summary) summaryJSON {
	out := summaryJSON{
		ByMonth:      make(map[string]monthJSON, len(s.ByMonth)),
		ByCategory:   make(map[string]string, len(s.ByCategory)),
		TotalBalance: money.Format(s.TotalBalance),
		TotalIncome:  money.Format(s.TotalIncome),
		TotalExpense: money.Format(s.TotalExpense),
		PendingTotal: money.Format(s.PendingTotal),
		Counted:      s.Counted,
		PendingCount: s.PendingCount,
	}
	for k, m := range s.ByMonth {
		out.ByMonth[k] = monthJSON{Spend: money.Format(m.Spend), Income: money.Format(m.Income), Count: m.Count}
	}
	for k, v := range s.ByCategory {
		out.ByCategory[k] = money.Format(v)
	}
	for _, e := range s.Excluded {
		out.Excluded = append(out.Excluded, e.ID)
	}
	return out
}

type adviceJSON struct {
	Kind    string `json:"kind"`
	Subject string `json:"subject"`
	Message string `json:"message"`
	Share   string `json:"share"`
	Amount  string `json:"amount"`
}

type budgetJSON struct {
	StartDate    time.Time `json:"start_date"`
	EndDate      time.Time `json:"end_date"`
	Category     string    `json:"category"`
	Period       string    `json:"period"`
	Amount       string    `json:"amount"`
	Spent        string    `json:"spent"`
	Remaining    string    `json:"remaining"`
	ID           int64     `json:"id"`
	NearingLimit bool      `json:"nearing_limit"`
	OverLimit    bool      `json:"over_limit"`
}

func toBudgetJSON(p aggregate.BudgetProgress) budgetJSON {
	return budgetJSON{
		ID:           p.Budget.ID,
		Category:     p.Budget.Category,
		Period:       string(p.Budget.Period),
		StartDate:    p.Budget.StartDate,
		EndDate:      p.Budget.EndDate,
		Amount:       money.Format(p.Budget.Amount),
		Spent:        money.Format(p.Spent),
		Remaining:    money.Format(p.Remaining),
		NearingLimit: p.NearingLimit,
		OverLimit:    p.OverLimit,
	}
}

type scanJSON struct {
	MalformedByIssuer map[string]int `json:"malformed_by_issuer,omitempty"`
	ID                string         `json:"id"`
	Source            string         `json:"source"`
	Accepted          int            `json:"accepted"`
	Duplicates        int            `json:"duplicates"`
	UnknownIssuer     int            `json:"unknown_issuer"`
	Malformed         int            `json:"malformed"`
	Ambiguous         int            `json:"ambiguous"`
	ResolverFallbacks int            `json:"resolver_fallbacks"`
}

func toScanJSON(s *model.ScanSummary) scanJSON {
	return scanJSON{
		ID:                s.ID,
		Source:            string(s.Source),
		Accepted:          s.Accepted,
		Duplicates:        s.Duplicates,
		UnknownIssuer:     s.UnknownIssuer,
		Malformed:         s.Malformed,
		Ambiguous:         s.Ambiguous,
		ResolverFallbacks: s.ResolverFallbacks,
		MalformedByIssuer: s.MalformedByIssuer,
	}
}

type manualRequest struct {
	Date        string `json:"date"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Direction   string `json:"direction"`
	Pending     bool   `json:"pending"`
}

type receiptResponse struct {
	Scan        scanJSON        `json:"scan"`
	Transaction transactionJSON `json:"transaction"`
	Duplicate   bool            `json:"duplicate"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorJSON{Error: msg})
}
