package sheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Veraticus/spice-ledger/internal/aggregate"
	"github.com/Veraticus/spice-ledger/internal/model"
)

func testReport(t *testing.T) (Report, *time.Location) {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	txns := []model.Transaction{
		{
			ID:          "sms-HDFC-111",
			Date:        time.Date(2024, 3, 4, 10, 0, 0, 0, loc),
			Amount:      decimal.RequireFromString("-450"),
			Description: "SWIGGY",
			Merchant:    "Swiggy",
			Category:    "Food",
			Source:      model.SourceSMS,
		},
		{
			ID:          "manual-1709800000000",
			Date:        time.Date(2024, 3, 7, 9, 0, 0, 0, loc),
			Amount:      decimal.RequireFromString("50000"),
			Description: "Salary",
			Category:    "Income",
			Source:      model.SourceManual,
		},
		{
			// 23:30 UTC on Feb 29 is Mar 1 in Kolkata.
			ID:          "linked-abc",
			Date:        time.Date(2024, 2, 29, 23, 30, 0, 0, time.UTC),
			Amount:      decimal.RequireFromString("-120.5"),
			Description: "UBER TRIP",
			Category:    "Transport",
			Source:      model.SourceLinked,
			Pending:     true,
		},
	}

	engine := aggregate.New(aggregate.DefaultConfig(loc))
	budget := model.MonthlyBudget("Food", decimal.RequireFromString("500"), time.Date(2024, 3, 1, 0, 0, 0, 0, loc))

	return Report{
		GeneratedAt:  time.Date(2024, 3, 10, 12, 0, 0, 0, loc),
		Summary:      engine.Aggregate(txns, time.Time{}),
		Transactions: txns,
		Budgets:      engine.ProgressAll(txns, []model.Budget{budget}),
	}, loc
}

func TestBuildValues_Ledger(t *testing.T) {
	report, loc := testReport(t)
	values := BuildValues(report, loc)

	ledger := values[TabLedger]
	require.Len(t, ledger, 4)
	assert.Equal(t, "Date", ledger[0][0])

	// Newest first.
	assert.Equal(t, []any{"2024-03-07", "Salary", "", "Income", "manual", "50000.00", false, "manual-1709800000000"}, ledger[1])
	assert.Equal(t, "sms-HDFC-111", ledger[2][7])
	assert.Equal(t, "-450.00", ledger[2][5])
	assert.Equal(t, []any{"2024-03-01", "UBER TRIP", "", "Transport", "linked", "-120.50", true, "linked-abc"}, ledger[3])

	// Input order is untouched.
	assert.Equal(t, "sms-HDFC-111", report.Transactions[0].ID)
}

func TestBuildValues_Months(t *testing.T) {
	report, loc := testReport(t)
	months := BuildValues(report, loc)[TabMonths]

	assert.Equal(t, "Generated Mar 10, 2024 12:00", months[0][1])
	assert.Equal(t, []any{"Month", "Income", "Spend", "Net", "Transactions"}, months[2])
	// Pending entries are excluded from monthly totals.
	assert.Equal(t, []any{"2024-03", "50000.00", "450.00", "49550.00", 2}, months[3])
	assert.Equal(t, []any{"Balance", "49550.00"}, months[5])
	assert.Equal(t, []any{"Pending", "-120.50", 1}, months[6])
	assert.Equal(t, []any{"Category", "Net"}, months[8])
	assert.Equal(t, []any{"Food", "-450.00"}, months[9])
	assert.Equal(t, []any{"Income", "50000.00"}, months[10])
	assert.Len(t, months, 11)
}

func TestBuildValues_Budgets(t *testing.T) {
	report, loc := testReport(t)
	budgets := BuildValues(report, loc)[TabBudgets]

	require.Len(t, budgets, 2)
	assert.Equal(t, []any{"Food", "monthly", "2024-03-01", "2024-04-01", "500.00", "450.00", "50.00", "nearing"}, budgets[1])
}

func TestBudgetStatus(t *testing.T) {
	assert.Equal(t, "ok", budgetStatus(aggregate.BudgetProgress{}))
	assert.Equal(t, "nearing", budgetStatus(aggregate.BudgetProgress{NearingLimit: true}))
	assert.Equal(t, "over", budgetStatus(aggregate.BudgetProgress{NearingLimit: true, OverLimit: true}))
}

func TestBuildValues_EmptyReportHasHeaders(t *testing.T) {
	values := BuildValues(Report{}, nil)
	for _, tab := range Tabs {
		require.NotEmpty(t, values[tab], tab)
	}
	assert.Len(t, values[TabLedger], 1)
	assert.Len(t, values[TabBudgets], 1)
}

func TestFormattingRequests(t *testing.T) {
	report, loc := testReport(t)
	values := BuildValues(report, loc)

	ids := map[string]int64{TabLedger: 0, TabBudgets: 42}
	requests := formattingRequests(ids, values, "[$₹]#,##0.00")

	// Four requests per known tab; Months has no sheet id and is skipped.
	require.Len(t, requests, 8)
	currency := requests[5].RepeatCell
	require.NotNil(t, currency)
	assert.Equal(t, int64(42), currency.Range.SheetId)
	assert.Equal(t, int64(4), currency.Range.StartColumnIndex)
	assert.Equal(t, int64(7), currency.Range.EndColumnIndex)
	assert.Equal(t, "[$₹]#,##0.00", currency.Cell.UserEnteredFormat.NumberFormat.Pattern)
	assert.Equal(t, int64(8), requests[2].AutoResizeDimensions.Dimensions.EndIndex)
}

func TestMockWriter(t *testing.T) {
	mock := NewMockWriter()
	report, _ := testReport(t)

	require.NoError(t, mock.Write(context.Background(), report))
	assert.Equal(t, 1, mock.WriteCallCount)
	require.NotNil(t, mock.LastReport)
	assert.Len(t, mock.LastReport.Transactions, 3)

	boom := errors.New("quota exceeded")
	mock.SetWriteError(boom)
	assert.ErrorIs(t, mock.Write(context.Background(), report), boom)

	calls := mock.GetWriteCalls()
	require.Len(t, calls, 2)
	assert.NoError(t, calls[0].Error)
	assert.ErrorIs(t, calls[1].Error, boom)

	mock.Reset()
	assert.Zero(t, mock.WriteCallCount)
	assert.Nil(t, mock.LastReport)
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}

	require.NoError(t, saveToken(path, token))
	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "refresh", loaded.RefreshToken)
	assert.Equal(t, "access", loaded.AccessToken)

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestCallbackHandler(t *testing.T) {
	codes := make(chan string, 1)
	errs := make(chan error, 1)
	handler := callbackHandler(codes, errs)

	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/callback?code=abc", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc", <-codes)

	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/callback", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Error(t, <-errs)
}
