package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

func TestParseDay(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)

	got, err := parseDay("2024-03-12", loc)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 12, 0, 0, 0, 0, loc), got)

	_, err = parseDay("12/03/2024", loc)
	var userErr *common.UserError
	assert.ErrorAs(t, err, &userErr)
}

func TestEndOfDay(t *testing.T) {
	day := time.Date(2024, 3, 12, 15, 4, 5, 0, time.UTC)
	end := endOfDay(day)

	assert.Equal(t, 12, end.Day())
	assert.True(t, end.Add(time.Nanosecond).Equal(time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)))
}

func TestParseMonth(t *testing.T) {
	got, err := parseMonth("2024-02")
	require.NoError(t, err)
	assert.Equal(t, "2024-02", got)

	_, err = parseMonth("2024-13")
	assert.Error(t, err)
	_, err = parseMonth("Feb")
	assert.Error(t, err)
}

func TestFilterMonth(t *testing.T) {
	loc := time.FixedZone("IST", 5*3600+1800)
	txns := []model.Transaction{
		// 2024-02-29 20:00 UTC is already March 1st in IST.
		{ID: "a", Date: time.Date(2024, 2, 29, 20, 0, 0, 0, time.UTC)},
		{ID: "b", Date: time.Date(2024, 2, 10, 0, 0, 0, 0, loc)},
		{ID: "c", Date: time.Date(2024, 3, 15, 0, 0, 0, 0, loc)},
	}

	march := filterMonth(txns, "2024-03", loc)
	require.Len(t, march, 2)
	assert.Equal(t, "a", march[0].ID)
	assert.Equal(t, "c", march[1].ID)
}

func TestExpandGlobs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.qfx", "a.qfx", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600))
	}

	files, err := expandGlobs([]string{filepath.Join(dir, "*.qfx"), filepath.Join(dir, "a.qfx")})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.qfx"), filepath.Join(dir, "b.qfx")}, files)

	_, err = expandGlobs([]string{filepath.Join(dir, "*.ofx")})
	assert.Error(t, err)
}

func TestBuildBudget(t *testing.T) {
	now := time.Date(2024, 3, 12, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		period    model.BudgetPeriod
		start     string
		end       string
		wantStart time.Time
		wantEnd   time.Time
		wantErr   bool
	}{
		{
			name:      "monthly defaults to current month",
			period:    model.PeriodMonthly,
			wantStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "weekly from start",
			period:    model.PeriodWeekly,
			start:     "2024-03-11",
			wantStart: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "yearly",
			period:    model.PeriodYearly,
			start:     "2024-04-01",
			wantStart: time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			name:      "custom",
			period:    model.PeriodCustom,
			start:     "2024-03-05",
			end:       "2024-03-20",
			wantStart: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC),
		},
		{name: "custom without end", period: model.PeriodCustom, wantErr: true},
		{name: "end on monthly", period: model.PeriodMonthly, end: "2024-05-01", wantErr: true},
		{name: "custom end before start", period: model.PeriodCustom, start: "2024-03-20", end: "2024-03-05", wantErr: true},
		{name: "unknown period", period: "fortnightly", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := buildBudget("Food", "8,000", tt.period, tt.start, tt.end, now)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Food", b.Category)
			assert.True(t, b.Amount.Equal(decimal.NewFromInt(8000)))
			assert.Equal(t, tt.period, b.Period)
			assert.Equal(t, tt.wantStart, b.StartDate)
			assert.Equal(t, tt.wantEnd, b.EndDate)
		})
	}

	_, err := buildBudget("Food", "0", model.PeriodMonthly, "", "", now)
	assert.Error(t, err)
}

func TestRollForward(t *testing.T) {
	b := model.MonthlyBudget("Food", decimal.NewFromInt(5000), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	b.ID = 7

	_, rolled := rollForward(b, time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC))
	assert.False(t, rolled)

	next, rolled := rollForward(b, time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC))
	require.True(t, rolled)
	assert.Equal(t, int64(7), next.ID)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), next.StartDate)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), next.EndDate)
}

func TestUserVendor(t *testing.T) {
	v, err := userVendor("  blue   tokai ", "Coffee", false)
	require.NoError(t, err)
	assert.Equal(t, "BLUE TOKAI", v.Name)
	assert.Equal(t, model.SourceUser, v.Source)
	assert.False(t, v.IsRegex)

	v, err = userVendor("^uber( eats)?", "Transport", true)
	require.NoError(t, err)
	assert.Equal(t, "^uber( eats)?", v.Name)
	assert.True(t, v.IsRegex)

	_, err = userVendor("([", "Transport", true)
	assert.Error(t, err)
	_, err = userVendor("   ", "Coffee", false)
	assert.Error(t, err)
}

func TestServerTLS(t *testing.T) {
	cfg, err := serverTLS(t.TempDir(), "0.0.0.0:8420")
	require.NoError(t, err)
	require.Len(t, cfg.Certificates, 1)

	_, err = serverTLS(t.TempDir(), "no-port")
	assert.Error(t, err)
}
