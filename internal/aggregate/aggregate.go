// Package aggregate derives balances, monthly breakdowns, budget progress and
// spending advice from a ledger. Every function is pure over its inputs.
package aggregate

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// MonthLayout is the key format of monthly buckets.
const MonthLayout = "2006-01"

// Config holds the engine's fixed parameters.
type Config struct {
	Location         *time.Location
	NearingThreshold decimal.Decimal
	CategoryShare    decimal.Decimal
	DayShare         decimal.Decimal
	MerchantShare    decimal.Decimal
}

// DefaultConfig returns the standard thresholds in the given reference zone.
func DefaultConfig(loc *time.Location) Config {
	if loc == nil {
		loc = time.UTC
	}
	return Config{
		Location:         loc,
		NearingThreshold: decimal.RequireFromString("0.8"),
		CategoryShare:    decimal.RequireFromString("0.30"),
		DayShare:         decimal.RequireFromString("0.25"),
		MerchantShare:    decimal.RequireFromString("0.20"),
	}
}

// Engine computes aggregates in one reference timezone.
type Engine struct {
	cfg Config
}

// New creates an engine. A nil location means UTC.
func New(cfg Config) *Engine {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Engine{cfg: cfg}
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// MonthTotals is one calendar month's flows.
type MonthTotals struct {
	Spend  decimal.Decimal
	Income decimal.Decimal
	Count  int
}

// Excluded records an entry left out of the sums because it is malformed.
type Excluded struct {
	ID     string
	Reason string
}

// Summary is the result of Aggregate.
type Summary struct {
	AsOf         time.Time
	ByMonth      map[string]MonthTotals
	ByCategory   map[string]decimal.Decimal
	TotalBalance decimal.Decimal
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	PendingTotal decimal.Decimal
	Excluded     []Excluded
	Counted      int
	PendingCount int
}

// MonthKey returns the bucket key of t in the reference timezone.
func (e *Engine) MonthKey(t time.Time) string {
	return t.In(e.cfg.Location).Format(MonthLayout)
}

// Aggregate computes totals over ledger. Entries dated after asOf are ignored;
// a zero asOf means no bound. Pending entries only feed PendingTotal.
// Malformed entries are excluded and reported instead of failing the call.
func (e *Engine) Aggregate(ledger []model.Transaction, asOf time.Time) Summary {
	s := Summary{
		AsOf:       asOf,
		ByMonth:    make(map[string]MonthTotals),
		ByCategory: make(map[string]decimal.Decimal),
	}

	for _, t := range ledger {
		if err := t.Validate(); err != nil {
			s.Excluded = append(s.Excluded, Excluded{ID: t.ID, Reason: err.Error()})
			continue
		}
		if !asOf.IsZero() && t.Date.After(asOf) {
			continue
		}
		if t.Pending {
			s.PendingCount++
			s.PendingTotal = s.PendingTotal.Add(t.Amount)
			continue
		}

		s.Counted++
		s.TotalBalance = s.TotalBalance.Add(t.Amount)

		key := e.MonthKey(t.Date)
		month := s.ByMonth[key]
		month.Count++
		if t.IsExpense() {
			s.TotalExpense = s.TotalExpense.Add(t.Amount.Abs())
			month.Spend = month.Spend.Add(t.Amount.Abs())
		} else {
			s.TotalIncome = s.TotalIncome.Add(t.Amount)
			month.Income = month.Income.Add(t.Amount)
		}
		s.ByMonth[key] = month

		category := categoryOf(t)
		s.ByCategory[category] = s.ByCategory[category].Add(t.Amount)
	}
	return s
}

// Months returns the summary's month keys in ascending order.
func (s Summary) Months() []string {
	keys := make([]string, 0, len(s.ByMonth))
	for k := range s.ByMonth {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func categoryOf(t model.Transaction) string {
	if t.Category == "" {
		return model.UnknownCategory
	}
	return t.Category
}

// counted reports whether t contributes to settled totals.
func counted(t model.Transaction) bool {
	return !t.Pending && t.Validate() == nil
}
