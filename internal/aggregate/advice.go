package aggregate

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-ledger/internal/money"
	"github.com/Veraticus/spice-ledger/internal/model"
)

// AdviceKind names the condition an advice message reports.
type AdviceKind string

// Advice kinds.
const (
	AdviceTopCategory    AdviceKind = "top_category"
	AdviceTopDay         AdviceKind = "top_day"
	AdviceTopMerchant    AdviceKind = "top_merchant"
	AdviceMonthOverMonth AdviceKind = "month_over_month"
)

// Advice is one advisory message about a month's spending.
type Advice struct {
	Share   decimal.Decimal
	Amount  decimal.Decimal
	Kind    AdviceKind
	Subject string
	Message string
}

type bucket struct {
	total decimal.Decimal
	label string
}

type tally struct {
	buckets map[string]*bucket
	order   []string
}

func newTally() *tally {
	return &tally{buckets: make(map[string]*bucket)}
}

func (t *tally) add(key, label string, amount decimal.Decimal) {
	b, ok := t.buckets[key]
	if !ok {
		b = &bucket{label: label}
		t.buckets[key] = b
		t.order = append(t.order, key)
	}
	b.total = b.total.Add(amount)
}

// top returns the largest bucket; ties go to the first one seen.
func (t *tally) top() (bucket, bool) {
	var best *bucket
	for _, k := range t.order {
		b := t.buckets[k]
		if best == nil || b.total.GreaterThan(best.total) {
			best = b
		}
	}
	if best == nil {
		return bucket{}, false
	}
	return *best, true
}

// Advice reports on the spending of month ("YYYY-MM"). Each flag is
// independent: the top category above CategoryShare of the month's spend, the
// top calendar day above DayShare, the top merchant above MerchantShare, and
// the change versus the closest earlier month that has spending.
func (e *Engine) Advice(ledger []model.Transaction, month string) ([]Advice, error) {
	if _, err := time.ParseInLocation(MonthLayout, month, e.cfg.Location); err != nil {
		return nil, fmt.Errorf("invalid month %q: %w", month, err)
	}

	var (
		spend      = decimal.Zero
		byCategory = newTally()
		byDay      = newTally()
		byMerchant = newTally()
		prevKey    string
		prevSpend  = make(map[string]decimal.Decimal)
	)

	for _, t := range ledger {
		if !counted(t) || !t.IsExpense() {
			continue
		}
		amount := t.Amount.Abs()
		key := e.MonthKey(t.Date)
		if key != month {
			if key < month {
				prevSpend[key] = prevSpend[key].Add(amount)
				if key > prevKey {
					prevKey = key
				}
			}
			continue
		}

		spend = spend.Add(amount)
		category := categoryOf(t)
		byCategory.add(strings.ToUpper(category), category, amount)
		day := t.Date.In(e.cfg.Location).Format("2006-01-02")
		byDay.add(day, day, amount)
		if name := strings.TrimSpace(t.DisplayName()); name != "" {
			byMerchant.add(strings.ToUpper(name), name, amount)
		}
	}

	var advice []Advice
	if spend.IsPositive() {
		if a, ok := shareAdvice(AdviceTopCategory, byCategory, spend, e.cfg.CategoryShare,
			"%s accounts for %s%% of spending in %s (%s)", month); ok {
			advice = append(advice, a)
		}
		if a, ok := shareAdvice(AdviceTopDay, byDay, spend, e.cfg.DayShare,
			"%s alone took %s%% of spending in %s (%s)", month); ok {
			advice = append(advice, a)
		}
		if a, ok := shareAdvice(AdviceTopMerchant, byMerchant, spend, e.cfg.MerchantShare,
			"%s received %s%% of spending in %s (%s)", month); ok {
			advice = append(advice, a)
		}
	}

	if prevKey != "" {
		advice = append(advice, monthOverMonth(month, spend, prevKey, prevSpend[prevKey]))
	}
	return advice, nil
}

func shareAdvice(kind AdviceKind, t *tally, spend, threshold decimal.Decimal, format, month string) (Advice, bool) {
	top, ok := t.top()
	if !ok {
		return Advice{}, false
	}
	share := top.total.Div(spend)
	if !share.GreaterThan(threshold) {
		return Advice{}, false
	}
	return Advice{
		Kind:    kind,
		Subject: top.label,
		Amount:  top.total,
		Share:   share,
		Message: fmt.Sprintf(format, top.label, percent(share), month, money.Format(top.total)),
	}, true
}

func monthOverMonth(month string, spend decimal.Decimal, prevMonth string, prev decimal.Decimal) Advice {
	delta := spend.Sub(prev)
	a := Advice{
		Kind:    AdviceMonthOverMonth,
		Subject: prevMonth,
		Amount:  delta,
	}
	switch {
	case delta.IsZero():
		a.Message = fmt.Sprintf("Spending in %s matched %s at %s", month, prevMonth, money.Format(spend))
	default:
		a.Share = delta.Div(prev)
		direction := "up"
		if delta.IsNegative() {
			direction = "down"
		}
		a.Message = fmt.Sprintf("Spending in %s is %s %s%% from %s (%s vs %s)",
			month, direction, percent(a.Share.Abs()), prevMonth, money.Format(spend), money.Format(prev))
	}
	return a
}

func percent(share decimal.Decimal) string {
	return share.Mul(decimal.NewFromInt(100)).StringFixed(1)
}
