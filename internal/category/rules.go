package category

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Rule maps descriptions matching Pattern to Category. Higher priority wins.
type Rule struct {
	Name     string `mapstructure:"name"`
	Pattern  string `mapstructure:"pattern"`
	Category string `mapstructure:"category"`
	Priority int    `mapstructure:"priority"`
	IsRegex  bool   `mapstructure:"regex"`
}

type compiledRule struct {
	re *regexp.Regexp
	Rule
}

// Matcher evaluates descriptions against pattern rules.
type Matcher struct {
	rules []compiledRule
}

// NewMatcher compiles rules, ordering them by priority (highest first).
// Non-regex patterns match as case-insensitive substrings.
func NewMatcher(rules []Rule) (*Matcher, error) {
	m := &Matcher{rules: make([]compiledRule, 0, len(rules))}
	for _, r := range rules {
		if strings.TrimSpace(r.Pattern) == "" || strings.TrimSpace(r.Category) == "" {
			return nil, fmt.Errorf("rule %q needs a pattern and a category", r.Name)
		}
		cr := compiledRule{Rule: r}
		if r.IsRegex {
			re, err := regexp.Compile("(?i)" + r.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %q: %w", r.Name, err)
			}
			cr.re = re
		}
		m.rules = append(m.rules, cr)
	}
	slices.SortStableFunc(m.rules, func(a, b compiledRule) int {
		return b.Priority - a.Priority
	})
	return m, nil
}

// Match returns the highest-priority rule matching description.
func (m *Matcher) Match(description string) (Rule, bool) {
	normalized := Normalize(description)
	for _, r := range m.rules {
		if r.re != nil {
			if r.re.MatchString(normalized) {
				return r.Rule, true
			}
			continue
		}
		if strings.Contains(normalized, Normalize(r.Pattern)) {
			return r.Rule, true
		}
	}
	return Rule{}, false
}

// Len returns the number of rules.
func (m *Matcher) Len() int {
	return len(m.rules)
}

// DefaultRules returns the built-in merchant rules.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "Salary", Pattern: `\b(SALARY|SAL CREDIT|PAYROLL)\b`, Category: "Income", Priority: 100, IsRegex: true},
		{Name: "Interest", Pattern: `\b(INT\.? ?PD|INTEREST|DIVIDEND)\b`, Category: "Income", Priority: 95, IsRegex: true},
		{Name: "Refund", Pattern: `\b(REFUND|CASHBACK|REVERSAL)\b`, Category: "Refunds", Priority: 90, IsRegex: true},
		{Name: "Food delivery", Pattern: `\b(SWIGGY|ZOMATO|DOMINOS|MCDONALDS|EATSURE)\b`, Category: "Food", Priority: 50, IsRegex: true},
		{Name: "Groceries", Pattern: `\b(BIGBASKET|BLINKIT|ZEPTO|DMART|GROFERS)\b`, Category: "Groceries", Priority: 50, IsRegex: true},
		{Name: "Ride hailing", Pattern: `\b(UBER|OLA|RAPIDO)\b`, Category: "Transport", Priority: 50, IsRegex: true},
		{Name: "Fuel", Pattern: `\b(PETROL|FUEL|HPCL|BPCL|INDIAN ?OIL)\b`, Category: "Transport", Priority: 45, IsRegex: true},
		{Name: "Shopping", Pattern: `\b(AMAZON|FLIPKART|MYNTRA|AJIO|NYKAA)\b`, Category: "Shopping", Priority: 40, IsRegex: true},
		{Name: "Utilities", Pattern: `\b(ELECTRICITY|BESCOM|TATA ?POWER|AIRTEL|JIO|BSNL|GAS)\b`, Category: "Utilities", Priority: 40, IsRegex: true},
		{Name: "Entertainment", Pattern: `\b(NETFLIX|SPOTIFY|HOTSTAR|BOOKMYSHOW|PRIME ?VIDEO)\b`, Category: "Entertainment", Priority: 40, IsRegex: true},
		{Name: "Rent", Pattern: `\bRENT\b`, Category: "Housing", Priority: 30, IsRegex: true},
	}
}
