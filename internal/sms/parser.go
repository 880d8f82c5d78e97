// Package sms turns bank notification messages into structured events using a
// declarative per-issuer rule table.
package sms

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/money"
)

var issuerCode = regexp.MustCompile(`^[A-Z0-9_]+$`)

type compiledRule struct {
	credit       *regexp.Regexp
	debit        *regexp.Regexp
	counterparty *regexp.Regexp
	reference    *regexp.Regexp
	issuer       string
	senders      []string
}

// Parser matches messages against an ordered issuer rule table.
// It holds no mutable state and is safe for concurrent use.
type Parser struct {
	rules []compiledRule
}

// NewParser compiles and validates rules. A rule missing any pattern, or a
// pattern without a capture group, is a configuration error.
func NewParser(rules []Rule) (*Parser, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: no issuer rules", common.ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(rules))
	p := &Parser{rules: make([]compiledRule, 0, len(rules))}
	for i, rule := range rules {
		issuer := strings.ToUpper(strings.TrimSpace(rule.Issuer))
		if issuer == "" {
			return nil, fmt.Errorf("%w: rule %d has no issuer", common.ErrInvalidConfig, i)
		}
		if !issuerCode.MatchString(issuer) {
			return nil, fmt.Errorf("%w: issuer code %q must be alphanumeric", common.ErrInvalidConfig, rule.Issuer)
		}
		if seen[issuer] {
			return nil, fmt.Errorf("%w: issuer %s defined twice", common.ErrInvalidConfig, issuer)
		}
		seen[issuer] = true

		cr := compiledRule{issuer: issuer}
		for _, s := range rule.Senders {
			if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
				cr.senders = append(cr.senders, s)
			}
		}
		if len(cr.senders) == 0 {
			return nil, fmt.Errorf("%w: issuer %s has no sender identifiers", common.ErrInvalidConfig, issuer)
		}

		var err error
		if cr.credit, err = compilePattern(issuer, "credit", rule.Credit); err != nil {
			return nil, err
		}
		if cr.debit, err = compilePattern(issuer, "debit", rule.Debit); err != nil {
			return nil, err
		}
		if cr.counterparty, err = compilePattern(issuer, "counterparty", rule.Counterparty); err != nil {
			return nil, err
		}
		if cr.reference, err = compilePattern(issuer, "reference", rule.Reference); err != nil {
			return nil, err
		}
		p.rules = append(p.rules, cr)
	}
	return p, nil
}

// NewDefaultParser returns a parser over DefaultRules.
func NewDefaultParser() *Parser {
	p, err := NewParser(DefaultRules())
	if err != nil {
		panic(fmt.Sprintf("built-in sms rules are invalid: %v", err))
	}
	return p
}

func compilePattern(issuer, field, pattern string) (*regexp.Regexp, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, fmt.Errorf("%w: issuer %s is missing the %s pattern", common.ErrInvalidConfig, issuer, field)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: issuer %s %s pattern: %v", common.ErrInvalidConfig, issuer, field, err)
	}
	if re.NumSubexp() == 0 {
		return nil, fmt.Errorf("%w: issuer %s %s pattern has no capture group", common.ErrInvalidConfig, issuer, field)
	}
	return re, nil
}

// Issuers lists the configured issuers in match order.
func (p *Parser) Issuers() []string {
	out := make([]string, len(p.rules))
	for i, r := range p.rules {
		out[i] = r.issuer
	}
	return out
}

// Issuer returns the issuer selected for a sender address. Only the sender is
// consulted; message content never influences issuer selection.
func (p *Parser) Issuer(sender string) (string, bool) {
	r := p.ruleFor(sender)
	if r == nil {
		return "", false
	}
	return r.issuer, true
}

func (p *Parser) ruleFor(sender string) *compiledRule {
	addr := strings.ToUpper(sender)
	for i := range p.rules {
		for _, id := range p.rules[i].senders {
			if strings.Contains(addr, id) {
				return &p.rules[i]
			}
		}
	}
	return nil
}

// Parse extracts one event from a message. deliveredAt is the message's own
// delivery time and becomes the event timestamp. Failures are *ParseError.
func (p *Parser) Parse(sender, body string, deliveredAt time.Time) (model.RawEvent, error) {
	rule := p.ruleFor(sender)
	if rule == nil {
		return model.RawEvent{}, &ParseError{Reason: ReasonUnknownIssuer}
	}

	fail := func(reason Reason, field string, err error) (model.RawEvent, error) {
		return model.RawEvent{}, &ParseError{Reason: reason, Issuer: rule.issuer, Field: field, Err: err}
	}

	credit, hasCredit := firstGroup(rule.credit, body)
	debit, hasDebit := firstGroup(rule.debit, body)

	var (
		literal   string
		direction model.Direction
	)
	switch {
	case hasCredit && hasDebit:
		return fail(ReasonAmbiguousDirection, "amount", nil)
	case hasCredit:
		literal, direction = credit, model.DirectionCredit
	case hasDebit:
		literal, direction = debit, model.DirectionDebit
	default:
		return fail(ReasonMalformedBody, "amount", nil)
	}

	amount, err := money.ParsePositive(strings.TrimRight(literal, ","))
	if err != nil {
		return fail(ReasonNumericParse, "amount", err)
	}

	raw, ok := firstGroup(rule.counterparty, body)
	counterparty := common.SanitizeText(raw)
	if !ok || counterparty == "" {
		return fail(ReasonMalformedBody, "counterparty", nil)
	}

	ref, ok := firstGroup(rule.reference, body)
	if !ok {
		return fail(ReasonMalformedBody, "reference", nil)
	}

	if deliveredAt.IsZero() {
		return fail(ReasonNumericParse, "date", fmt.Errorf("missing delivery time"))
	}

	return model.RawEvent{
		Issuer:       rule.issuer,
		Direction:    direction,
		Amount:       amount,
		Counterparty: counterparty,
		ReferenceID:  ref,
		OccurredAt:   deliveredAt,
	}, nil
}

// firstGroup returns the first non-empty capture group of the leftmost match.
func firstGroup(re *regexp.Regexp, s string) (string, bool) {
	m := re.FindStringSubmatch(s)
	for i := 1; i < len(m); i++ {
		if v := strings.TrimSpace(m[i]); v != "" {
			return v, true
		}
	}
	return "", false
}
