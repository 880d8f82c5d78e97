// Package money parses untrusted amount literals into fixed-point decimals.
package money

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// MaxFractionDigits is the precision every amount literal must fit in.
const MaxFractionDigits = 2

// ErrInvalidAmount is returned for any literal that is not a usable amount.
var ErrInvalidAmount = errors.New("invalid amount")

var (
	literalRegex = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	// Currency markers seen in bank messages and receipts.
	currencyRegex = regexp.MustCompile(`(?i)^(rs\.?|inr|usd|eur|gbp|₹|\$|€|£)\s*`)
	// Western thousands (1,234,567) or Indian lakh grouping (12,34,567).
	groupingRegex = regexp.MustCompile(`^(\d{1,3}(,\d{3})*|\d{1,2}(,\d{2})*,\d{3})(\.\d+)?$`)
)

// ParseLiteral parses a plain decimal literal such as "1,250.50".
// Western and Indian grouping commas are accepted. A comma in any other
// position, such as a decimal comma in "12,34", is rejected, as are signs,
// exponents and more than two fractional digits.
func ParseLiteral(s string) (decimal.Decimal, error) {
	lit := strings.TrimSpace(s)
	if lit == "" {
		return decimal.Zero, fmt.Errorf("%w: empty literal", ErrInvalidAmount)
	}
	if strings.Contains(lit, ",") {
		if !groupingRegex.MatchString(lit) {
			return decimal.Zero, fmt.Errorf("%w: bad digit grouping in %q", ErrInvalidAmount, s)
		}
		lit = strings.ReplaceAll(lit, ",", "")
	}
	if !literalRegex.MatchString(lit) {
		return decimal.Zero, fmt.Errorf("%w: %q is not a fixed-point amount", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(lit)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return d, nil
}

// ParsePositive parses a literal that must be strictly greater than zero.
func ParsePositive(s string) (decimal.Decimal, error) {
	d, err := ParseLiteral(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: amount must be positive, got %s", ErrInvalidAmount, d)
	}
	return d, nil
}

// ParseText parses free text such as an OCR total ("₹ 1,299.00", "Rs. 45").
// A leading currency marker and surrounding whitespace are dropped before the
// literal is parsed with ParsePositive.
func ParseText(s string) (decimal.Decimal, error) {
	text := strings.TrimSpace(s)
	text = currencyRegex.ReplaceAllString(text, "")
	text = strings.TrimSuffix(strings.TrimSpace(text), "/-")
	return ParsePositive(text)
}

// ParseSigned parses an optionally signed literal ("-12.50", "+3").
func ParseSigned(s string) (decimal.Decimal, error) {
	text := strings.TrimSpace(s)
	negative := false
	switch {
	case strings.HasPrefix(text, "-"):
		negative = true
		text = text[1:]
	case strings.HasPrefix(text, "+"):
		text = text[1:]
	}
	d, err := ParsePositive(text)
	if err != nil {
		return decimal.Zero, err
	}
	if negative {
		return d.Neg(), nil
	}
	return d, nil
}

// Format renders an amount with exactly two fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(MaxFractionDigits)
}
