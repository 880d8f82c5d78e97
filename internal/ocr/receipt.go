// Package ocr normalizes OCR-extracted receipt fields into ledger entries.
package ocr

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/money"
)

// Receipt is the field set the OCR service returns for one image. Every
// field is untrusted text.
type Receipt struct {
	BusinessName string `json:"business_name"`
	TotalAmount  string `json:"total_amount"`
	Date         string `json:"date"`
	RawText      string `json:"raw_text,omitempty"`
}

// Normalization failures.
var (
	ErrMissingBusiness = errors.New("receipt has no business name")
	ErrBadAmount       = errors.New("receipt total is not a usable amount")
	ErrBadDate         = errors.New("receipt date is not recognized")
)

// namespace scopes receipt ids so the same receipt always maps to the same id.
var namespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("spice-ledger/ocr-receipt"))

// Layouts tried in order. Day-first layouts come before month-first ones
// because the bundled issuers are Indian.
var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"02/01/06",
	"02-01-06",
	"2 Jan 2006",
	"02 Jan 2006",
	"2-Jan-2006",
	"02-Jan-2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2006/01/02",
	time.RFC3339,
}

// Normalize turns a receipt into a debit ledger entry dated in loc. The id
// is derived from the normalized business, total and date, so re-submitting
// the same receipt yields the same id and is rejected as a duplicate.
func Normalize(r Receipt, loc *time.Location) (model.Transaction, error) {
	if loc == nil {
		loc = time.UTC
	}

	business := common.SanitizeText(r.BusinessName)
	if business == "" {
		return model.Transaction{}, ErrMissingBusiness
	}

	total, err := money.ParseText(common.SanitizeText(r.TotalAmount))
	if err != nil {
		return model.Transaction{}, fmt.Errorf("%w: %w", ErrBadAmount, err)
	}

	date, err := ParseDate(r.Date, loc)
	if err != nil {
		return model.Transaction{}, err
	}

	return model.Transaction{
		ID:          ReceiptID(business, total.StringFixed(money.MaxFractionDigits), date),
		Date:        date,
		Amount:      total.Neg(),
		Description: business,
		Merchant:    business,
		Source:      model.SourceOCR,
	}, nil
}

// ReceiptID returns the deterministic ledger id of a receipt.
func ReceiptID(business, total string, date time.Time) string {
	key := strings.ToUpper(business) + "|" + total + "|" + date.Format("2006-01-02")
	return "ocr-" + uuid.NewSHA1(namespace, []byte(key)).String()
}

// ParseDate parses a receipt date in any of the supported layouts. Dates
// without a zone are interpreted in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	text := strings.Join(strings.Fields(common.SanitizeText(s)), " ")
	if text == "" {
		return time.Time{}, fmt.Errorf("%w: empty", ErrBadDate)
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, text, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrBadDate, s)
}
