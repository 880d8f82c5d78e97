package sms

// Rule describes how one issuer phrases its transaction alerts.
//
// Senders are matched as case-insensitive substrings of the sender address.
// Every pattern needs at least one capture group; the first non-empty group is
// the extracted value.
type Rule struct {
	Issuer       string   `mapstructure:"issuer" json:"issuer"`
	Credit       string   `mapstructure:"credit" json:"credit"`
	Debit        string   `mapstructure:"debit" json:"debit"`
	Counterparty string   `mapstructure:"counterparty" json:"counterparty"`
	Reference    string   `mapstructure:"reference" json:"reference"`
	Senders      []string `mapstructure:"senders" json:"senders"`
}

const (
	amountGroup  = `([\d,]+(?:\.\d+)?)`
	currencyMark = `(?:Rs\.?|INR)`
	refAnchor    = `(?i)Ref\s*(?:No\.?)?\s*[:.]?\s*(\d+)`
)

// DefaultRules returns the built-in issuer table. Order matters: the first
// issuer whose sender identifier matches is used.
func DefaultRules() []Rule {
	return []Rule{
		{
			Issuer:       "SBI",
			Senders:      []string{"SBIINB", "SBIUPI", "SBIPSG", "CBSSBI", "ATMSBI"},
			Credit:       `(?i)credited\s+by\s+` + currencyMark + `?\s*` + amountGroup,
			Debit:        `(?i)debited\s+by\s+` + currencyMark + `?\s*` + amountGroup,
			Counterparty: `(?i)trf\s+(?:to|from)\s+(.+?)\s+Ref`,
			Reference:    refAnchor,
		},
		{
			Issuer:       "HDFC",
			Senders:      []string{"HDFCBK", "HDFCBN"},
			Credit:       `(?i)` + currencyMark + `\s*` + amountGroup + `\s+credited\s+to`,
			Debit:        `(?i)` + currencyMark + `\s*` + amountGroup + `\s+debited\s+from`,
			Counterparty: `(?i)\b(?:to|by)\s+VPA\s+(.+?)\s+\(`,
			Reference:    refAnchor,
		},
		{
			Issuer:       "ICICI",
			Senders:      []string{"ICICIB", "ICICIT"},
			Credit:       `(?i)(?:Acct|A/c)\s+\S+\s+(?:is\s+)?credited\s+(?:with|by)\s+` + currencyMark + `\s*` + amountGroup,
			Debit:        `(?i)(?:Acct|A/c)\s+\S+\s+debited\s+(?:for|with)\s+` + currencyMark + `\s*` + amountGroup,
			Counterparty: `(?i)(?:;\s*(.+?)\s+credited|from\s+(.+?)\.\s)`,
			Reference:    `(?i)(?:UPI|Ref(?:\s*No)?)[:.]?\s*(\d+)`,
		},
		{
			Issuer:       "AXIS",
			Senders:      []string{"AXISBK", "AXISBN"},
			Credit:       `(?i)(?:INR|Rs\.?)\s*` + amountGroup + `\s+credited`,
			Debit:        `(?i)(?:INR|Rs\.?)\s*` + amountGroup + `\s+debited`,
			Counterparty: `(?i)UPI/P2[AM]/\d+/([^\n/]+)`,
			Reference:    `(?i)UPI/P2[AM]/(\d+)`,
		},
		{
			Issuer:       "KOTAK",
			Senders:      []string{"KOTAKB"},
			Credit:       `(?i)Received\s+` + currencyMark + `\s*` + amountGroup,
			Debit:        `(?i)Sent\s+` + currencyMark + `\s*` + amountGroup,
			Counterparty: `(?i)\b(?:to|from)\s+(\S+@\S+)\s+on\b`,
			Reference:    `(?i)UPI\s+Ref[:.]?\s*(\d+)`,
		},
	}
}
