// Package plaid feeds linked-account transactions from the Plaid API into the
// ledger.
package plaid

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/service"
)

const dateLayout = "2006-01-02"

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string `mapstructure:"client_id"`
	Secret      string `mapstructure:"secret"`
	Environment string `mapstructure:"environment"` // sandbox or production
	AccessToken string `mapstructure:"access_token"`
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("plaid client ID is required")
	}
	if c.Secret == "" {
		return fmt.Errorf("plaid secret is required")
	}
	if c.AccessToken == "" {
		return fmt.Errorf("plaid access token is required")
	}
	if c.Environment == "" {
		return fmt.Errorf("plaid environment is required")
	}
	if c.Environment != "sandbox" && c.Environment != "production" {
		return fmt.Errorf("invalid Plaid environment: must be sandbox or production")
	}
	return nil
}

// Client implements the TransactionFetcher interface.
type Client struct {
	client      *plaid.APIClient
	logger      *slog.Logger
	retryOpts   *service.RetryOptions
	loc         *time.Location
	accessToken string
}

// NewClient creates a new Plaid client with the given configuration.
// Plaid dates are calendar days; loc is the zone they are anchored in and
// defaults to UTC.
func NewClient(cfg Config, loc *time.Location, logger *slog.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if loc == nil {
		loc = time.UTC
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)
	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &Client{
		client:      plaid.NewAPIClient(configuration),
		accessToken: cfg.AccessToken,
		loc:         loc,
		logger:      logger.With("component", "plaid"),
		retryOpts: &service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// GetTransactions fetches the linked transactions dated within
// [startDate, endDate], already converted to signed ledger entries.
func (c *Client) GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}
	if startDate.After(endDate) {
		return nil, fmt.Errorf("start date must be before end date")
	}

	c.logger.Info("Fetching transactions from Plaid",
		"start_date", startDate.Format(dateLayout),
		"end_date", endDate.Format(dateLayout))

	var all []plaid.Transaction
	offset := int32(0)
	const pageSize = int32(500) // Plaid's max page size

	for {
		var page []plaid.Transaction

		retryErr := common.WithRetry(ctx, func() error {
			request := plaid.NewTransactionsGetRequest(c.accessToken, startDate.Format(dateLayout), endDate.Format(dateLayout))
			request.SetOptions(plaid.TransactionsGetRequestOptions{
				Count:  plaid.PtrInt32(pageSize),
				Offset: plaid.PtrInt32(offset),
			})

			resp, _, err := c.client.PlaidApi.TransactionsGet(ctx).TransactionsGetRequest(*request).Execute()
			if err != nil {
				return c.classify(err, "failed to fetch transactions")
			}

			page = resp.GetTransactions()
			c.logger.Debug("Fetched transaction batch",
				"count", len(page),
				"offset", offset,
				"total", resp.GetTotalTransactions())
			return nil
		}, *c.retryOpts)
		if retryErr != nil {
			return nil, fmt.Errorf("%w: %w", common.ErrLinkedFetch, retryErr)
		}

		all = append(all, page...)
		if len(page) < int(pageSize) {
			break
		}
		offset += pageSize
	}

	txns := make([]model.Transaction, 0, len(all))
	for _, pt := range all {
		tx, err := mapPlaidTransaction(pt, c.location())
		if err != nil {
			c.logger.Warn("Skipping Plaid transaction", "id", pt.GetTransactionId(), "error", err)
			continue
		}
		txns = append(txns, tx)
	}
	c.logger.Info("Fetched all transactions", "count", len(txns), "skipped", len(all)-len(txns))
	return txns, nil
}

// GetAccounts fetches account IDs from Plaid.
func (c *Client) GetAccounts(ctx context.Context) ([]string, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	var accounts []plaid.AccountBase
	retryErr := common.WithRetry(ctx, func() error {
		request := plaid.NewAccountsGetRequest(c.accessToken)
		resp, _, err := c.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
		if err != nil {
			return c.classify(err, "failed to fetch accounts")
		}
		accounts = resp.GetAccounts()
		return nil
	}, *c.retryOpts)
	if retryErr != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrLinkedFetch, retryErr)
	}

	ids := make([]string, 0, len(accounts))
	for _, account := range accounts {
		ids = append(ids, account.GetAccountId())
	}
	return ids, nil
}

// classify turns rate limiting into a retryable error.
func (c *Client) classify(err error, msg string) error {
	if plaidError := extractPlaidError(err); plaidError != nil {
		if plaidError.ErrorCode == "RATE_LIMIT_EXCEEDED" {
			c.logger.Warn("Rate limit hit, will retry", "error", plaidError.ErrorMessage)
			return &common.RetryableError{Err: fmt.Errorf("%w: %s", common.ErrPlaidRateLimit, plaidError.ErrorMessage), Retryable: true}
		}
		return fmt.Errorf("plaid API error: %s - %s", plaidError.ErrorCode, plaidError.ErrorMessage)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func (c *Client) location() *time.Location {
	if c.loc == nil {
		return time.UTC
	}
	return c.loc
}

// mapPlaidTransaction converts a Plaid transaction to a ledger entry dated
// at midnight in loc. Plaid reports money out as a positive amount, so the
// sign is flipped. A posted transaction that settles a pending one names it
// in Supersedes.
func mapPlaidTransaction(pt plaid.Transaction, loc *time.Location) (model.Transaction, error) {
	if pt.GetTransactionId() == "" {
		return model.Transaction{}, fmt.Errorf("missing transaction id")
	}
	date, err := time.ParseInLocation(dateLayout, pt.GetDate(), loc)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("bad date %q: %w", pt.GetDate(), err)
	}
	amount := decimal.NewFromFloat(pt.GetAmount()).Round(2).Neg()
	if amount.IsZero() {
		return model.Transaction{}, fmt.Errorf("zero amount")
	}

	name := common.SanitizeText(pt.GetName())
	merchant := pt.GetMerchantName()
	if merchant == "" {
		merchant = name
	}

	tx := model.Transaction{
		ID:          model.LinkedID(pt.GetTransactionId()),
		Date:        date,
		Amount:      amount,
		Description: name,
		Merchant:    cleanMerchantName(common.SanitizeText(merchant)),
		Source:      model.SourceLinked,
		Pending:     pt.GetPending(),
	}
	if pendingID := pt.GetPendingTransactionId(); pendingID != "" && !tx.Pending {
		tx.Supersedes = model.LinkedID(pendingID)
	}
	return tx, nil
}

// cleanMerchantName standardizes merchant names by removing common suffixes and normalizing format.
func cleanMerchantName(name string) string {
	words := strings.Fields(strings.ToLower(name))
	for i, word := range words {
		runes := []rune(word)
		for j := range runes {
			if j == 0 || !isLetter(runes[j-1]) {
				runes[j] = toUpper(runes[j])
			}
		}
		words[i] = string(runes)
	}

	// A trailing long number is usually a processor transaction id.
	if len(words) > 1 {
		last := words[len(words)-1]
		if len(last) > 5 && isAllDigits(last) {
			words = words[:len(words)-1]
		}
	}
	name = strings.Join(words, " ")

	suffixes := []string{" Llc", " Inc", " Corp", " Corporation", " Company", " Co", " Ltd", " Limited", " Pvt"}
	for changed := true; changed; {
		changed = false
		for _, suffix := range suffixes {
			if strings.HasSuffix(name, suffix) {
				name = strings.TrimSuffix(name, suffix)
				changed = true
			}
		}
	}
	return strings.TrimSpace(name)
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - 32
	}
	return r
}

// extractPlaidError attempts to extract a Plaid error from a generic error.
func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}

var _ TransactionFetcher = (*Client)(nil)
