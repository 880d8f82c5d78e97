package plaid

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/model"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		config  Config
		name    string
		errMsg  string
		wantErr bool
	}{
		{
			name: "valid config",
			config: Config{
				ClientID:    "test-client-id",
				Secret:      "test-secret",
				Environment: "sandbox",
				AccessToken: "test-token",
			},
		},
		{
			name: "missing client ID",
			config: Config{
				Secret:      "test-secret",
				Environment: "sandbox",
				AccessToken: "test-token",
			},
			wantErr: true,
			errMsg:  "plaid client ID is required",
		},
		{
			name: "missing secret",
			config: Config{
				ClientID:    "test-client-id",
				Environment: "sandbox",
				AccessToken: "test-token",
			},
			wantErr: true,
			errMsg:  "plaid secret is required",
		},
		{
			name: "missing access token",
			config: Config{
				ClientID:    "test-client-id",
				Secret:      "test-secret",
				Environment: "sandbox",
			},
			wantErr: true,
			errMsg:  "plaid access token is required",
		},
		{
			name: "invalid environment",
			config: Config{
				ClientID:    "test-client-id",
				Secret:      "test-secret",
				Environment: "development",
				AccessToken: "test-token",
			},
			wantErr: true,
			errMsg:  "invalid Plaid environment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(Config{
		ClientID:    "test-client-id",
		Secret:      "test-secret",
		Environment: "sandbox",
		AccessToken: "test-token",
	}, nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, client.client)
	assert.Equal(t, "test-token", client.accessToken)
	assert.NotNil(t, client.retryOpts)
	assert.Equal(t, time.UTC, client.loc)

	client, err = NewClient(Config{ClientID: "test-client-id"}, time.UTC, nil)
	require.Error(t, err)
	assert.Nil(t, client)
}

func TestClient_GetTransactions_Validation(t *testing.T) {
	client := &Client{
		accessToken: "test-token",
		logger:      slog.Default().With("component", "plaid-test"),
	}

	//nolint:staticcheck // nil context is the case under test
	_, err := client.GetTransactions(nil, time.Now().AddDate(0, -1, 0), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cannot be nil")

	_, err = client.GetTransactions(context.Background(), time.Now(), time.Now().AddDate(0, -1, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "start date must be before end date")
}

func TestMapPlaidTransaction(t *testing.T) {
	var spend plaid.Transaction
	spend.SetTransactionId("tx-out")
	spend.SetDate("2024-03-05")
	spend.SetAmount(12.5)
	spend.SetName("STARBUCKS STORE 123456789")
	spend.SetPending(true)

	got, err := mapPlaidTransaction(spend, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "linked-tx-out", got.ID)
	assert.Equal(t, "-12.5", got.Amount.String())
	assert.True(t, got.IsExpense())
	assert.True(t, got.Pending)
	assert.Equal(t, model.SourceLinked, got.Source)
	assert.Equal(t, "Starbucks Store", got.Merchant)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), got.Date)
	assert.Empty(t, got.Category)

	var refund plaid.Transaction
	refund.SetTransactionId("tx-in")
	refund.SetDate("2024-03-06")
	refund.SetAmount(-40)
	refund.SetName("Refund")

	got, err = mapPlaidTransaction(refund, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "40", got.Amount.String())
	assert.True(t, got.IsIncome())
	assert.False(t, got.Pending)
	assert.Empty(t, got.Supersedes)
}

func TestMapPlaidTransaction_DateInReferenceZone(t *testing.T) {
	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	var pt plaid.Transaction
	pt.SetTransactionId("tx-march")
	pt.SetDate("2024-03-01")
	pt.SetAmount(25)
	pt.SetName("Grocer")

	got, err := mapPlaidTransaction(pt, newYork)
	require.NoError(t, err)
	assert.True(t, got.Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, newYork)), "date = %v", got.Date)
	assert.Equal(t, "2024-03", got.Date.In(newYork).Format("2006-01"))
	assert.Equal(t, time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC), got.Date.UTC())
}

func TestMapPlaidTransaction_PostedSupersedesPending(t *testing.T) {
	var posted plaid.Transaction
	posted.SetTransactionId("tx-posted")
	posted.SetDate("2024-03-07")
	posted.SetAmount(42)
	posted.SetName("UBER TRIP")
	posted.SetPendingTransactionId("tx-pending")

	got, err := mapPlaidTransaction(posted, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "linked-tx-posted", got.ID)
	assert.Equal(t, "linked-tx-pending", got.Supersedes)

	// Only a posted entry settles its pending predecessor.
	posted.SetPending(true)
	got, err = mapPlaidTransaction(posted, time.UTC)
	require.NoError(t, err)
	assert.Empty(t, got.Supersedes)
}

func TestMapPlaidTransaction_Rejects(t *testing.T) {
	var noDate plaid.Transaction
	noDate.SetTransactionId("tx")
	noDate.SetDate("05/03/2024")
	noDate.SetAmount(1)
	_, err := mapPlaidTransaction(noDate, time.UTC)
	assert.Error(t, err)

	var zero plaid.Transaction
	zero.SetTransactionId("tx")
	zero.SetDate("2024-03-05")
	_, err = mapPlaidTransaction(zero, time.UTC)
	assert.Error(t, err)

	var noID plaid.Transaction
	noID.SetDate("2024-03-05")
	noID.SetAmount(1)
	_, err = mapPlaidTransaction(noID, time.UTC)
	assert.Error(t, err)
}

func TestCleanMerchantName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "basic name", input: "Starbucks", expected: "Starbucks"},
		{name: "lowercase to title case", input: "starbucks coffee", expected: "Starbucks Coffee"},
		{name: "remove LLC suffix", input: "Amazon LLC", expected: "Amazon"},
		{name: "remove Pvt Ltd suffixes", input: "Zomato Pvt Ltd", expected: "Zomato"},
		{name: "remove transaction ID", input: "PAYPAL 123456789", expected: "Paypal"},
		{name: "preserve short numbers", input: "7-ELEVEN 2345", expected: "7-Eleven 2345"},
		{name: "multiple cleanups", input: "amazon.com llc 987654321", expected: "Amazon.Com"},
		{name: "extra spaces", input: "  Google   Cloud   ", expected: "Google Cloud"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, cleanMerchantName(tt.input))
		})
	}
}

func TestMockClient(t *testing.T) {
	mock := NewMockClient()
	startDate := time.Now().AddDate(0, -1, 0)
	endDate := time.Now()

	expected := []model.Transaction{{ID: "linked-tx1", Source: model.SourceLinked}}
	mock.GetTransactionsFn = func(_ context.Context, _, _ time.Time) ([]model.Transaction, error) {
		return expected, nil
	}

	txs, err := mock.GetTransactions(context.Background(), startDate, endDate)
	require.NoError(t, err)
	assert.Equal(t, expected, txs)
	require.Equal(t, 1, mock.Calls())
	assert.Equal(t, startDate, mock.GetTransactionsCalls[0].StartDate)

	accounts, err := mock.GetAccounts(context.Background())
	require.NoError(t, err)
	assert.Empty(t, accounts)
	assert.Equal(t, 1, mock.GetAccountsCalls)

	mock.Reset()
	assert.Zero(t, mock.Calls())
	assert.Zero(t, mock.GetAccountsCalls)
}
