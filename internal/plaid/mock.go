package plaid

import (
	"context"
	"sync"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// MockClient is a mock implementation of TransactionFetcher for testing.
type MockClient struct {
	GetTransactionsFn func(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error)
	GetAccountsFn     func(ctx context.Context) ([]string, error)

	GetTransactionsCalls []GetTransactionsCall
	GetAccountsCalls     int
	mu                   sync.Mutex
}

// GetTransactionsCall records the parameters of a GetTransactions call.
type GetTransactionsCall struct {
	StartDate time.Time
	EndDate   time.Time
}

// NewMockClient creates a new mock Plaid client.
func NewMockClient() *MockClient {
	return &MockClient{
		GetTransactionsCalls: []GetTransactionsCall{},
	}
}

// GetTransactions implements TransactionFetcher.
func (m *MockClient) GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error) {
	m.mu.Lock()
	m.GetTransactionsCalls = append(m.GetTransactionsCalls, GetTransactionsCall{
		StartDate: startDate,
		EndDate:   endDate,
	})
	m.mu.Unlock()

	if m.GetTransactionsFn != nil {
		return m.GetTransactionsFn(ctx, startDate, endDate)
	}
	return []model.Transaction{}, nil
}

// GetAccounts implements TransactionFetcher.
func (m *MockClient) GetAccounts(ctx context.Context) ([]string, error) {
	m.mu.Lock()
	m.GetAccountsCalls++
	m.mu.Unlock()

	if m.GetAccountsFn != nil {
		return m.GetAccountsFn(ctx)
	}
	return []string{}, nil
}

// Calls returns how many times GetTransactions was called.
func (m *MockClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.GetTransactionsCalls)
}

// Reset clears all call tracking.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetTransactionsCalls = []GetTransactionsCall{}
	m.GetAccountsCalls = 0
}

var _ TransactionFetcher = (*MockClient)(nil)
