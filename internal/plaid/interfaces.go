package plaid

import (
	"context"
	"time"

	"github.com/Veraticus/spice-ledger/internal/model"
)

// TransactionFetcher supplies linked-account entries for a date range. Every
// returned entry is tagged model.SourceLinked and carries a signed amount.
type TransactionFetcher interface {
	GetTransactions(ctx context.Context, startDate, endDate time.Time) ([]model.Transaction, error)
	GetAccounts(ctx context.Context) ([]string, error)
}
