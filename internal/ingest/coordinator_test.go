package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/plaid"
	"github.com/Veraticus/spice-ledger/internal/sms"
)

type failingInbox struct{}

func (failingInbox) Messages(context.Context, time.Time) ([]sms.Message, error) {
	return nil, errors.New("permission denied")
}

func TestRefresh_SourcesFailIndependently(t *testing.T) {
	f := newFixture(t, nil)

	mock := plaid.NewMockClient()
	mock.GetTransactionsFn = func(context.Context, time.Time, time.Time) ([]model.Transaction, error) {
		return []model.Transaction{
			{ID: "linked-a", Date: scanDay, Amount: decimal.NewFromInt(-40), Description: "Uber", Source: model.SourceLinked},
		}, nil
	}

	results := f.service.Refresh(context.Background(), Sources{Inbox: failingInbox{}, Linked: mock}, nil)
	require.Len(t, results, 2)

	assert.Equal(t, model.SourceSMS, results[0].Source)
	assert.Error(t, results[0].Err)
	assert.Nil(t, results[0].Summary)

	assert.Equal(t, model.SourceLinked, results[1].Source)
	require.NoError(t, results[1].Err)
	assert.Equal(t, 1, results[1].Summary.Accepted)
	assert.Equal(t, 1, f.ledger.Snapshot().Len())
}

func TestRefresh_AllSources(t *testing.T) {
	f := newFixture(t, nil)

	results := f.service.Refresh(context.Background(), Sources{Inbox: inboxFixture, Linked: plaid.NewMockClient()}, nil)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NoError(t, r.Err, r.Source)
	}
	assert.Equal(t, 2, results[0].Summary.Accepted)
	assert.Zero(t, results[1].Summary.Accepted)
}

func TestRefresh_SkipsNilSources(t *testing.T) {
	f := newFixture(t, nil)
	assert.Empty(t, f.service.Refresh(context.Background(), Sources{}, nil))
}
