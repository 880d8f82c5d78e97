package ledger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/spice-ledger/internal/model"
)

func TestSubscribe_CoalescesToLatest(t *testing.T) {
	l := openTestLedger(t, &memoryStore{}, nil)
	ctx := context.Background()

	updates, cancel := l.Subscribe()
	defer cancel()

	_, err := l.IngestEvents(ctx, []model.RawEvent{smsEvent("SBI", "1", 1, "10", model.DirectionDebit)})
	require.NoError(t, err)
	_, err = l.IngestEvents(ctx, []model.RawEvent{smsEvent("SBI", "2", 2, "10", model.DirectionDebit)})
	require.NoError(t, err)

	snap := <-updates
	assert.Equal(t, uint64(2), snap.Version)
	assert.Equal(t, 2, snap.Len())

	select {
	case extra := <-updates:
		t.Fatalf("unexpected backlog snapshot v%d", extra.Version)
	default:
	}
}

func TestSubscribe_NoPublishOnDuplicates(t *testing.T) {
	l := openTestLedger(t, &memoryStore{}, nil)
	ctx := context.Background()
	events := []model.RawEvent{smsEvent("SBI", "1", 1, "10", model.DirectionDebit)}

	_, err := l.IngestEvents(ctx, events)
	require.NoError(t, err)

	updates, cancel := l.Subscribe()
	defer cancel()

	_, err = l.IngestEvents(ctx, events)
	require.NoError(t, err)

	select {
	case snap := <-updates:
		t.Fatalf("duplicate-only ingest published v%d", snap.Version)
	default:
	}
}

func TestSubscribe_CancelClosesChannel(t *testing.T) {
	l := openTestLedger(t, &memoryStore{}, nil)

	updates, cancel := l.Subscribe()
	cancel()
	cancel()

	_, ok := <-updates
	assert.False(t, ok)

	_, err := l.IngestEvents(context.Background(), []model.RawEvent{smsEvent("SBI", "1", 1, "10", model.DirectionDebit)})
	require.NoError(t, err)
}
