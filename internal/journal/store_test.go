package journal

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/caixa-dev/caixa/internal/id"
	"github.com/caixa-dev/caixa/internal/model"
	"github.com/caixa-dev/caixa/internal/storage"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testBatch(seq int64, day int, debitAcct, creditAcct, amount string) model.Batch {
	batchID := id.NewBatchID()
	when := date(2025, time.March, day)
	return model.Batch{
		ID:        batchID,
		Seq:       seq,
		Reference: "test",
		Date:      when,
		Status:    model.BatchStatusConfirmed,
		CreatedAt: when,
		CreatedBy: "tester",
		Entries: []model.LedgerEntry{
			{
				ID:          id.EntryID(batchID, 0),
				BatchID:     batchID,
				AccountCode: debitAcct,
				Debit:       dec(amount),
				Date:        when,
				Status:      model.EntryStatusConfirmed,
			},
			{
				ID:          id.EntryID(batchID, 1),
				BatchID:     batchID,
				AccountCode: creditAcct,
				Credit:      dec(amount),
				Date:        when,
				Status:      model.EntryStatusConfirmed,
			},
		},
	}
}

func TestAppendAndReadBatch(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemory())

	b := testBatch(1, 10, "1.1.02", "4.1.01", "100.00")
	require.NoError(t, store.AppendBatch(ctx, b))

	got, err := store.Batch(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)
	assert.Equal(t, model.BatchStatusConfirmed, got.Status)
	require.Len(t, got.Entries, 2)
	assert.True(t, got.Entries[0].Debit.Equal(dec("100.00")))
	assert.True(t, got.Entries[1].Credit.Equal(dec("100.00")))

	count, err := store.EntryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestBatchNotFound(t *testing.T) {
	store := NewStore(storage.NewMemory())
	_, err := store.Batch(context.Background(), "bat-missing")
	assert.ErrorIs(t, err, ErrBatchNotFound)
}

func TestAppendBatchIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemory())

	b := testBatch(1, 10, "1.1.02", "4.1.01", "50.00")
	require.NoError(t, store.AppendBatch(ctx, b))
	// Retry after an unknown-outcome write: same keys, no double-post.
	require.NoError(t, store.AppendBatch(ctx, b))

	count, err := store.EntryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestEntriesReplayOrder(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemory())

	// Appended out of date order: seq 1 on day 20, seq 2 on day 5.
	late := testBatch(1, 20, "1.1.02", "4.1.01", "10.00")
	early := testBatch(2, 5, "1.1.02", "4.1.01", "20.00")
	require.NoError(t, store.AppendBatch(ctx, late))
	require.NoError(t, store.AppendBatch(ctx, early))

	entries, err := store.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, early.ID, entries[0].BatchID, "date ordering wins over insertion")
	assert.Equal(t, late.ID, entries[2].BatchID)
}

func TestEntriesForAccountAsOf(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemory())

	require.NoError(t, store.AppendBatch(ctx, testBatch(1, 5, "1.1.02", "4.1.01", "10.00")))
	require.NoError(t, store.AppendBatch(ctx, testBatch(2, 25, "1.1.02", "4.1.01", "30.00")))

	all, err := store.EntriesForAccount(ctx, "1.1.02", time.Time{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	bounded, err := store.EntriesForAccount(ctx, "1.1.02", date(2025, time.March, 10))
	require.NoError(t, err)
	require.Len(t, bounded, 1)
	assert.True(t, bounded[0].Debit.Equal(dec("10.00")))

	none, err := store.EntriesForAccount(ctx, "5.1.01", time.Time{})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNextSeq(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemory())

	seq, err := store.NextSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), seq)

	require.NoError(t, store.AppendBatch(ctx, testBatch(seq, 1, "1.1.02", "4.1.01", "5.00")))
	seq, err = store.NextSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestAppendReversal(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemory())

	original := testBatch(1, 10, "1.1.02", "4.1.01", "100.00")
	require.NoError(t, store.AppendBatch(ctx, original))

	reversal := testBatch(2, 15, "4.1.01", "1.1.02", "100.00")
	reversal.ReversalOf = original.ID
	original.Status = model.BatchStatusReversed
	original.ReversedBy = reversal.ID

	require.NoError(t, store.AppendReversal(ctx, original, reversal))

	gotOriginal, err := store.Batch(ctx, original.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusReversed, gotOriginal.Status)
	assert.Equal(t, reversal.ID, gotOriginal.ReversedBy)

	gotReversal, err := store.Batch(ctx, reversal.ID)
	require.NoError(t, err)
	assert.Equal(t, original.ID, gotReversal.ReversalOf)
}

func TestAppendReversalRequiresMarkedOriginal(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemory())

	original := testBatch(1, 10, "1.1.02", "4.1.01", "100.00")
	reversal := testBatch(2, 15, "4.1.01", "1.1.02", "100.00")
	err := store.AppendReversal(ctx, original, reversal)
	assert.Error(t, err)
}

func TestEntriesForTransaction(t *testing.T) {
	ctx := context.Background()
	store := NewStore(storage.NewMemory())

	b := testBatch(1, 10, "1.1.02", "4.1.01", "100.00")
	b.TransactionID = "txn-1"
	for i := range b.Entries {
		b.Entries[i].TransactionID = "txn-1"
	}
	require.NoError(t, store.AppendBatch(ctx, b))

	got, err := store.EntriesForTransaction(ctx, "txn-1")
	require.NoError(t, err)
	assert.Len(t, got, 2)

	none, err := store.EntriesForTransaction(ctx, "txn-2")
	require.NoError(t, err)
	assert.Empty(t, none)
}
