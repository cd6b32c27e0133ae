// Package journal is the append-mostly store of ledger entries. Batches
// are written atomically (header + all lines in one KV apply), entries
// are never edited in place, and the only post-append mutation is the
// CONFIRMED -> REVERSED status flip on the batch header.
package journal

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/caixa-dev/caixa/internal/model"
	"github.com/caixa-dev/caixa/internal/storage"
)

const (
	batchPrefix = "journal/batch/"
	entryPrefix = "journal/entry/"
)

var (
	// ErrBatchNotFound means no batch has the given id.
	ErrBatchNotFound = errors.New("batch not found")
	// ErrNotReversible means the batch is not in a reversible state.
	ErrNotReversible = errors.New("batch is not reversible")
)

// Store persists batches of ledger entries in a KV backend.
type Store struct {
	kv storage.KV
}

// NewStore creates a journal Store over a KV backend.
func NewStore(kv storage.KV) *Store {
	return &Store{kv: kv}
}

func batchKey(id string) string { return batchPrefix + id }

func entryKey(batchID string, line int) string {
	return fmt.Sprintf("%s%s/%02d", entryPrefix, batchID, line)
}

// NextSeq returns the next journal-wide batch sequence number.
// Callers serialize appends, so read-then-assign is safe.
func (s *Store) NextSeq(ctx context.Context) (int64, error) {
	batches, err := s.Batches(ctx)
	if err != nil {
		return 0, err
	}
	var max int64
	for _, b := range batches {
		if b.Seq > max {
			max = b.Seq
		}
	}
	return max + 1, nil
}

// AppendBatch writes a batch and all its entries in one atomic apply.
// Re-applying the same batch id overwrites the same keys, so a retry
// after an unknown-outcome write cannot double-post.
func (s *Store) AppendBatch(ctx context.Context, batch model.Batch) error {
	ops, err := batchOps(batch)
	if err != nil {
		return err
	}
	if err := s.kv.Apply(ctx, ops); err != nil {
		return fmt.Errorf("appending batch %s: %w", batch.ID, err)
	}
	return nil
}

// AppendReversal atomically writes the reversing batch and flips the
// original batch header to REVERSED in the same apply, so no reader can
// observe one without the other.
func (s *Store) AppendReversal(ctx context.Context, original, reversal model.Batch) error {
	if original.Status != model.BatchStatusReversed || original.ReversedBy != reversal.ID {
		return fmt.Errorf("appending reversal %s: original header not marked", reversal.ID)
	}

	ops, err := batchOps(reversal)
	if err != nil {
		return err
	}
	headerData, err := marshalBatch(original)
	if err != nil {
		return err
	}
	ops = append(ops, storage.Op{Key: batchKey(original.ID), Value: headerData})

	if err := s.kv.Apply(ctx, ops); err != nil {
		return fmt.Errorf("appending reversal %s: %w", reversal.ID, err)
	}
	return nil
}

func batchOps(batch model.Batch) ([]storage.Op, error) {
	headerData, err := marshalBatch(batch)
	if err != nil {
		return nil, err
	}
	ops := []storage.Op{{Key: batchKey(batch.ID), Value: headerData}}
	for i, e := range batch.Entries {
		data, err := marshalEntry(e, batch.Seq, i)
		if err != nil {
			return nil, err
		}
		ops = append(ops, storage.Op{Key: entryKey(batch.ID, i), Value: data})
	}
	return ops, nil
}

// Batch returns one batch with its entries.
func (s *Store) Batch(ctx context.Context, batchID string) (model.Batch, error) {
	data, err := s.kv.Get(ctx, batchKey(batchID))
	if errors.Is(err, storage.ErrNotFound) {
		return model.Batch{}, fmt.Errorf("%w: %s", ErrBatchNotFound, batchID)
	}
	if err != nil {
		return model.Batch{}, fmt.Errorf("reading batch %s: %w", batchID, err)
	}

	batch, _, err := unmarshalBatch(data)
	if err != nil {
		return model.Batch{}, err
	}

	pairs, err := s.kv.List(ctx, entryPrefix+batchID+"/")
	if err != nil {
		return model.Batch{}, fmt.Errorf("listing entries of %s: %w", batchID, err)
	}
	records := make([]entryRecord, 0, len(pairs))
	for _, p := range pairs {
		rec, err := unmarshalEntry(p.Value)
		if err != nil {
			return model.Batch{}, err
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Line < records[j].Line })
	for _, rec := range records {
		batch.Entries = append(batch.Entries, rec.toModel())
	}
	return batch, nil
}

// Batches returns all batch headers (without entries), in journal order.
func (s *Store) Batches(ctx context.Context) ([]model.Batch, error) {
	pairs, err := s.kv.List(ctx, batchPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	batches := make([]model.Batch, 0, len(pairs))
	for _, p := range pairs {
		b, _, err := unmarshalBatch(p.Value)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}
	sort.Slice(batches, func(i, j int) bool { return batches[i].Seq < batches[j].Seq })
	return batches, nil
}

// Entries returns every ledger entry, ordered by date then journal
// insertion order (batch sequence, then line within the batch).
func (s *Store) Entries(ctx context.Context) ([]model.LedgerEntry, error) {
	records, err := s.entryRecords(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.LedgerEntry, len(records))
	for i, rec := range records {
		out[i] = rec.toModel()
	}
	return out, nil
}

// EntriesForAccount returns the account's entries in replay order,
// optionally bounded by an as-of date (inclusive; zero means no bound).
func (s *Store) EntriesForAccount(ctx context.Context, accountCode string, asOf time.Time) ([]model.LedgerEntry, error) {
	records, err := s.entryRecords(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.LedgerEntry
	for _, rec := range records {
		if rec.AccountCode != accountCode {
			continue
		}
		if !asOf.IsZero() && rec.Date.After(asOf) {
			continue
		}
		out = append(out, rec.toModel())
	}
	return out, nil
}

// EntriesForTransaction returns all entries referencing a domain
// transaction id, in replay order.
func (s *Store) EntriesForTransaction(ctx context.Context, transactionID string) ([]model.LedgerEntry, error) {
	records, err := s.entryRecords(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.LedgerEntry
	for _, rec := range records {
		if rec.TransactionID == transactionID {
			out = append(out, rec.toModel())
		}
	}
	return out, nil
}

// EntryCount returns the number of stored entries.
func (s *Store) EntryCount(ctx context.Context) (int, error) {
	pairs, err := s.kv.List(ctx, entryPrefix)
	if err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return len(pairs), nil
}

func (s *Store) entryRecords(ctx context.Context) ([]entryRecord, error) {
	pairs, err := s.kv.List(ctx, entryPrefix)
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	records := make([]entryRecord, 0, len(pairs))
	for _, p := range pairs {
		rec, err := unmarshalEntry(p.Value)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.BatchSeq != b.BatchSeq {
			return a.BatchSeq < b.BatchSeq
		}
		return a.Line < b.Line
	})
	return records, nil
}
