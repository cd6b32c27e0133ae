package journal

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/caixa-dev/caixa/internal/model"
)

// batchRecord is the stored form of a batch header (entries are stored
// separately, one key per line, so the whole batch lands in one Apply).
type batchRecord struct {
	ID            string    `json:"id"`
	Seq           int64     `json:"seq"`
	Reference     string    `json:"reference"`
	TransactionID string    `json:"transaction_id,omitempty"`
	Date          time.Time `json:"date"`
	Status        string    `json:"status"`
	ReversalOf    string    `json:"reversal_of,omitempty"`
	ReversedBy    string    `json:"reversed_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	CreatedBy     string    `json:"created_by"`
	Lines         int       `json:"lines"`
}

// entryRecord is the stored form of one ledger entry. BatchSeq and Line
// preserve journal-wide insertion order for deterministic replays.
type entryRecord struct {
	ID            string          `json:"id"`
	BatchID       string          `json:"batch_id"`
	BatchSeq      int64           `json:"batch_seq"`
	Line          int             `json:"line"`
	TransactionID string          `json:"transaction_id,omitempty"`
	AccountCode   string          `json:"account_code"`
	Description   string          `json:"description"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Balance       decimal.Decimal `json:"balance"`
	Date          time.Time       `json:"date"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	CreatedBy     string          `json:"created_by"`
}

func marshalBatch(b model.Batch) ([]byte, error) {
	rec := batchRecord{
		ID:            b.ID,
		Seq:           b.Seq,
		Reference:     b.Reference,
		TransactionID: b.TransactionID,
		Date:          b.Date,
		Status:        string(b.Status),
		ReversalOf:    b.ReversalOf,
		ReversedBy:    b.ReversedBy,
		CreatedAt:     b.CreatedAt,
		CreatedBy:     b.CreatedBy,
		Lines:         len(b.Entries),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshaling batch %s: %w", b.ID, err)
	}
	return data, nil
}

func unmarshalBatch(data []byte) (model.Batch, int, error) {
	var rec batchRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return model.Batch{}, 0, fmt.Errorf("unmarshaling batch: %w", err)
	}
	return model.Batch{
		ID:            rec.ID,
		Seq:           rec.Seq,
		Reference:     rec.Reference,
		TransactionID: rec.TransactionID,
		Date:          rec.Date,
		Status:        model.BatchStatus(rec.Status),
		ReversalOf:    rec.ReversalOf,
		ReversedBy:    rec.ReversedBy,
		CreatedAt:     rec.CreatedAt,
		CreatedBy:     rec.CreatedBy,
	}, rec.Lines, nil
}

func marshalEntry(e model.LedgerEntry, batchSeq int64, line int) ([]byte, error) {
	rec := entryRecord{
		ID:            e.ID,
		BatchID:       e.BatchID,
		BatchSeq:      batchSeq,
		Line:          line,
		TransactionID: e.TransactionID,
		AccountCode:   e.AccountCode,
		Description:   e.Description,
		Debit:         e.Debit,
		Credit:        e.Credit,
		Balance:       e.Balance,
		Date:          e.Date,
		Status:        string(e.Status),
		CreatedAt:     e.CreatedAt,
		CreatedBy:     e.CreatedBy,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("marshaling entry %s: %w", e.ID, err)
	}
	return data, nil
}

func unmarshalEntry(data []byte) (entryRecord, error) {
	var rec entryRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return entryRecord{}, fmt.Errorf("unmarshaling entry: %w", err)
	}
	return rec, nil
}

func (r entryRecord) toModel() model.LedgerEntry {
	return model.LedgerEntry{
		ID:            r.ID,
		BatchID:       r.BatchID,
		TransactionID: r.TransactionID,
		AccountCode:   r.AccountCode,
		Description:   r.Description,
		Debit:         r.Debit,
		Credit:        r.Credit,
		Balance:       r.Balance,
		Date:          r.Date,
		Status:        model.EntryStatus(r.Status),
		CreatedAt:     r.CreatedAt,
		CreatedBy:     r.CreatedBy,
	}
}
