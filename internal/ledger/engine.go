// Package ledger implements the double-entry posting engine: balanced
// batch creation, reversals, balance folds and trial balances over the
// journal store.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/caixa-dev/caixa/internal/coa"
	"github.com/caixa-dev/caixa/internal/id"
	"github.com/caixa-dev/caixa/internal/journal"
	"github.com/caixa-dev/caixa/internal/model"
)

var (
	// ErrTooFewLines means a batch had fewer than two lines.
	ErrTooFewLines = errors.New("batch needs at least 2 lines")
	// ErrInvalidLine means a line had both sides, neither side, or a negative amount.
	ErrInvalidLine = errors.New("line must have exactly one positive side")
	// ErrUnknownAccount means a line referenced a code missing from the chart.
	ErrUnknownAccount = errors.New("unknown account")
	// ErrAccountNotPostable means the account exists but does not accept entries.
	ErrAccountNotPostable = errors.New("account does not accept entries")
	// ErrUnbalanced means debits and credits differ beyond the tolerance.
	ErrUnbalanced = errors.New("batch does not balance")
)

// Line is one proposed debit or credit in a posting request.
type Line struct {
	AccountCode string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
}

// PostRequest describes a batch to post.
type PostRequest struct {
	Lines         []Line
	Date          time.Time
	Reference     string
	TransactionID string
	CreatedBy     string
}

// Engine posts and reverses batches and computes balances. Writers are
// serialized under one mutex: balance computation is a fold over the full
// entry history, and a concurrent writer could produce a torn read.
type Engine struct {
	store    *journal.Store
	accounts *coa.Service
	log      *zap.Logger
	now      func() time.Time

	mu sync.Mutex // serializes PostBatch and ReverseBatch
}

// NewEngine creates a ledger engine over a journal store and a chart of
// accounts.
func NewEngine(store *journal.Store, accounts *coa.Service, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store:    store,
		accounts: accounts,
		log:      log,
		now:      time.Now,
	}
}

// SetClock overrides the engine's clock. Intended for tests.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// PostBatch validates and atomically appends a balanced batch. On any
// validation or storage error nothing is written; a partial batch never
// persists.
func (e *Engine) PostBatch(ctx context.Context, req PostRequest) (model.Batch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.validateLines(req.Lines); err != nil {
		return model.Batch{}, err
	}

	seq, err := e.store.NextSeq(ctx)
	if err != nil {
		return model.Batch{}, err
	}

	batchID := id.NewBatchID()
	createdAt := e.now()
	batch := model.Batch{
		ID:            batchID,
		Seq:           seq,
		Reference:     req.Reference,
		TransactionID: req.TransactionID,
		Date:          req.Date,
		Status:        model.BatchStatusConfirmed,
		CreatedAt:     createdAt,
		CreatedBy:     req.CreatedBy,
	}

	// Running balances: replay each account's history up to the batch
	// date, then add this batch's own lines in order.
	running := make(map[string]decimal.Decimal)
	for i, line := range req.Lines {
		acct, _ := e.accounts.Get(line.AccountCode)
		if _, seen := running[line.AccountCode]; !seen {
			bal, err := e.foldAccount(ctx, acct, req.Date)
			if err != nil {
				return model.Batch{}, err
			}
			running[line.AccountCode] = bal
		}
		delta := line.Debit.Sub(line.Credit)
		if acct.NormalBalance == model.SideCredit {
			delta = line.Credit.Sub(line.Debit)
		}
		running[line.AccountCode] = running[line.AccountCode].Add(delta)

		batch.Entries = append(batch.Entries, model.LedgerEntry{
			ID:            id.EntryID(batchID, i),
			BatchID:       batchID,
			TransactionID: req.TransactionID,
			AccountCode:   line.AccountCode,
			Description:   line.Description,
			Debit:         line.Debit,
			Credit:        line.Credit,
			Balance:       running[line.AccountCode],
			Date:          req.Date,
			Status:        model.EntryStatusConfirmed,
			CreatedAt:     createdAt,
			CreatedBy:     req.CreatedBy,
		})
	}

	if err := e.store.AppendBatch(ctx, batch); err != nil {
		return model.Batch{}, err
	}

	e.log.Info("posted batch",
		zap.String("batch_id", batch.ID),
		zap.String("reference", batch.Reference),
		zap.Int("lines", len(batch.Entries)),
		zap.String("total", batch.TotalDebit().StringFixed(2)),
	)
	return batch, nil
}

func (e *Engine) validateLines(lines []Line) error {
	if len(lines) < 2 {
		return fmt.Errorf("%w: got %d", ErrTooFewLines, len(lines))
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for i, line := range lines {
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("%w: line %d has a negative amount", ErrInvalidLine, i)
		}
		hasDebit := line.Debit.IsPositive()
		hasCredit := line.Credit.IsPositive()
		if hasDebit == hasCredit {
			return fmt.Errorf("%w: line %d", ErrInvalidLine, i)
		}

		acct, ok := e.accounts.Get(line.AccountCode)
		if !ok {
			return fmt.Errorf("%w: %s (line %d)", ErrUnknownAccount, line.AccountCode, i)
		}
		if !acct.IsActive || !acct.AcceptsEntries {
			return fmt.Errorf("%w: %s (line %d)", ErrAccountNotPostable, line.AccountCode, i)
		}

		totalDebit = totalDebit.Add(line.Debit)
		totalCredit = totalCredit.Add(line.Credit)
	}

	if !model.WithinTolerance(totalDebit, totalCredit) {
		return fmt.Errorf("%w: debits %s, credits %s",
			ErrUnbalanced, totalDebit.StringFixed(2), totalCredit.StringFixed(2))
	}
	return nil
}

// ReverseBatch creates a compensating batch that swaps every line's
// debit and credit, dated at reversal time, and marks the original
// REVERSED. Only CONFIRMED batches can be reversed; entries are never
// edited or deleted.
func (e *Engine) ReverseBatch(ctx context.Context, batchID, reason string, reversedBy string) (model.Batch, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	original, err := e.store.Batch(ctx, batchID)
	if err != nil {
		return model.Batch{}, err
	}
	if original.Status != model.BatchStatusConfirmed {
		return model.Batch{}, fmt.Errorf("%w: %s is %s", journal.ErrNotReversible, batchID, original.Status)
	}

	seq, err := e.store.NextSeq(ctx)
	if err != nil {
		return model.Batch{}, err
	}

	now := e.now()
	reversalID := id.NewBatchID()
	reversal := model.Batch{
		ID:            reversalID,
		Seq:           seq,
		Reference:     fmt.Sprintf("estorno de %s: %s", original.Reference, reason),
		TransactionID: original.TransactionID,
		Date:          now,
		Status:        model.BatchStatusConfirmed,
		ReversalOf:    original.ID,
		CreatedAt:     now,
		CreatedBy:     reversedBy,
	}

	running := make(map[string]decimal.Decimal)
	for i, entry := range original.Entries {
		acct, _ := e.accounts.Get(entry.AccountCode)
		if _, seen := running[entry.AccountCode]; !seen {
			bal, err := e.foldAccount(ctx, acct, now)
			if err != nil {
				return model.Batch{}, err
			}
			running[entry.AccountCode] = bal
		}
		// Swapped sides cancel the original's contribution.
		delta := entry.Credit.Sub(entry.Debit)
		if acct.NormalBalance == model.SideCredit {
			delta = entry.Debit.Sub(entry.Credit)
		}
		running[entry.AccountCode] = running[entry.AccountCode].Add(delta)

		reversal.Entries = append(reversal.Entries, model.LedgerEntry{
			ID:            id.EntryID(reversalID, i),
			BatchID:       reversalID,
			TransactionID: entry.TransactionID,
			AccountCode:   entry.AccountCode,
			Description:   "estorno: " + entry.Description,
			Debit:         entry.Credit,
			Credit:        entry.Debit,
			Balance:       running[entry.AccountCode],
			Date:          now,
			Status:        model.EntryStatusConfirmed,
			CreatedAt:     now,
			CreatedBy:     reversedBy,
		})
	}

	original.Status = model.BatchStatusReversed
	original.ReversedBy = reversalID
	originalHeader := original
	originalHeader.Entries = nil

	if err := e.store.AppendReversal(ctx, originalHeader, reversal); err != nil {
		return model.Batch{}, err
	}

	e.log.Info("reversed batch",
		zap.String("batch_id", original.ID),
		zap.String("reversal_id", reversalID),
		zap.String("reason", reason),
	)
	return reversal, nil
}
